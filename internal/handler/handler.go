// Package handler содержит HTTP-обработчики API сервиса проверки ИНН.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mmeshcher/inn-checker/internal/model"
	"github.com/mmeshcher/inn-checker/internal/service"
	"github.com/mmeshcher/inn-checker/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Check(ctx context.Context, candidate any, expected validation.PayerType) model.Check
	GetChecks(ctx context.Context, number string) ([]model.Check, error)
	GetStats(ctx context.Context) (*model.Stats, error)
}

// Handler реализует HTTP-обработчики API сервиса проверки ИНН.
type Handler struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) (*Handler, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := validation.RegisterTags(v); err != nil {
		return nil, err
	}

	return &Handler{
		service:  s,
		logger:   logger,
		validate: v,
	}, nil
}

type checkRequest struct {
	INN  any    `json:"inn"`
	Type string `json:"type" validate:"omitempty,oneof=organization individual_entrepreneur"`
}

type checkResponse struct {
	INN    string `json:"inn,omitempty"`
	Type   string `json:"type,omitempty"`
	Result string `json:"result"`
}

func newCheckResponse(c model.Check) checkResponse {
	return checkResponse{
		INN:    c.Number,
		Type:   string(c.PayerType),
		Result: string(c.Result),
	}
}

// Check проверяет ИНН, переданный в теле запроса строкой или числом.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.StructCtx(r.Context(), &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	c := h.service.Check(r.Context(), req.INN, validation.PayerType(req.Type))
	h.writeJSON(w, newCheckResponse(c))
}

// CheckByPath проверяет ИНН из пути запроса. Тип налогоплательщика передаётся параметром type.
func (h *Handler) CheckByPath(w http.ResponseWriter, r *http.Request) {
	payerType, err := validation.ParsePayerType(r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	c := h.service.Check(r.Context(), chi.URLParam(r, "number"), payerType)
	h.writeJSON(w, newCheckResponse(c))
}

type historyResponse struct {
	Type      string `json:"type,omitempty"`
	Result    string `json:"result"`
	CheckedAt string `json:"checked_at"`
}

// GetChecks возвращает историю проверок номера.
func (h *Handler) GetChecks(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	checks, err := h.service.GetChecks(r.Context(), number)
	if err != nil {
		if errors.Is(err, service.ErrJournalDisabled) {
			http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
			return
		}
		h.logger.Error("get checks error", zap.Error(err), zap.String("inn", number))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(checks) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]historyResponse, 0, len(checks))
	for _, c := range checks {
		resp = append(resp, historyResponse{
			Type:      string(c.PayerType),
			Result:    string(c.Result),
			CheckedAt: c.CheckedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, resp)
}

// GetStats возвращает количество проверок в журнале по результатам.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrJournalDisabled) {
			http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
			return
		}
		h.logger.Error("get stats error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, stats)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
