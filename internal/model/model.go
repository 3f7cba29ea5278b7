// Package model содержит доменные сущности сервиса проверки ИНН.
package model

import (
	"time"

	"github.com/mmeshcher/inn-checker/internal/validation"
)

// Check описывает одну проверку ИНН, сохранённую в журнале.
type Check struct {
	Number    string
	PayerType validation.PayerType
	Result    validation.Result
	CheckedAt time.Time
}

// Stats содержит количество проверок в журнале по результатам.
// Проверки без значения (UNKNOWN) в журнал не попадают.
type Stats struct {
	Valid   int64 `json:"valid"`
	Invalid int64 `json:"invalid"`
}
