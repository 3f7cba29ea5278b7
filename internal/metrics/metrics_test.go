package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/inn-checker/internal/validation"
)

func TestObserveCheck(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCheck(validation.ResultValid, validation.PayerTypeOrganization)
	m.ObserveCheck(validation.ResultValid, validation.PayerTypeOrganization)
	m.ObserveCheck(validation.ResultInvalid, validation.PayerTypeUnspecified)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Checks.WithLabelValues("VALID", "organization")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Checks.WithLabelValues("INVALID", "unspecified")))
}

func TestJournalCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveFlush(time.Now(), 3)
	m.IncrementDropped()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.JournalSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JournalDropped))
}
