package http

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/dosing-console/internal/domain/production"
)

func sampleOrder() production.Order {
	return production.Order{
		ID:            3,
		OrderNumber:   "PO-100",
		FormulaID:     1,
		BatchSize:     50,
		ScheduledDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Status:        production.OrderPlanned,
		Notes:         "rush order",
	}
}

func TestMergeOrderAbsentFieldsKeepValues(t *testing.T) {
	o := sampleOrder()
	require.NoError(t, mergeOrder(&o, strings.NewReader(`{"batch_size": 75}`)))

	assert.Equal(t, 75.0, o.BatchSize)
	assert.Equal(t, "PO-100", o.OrderNumber)
	assert.Equal(t, "rush order", o.Notes)
	assert.Equal(t, production.OrderPlanned, o.Status)
}

func TestMergeOrderClearsNotesExplicitly(t *testing.T) {
	o := sampleOrder()
	require.NoError(t, mergeOrder(&o, strings.NewReader(`{"notes": ""}`)))
	assert.Equal(t, "", o.Notes)
}

func TestMergeOrderParsesScheduledDate(t *testing.T) {
	o := sampleOrder()
	require.NoError(t, mergeOrder(&o, strings.NewReader(`{"scheduled_date": "2026-10-15"}`)))
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), o.ScheduledDate)

	err := mergeOrder(&o, strings.NewReader(`{"scheduled_date": "15/10/2026"}`))
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestMergeOrderRejectsBadValues(t *testing.T) {
	o := sampleOrder()
	assert.Error(t, mergeOrder(&o, strings.NewReader(`{"batch_size": "a lot"}`)))
	assert.Error(t, mergeOrder(&o, strings.NewReader(`not json`)))
}
