package internal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDisplayAndCoercion(t *testing.T) {
	rec := NewRecord(map[Field]string{
		FieldWorkOrder:     "00123",
		FieldPurchaseOrder: NotAvailable,
		FieldNotes:         "   ",
	})

	assert.Equal(t, "00123", rec.Display(FieldWorkOrder))
	assert.Equal(t, int64(123), rec.Int(FieldWorkOrder))
	assert.False(t, rec.Has(FieldPurchaseOrder))
	assert.Equal(t, int64(0), rec.Int(FieldPurchaseOrder))
	assert.Equal(t, NotAvailable, rec.Display(FieldNotes))

	m := rec.Map()
	assert.Len(t, m, len(AllFields))
	for _, f := range AllFields {
		assert.Contains(t, m, string(f))
	}
}

func TestRecordIsolatedFromInput(t *testing.T) {
	values := map[Field]string{FieldState: "GA"}
	rec := NewRecord(values)
	values[FieldState] = "TX"

	m := rec.Map()
	m[string(FieldState)] = "FL"

	assert.Equal(t, "GA", rec.Display(FieldState))
}

func TestRecordJSONRoundTrip(t *testing.T) {
	rec := NewRecord(map[Field]string{FieldWorkOrder: "55", FieldCity: "Atlanta"})

	blob, err := json.Marshal(rec)
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(blob, &back))
	assert.Equal(t, rec, back)
	assert.False(t, back.Has(FieldNotes))
}
