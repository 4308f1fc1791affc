package board

import (
	"fmt"
	"strings"
	"time"

	"woboard/internal"
)

// Column ids of the work-order board.
const (
	ColText            = "text_column"
	ColDate            = "date_column"
	ColLocation        = "location_column"
	ColCity            = "city_column"
	ColState           = "state_column"
	ColPhone           = "phone_column"
	ColBackupPhone     = "backup_phone_column"
	ColPrice           = "price_column"
	ColShippingTerms   = "shipping_terms_column"
	ColPaymentTerms    = "payment_terms_column"
	ColItemDescription = "item_description_column"
	ColUnitCost        = "unit_cost_column"
	ColQuantity        = "quantity_column"
	ColTotalCost       = "total_cost_column"
	ColNotes           = "notes_column"
	ColProject         = "project_column"
	ColPM              = "pm_column"
	ColPMEmail         = "pm_email_column"
	ColWONumber        = "wo_number_column"
	ColPONumber        = "po_number_column"
	ColWOFile          = "wo_file_column"
	ColPeople          = "people_column"
)

var textColumns = []struct {
	column string
	field  internal.Field
}{
	{ColLocation, internal.FieldLocation},
	{ColCity, internal.FieldCity},
	{ColState, internal.FieldState},
	{ColPhone, internal.FieldCheckInPhone},
	{ColBackupPhone, internal.FieldBackupPhone},
	{ColPrice, internal.FieldFlatRatePrice},
	{ColShippingTerms, internal.FieldShippingTerms},
	{ColPaymentTerms, internal.FieldPaymentTerms},
	{ColItemDescription, internal.FieldItemDescription},
	{ColUnitCost, internal.FieldUnitCost},
	{ColQuantity, internal.FieldQuantity},
	{ColTotalCost, internal.FieldTotalCost},
	{ColNotes, internal.FieldNotes},
	{ColProject, internal.FieldProject},
	{ColPM, internal.FieldPM},
	{ColPMEmail, internal.FieldPMEmail},
	{ColWOFile, internal.FieldWOFile},
}

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006-01-02",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ItemName is the board item title for a record.
func ItemName(rec internal.Record) string {
	return "Work Order " + rec.Display(internal.FieldWorkOrder)
}

// ColumnValues maps a record onto board columns. Absent text fields are sent
// as the display sentinel, order numbers as integers.
func ColumnValues(rec internal.Record) map[string]any {
	cols := map[string]any{
		ColText:     fmt.Sprintf("WO: %s | PO: %s", rec.Display(internal.FieldWorkOrder), rec.Display(internal.FieldPurchaseOrder)),
		ColWONumber: rec.Int(internal.FieldWorkOrder),
		ColPONumber: rec.Int(internal.FieldPurchaseOrder),
	}
	for _, c := range textColumns {
		cols[c.column] = rec.Display(c.field)
	}

	if v, ok := rec.Get(internal.FieldScheduledDate); ok {
		if date, ok := BoardDate(v); ok {
			cols[ColDate] = map[string]string{"date": date}
		}
	}

	if id, ok := rec.Get(internal.FieldAssignee); ok {
		var person any = id
		if n := rec.Int(internal.FieldAssignee); n > 0 {
			person = n
		}
		cols[ColPeople] = map[string]any{
			"personsAndTeams": []map[string]any{{"id": person, "kind": "person"}},
		}
	}
	return cols
}

// BoardDate converts a document date to YYYY-MM-DD. Trailing time text is
// ignored.
func BoardDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	candidates := []string{value}
	if fields := strings.Fields(value); len(fields) > 1 {
		candidates = append(candidates, fields[0])
	}
	for _, candidate := range candidates {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
	}
	return "", false
}
