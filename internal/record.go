package internal

import (
	"encoding/json"
	"strings"

	"woboard/internal/util"
)

// Record is the normalized result for one document. Every field of AllFields is
// reported; fields without a value read as NotAvailable. A Record is never
// modified after construction.
type Record struct {
	values map[Field]string
}

// NewRecord copies the present values. Blank values and the display sentinel are
// treated as absent.
func NewRecord(values map[Field]string) Record {
	out := make(map[Field]string, len(values))
	for f, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == NotAvailable {
			continue
		}
		out[f] = v
	}
	return Record{values: out}
}

// RecordFromMap rebuilds a record from its display form, ignoring unknown keys.
func RecordFromMap(m map[string]string) Record {
	values := make(map[Field]string, len(m))
	for k, v := range m {
		if IsField(k) {
			values[Field(k)] = v
		}
	}
	return NewRecord(values)
}

func (r Record) Get(f Field) (string, bool) {
	v, ok := r.values[f]
	return v, ok
}

func (r Record) Has(f Field) bool {
	_, ok := r.values[f]
	return ok
}

func (r Record) Display(f Field) string {
	if v, ok := r.values[f]; ok {
		return v
	}
	return NotAvailable
}

// Int coerces a field for a numeric column; absent or non-numeric values are 0.
func (r Record) Int(f Field) int64 {
	v, ok := r.values[f]
	if !ok {
		return 0
	}
	return util.CoerceInt(v)
}

// Map returns the display form with every field present.
func (r Record) Map() map[string]string {
	out := make(map[string]string, len(AllFields))
	for _, f := range AllFields {
		out[string(f)] = r.Display(f)
	}
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = RecordFromMap(m)
	return nil
}
