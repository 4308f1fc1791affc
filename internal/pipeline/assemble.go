package pipeline

import (
	"path/filepath"

	"woboard/internal"
)

// Source describes where a document came from.
type Source struct {
	FileName string
	Project  string
}

// Assemble merges the passes into a record. Line and body values win, fallback
// values only fill absent fields, and identity supplies the assignee.
func Assemble(ex Extraction, identity internal.Identity, src Source) internal.Record {
	values := make(map[internal.Field]string, len(internal.AllFields))
	for f, v := range ex.Fallback {
		values[f] = v
	}
	for f, v := range ex.Primary {
		values[f] = v
	}
	if src.Project != "" {
		values[internal.FieldProject] = src.Project
	}
	if src.FileName != "" {
		values[internal.FieldWOFile] = filepath.Base(src.FileName)
	}
	if identity.ID != "" {
		values[internal.FieldAssignee] = identity.ID
	}
	return internal.NewRecord(values)
}
