package pipeline

import (
	"fmt"

	"woboard/internal"
)

// ExtractFromInput runs the engine without a board. For the text kind input is
// the document itself, for every other kind it is a file path.
func ExtractFromInput(kind internal.DocumentKind, input, project string) (internal.Record, error) {
	var doc Document
	switch kind {
	case internal.KindText:
		doc = Document{Kind: internal.KindText, Blob: []byte(input)}
	case internal.KindPDF, internal.KindEmail, internal.KindHTML, "":
		d, err := DecodeFile(input, kind)
		if err != nil {
			return internal.Record{}, err
		}
		doc = d
	default:
		return internal.Record{}, fmt.Errorf("unsupported input type: %s", kind)
	}

	text, err := DecodeText(doc)
	if err != nil {
		return internal.Record{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	ex := NewEngine().Extract(text)
	return Assemble(ex, internal.Identity{}, Source{FileName: doc.Name, Project: project}), nil
}
