package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"

	"woboard/internal"
	"woboard/internal/util"
)

// Document is one unit of work-order input. Blob holds the raw bytes in the
// format named by Kind.
type Document struct {
	Name       string
	Kind       internal.DocumentKind
	Blob       []byte
	Part       string
	DocumentID int
}

// Email is a decoded message. Parts are the documents it contributes: its PDF
// attachments, or the body when it has none.
type Email struct {
	Subject         string
	From            string
	Body            string
	HasHTML         bool
	AttachmentNames []string
	Parts           []Document
}

const blockSelector = "p, div, li, tr, table, h1, h2, h3, h4, h5, h6, blockquote, pre"

// KindFromName picks the decoder for a file name.
func KindFromName(name string) internal.DocumentKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return internal.KindPDF
	case ".eml":
		return internal.KindEmail
	case ".html", ".htm":
		return internal.KindHTML
	default:
		return internal.KindText
	}
}

func DecodeFile(path string, kind internal.DocumentKind) (Document, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	if kind == "" {
		kind = KindFromName(path)
	}
	return Document{Name: filepath.Base(path), Kind: kind, Blob: blob}, nil
}

// DecodeText turns a document into the plain text the engine reads.
func DecodeText(doc Document) (string, error) {
	switch doc.Kind {
	case internal.KindPDF:
		return DecodePDF(doc.Blob)
	case internal.KindHTML:
		return DecodeHTML(string(doc.Blob))
	case internal.KindEmail:
		email, err := DecodeEmail(doc.Blob)
		if err != nil {
			return "", err
		}
		return email.Body, nil
	case internal.KindText, "":
		return string(doc.Blob), nil
	default:
		return "", fmt.Errorf("unsupported document kind: %s", doc.Kind)
	}
}

func DecodePDF(blob []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

// DecodeHTML flattens markup to lines: block elements and table rows each end
// a line, table cells are joined with a space.
func DecodeHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			if text := util.NormalizeSpaces(cell.Text()); text != "" {
				cells = append(cells, text)
			}
		})
		row.SetText(strings.Join(cells, " "))
	})
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n")
		s.AppendHtml("\n")
	})

	out := []string{}
	blank := true
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = util.NormalizeSpaces(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n"), nil
}

func DecodeEmail(raw []byte) (Email, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Email{}, err
	}

	email := Email{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
		Body:    env.Text,
		HasHTML: env.HTML != "",
	}
	if env.HTML != "" && !hasPlainTextPart(env) {
		body, err := DecodeHTML(env.HTML)
		if err == nil {
			email.Body = body
		}
	}

	attachments := append([]*enmime.Part{}, env.Attachments...)
	attachments = append(attachments, env.Inlines...)
	for _, att := range attachments {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			name = "attachment"
		}
		email.AttachmentNames = append(email.AttachmentNames, name)
		if !isPDFPart(att, name) {
			continue
		}
		email.Parts = append(email.Parts, Document{
			Name: name,
			Kind: internal.KindPDF,
			Blob: att.Content,
			Part: name,
		})
	}

	if len(email.Parts) == 0 {
		email.Parts = append(email.Parts, Document{
			Name: "body",
			Kind: internal.KindText,
			Blob: []byte(email.Body),
			Part: "body",
		})
	}
	return email, nil
}

func hasPlainTextPart(env *enmime.Envelope) bool {
	if env.Root == nil {
		return false
	}
	return env.Root.BreadthMatchFirst(func(p *enmime.Part) bool {
		return p.ContentType == "text/plain" && p.Disposition != "attachment"
	}) != nil
}

func isPDFPart(p *enmime.Part, name string) bool {
	return strings.EqualFold(p.ContentType, "application/pdf") ||
		strings.HasSuffix(strings.ToLower(name), ".pdf")
}
