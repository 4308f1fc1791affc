package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"woboard/internal"
	"woboard/internal/config"
	"woboard/internal/storage"
	"woboard/internal/util"
)

var (
	ErrDecode   = errors.New("failed to decode document")
	ErrIdentity = errors.New("failed to resolve board identity")
	ErrCreate   = errors.New("failed to create board item")
)

// Board is the item-creation collaborator.
type Board interface {
	Me(ctx context.Context) (internal.Identity, error)
	SubmitRecord(ctx context.Context, rec internal.Record) (string, error)
}

type Outcome struct {
	TraceID    string
	DocumentID int
	Part       string
	Record     internal.Record
	Fired      []string
	ItemID     string
	// AlreadyCreated is set when an earlier run created the item for this part.
	AlreadyCreated bool
}

type Processor struct {
	board     Board
	db        *storage.DB
	engine    *Engine
	project   string
	boardID   string
	threshold float64
	log       zerolog.Logger
}

// NewProcessor wires the pipeline. db may be nil, in which case nothing is
// recorded and mail documents cannot be processed.
func NewProcessor(board Board, db *storage.DB, cfg config.Config, log zerolog.Logger) *Processor {
	return &Processor{
		board:     board,
		db:        db,
		engine:    NewEngine(),
		project:   cfg.ProjectName,
		boardID:   cfg.MondayBoardID,
		threshold: cfg.DetectThreshold,
		log:       log.With().Str("component", "processor").Logger(),
	}
}

// Process turns one document into one board item.
func (p *Processor) Process(ctx context.Context, doc Document) (Outcome, error) {
	start := time.Now()
	traceID := uuid.NewString()
	log := p.log.With().Str("trace_id", traceID).Str("document", doc.Name).Logger()
	out := Outcome{TraceID: traceID, DocumentID: doc.DocumentID, Part: partName(doc)}

	standalone := doc.DocumentID == 0
	if standalone {
		id, err := p.registerUpload(doc, traceID)
		if err != nil {
			return out, err
		}
		out.DocumentID = id
	} else if p.db != nil {
		existing, err := p.db.CreatedItemForPart(doc.DocumentID, out.Part)
		if err != nil {
			return out, err
		}
		if existing != nil {
			log.Debug().Str("item_id", *existing).Msg("item already created")
			out.ItemID = *existing
			out.AlreadyCreated = true
			return out, nil
		}
	}

	text, err := DecodeText(doc)
	if err != nil {
		p.finish(out, standalone, internal.StatusFailed, start)
		return out, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	decoded := time.Now()

	ex := p.engine.Extract(text)
	out.Fired = ex.Fired

	identity, err := p.board.Me(ctx)
	if err != nil {
		out.Record = Assemble(ex, internal.Identity{}, Source{FileName: doc.Name, Project: p.project})
		p.recordItem(out, nil, "", err)
		p.finish(out, standalone, internal.StatusFailed, start)
		return out, fmt.Errorf("%w: %v", ErrIdentity, err)
	}

	out.Record = Assemble(ex, identity, Source{FileName: doc.Name, Project: p.project})
	extractionID := p.recordExtraction(out)

	itemID, err := p.board.SubmitRecord(ctx, out.Record)
	if err != nil {
		p.insertItem(extractionID, nil, identity.ID, err)
		p.finish(out, standalone, internal.StatusFailed, start)
		return out, fmt.Errorf("%w: %v", ErrCreate, err)
	}
	out.ItemID = itemID
	p.insertItem(extractionID, &itemID, identity.ID, nil)

	log.Info().
		Str("item_id", itemID).
		Int("fields", presentFields(out.Record)).
		Dur("decode", decoded.Sub(start)).
		Dur("total", time.Since(start)).
		Msg("work order added to board")
	p.finish(out, standalone, internal.StatusCreated, start)
	return out, nil
}

// ProcessEmail treats a raw message as one document with one part per PDF
// attachment, or its body when it has none.
func (p *Processor) ProcessEmail(ctx context.Context, name string, raw []byte) ([]Outcome, error) {
	email, err := DecodeEmail(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	docID := 0
	if p.db != nil {
		row, err := p.db.UpsertDocument("upload", uuid.NewString(), email.Subject, email.From, time.Now().UTC().Format(time.RFC3339), hashBytes(raw), "", internal.StatusFetched)
		if err != nil {
			return nil, err
		}
		docID = row.ID
	}
	return p.processParts(ctx, docID, name, email)
}

// ProcessDocumentRow processes a fetched mail document. Messages that do not
// look like work orders are marked skipped.
func (p *Processor) ProcessDocumentRow(ctx context.Context, row internal.DocumentRow) ([]Outcome, error) {
	if p.db == nil {
		return nil, errors.New("mail processing requires a database")
	}
	start := time.Now()

	raw, err := os.ReadFile(row.RawRef)
	if err != nil {
		_ = p.db.UpdateDocumentStatus(row.ID, internal.StatusFailed)
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	email, err := DecodeEmail(raw)
	if err != nil {
		_ = p.db.UpdateDocumentStatus(row.ID, internal.StatusFailed)
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	detect := DetectWorkOrder(util.FirstNonEmpty(email.Subject, row.Subject), email.Body, email.AttachmentNames, p.threshold)
	if !detect.IsWorkOrder {
		p.log.Debug().Int("document_id", row.ID).Float64("score", detect.Score).Msg("not a work order")
		_ = p.db.UpdateDocumentStatus(row.ID, internal.StatusSkipped)
		_ = p.db.InsertRun(uuid.NewString(), row.ID, map[string]float64{"totalMs": msSince(start)}, map[string]int{"parts": 0, "created": 0})
		return nil, nil
	}

	if err := p.db.ClearFailedExtractions(row.ID); err != nil {
		return nil, err
	}
	return p.processParts(ctx, row.ID, util.FirstNonEmpty(email.Subject, row.Subject, row.MessageID), email)
}

func (p *Processor) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) ([]Outcome, error) {
	if p.db == nil {
		return nil, errors.New("mail processing requires a database")
	}
	row, err := p.db.MustDocumentByProviderMessageID(provider, messageID)
	if err != nil {
		return nil, err
	}
	return p.ProcessDocumentRow(ctx, row)
}

// ProcessPending works through fetched documents. It returns the number of
// documents handled and items created, and stops at the first identity error.
func (p *Processor) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	if p.db == nil {
		return 0, 0, errors.New("mail processing requires a database")
	}
	pending, err := p.db.ListDocumentsByStatus(internal.StatusFetched, limit)
	if err != nil {
		return 0, 0, err
	}

	documents, created := 0, 0
	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return documents, created, err
		}
		if provider != "" && row.Provider != provider {
			continue
		}
		outcomes, err := p.ProcessDocumentRow(ctx, row)
		documents++
		for _, o := range outcomes {
			if o.ItemID != "" && !o.AlreadyCreated {
				created++
			}
		}
		if errors.Is(err, ErrIdentity) {
			return documents, created, err
		}
		if err != nil {
			p.log.Warn().Err(err).Int("document_id", row.ID).Msg("document failed")
		}
	}
	return documents, created, nil
}

func (p *Processor) processParts(ctx context.Context, docID int, name string, email Email) ([]Outcome, error) {
	start := time.Now()
	outcomes := make([]Outcome, 0, len(email.Parts))
	var firstErr error

	for _, part := range email.Parts {
		part.DocumentID = docID
		if part.Part == "body" {
			part.Name = util.SanitizeFileName(strings.TrimSuffix(name, ".eml")) + ".eml"
		}
		o, err := p.Process(ctx, part)
		outcomes = append(outcomes, o)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if errors.Is(err, ErrIdentity) {
			break
		}
	}

	if p.db != nil && docID > 0 {
		status := internal.StatusCreated
		if firstErr != nil {
			status = internal.StatusFailed
		}
		_ = p.db.UpdateDocumentStatus(docID, status)
		created := 0
		for _, o := range outcomes {
			if o.ItemID != "" {
				created++
			}
		}
		_ = p.db.InsertRun(uuid.NewString(), docID, map[string]float64{"totalMs": msSince(start)}, map[string]int{"parts": len(email.Parts), "created": created})
	}
	return outcomes, firstErr
}

func (p *Processor) registerUpload(doc Document, traceID string) (int, error) {
	if p.db == nil {
		return 0, nil
	}
	row, err := p.db.UpsertDocument("upload", traceID, doc.Name, "", time.Now().UTC().Format(time.RFC3339), hashBytes(doc.Blob), "", internal.StatusFetched)
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (p *Processor) recordExtraction(out Outcome) int64 {
	if p.db == nil || out.DocumentID == 0 {
		return 0
	}
	id, err := p.db.InsertExtraction(out.DocumentID, out.Part, out.TraceID, out.Record, out.Fired)
	if err != nil {
		p.log.Warn().Err(err).Str("trace_id", out.TraceID).Msg("record extraction")
		return 0
	}
	return id
}

func (p *Processor) recordItem(out Outcome, itemID *string, assigneeID string, cause error) {
	p.insertItem(p.recordExtraction(out), itemID, assigneeID, cause)
}

func (p *Processor) insertItem(extractionID int64, itemID *string, assigneeID string, cause error) {
	if p.db == nil || extractionID == 0 {
		return
	}
	status := internal.StatusCreated
	msg := ""
	if cause != nil {
		status = internal.StatusFailed
		msg = cause.Error()
	}
	if err := p.db.InsertItem(extractionID, p.boardID, itemID, assigneeID, status, msg); err != nil {
		p.log.Warn().Err(err).Int64("extraction_id", extractionID).Msg("record item")
	}
}

func (p *Processor) finish(out Outcome, standalone bool, status internal.DocumentStatus, start time.Time) {
	if p.db == nil || out.DocumentID == 0 || !standalone {
		return
	}
	_ = p.db.UpdateDocumentStatus(out.DocumentID, status)
	created := 0
	if status == internal.StatusCreated {
		created = 1
	}
	_ = p.db.InsertRun(out.TraceID, out.DocumentID, map[string]float64{"totalMs": msSince(start)}, map[string]int{"fields": presentFields(out.Record), "created": created})
}

func partName(doc Document) string {
	return util.FirstNonEmpty(doc.Part, doc.Name, "document")
}

func presentFields(rec internal.Record) int {
	n := 0
	for _, f := range internal.AllFields {
		if rec.Has(f) {
			n++
		}
	}
	return n
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Milliseconds())
}
