package listener

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"woboard/internal"
	"woboard/internal/config"
	"woboard/internal/connectors"
	"woboard/internal/pipeline"
	"woboard/internal/storage"
)

const exportWatermarkKey = "listener.exported_through_extraction"

type Fetcher interface {
	FetchAndStore(ctx context.Context, label string, max int) (connectors.FetchResult, error)
}

type MailProcessor interface {
	ProcessPending(ctx context.Context, limit int, provider string) (int, int, error)
}

type CycleResult struct {
	Fetched    int
	New        int
	Documents  int
	Created    int
	ExportPath string
}

type Service struct {
	fetcher   Fetcher
	processor MailProcessor
	db        *storage.DB
	cfg       config.Config
	provider  string
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(fetcher Fetcher, processor MailProcessor, db *storage.DB, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		fetcher:   fetcher,
		processor: processor,
		db:        db,
		cfg:       cfg,
		provider:  strings.ToLower(strings.TrimSpace(cfg.MailListenerProvider)),
		log:       log.With().Str("component", "listener").Logger(),
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled. A failed cycle is logged and retried on
// the next tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(max(s.cfg.MailListenerIntervalSec, 1)) * time.Second
	for {
		res, err := s.RunCycle(ctx)
		switch {
		case errors.Is(err, pipeline.ErrIdentity):
			s.log.Error().Err(err).Msg("board identity unavailable, items not created")
		case err != nil:
			s.log.Error().Err(err).Msg("listener cycle failed")
		default:
			s.log.Info().
				Str("provider", s.provider).
				Int("fetched", res.Fetched).
				Int("new", res.New).
				Int("documents", res.Documents).
				Int("created", res.Created).
				Str("export", res.ExportPath).
				Msg("listener cycle done")
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	fetched, err := s.fetcher.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}
	res.Fetched, res.New = fetched.Fetched, fetched.New

	res.Documents, res.Created, err = s.processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, s.provider)
	if err != nil {
		return res, err
	}

	if s.cfg.MailListenerAutoExport && res.Created > 0 {
		path, err := s.exportCreated()
		if err != nil {
			return res, fmt.Errorf("export: %w", err)
		}
		res.ExportPath = path
	}
	return res, nil
}

// exportCreated writes the items created since the previous export to one
// workbook and advances the watermark.
func (s *Service) exportCreated() (string, error) {
	watermark := 0
	if v, err := s.db.GetMetadata(exportWatermarkKey); err != nil {
		return "", err
	} else if v != nil {
		watermark, _ = strconv.Atoi(*v)
	}

	rows, err := s.db.GetExportRows(0)
	if err != nil {
		return "", err
	}
	fresh := make([]internal.ItemExportRow, 0, len(rows))
	highest := watermark
	for _, row := range rows {
		if row.ExtractionID <= watermark || row.Status != string(internal.StatusCreated) {
			continue
		}
		fresh = append(fresh, row)
		highest = max(highest, row.ExtractionID)
	}
	if len(fresh) == 0 {
		return "", nil
	}

	filename := fmt.Sprintf("work_orders_%s.xlsx", s.now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(s.cfg.OutputDir, "listener", filename)
	if err := pipeline.ExportItemsToXLSX(fresh, path); err != nil {
		return "", err
	}
	return path, s.db.SetMetadata(exportWatermarkKey, strconv.Itoa(highest))
}
