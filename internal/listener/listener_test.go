package listener

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"woboard/internal"
	"woboard/internal/config"
	"woboard/internal/connectors"
	"woboard/internal/logger"
	"woboard/internal/pipeline"
	"woboard/internal/storage"
)

type stubBoard struct{ created int }

func (b *stubBoard) Me(context.Context) (internal.Identity, error) {
	return internal.Identity{ID: "42"}, nil
}

func (b *stubBoard) SubmitRecord(context.Context, internal.Record) (string, error) {
	b.created++
	return fmt.Sprintf("item-%d", b.created), nil
}

// inboxFetcher stores each queued message as a fetched document.
type inboxFetcher struct {
	db    *storage.DB
	dir   string
	queue map[string]string
	err   error
}

func (f *inboxFetcher) FetchAndStore(_ context.Context, _ string, _ int) (connectors.FetchResult, error) {
	if f.err != nil {
		return connectors.FetchResult{}, f.err
	}
	var res connectors.FetchResult
	for id, body := range f.queue {
		raw := "From: dispatch@example.com\r\nSubject: Work Order " + id + "\r\nContent-Type: text/plain\r\n\r\n" + body
		path := filepath.Join(f.dir, id+".eml")
		if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
			return res, err
		}
		if _, err := f.db.UpsertDocument("imap", id, "Work Order "+id, "dispatch@example.com", "2025-01-01T00:00:00Z", id, path, internal.StatusFetched); err != nil {
			return res, err
		}
		res.Fetched++
		res.Stored++
		res.New++
	}
	f.queue = nil
	return res, nil
}

func newTestService(t *testing.T, autoExport bool) (*Service, *inboxFetcher, *stubBoard, config.Config) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		OutputDir:                filepath.Join(dir, "out"),
		DetectThreshold:          0.45,
		MailListenerProvider:     "imap",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
		MailListenerIntervalSec:  1,
		MailListenerAutoExport:   autoExport,
	}
	board := &stubBoard{}
	fetcher := &inboxFetcher{db: db, dir: dir}
	processor := pipeline.NewProcessor(board, db, cfg, logger.Nop())
	svc := NewService(fetcher, processor, db, cfg, logger.Nop())
	svc.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	return svc, fetcher, board, cfg
}

func TestRunCycleCreatesAndExports(t *testing.T) {
	svc, fetcher, board, cfg := newTestService(t, true)
	fetcher.queue = map[string]string{"5521": "Work Order: 5521\r\nPurchase Order: 88\r\nState: GA\r\n"}

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.Documents)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, board.created)
	require.Equal(t, filepath.Join(cfg.OutputDir, "listener", "work_orders_20250304T050607Z.xlsx"), res.ExportPath)

	f, err := excelize.OpenFile(res.ExportPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("work_orders")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	res, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Empty(t, res.ExportPath)
}

func TestRunCycleWithoutExport(t *testing.T) {
	svc, fetcher, _, _ := newTestService(t, false)
	fetcher.queue = map[string]string{"9": "Work Order: 9\r\nPurchase Order: 1\r\nState: GA\r\n"}

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Empty(t, res.ExportPath)
}

func TestRunCycleFetchError(t *testing.T) {
	svc, fetcher, board, _ := newTestService(t, true)
	fetcher.err = errors.New("imap down")

	_, err := svc.RunCycle(context.Background())
	assert.ErrorContains(t, err, "imap down")
	assert.Zero(t, board.created)
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, _, _, _ := newTestService(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
