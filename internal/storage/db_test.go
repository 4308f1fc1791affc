package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woboard/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpsertDocumentKeepsStatus(t *testing.T) {
	db := openTestDB(t)

	doc, err := db.UpsertDocument("gmail", "m-1", "WO 1", "a@b.c", "2025-01-01T00:00:00Z", "h1", "/raw/h1.eml", internal.StatusFetched)
	require.NoError(t, err)
	require.NoError(t, db.UpdateDocumentStatus(doc.ID, internal.StatusCreated))

	again, err := db.UpsertDocument("gmail", "m-1", "WO 1 (fwd)", "a@b.c", "2025-01-01T00:00:00Z", "h1", "/raw/h1.eml", internal.StatusFetched)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)
	assert.Equal(t, string(internal.StatusCreated), again.Status)
	assert.Equal(t, "WO 1 (fwd)", again.Subject)
}

func TestListDocumentsByStatus(t *testing.T) {
	db := openTestDB(t)

	_, err := db.UpsertDocument("imap", "1", "", "", "2025-01-02", "a", "a.eml", internal.StatusFetched)
	require.NoError(t, err)
	_, err = db.UpsertDocument("imap", "2", "", "", "2025-01-01", "b", "b.eml", internal.StatusFetched)
	require.NoError(t, err)
	_, err = db.UpsertDocument("imap", "3", "", "", "2025-01-03", "c", "c.eml", internal.StatusSkipped)
	require.NoError(t, err)

	rows, err := db.ListDocumentsByStatus(internal.StatusFetched, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0].MessageID)
	assert.Equal(t, "1", rows[1].MessageID)

	missing, err := db.GetDocumentByProviderMessageID("imap", "404")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = db.MustDocumentByProviderMessageID("imap", "404")
	assert.Error(t, err)
}

func TestExtractionItemLifecycle(t *testing.T) {
	db := openTestDB(t)

	doc, err := db.UpsertDocument("upload", "wo.pdf", "", "", "", "h", "", internal.StatusFetched)
	require.NoError(t, err)

	rec := internal.NewRecord(map[internal.Field]string{internal.FieldWorkOrder: "123"})
	failedID, err := db.InsertExtraction(doc.ID, "body", "t-1", rec, []string{"work-order"})
	require.NoError(t, err)
	require.NoError(t, db.InsertItem(failedID, "42", nil, "u1", internal.StatusFailed, "boom"))

	none, err := db.CreatedItemForPart(doc.ID, "body")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, db.ClearFailedExtractions(doc.ID))

	okID, err := db.InsertExtraction(doc.ID, "body", "t-2", rec, nil)
	require.NoError(t, err)
	itemID := "9001"
	require.NoError(t, db.InsertItem(okID, "42", &itemID, "u1", internal.StatusCreated, ""))

	created, err := db.CreatedItemForPart(doc.ID, "body")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "9001", *created)

	require.NoError(t, db.ClearFailedExtractions(doc.ID))

	rows, err := db.GetExportRows(0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t-2", rows[0].TraceID)
	assert.Equal(t, "123", rows[0].Fields["workOrder"])
	assert.Equal(t, internal.NotAvailable, rows[0].Fields["state"])
	require.NotNil(t, rows[0].ItemID)
	assert.Equal(t, "9001", *rows[0].ItemID)
	assert.Equal(t, string(internal.StatusCreated), rows[0].Status)
}

func TestMetadataAndRuns(t *testing.T) {
	db := openTestDB(t)

	value, err := db.GetMetadata("board")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, db.SetMetadata("board", "1"))
	require.NoError(t, db.SetMetadata("board", "2"))
	value, err = db.GetMetadata("board")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "2", *value)

	require.NoError(t, db.InsertRun("t", 0, map[string]float64{"totalMs": 1}, map[string]int{"created": 0}))
}
