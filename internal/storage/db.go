package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"woboard/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; the listener and the HTTP server share this handle.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS extractions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  documentId INTEGER NOT NULL,
  part TEXT NOT NULL,
  traceId TEXT NOT NULL,
  fieldsJson TEXT NOT NULL,
  firedJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);
CREATE INDEX IF NOT EXISTS idx_extractions_document ON extractions(documentId);

CREATE TABLE IF NOT EXISTS items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  extractionId INTEGER NOT NULL UNIQUE,
  boardId TEXT NOT NULL,
  itemId TEXT,
  assigneeId TEXT,
  status TEXT NOT NULL,
  error TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(extractionId) REFERENCES extractions(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  documentId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

const documentColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef`

func scanDocument(row interface{ Scan(...any) error }) (internal.DocumentRow, error) {
	var doc internal.DocumentRow
	err := row.Scan(&doc.ID, &doc.Provider, &doc.MessageID, &doc.Subject, &doc.Sender, &doc.ReceivedAt, &doc.Hash, &doc.Status, &doc.RawRef)
	return doc, err
}

// UpsertDocument inserts a document or refreshes its metadata. The status of an
// existing row is kept so a created document stays created.
func (d *DB) UpsertDocument(provider, messageID, subject, sender, receivedAt, hash, rawRef string, status internal.DocumentStatus) (internal.DocumentRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO documents (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, string(status), rawRef)
	if err != nil {
		return internal.DocumentRow{}, err
	}

	row, err := d.GetDocumentByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	if row == nil {
		return internal.DocumentRow{}, errors.New("failed to upsert document")
	}
	return *row, nil
}

func (d *DB) GetDocumentByProviderMessageID(provider, messageID string) (*internal.DocumentRow, error) {
	doc, err := scanDocument(d.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE provider = ? AND messageId = ?`, provider, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *DB) GetDocumentByID(id int) (*internal.DocumentRow, error) {
	doc, err := scanDocument(d.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *DB) MustDocumentByProviderMessageID(provider, messageID string) (internal.DocumentRow, error) {
	row, err := d.GetDocumentByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	if row == nil {
		return internal.DocumentRow{}, fmt.Errorf("document not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListDocumentsByStatus(status internal.DocumentStatus, limit int) ([]internal.DocumentRow, error) {
	rows, err := d.conn.Query(`SELECT `+documentColumns+` FROM documents WHERE status = ? ORDER BY receivedAt ASC, id ASC LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DocumentRow
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (d *DB) UpdateDocumentStatus(documentID int, status internal.DocumentStatus) error {
	_, err := d.conn.Exec(`UPDATE documents SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(status), documentID)
	return err
}

// ClearFailedExtractions drops earlier attempts of a document that never
// produced a board item, so a retry starts clean.
func (d *DB) ClearFailedExtractions(documentID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`
SELECT e.id FROM extractions e
LEFT JOIN items i ON i.extractionId = e.id
WHERE e.documentId = ? AND (i.id IS NULL OR i.status != ?)
`, documentID, string(internal.StatusCreated))
	if err != nil {
		return err
	}
	var extractionIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		extractionIDs = append(extractionIDs, id)
	}
	_ = rows.Close()

	for _, id := range extractionIDs {
		if _, err := tx.Exec(`DELETE FROM items WHERE extractionId = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM extractions WHERE id = ?`, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// CreatedItemForPart returns the board item already created for a document
// part, or nil.
func (d *DB) CreatedItemForPart(documentID int, part string) (*string, error) {
	var itemID string
	err := d.conn.QueryRow(`
SELECT i.itemId FROM items i
JOIN extractions e ON e.id = i.extractionId
WHERE e.documentId = ? AND e.part = ? AND i.status = ?
ORDER BY i.id DESC LIMIT 1
`, documentID, part, string(internal.StatusCreated)).Scan(&itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &itemID, nil
}

func (d *DB) InsertExtraction(documentID int, part, traceID string, record internal.Record, fired []string) (int64, error) {
	fieldsJSON, err := json.Marshal(record)
	if err != nil {
		return 0, err
	}
	firedJSON, _ := json.Marshal(fired)
	result, err := d.conn.Exec(`
INSERT INTO extractions (documentId, part, traceId, fieldsJson, firedJson)
VALUES (?, ?, ?, ?, ?)
`, documentID, part, traceID, string(fieldsJSON), string(firedJSON))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// InsertItem records the board outcome of an extraction. itemID is nil when
// creation failed.
func (d *DB) InsertItem(extractionID int64, boardID string, itemID *string, assigneeID string, status internal.DocumentStatus, errMsg string) error {
	var errValue *string
	if errMsg != "" {
		errValue = &errMsg
	}
	_, err := d.conn.Exec(`
INSERT INTO items (extractionId, boardId, itemId, assigneeId, status, error)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(extractionId) DO UPDATE SET
  itemId=excluded.itemId,
  status=excluded.status,
  error=excluded.error
`, extractionID, boardID, itemID, assigneeID, string(status), errValue)
	return err
}

func (d *DB) InsertRun(traceID string, documentID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	var docID *int
	if documentID > 0 {
		docID = &documentID
	}
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, documentId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, docID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// GetExportRows lists extractions with their board outcome. A documentID of 0
// selects every document.
func (d *DB) GetExportRows(documentID int) ([]internal.ItemExportRow, error) {
	rows, err := d.conn.Query(`
SELECT
  e.documentId,
  e.id,
  e.part,
  e.traceId,
  e.fieldsJson,
  i.itemId,
  COALESCE(i.status, doc.status)
FROM extractions e
JOIN documents doc ON doc.id = e.documentId
LEFT JOIN items i ON i.extractionId = e.id
WHERE (? = 0 OR e.documentId = ?)
ORDER BY e.documentId ASC, e.id ASC
`, documentID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ItemExportRow
	for rows.Next() {
		var row internal.ItemExportRow
		var fieldsJSON string
		if err := rows.Scan(&row.DocumentID, &row.ExtractionID, &row.Part, &row.TraceID, &fieldsJSON, &row.ItemID, &row.Status); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &row.Fields); err != nil {
			return nil, fmt.Errorf("extraction %d: %w", row.ExtractionID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
