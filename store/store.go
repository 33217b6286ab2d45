// Package store persists document records in SQLite. It is the single owner
// of the on-disk state; mutation happens through narrow methods so the
// invariants (immutable category, markup and transcript updated together)
// hold at the persistence boundary too.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a document or fragment ID does not exist.
var ErrNotFound = errors.New("store: not found")

// Turn is one entry of a document's conversation transcript.
type Turn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// Document represents a row in the documents table. Structured holds the
// category-specific payload as JSON; Visualization is nil until the first
// state-mutating turn.
type Document struct {
	ID            string           `json:"id"`
	DisplayName   string           `json:"display_name"`
	Category      string           `json:"category"`
	ExtractedText string           `json:"extracted_text"`
	Structured    json.RawMessage  `json:"structured,omitempty"`
	Visualization *string          `json:"visualization,omitempty"`
	ChatHistory   []Turn           `json:"chat_history"`
	Fragments     []SourceFragment `json:"fragments,omitempty"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
}

// SourceFragment represents a row in the source_fragments table.
type SourceFragment struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	OriginName string `json:"origin_name"`
	Content    string `json:"content"`
	MediaType  string `json:"media_type"`
	AttachedAt string `json:"attached_at"`
}

// Store wraps the SQLite database for all docviz persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and initialises
// the schema.
func New(dbPath string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Document operations ---

// CreateDocument inserts a new document record. The caller supplies the ID.
func (s *Store) CreateDocument(ctx context.Context, doc Document) error {
	history := doc.ChatHistory
	if history == nil {
		history = []Turn{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding chat history: %w", err)
	}

	var structured interface{}
	if len(doc.Structured) > 0 {
		structured = string(doc.Structured)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, display_name, category, extracted_text, structured, visualization, chat_history)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.DisplayName, doc.Category, doc.ExtractedText,
		structured, doc.Visualization, string(historyJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// GetDocument loads a full document record including its source fragments.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, category, extracted_text, structured, visualization, chat_history, created_at, updated_at
		FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}

	frags, err := s.fragments(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Fragments = frags
	return doc, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var structured, visualization sql.NullString
	var historyJSON string

	err := row.Scan(&doc.ID, &doc.DisplayName, &doc.Category, &doc.ExtractedText,
		&structured, &visualization, &historyJSON, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if structured.Valid && structured.String != "" {
		doc.Structured = json.RawMessage(structured.String)
	}
	if visualization.Valid {
		v := visualization.String
		doc.Visualization = &v
	}
	if err := json.Unmarshal([]byte(historyJSON), &doc.ChatHistory); err != nil {
		return nil, fmt.Errorf("decoding chat history: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all document records, newest first, without their
// fragment contents.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, category, extracted_text, structured, visualization, chat_history, created_at, updated_at
		FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// RenameDocument updates a document's display name.
func (s *Store) RenameDocument(ctx context.Context, id, displayName string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET display_name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		displayName, id)
	if err != nil {
		return fmt.Errorf("renaming document: %w", err)
	}
	return requireRow(res)
}

// DeleteDocument removes a document and, via cascade, its fragments.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return requireRow(res)
}

// SaveTurn persists the outcome of one conversation turn. The transcript is
// replaced wholesale; markup is updated only when non-nil, so question-only
// turns leave the visualization byte-identical.
func (s *Store) SaveTurn(ctx context.Context, id string, markup *string, history []Turn) error {
	if history == nil {
		history = []Turn{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding chat history: %w", err)
	}

	var res sql.Result
	if markup != nil {
		res, err = s.db.ExecContext(ctx, `
			UPDATE documents SET visualization = ?, chat_history = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, *markup, string(historyJSON), id)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE documents SET chat_history = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, string(historyJSON), id)
	}
	if err != nil {
		return fmt.Errorf("saving turn: %w", err)
	}
	return requireRow(res)
}

// --- Fragment operations ---

// AddFragment attaches a source fragment to a document and touches the
// parent's updated_at in the same transaction.
func (s *Store) AddFragment(ctx context.Context, frag SourceFragment) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE documents SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			frag.DocumentID)
		if err != nil {
			return fmt.Errorf("touching document: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO source_fragments (id, document_id, origin_name, content, media_type)
			VALUES (?, ?, ?, ?, ?)`,
			frag.ID, frag.DocumentID, frag.OriginName, frag.Content, frag.MediaType)
		if err != nil {
			return fmt.Errorf("inserting fragment: %w", err)
		}
		return nil
	})
}

// RemoveFragment detaches a source fragment from its document.
func (s *Store) RemoveFragment(ctx context.Context, documentID, fragmentID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM source_fragments WHERE id = ? AND document_id = ?`,
		fragmentID, documentID)
	if err != nil {
		return fmt.Errorf("deleting fragment: %w", err)
	}
	return requireRow(res)
}

func (s *Store) fragments(ctx context.Context, documentID string) ([]SourceFragment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, origin_name, content, media_type, attached_at
		FROM source_fragments WHERE document_id = ? ORDER BY attached_at, id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing fragments: %w", err)
	}
	defer rows.Close()

	var frags []SourceFragment
	for rows.Next() {
		var f SourceFragment
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.OriginName, &f.Content, &f.MediaType, &f.AttachedAt); err != nil {
			return nil, fmt.Errorf("scanning fragment: %w", err)
		}
		frags = append(frags, f)
	}
	return frags, rows.Err()
}

// requireRow converts a zero-row update/delete into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
