package store

// schemaSQL is the DDL for all tables. Applied idempotently on open;
// incremental changes go through migrations.go.
const schemaSQL = `
-- Document records: one row per uploaded document, carrying everything the
-- conversation loop needs (category, extracted content, current markup,
-- full transcript).
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    category TEXT NOT NULL,
    extracted_text TEXT NOT NULL DEFAULT '',
    structured JSON,
    visualization TEXT,
    chat_history JSON NOT NULL DEFAULT '[]',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Source fragments: extra material attached to a document after upload.
-- Never classified on their own; removed with their parent.
CREATE TABLE IF NOT EXISTS source_fragments (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    origin_name TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    media_type TEXT NOT NULL DEFAULT '',
    attached_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_fragments_document
    ON source_fragments(document_id);

-- Schema version bookkeeping for migrations.
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    description TEXT,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
