package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    parsed_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    file_path            TEXT NOT NULL REFERENCES file_tracker(file_path) ON DELETE CASCADE,
    seq                  INTEGER NOT NULL,
    session_id           TEXT NOT NULL,
    ts                   TEXT NOT NULL,
    model                TEXT NOT NULL,
    input_tokens         INTEGER NOT NULL,
    output_tokens        INTEGER NOT NULL,
    cache_write_tokens   INTEGER NOT NULL,
    cache_read_tokens    INTEGER NOT NULL,
    cost_usd             REAL,
    is_limit_error       INTEGER NOT NULL DEFAULT 0,
    message_id           TEXT,
    request_id           TEXT,
    PRIMARY KEY (file_path, seq)
);

CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
`
