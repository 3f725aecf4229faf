package store

// Only token counts are cached. Costs are recomputed from pricing on load.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS transcripts (
    session_id           TEXT PRIMARY KEY,
    file_path            TEXT NOT NULL,
    start_time           TEXT,
    end_time             TEXT,
    calls                INTEGER NOT NULL DEFAULT 0,
    parse_errors         INTEGER NOT NULL DEFAULT 0,
    file_mtime_ns        INTEGER NOT NULL,
    file_size            INTEGER NOT NULL,
    parsed_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS usage_records (
    session_id           TEXT NOT NULL REFERENCES transcripts(session_id) ON DELETE CASCADE,
    seq                  INTEGER NOT NULL,
    call_id              TEXT,
    model                TEXT NOT NULL,
    timestamp            TEXT,
    stream               INTEGER NOT NULL DEFAULT 0,
    prompt_tokens        INTEGER NOT NULL DEFAULT 0,
    candidates_tokens    INTEGER NOT NULL DEFAULT 0,
    thinking_tokens      INTEGER NOT NULL DEFAULT 0,
    cached_tokens        INTEGER NOT NULL DEFAULT 0,
    total_tokens         INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (session_id, seq)
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_start ON transcripts(start_time);
CREATE INDEX IF NOT EXISTS idx_usage_model ON usage_records(model);
`
