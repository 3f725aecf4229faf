// Package store provides a SQLite-backed cache of parsed transcript usage.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/agentcost/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Transcript is the cached parse of one transcript file.
type Transcript struct {
	SessionID   string
	FilePath    string
	StartTime   time.Time
	EndTime     time.Time
	Calls       int
	ParseErrors int
	Records     []model.UsageRecord
}

// Cache provides SQLite-backed transcript caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all tracked files.
func (c *Cache) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT file_path, mtime_ns, size_bytes FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// SaveTranscript stores a parsed transcript and its file tracking info,
// replacing any earlier parse of the same session.
func (c *Cache) SaveTranscript(t Transcript, mtimeNs, sizeBytes int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	_, err = tx.Exec(`INSERT OR REPLACE INTO transcripts
		(session_id, file_path, start_time, end_time, calls, parse_errors,
		 file_mtime_ns, file_size, parsed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.FilePath, formatTime(t.StartTime), formatTime(t.EndTime),
		t.Calls, t.ParseErrors, mtimeNs, sizeBytes, now,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM usage_records WHERE session_id = ?", t.SessionID)
	if err != nil {
		return err
	}

	for i, r := range t.Records {
		stream := 0
		if r.Stream {
			stream = 1
		}
		_, err = tx.Exec(`INSERT INTO usage_records
			(session_id, seq, call_id, model, timestamp, stream,
			 prompt_tokens, candidates_tokens, thinking_tokens, cached_tokens, total_tokens)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.SessionID, i, r.CallID, r.Model, formatTime(r.Timestamp), stream,
			r.Usage.PromptTokenCount, r.Usage.CandidatesTokenCount, r.Usage.ThinkingTokensCount,
			r.Usage.CachedContentTokenCount, r.Usage.TotalTokenCount,
		)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes)
		VALUES (?, ?, ?)`, t.FilePath, mtimeNs, sizeBytes)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// LoadAllTranscripts reads all cached transcripts with their usage records.
func (c *Cache) LoadAllTranscripts() ([]Transcript, error) {
	rows, err := c.db.Query(`SELECT
		session_id, file_path, start_time, end_time, calls, parse_errors
		FROM transcripts ORDER BY session_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var transcripts []Transcript
	for rows.Next() {
		var t Transcript
		var startStr, endStr sql.NullString
		if err := rows.Scan(&t.SessionID, &t.FilePath, &startStr, &endStr, &t.Calls, &t.ParseErrors); err != nil {
			return nil, err
		}
		t.StartTime = parseTime(startStr)
		t.EndTime = parseTime(endStr)
		transcripts = append(transcripts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recordRows, err := c.db.Query(`SELECT
		session_id, call_id, model, timestamp, stream,
		prompt_tokens, candidates_tokens, thinking_tokens, cached_tokens, total_tokens
		FROM usage_records ORDER BY session_id, seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = recordRows.Close() }()

	idx := make(map[string]int, len(transcripts))
	for i, t := range transcripts {
		idx[t.SessionID] = i
	}

	for recordRows.Next() {
		var sid string
		var callID, ts sql.NullString
		var stream int
		var r model.UsageRecord
		err := recordRows.Scan(&sid, &callID, &r.Model, &ts, &stream,
			&r.Usage.PromptTokenCount, &r.Usage.CandidatesTokenCount, &r.Usage.ThinkingTokensCount,
			&r.Usage.CachedContentTokenCount, &r.Usage.TotalTokenCount)
		if err != nil {
			return nil, err
		}
		r.CallID = callID.String
		r.Timestamp = parseTime(ts)
		r.Stream = stream != 0
		if i, ok := idx[sid]; ok {
			transcripts[i].Records = append(transcripts[i].Records, r)
		}
	}

	return transcripts, recordRows.Err()
}

// DeleteTranscript removes a transcript and its usage records.
func (c *Cache) DeleteTranscript(sessionID string) error {
	_, err := c.db.Exec("DELETE FROM transcripts WHERE session_id = ?", sessionID)
	return err
}

// DeleteFileTracker removes a file tracking entry.
func (c *Cache) DeleteFileTracker(filePath string) error {
	_, err := c.db.Exec("DELETE FROM file_tracker WHERE file_path = ?", filePath)
	return err
}

// TranscriptCount returns the number of cached transcripts.
func (c *Cache) TranscriptCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&count)
	return count, err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s.String)
	return t
}
