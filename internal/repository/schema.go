package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// score has no declared type so raw values keep their storage class and malformed
// scores survive to be reported at aggregation time.
const schema = `
	CREATE TABLE IF NOT EXISTS survey_responses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		survey TEXT NOT NULL,
		score,
		review TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL DEFAULT '',
		sentiment TEXT NOT NULL DEFAULT '',
		aspects TEXT NOT NULL DEFAULT '[]',
		rebuy INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_survey_responses_survey ON survey_responses (survey);
	CREATE TABLE IF NOT EXISTS survey_summaries (
		survey TEXT PRIMARY KEY,
		summary TEXT NOT NULL,
		review_count INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);
`

// EnsureSchema creates the response and summary tables if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
