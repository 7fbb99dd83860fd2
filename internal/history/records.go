package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultRecentLimit is used by Recent when no positive limit is given.
const DefaultRecentLimit = 20

// timeLayout is fixed-width so renamed_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is one completed rename.
type Record struct {
	ID            int64
	CorrelationID string
	OriginalPath  string
	FinalPath     string
	Caption       string
	Model         string
	RenamedAt     time.Time
}

// Record appends entry to the journal and returns its ID. A zero RenamedAt is
// stamped with the current time.
func (s *Store) Record(ctx context.Context, entry Record) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(entry.OriginalPath) == "" || strings.TrimSpace(entry.FinalPath) == "" {
		return 0, errors.New("record rename: original and final paths required")
	}
	if entry.RenamedAt.IsZero() {
		entry.RenamedAt = s.now()
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO renames (correlation_id, original_path, final_path, caption, model, renamed_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			entry.CorrelationID,
			entry.OriginalPath,
			entry.FinalPath,
			entry.Caption,
			entry.Model,
			entry.RenamedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record rename: %w", err)
	}
	return id, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, correlation_id, original_path, final_path, caption, model, renamed_at
		 FROM renames ORDER BY renamed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query renames: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec       Record
			renamedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.CorrelationID, &rec.OriginalPath, &rec.FinalPath, &rec.Caption, &rec.Model, &renamedAt); err != nil {
			return nil, fmt.Errorf("scan rename: %w", err)
		}
		if rec.RenamedAt, err = time.Parse(timeLayout, renamedAt); err != nil {
			return nil, fmt.Errorf("parse renamed_at %q: %w", renamedAt, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renames: %w", err)
	}
	return records, nil
}

// Count returns the number of journaled renames.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM renames").Scan(&n); err != nil {
		return 0, fmt.Errorf("count renames: %w", err)
	}
	return n, nil
}
