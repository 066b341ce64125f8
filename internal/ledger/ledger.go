// Package ledger persists per-item, per-stage processing state so every
// stage can resume after a partial failure without redoing finished work.
package ledger

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"

	"github.com/cxip/patent-pipeline/constants"
	"github.com/cxip/patent-pipeline/internal/common"
)

//go:embed schema.sql
var schema string

// WorkItem is the latest processing state of one patent in one stage.
// Exactly one row exists per (patent_no, stage) pair; only the latest
// status matters, so the store overwrites in place rather than appending.
type WorkItem struct {
	PatentNo  string
	Stage     constants.StageID
	Status    constants.ItemStatus
	Attempts  int
	LastError string
	Artifact  string
	Degraded  bool
	NotFound  bool
	RunID     string
	UpdatedAt time.Time
}

// ResumableSkip reports whether a fresh run should leave the item alone:
// already succeeded, or permanently failed (never retried automatically).
func (w *WorkItem) ResumableSkip() bool {
	return w != nil && w.Status.Terminal()
}

// Store is the sqlite-backed work ledger. It is owned by the stage
// runner; every mutation is durable before the next item starts.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if necessary) the ledger database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)")
	if err != nil {
		return nil, common.WrapError(err, "open ledger")
	}
	// single writer; concurrent stage processes are not a supported mode
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "apply ledger schema")
	}
	logger.Info("ledger.opened", "path", path)
	return &Store{db: db, log: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the work item for (patentNo, stage), or nil if absent.
func (s *Store) Get(ctx context.Context, patentNo string, stage constants.StageID) (*WorkItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT patent_no, stage, status, attempts, last_error, artifact, degraded, not_found, run_id, updated_at
		FROM work_items WHERE patent_no = ? AND stage = ?`,
		patentNo, string(stage))
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(err, "ledger get")
	}
	return item, nil
}

// Upsert writes the item, replacing any previous row for its key. A
// write failure means resumability can no longer be guaranteed, so it
// surfaces as ErrPersistence and the caller must abort the run.
func (s *Store) Upsert(ctx context.Context, item *WorkItem) error {
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_items (patent_no, stage, status, attempts, last_error, artifact, degraded, not_found, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (patent_no, stage) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			last_error = excluded.last_error,
			artifact = excluded.artifact,
			degraded = excluded.degraded,
			not_found = excluded.not_found,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`,
		item.PatentNo, string(item.Stage), string(item.Status),
		item.Attempts, item.LastError, item.Artifact,
		boolToInt(item.Degraded), boolToInt(item.NotFound),
		item.RunID, item.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		s.log.Error("ledger.upsert.failed", "patent_no", item.PatentNo, "stage", item.Stage, "err", err)
		return common.NewAppError("LEDGER_WRITE", "cannot persist work item", common.ErrPersistence)
	}
	return nil
}

// RecoverInProgress demotes items a previous process left in_progress to
// failed_retryable, so a crash mid-item results in a retry, never a
// permanently wedged row. Returns the number of recovered items.
func (s *Store) RecoverInProgress(ctx context.Context, stage constants.StageID) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_items
		SET status = ?, last_error = 'interrupted mid-item', updated_at = ?
		WHERE stage = ? AND status = ?`,
		string(constants.StatusFailedRetryable),
		time.Now().UTC().Format(time.RFC3339Nano),
		string(stage), string(constants.StatusInProgress))
	if err != nil {
		return 0, common.NewAppError("LEDGER_WRITE", "cannot recover in-progress items", common.ErrPersistence)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.log.Warn("ledger.recovered_in_progress", "stage", stage, "count", n)
	}
	return int(n), nil
}

// Reset is the explicit operator escape hatch: it returns a failed item
// to pending with a clean attempt count.
func (s *Store) Reset(ctx context.Context, patentNo string, stage constants.StageID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_items
		SET status = ?, attempts = 0, last_error = '', not_found = 0, updated_at = ?
		WHERE patent_no = ? AND stage = ? AND status IN (?, ?)`,
		string(constants.StatusPending),
		time.Now().UTC().Format(time.RFC3339Nano),
		patentNo, string(stage),
		string(constants.StatusFailedRetryable), string(constants.StatusFailedPermanent))
	if err != nil {
		return common.NewAppError("LEDGER_WRITE", "cannot reset work item", common.ErrPersistence)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.WrapError(common.ErrNotFound, "no failed item to reset")
	}
	s.log.Info("ledger.reset", "patent_no", patentNo, "stage", stage)
	return nil
}

// ListByStatus returns all items of a stage in the given statuses,
// ordered by patent number for stable, human-readable failure ledgers.
func (s *Store) ListByStatus(ctx context.Context, stage constants.StageID, statuses ...constants.ItemStatus) ([]WorkItem, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := `
		SELECT patent_no, stage, status, attempts, last_error, artifact, degraded, not_found, run_id, updated_at
		FROM work_items WHERE stage = ? AND status IN (`
	args := []any{string(stage)}
	for i, st := range statuses {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, string(st))
	}
	query += ") ORDER BY patent_no"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.WrapError(err, "ledger list")
	}
	defer rows.Close()

	var items []WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, common.WrapError(err, "ledger scan")
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*WorkItem, error) {
	var (
		item             WorkItem
		stage, status    string
		degraded, notFnd int
		updated          string
	)
	err := row.Scan(&item.PatentNo, &stage, &status, &item.Attempts,
		&item.LastError, &item.Artifact, &degraded, &notFnd, &item.RunID, &updated)
	if err != nil {
		return nil, err
	}
	item.Stage = constants.StageID(stage)
	item.Status = constants.ItemStatus(status)
	item.Degraded = degraded != 0
	item.NotFound = notFnd != 0
	item.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
