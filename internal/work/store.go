package work

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Store is the durable work queue backed by work.db. Items survive process
// restarts: anything still pending at startup is picked up by the processor,
// and items stuck in running state (a crash mid-run) are requeued by the
// scheduler after a staleness window.
type Store struct {
	workDB *sql.DB        // work.db - work_items table
	log    zerolog.Logger // Structured logger
}

// NewStore creates a new durable work store.
func NewStore(workDB *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		workDB: workDB,
		log:    log.With().Str("repo", "work").Logger(),
	}
}

// Enqueue adds a pending work item. Re-enqueueing the same type/subject pair
// resets an existing row back to pending, so a resubmitted deposit gets a
// fresh verification run even if the previous one already finished.
func (s *Store) Enqueue(typeID, subject string, payload interface{}) error {
	var blob []byte
	if payload != nil {
		var err error
		blob, err = msgpack.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload for %s:%s: %w", typeID, subject, err)
		}
	}

	id := WorkID(typeID, subject)

	query := `
		INSERT INTO work_items (id, type, subject, payload, status, retries, enqueued_at, started_at)
		VALUES (?, ?, ?, ?, 'pending', 0, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			status = 'pending',
			retries = 0,
			enqueued_at = excluded.enqueued_at,
			started_at = NULL
	`

	_, err := s.workDB.Exec(query, id, typeID, subject, blob, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", id, err)
	}

	s.log.Debug().Str("work", id).Msg("Enqueued work item")
	return nil
}

// PendingSubjects returns the subjects with pending work of one type,
// oldest first. Feeds the processor's FindSubjects hook.
func (s *Store) PendingSubjects(typeID string) ([]string, error) {
	rows, err := s.workDB.Query(
		"SELECT subject FROM work_items WHERE type = ? AND status = 'pending' ORDER BY enqueued_at",
		typeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending work for %s: %w", typeID, err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, fmt.Errorf("failed to scan work subject: %w", err)
		}
		subjects = append(subjects, subject)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending work: %w", err)
	}

	return subjects, nil
}

// Payload decodes the stored payload of a work item into out.
func (s *Store) Payload(id string, out interface{}) error {
	var blob []byte
	err := s.workDB.QueryRow(
		"SELECT payload FROM work_items WHERE id = ?", id,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return fmt.Errorf("work item %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read payload for %s: %w", id, err)
	}
	if len(blob) == 0 {
		return nil
	}

	if err := msgpack.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("failed to decode payload for %s: %w", id, err)
	}
	return nil
}

// MarkRunning transitions an item to running, stamping the start time.
func (s *Store) MarkRunning(id string) error {
	return s.setStatus(id, "running", true)
}

// MarkDone transitions an item to done.
func (s *Store) MarkDone(id string) error {
	return s.setStatus(id, "done", false)
}

// MarkFailed transitions an item to failed and bumps its retry count.
func (s *Store) MarkFailed(id string) error {
	_, err := s.workDB.Exec(
		"UPDATE work_items SET status = 'failed', retries = retries + 1 WHERE id = ?",
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark %s failed: %w", id, err)
	}
	return nil
}

// Requeue puts a failed item (below the retry ceiling) back to pending.
func (s *Store) Requeue(id string) error {
	return s.setStatus(id, "pending", false)
}

// RequeueStale flips running items whose start time predates the cutoff back
// to pending. Catches work orphaned by a crash mid-execution.
//
// Returns:
//   - int: Number of items requeued
//   - error: Error if the update fails
func (s *Store) RequeueStale(cutoff time.Time) (int, error) {
	result, err := s.workDB.Exec(
		"UPDATE work_items SET status = 'pending', started_at = NULL WHERE status = 'running' AND started_at < ?",
		cutoff.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale work: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected > 0 {
		s.log.Warn().Int64("count", affected).Msg("Requeued stale running work items")
	}

	return int(affected), nil
}

// PruneDone deletes finished items older than the cutoff to keep the queue
// table small.
func (s *Store) PruneDone(cutoff time.Time) (int, error) {
	result, err := s.workDB.Exec(
		"DELETE FROM work_items WHERE status = 'done' AND enqueued_at < ?",
		cutoff.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune done work: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(affected), nil
}

// Retries returns the stored retry count of a work item, 0 when unknown.
func (s *Store) Retries(id string) (int, error) {
	var retries int
	err := s.workDB.QueryRow(
		"SELECT retries FROM work_items WHERE id = ?", id,
	).Scan(&retries)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read retries for %s: %w", id, err)
	}
	return retries, nil
}

func (s *Store) setStatus(id, status string, stampStart bool) error {
	var err error
	if stampStart {
		_, err = s.workDB.Exec(
			"UPDATE work_items SET status = ?, started_at = ? WHERE id = ?",
			status, time.Now().Unix(), id,
		)
	} else {
		_, err = s.workDB.Exec(
			"UPDATE work_items SET status = ? WHERE id = ?",
			status, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to mark %s %s: %w", id, status, err)
	}
	return nil
}
