package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/society-gate/agent/internal/storage/models"
)

// JournalRepository provides data access for the gate event journal.
type JournalRepository struct {
	db *DB
}

// NewJournalRepository creates a journal repository over the database.
func NewJournalRepository(db *DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Record inserts a gate event. The ID and timestamp are assigned here.
func (r *JournalRepository) Record(ctx context.Context, event *models.GateEvent) error {
	event.ID = uuid.NewString()
	event.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gate_events (
			id, action, log_id, visitor_name, flat_id, status, actor, detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID, event.Action, event.LogID, event.VisitorName, event.FlatID,
		event.Status, event.Actor, event.Detail, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting gate event: %w", err)
	}
	return nil
}

// ListRecent returns the newest events, up to limit.
func (r *JournalRepository) ListRecent(ctx context.Context, limit int) ([]models.GateEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, log_id, visitor_name, flat_id, status, actor, detail, created_at
		FROM gate_events
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying gate events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByVisitor returns all events recorded against one visitor log,
// oldest first.
func (r *JournalRepository) ListByVisitor(ctx context.Context, logID int64) ([]models.GateEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, log_id, visitor_name, flat_id, status, actor, detail, created_at
		FROM gate_events
		WHERE log_id = ?
		ORDER BY created_at
	`, logID)
	if err != nil {
		return nil, fmt.Errorf("querying gate events for visitor %d: %w", logID, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountSince returns the number of events recorded at or after cutoff.
func (r *JournalRepository) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM gate_events WHERE created_at >= ?", cutoff,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting gate events: %w", err)
	}
	return count, nil
}

// DeleteOlderThan prunes events recorded before cutoff and returns the
// number removed.
func (r *JournalRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM gate_events WHERE created_at < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning gate events: %w", err)
	}
	removed, _ := result.RowsAffected()
	return removed, nil
}

func scanEvents(rows *sql.Rows) ([]models.GateEvent, error) {
	var events []models.GateEvent
	for rows.Next() {
		var e models.GateEvent
		if err := rows.Scan(
			&e.ID, &e.Action, &e.LogID, &e.VisitorName, &e.FlatID,
			&e.Status, &e.Actor, &e.Detail, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning gate event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
