package auditsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lazari03/pyetdoktorin-sessions/internal/audit"
)

type Repository struct {
	db *pgxpool.Pool
}

var _ = audit.Recorder(&Repository{})

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Record(ctx context.Context, event audit.Event) error {
	if _, err := r.db.Exec(
		ctx, `INSERT INTO auth_events (id, kind, subject_id, detail, at)
	VALUES ($1, $2, $3, $4, $5);`,
		event.ID, string(event.Kind), event.SubjectID, event.Detail, event.At,
	); err != nil {
		return fmt.Errorf("inserting into auth_events: %w", err)
	}

	return nil
}
