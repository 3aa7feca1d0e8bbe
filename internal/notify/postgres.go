package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"broker-backoffice/internal/models"

	"github.com/google/uuid"
)

// PostgresQueue stores the queue in the mail_queue table.
type PostgresQueue struct {
	db *sql.DB
}

func NewPostgresQueue(db *sql.DB) *PostgresQueue {
	return &PostgresQueue{db: db}
}

const recordColumns = `id, recipient, subject, body, kind, lead_id, status, error, created_at, sent_at`

func scanRecord(row interface{ Scan(...interface{}) error }) (models.EmailRecord, error) {
	var (
		rec          models.EmailRecord
		kind, status string
		sentAt       sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.Recipient, &rec.Subject, &rec.Body, &kind, &rec.LeadID,
		&status, &rec.Error, &rec.CreatedAt, &sentAt); err != nil {
		return models.EmailRecord{}, err
	}
	rec.Kind = models.EmailKind(kind)
	rec.Status = models.EmailStatus(status)
	if sentAt.Valid {
		t := sentAt.Time
		rec.SentAt = &t
	}
	return rec, nil
}

func (q *PostgresQueue) Enqueue(ctx context.Context, rec models.EmailRecord) (models.EmailRecord, error) {
	rec.ID = uuid.NewString()
	rec.Status = models.EmailPending

	err := q.db.QueryRowContext(ctx,
		`INSERT INTO mail_queue (id, recipient, subject, body, kind, lead_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		rec.ID, rec.Recipient, rec.Subject, rec.Body, string(rec.Kind), rec.LeadID, string(rec.Status),
	).Scan(&rec.CreatedAt)
	if err != nil {
		return models.EmailRecord{}, fmt.Errorf("enqueue email: %w", err)
	}
	return rec, nil
}

func (q *PostgresQueue) Get(ctx context.Context, id string) (models.EmailRecord, error) {
	rec, err := scanRecord(q.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM mail_queue WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.EmailRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return models.EmailRecord{}, fmt.Errorf("get email %s: %w", id, err)
	}
	return rec, nil
}

func (q *PostgresQueue) Pending(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM mail_queue WHERE status = 'pending' ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending emails: %w", err)
	}
	defer rows.Close()

	var out []models.EmailRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (q *PostgresQueue) MarkSent(ctx context.Context, id string) error {
	return q.exec(ctx, id, `UPDATE mail_queue SET status = 'sent', error = '', sent_at = now() WHERE id = $1`, id)
}

func (q *PostgresQueue) MarkFailed(ctx context.Context, id string, reason string) error {
	return q.exec(ctx, id, `UPDATE mail_queue SET status = 'failed', error = $2 WHERE id = $1`, id, reason)
}

func (q *PostgresQueue) exec(ctx context.Context, id, query string, args ...interface{}) error {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update email %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}
