package leadstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/observability"
	"broker-backoffice/internal/models"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const leadColumns = `id, name, product, product_detail, estimated_value, status,
	contact_email, contact_phone, message, origin,
	proposal_value, proposal_file, proposal_date, attachments,
	page_url, content_name, external_id, created_at, updated_at`

// PostgresStore keeps leads in the leads table.
type PostgresStore struct {
	db  *sql.DB
	obs *observability.Observability
}

func NewPostgresStore(db *sql.DB, obs *observability.Observability) *PostgresStore {
	return &PostgresStore{db: db, obs: obs}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (models.Lead, error) {
	var (
		l                             models.Lead
		product, status, origin       string
		propValue, propFile, propDate sql.NullString
		externalID                    sql.NullString
		attachments                   pq.StringArray
	)
	err := row.Scan(
		&l.ID, &l.Name, &product, &l.ProductDetail, &l.EstimatedValue, &status,
		&l.ContactEmail, &l.ContactPhone, &l.Message, &origin,
		&propValue, &propFile, &propDate, &attachments,
		&l.PageURL, &l.ContentName, &externalID, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return models.Lead{}, err
	}

	l.Product = models.ProductCategory(product)
	l.Status = models.LeadStatus(status)
	l.Origin = models.LeadOrigin(origin)
	l.ExternalID = externalID.String
	if len(attachments) > 0 {
		l.Attachments = []string(attachments)
	}
	if propValue.Valid {
		l.Proposal = &models.Proposal{Value: propValue.String, FileURL: propFile.String, Date: propDate.String}
	}
	return models.NormalizeLead(l), nil
}

func (s *PostgresStore) List(ctx context.Context) (leads []models.Lead, err error) {
	ctx, done := s.trace(ctx, "list")
	defer func() { done(err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperrors.NewLeadStoreReadError("list", err)
	}
	defer rows.Close()

	leads = []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, apperrors.NewLeadStoreReadError("list", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewLeadStoreReadError("list", err)
	}
	return leads, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (lead models.Lead, err error) {
	ctx, done := s.trace(ctx, "get", attribute.String("lead.id", id))
	defer func() { done(err) }()

	lead, err = scanLead(s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Lead{}, apperrors.NewLeadNotFoundError(id)
	}
	if err != nil {
		return models.Lead{}, apperrors.NewLeadStoreReadError("get", err)
	}
	return lead, nil
}

func (s *PostgresStore) Create(ctx context.Context, lead models.Lead) (out models.Lead, err error) {
	ctx, done := s.trace(ctx, "create")
	defer func() { done(err) }()

	lead = models.NormalizeLead(lead)
	var propValue, propFile, propDate, externalID interface{}
	if lead.Proposal != nil {
		propValue, propFile, propDate = lead.Proposal.Value, lead.Proposal.FileURL, lead.Proposal.Date
	}
	if lead.ExternalID != "" {
		externalID = lead.ExternalID
	}

	const query = `INSERT INTO leads (name, product, product_detail, estimated_value, status,
		contact_email, contact_phone, message, origin,
		proposal_value, proposal_file, proposal_date, attachments,
		page_url, content_name, external_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING id, created_at`

	err = s.db.QueryRowContext(ctx, query,
		lead.Name, string(lead.Product), lead.ProductDetail, lead.EstimatedValue, string(lead.Status),
		lead.ContactEmail, lead.ContactPhone, lead.Message, string(lead.Origin),
		propValue, propFile, propDate, pq.Array(attachmentsOrEmpty(lead.Attachments)),
		lead.PageURL, lead.ContentName, externalID,
	).Scan(&lead.ID, &lead.CreatedAt)
	if err != nil {
		return models.Lead{}, apperrors.NewLeadStoreWriteError("create", err)
	}
	lead.UpdatedAt = lead.CreatedAt
	return lead, nil
}

// UpdateFields writes only the fields set on update.
func (s *PostgresStore) UpdateFields(ctx context.Context, id string, update models.LeadUpdate) (err error) {
	ctx, done := s.trace(ctx, "update", attribute.String("lead.id", id))
	defer func() { done(err) }()

	if update.Empty() {
		return nil
	}

	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.EstimatedValue != nil {
		add("estimated_value", *update.EstimatedValue)
	}
	if update.Proposal != nil {
		add("proposal_value", update.Proposal.Value)
		add("proposal_file", update.Proposal.FileURL)
		add("proposal_date", update.Proposal.Date)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE leads SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewLeadStoreWriteError("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewLeadStoreWriteError("update", err)
	}
	if n == 0 {
		return apperrors.NewLeadNotFoundError(id)
	}
	return nil
}

// UpsertExternal inserts a synced lead or refreshes its contact fields. The
// board-owned fields (status, value, proposal) are never overwritten.
func (s *PostgresStore) UpsertExternal(ctx context.Context, lead models.Lead) (out models.Lead, created bool, err error) {
	ctx, done := s.trace(ctx, "upsert_external", attribute.String("lead.external_id", lead.ExternalID))
	defer func() { done(err) }()

	if lead.ExternalID == "" {
		return models.Lead{}, false, apperrors.NewInvalidInputError("external id is required")
	}
	lead = models.NormalizeLead(lead)

	const query = `INSERT INTO leads (name, product, product_detail, estimated_value, status,
		contact_email, contact_phone, message, origin, external_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (external_id) WHERE external_id IS NOT NULL DO UPDATE SET
		name = EXCLUDED.name,
		contact_email = EXCLUDED.contact_email,
		contact_phone = EXCLUDED.contact_phone,
		product_detail = EXCLUDED.product_detail,
		updated_at = now()
	RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`

	err = s.db.QueryRowContext(ctx, query,
		lead.Name, string(lead.Product), lead.ProductDetail, lead.EstimatedValue, string(lead.Status),
		lead.ContactEmail, lead.ContactPhone, lead.Message, string(lead.Origin), lead.ExternalID,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt, &created)
	if err != nil {
		return models.Lead{}, false, apperrors.NewLeadStoreWriteError("upsert_external", err)
	}
	return lead, created, nil
}

func (s *PostgresStore) trace(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "leadstore."+op, append(attrs, attribute.String("db.system", "postgresql"))...)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.obs.RecordStoreCall(ctx, "postgres", op, time.Since(start), err)
	}
}

func attachmentsOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
