package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

const requestColumns = `id, client_id, title, description, category, status, priority,
	budget_min, budget_max, deadline, partner_id, requirements, credits_charged,
	created_at, updated_at, completed_at`

const updateColumns = `id, service_request_id, update_type, previous_status, new_status, title,
	description, updated_by, updated_by_role, is_visible_to_client, metadata, created_at`

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func scanRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var (
		r                          domain.ServiceRequest
		category, status, priority string
		partnerID                  *string
		requirements               []byte
	)
	err := row.Scan(&r.ID, &r.ClientID, &r.Title, &r.Description, &category, &status, &priority,
		&r.BudgetMin, &r.BudgetMax, &r.Deadline, &partnerID, &requirements, &r.CreditsCharged,
		&r.CreatedAt, &r.UpdatedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	r.Category = domain.ServiceCategory(category)
	r.Status = domain.RequestStatus(status)
	r.Priority = domain.Priority(priority)
	r.PartnerID = deref(partnerID)
	if r.Requirements, err = decodeObject(requirements); err != nil {
		return nil, fmt.Errorf("decode requirements: %w", err)
	}
	return &r, nil
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	requirements, err := encodeObject(req.Requirements)
	if err != nil {
		return fmt.Errorf("encode requirements: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO service_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		req.ID, req.ClientID, req.Title, req.Description, string(req.Category), string(req.Status), string(req.Priority),
		req.BudgetMin, req.BudgetMax, req.Deadline, nullable(req.PartnerID), requirements, req.CreditsCharged,
		req.CreatedAt, req.UpdatedAt, req.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert service request: %w", err)
	}
	return nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id, clientID string) (*domain.ServiceRequest, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM service_requests
		WHERE id = $1 AND ($2 = '' OR client_id = $2)`, id, clientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find service request: %w", err)
	}
	return req, nil
}

// Delete removes a request together with its updates.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM service_requests WHERE id = $1`, id)
	return err
}

// TransitionStatus is a compare-and-set on the status column.
func (r *RequestRepository) TransitionStatus(ctx context.Context, id string, from domain.RequestStatus, u *domain.ServiceRequestUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE service_requests
		SET status = $3,
		    updated_at = $4,
		    completed_at = CASE WHEN $3 = 'completed' THEN $4 ELSE completed_at END
		WHERE id = $1 AND status = $2`,
		id, string(from), string(u.NewStatus), u.CreatedAt)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, tx, id, domain.ErrStatusConflict)
	}

	if err := insertUpdate(ctx, tx, u); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *RequestRepository) AssignPartner(ctx context.Context, id, partnerID string, u *domain.ServiceRequestUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE service_requests
		SET partner_id = $2, updated_at = $3
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')`,
		id, partnerID, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("assign partner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, tx, id, domain.ErrInvalidTransition)
	}

	if err := insertUpdate(ctx, tx, u); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// missingOr distinguishes a vanished request from a failed precondition.
func (r *RequestRepository) missingOr(ctx context.Context, tx pgx.Tx, id string, precondition error) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM service_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check service request: %w", err)
	}
	if !exists {
		return domain.ErrRequestNotFound
	}
	return precondition
}

func (r *RequestRepository) AppendUpdate(ctx context.Context, u *domain.ServiceRequestUpdate) error {
	return insertUpdate(ctx, r.pool, u)
}

func (r *RequestRepository) ListUpdates(ctx context.Context, requestID string, visibleOnly bool) ([]*domain.ServiceRequestUpdate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+updateColumns+`
		FROM service_request_updates
		WHERE service_request_id = $1 AND (NOT $2 OR is_visible_to_client)
		ORDER BY created_at, id`, requestID, visibleOnly)
	if err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	defer rows.Close()

	list := []*domain.ServiceRequestUpdate{}
	for rows.Next() {
		var (
			u               domain.ServiceRequestUpdate
			typ, prev, next string
			metadata        []byte
		)
		if err := rows.Scan(&u.ID, &u.ServiceRequestID, &typ, &prev, &next, &u.Title,
			&u.Description, &u.UpdatedBy, &u.UpdatedByRole, &u.IsVisibleToClient, &metadata, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.UpdateType = domain.UpdateType(typ)
		u.PreviousStatus = domain.RequestStatus(prev)
		u.NewStatus = domain.RequestStatus(next)
		if u.Metadata, err = decodeObject(metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		list = append(list, &u)
	}
	return list, rows.Err()
}

// List runs a COUNT and a page query over the same WHERE clause.
func (r *RequestRepository) List(ctx context.Context, f ports.ListRequestsFilter) ([]*domain.ServiceRequest, int64, error) {
	where, args := listWhere(f)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM service_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count service requests: %w", err)
	}

	query := `SELECT ` + requestColumns + ` FROM service_requests` + where + ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		page := f.Page
		if page <= 0 {
			page = 1
		}
		args = append(args, f.Limit, (page-1)*f.Limit)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list service requests: %w", err)
	}
	defer rows.Close()

	list := []*domain.ServiceRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, req)
	}
	return list, total, rows.Err()
}

// listWhere renders the filter as a WHERE clause with positional arguments.
func listWhere(f ports.ListRequestsFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ClientID != "" {
		add("client_id = $%d", f.ClientID)
	}
	if f.PartnerID != "" {
		add("partner_id = $%d", f.PartnerID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if !f.DateFrom.IsZero() {
		add("created_at >= $%d", f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		add("created_at <= $%d", f.DateTo)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func insertUpdate(ctx context.Context, db execer, u *domain.ServiceRequestUpdate) error {
	metadata, err := encodeObject(u.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO service_request_updates (`+updateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.ServiceRequestID, string(u.UpdateType), string(u.PreviousStatus), string(u.NewStatus), u.Title,
		u.Description, u.UpdatedBy, u.UpdatedByRole, u.IsVisibleToClient, metadata, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert request update: %w", err)
	}
	return nil
}

// encodeObject renders a JSONB object column; nil becomes {}.
func encodeObject(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "{}" || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
