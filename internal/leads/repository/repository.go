package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dealer_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMessage = "lead not found"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Customer is a lead record including its denormalized score columns.
type Customer struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	AssignedRepID    *uuid.UUID
	FirstName        string
	LastName         string
	Email            *string
	Phone            *string
	Status           string
	StockNumber      *string
	FinancingType    *string
	Applied          bool
	HasAppliedCredit bool
	Source           *string
	LastActivityAt   *time.Time
	LeadScore        int
	Temperature      string
	Priority         string
	DaysInStage      int
	ScoreFactors     []byte
	ScoreVersion     *string
	ScoreUpdatedAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Activity is one logged interaction with a customer.
type Activity struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	CustomerID     uuid.UUID
	Kind           string
	Body           string
	CreatedBy      *uuid.UUID
	CreatedAt      time.Time
}

type CreateCustomerParams struct {
	OrganizationID   uuid.UUID
	AssignedRepID    *uuid.UUID
	FirstName        string
	LastName         string
	Email            *string
	Phone            *string
	Status           string
	StockNumber      *string
	FinancingType    *string
	HasAppliedCredit bool
	Source           *string
}

// UpdateDetailsParams carries a partial update; nil fields are left as is.
// A Clear flag sets its column to NULL and wins over the value.
type UpdateDetailsParams struct {
	AssignedRepID    *uuid.UUID
	FirstName        *string
	LastName         *string
	Email            *string
	Phone            *string
	StockNumber      *string
	FinancingType    *string
	HasAppliedCredit *bool
	Source           *string

	ClearAssignedRep bool
	ClearEmail       bool
	ClearPhone       bool
	ClearStockNumber bool
}

type UpdateStatusParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Status         string
	MarkApplied    bool
}

// ApplyScoreParams overwrites the denormalized score columns.
type ApplyScoreParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Score          int
	Temperature    string
	Priority       string
	DaysInStage    int
	FactorsJSON    []byte
	Version        string
	UpdatedAt      time.Time
}

type AddActivityParams struct {
	OrganizationID uuid.UUID
	CustomerID     uuid.UUID
	Kind           string
	Body           string
	CreatedBy      *uuid.UUID
}

type ListParams struct {
	OrganizationID uuid.UUID
	Status         *string
	Temperature    *string
	Priority       *string
	AssignedRepID  *uuid.UUID
	Search         string
	Offset         int
	Limit          int
	SortBy         string
	SortOrder      string
}

const customerColumns = `id, organization_id, assigned_rep_id, first_name, last_name, email, phone, status,
	stock_number, financing_type, applied, has_applied_credit, source, last_activity_at,
	lead_score, temperature, priority, days_in_stage, score_factors, score_version, score_updated_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.AssignedRepID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Status,
		&c.StockNumber, &c.FinancingType, &c.Applied, &c.HasAppliedCredit, &c.Source, &c.LastActivityAt,
		&c.LeadScore, &c.Temperature, &c.Priority, &c.DaysInStage, &c.ScoreFactors, &c.ScoreVersion, &c.ScoreUpdatedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *Repository) Create(ctx context.Context, params CreateCustomerParams) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO crm_customers (
			id, organization_id, assigned_rep_id, first_name, last_name, email, phone, status,
			stock_number, financing_type, has_applied_credit, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+customerColumns,
		uuid.New(), params.OrganizationID, params.AssignedRepID, params.FirstName, params.LastName,
		params.Email, params.Phone, params.Status, params.StockNumber, params.FinancingType,
		params.HasAppliedCredit, params.Source,
	)
	c, err := scanCustomer(row)
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM crm_customers
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Customer, int, error) {
	whereClause, args, argIdx := buildListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM crm_customers WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	args = append(args, params.Limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM crm_customers
		WHERE %s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d
	`, customerColumns, whereClause, mapSortColumn(params.SortBy), sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	items := make([]Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func buildListWhere(params ListParams) (string, []any, int) {
	// Organization ID is always the first filter (mandatory for tenant isolation)
	whereClauses := []string{"organization_id = $1"}
	args := []any{params.OrganizationID}
	argIdx := 2

	addEquals := func(column string, value any) {
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Status != nil {
		addEquals("status", *params.Status)
	}
	if params.Temperature != nil {
		addEquals("temperature", *params.Temperature)
	}
	if params.Priority != nil {
		addEquals("priority", *params.Priority)
	}
	if params.AssignedRepID != nil {
		addEquals("assigned_rep_id", *params.AssignedRepID)
	}
	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d OR stock_number ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx, argIdx,
		))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	where := whereClauses[0]
	for _, clause := range whereClauses[1:] {
		where += " AND " + clause
	}
	return where, args, argIdx
}

func mapSortColumn(sortBy string) string {
	switch sortBy {
	case "score":
		return "lead_score"
	case "lastActivityAt":
		return "last_activity_at"
	case "updatedAt":
		return "updated_at"
	case "lastName":
		return "last_name"
	default:
		return "created_at"
	}
}

// UpdateStatus moves the customer to a new stage and resets updated_at,
// which is the start of the stage for days-in-stage.
func (r *Repository) UpdateStatus(ctx context.Context, params UpdateStatusParams) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE crm_customers
		SET status = $3,
			applied = applied OR $4,
			has_applied_credit = has_applied_credit OR $4,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+customerColumns,
		params.ID, params.OrganizationID, params.Status, params.MarkApplied,
	)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Customer{}, fmt.Errorf("update customer status: %w", err)
	}
	return c, nil
}

func (r *Repository) UpdateDetails(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params UpdateDetailsParams) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE crm_customers
		SET assigned_rep_id = CASE WHEN $12 THEN NULL ELSE COALESCE($3, assigned_rep_id) END,
			first_name = COALESCE($4, first_name),
			last_name = COALESCE($5, last_name),
			email = CASE WHEN $13 THEN NULL ELSE COALESCE($6, email) END,
			phone = CASE WHEN $14 THEN NULL ELSE COALESCE($7, phone) END,
			stock_number = CASE WHEN $15 THEN NULL ELSE COALESCE($8, stock_number) END,
			financing_type = COALESCE($9, financing_type),
			has_applied_credit = COALESCE($10, has_applied_credit),
			source = COALESCE($11, source)
		WHERE id = $1 AND organization_id = $2
		RETURNING `+customerColumns,
		id, organizationID, params.AssignedRepID, params.FirstName, params.LastName, params.Email, params.Phone,
		params.StockNumber, params.FinancingType, params.HasAppliedCredit, params.Source,
		params.ClearAssignedRep, params.ClearEmail, params.ClearPhone, params.ClearStockNumber,
	)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return c, nil
}

// ApplyScore overwrites the score columns. Concurrent writers race and the
// last one wins; callers that care must serialize per customer.
func (r *Repository) ApplyScore(ctx context.Context, params ApplyScoreParams) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE crm_customers
		SET lead_score = $3,
			temperature = $4,
			priority = $5,
			days_in_stage = $6,
			score_factors = $7,
			score_version = $8,
			score_updated_at = $9
		WHERE id = $1 AND organization_id = $2
	`, params.ID, params.OrganizationID, params.Score, params.Temperature, params.Priority,
		params.DaysInStage, params.FactorsJSON, params.Version, params.UpdatedAt)
	if err != nil {
		return fmt.Errorf("apply customer score: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// AddActivity records an interaction and advances last_activity_at.
func (r *Repository) AddActivity(ctx context.Context, params AddActivityParams) (Activity, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Activity{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var a Activity
	err = tx.QueryRow(ctx, `
		INSERT INTO crm_customer_activities (id, organization_id, customer_id, kind, body, created_by)
		SELECT $1, organization_id, id, $4, $5, $6
		FROM crm_customers
		WHERE id = $3 AND organization_id = $2
		RETURNING id, organization_id, customer_id, kind, body, created_by, created_at
	`, uuid.New(), params.OrganizationID, params.CustomerID, params.Kind, params.Body, params.CreatedBy).Scan(
		&a.ID, &a.OrganizationID, &a.CustomerID, &a.Kind, &a.Body, &a.CreatedBy, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activity{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Activity{}, fmt.Errorf("insert activity: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE crm_customers
		SET last_activity_at = GREATEST(COALESCE(last_activity_at, $3), $3)
		WHERE id = $1 AND organization_id = $2
	`, params.CustomerID, params.OrganizationID, a.CreatedAt); err != nil {
		return Activity{}, fmt.Errorf("touch last activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Activity{}, err
	}
	return a, nil
}

// ListActivities returns the newest activities first.
func (r *Repository) ListActivities(ctx context.Context, customerID uuid.UUID, organizationID uuid.UUID, limit int) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, customer_id, kind, body, created_by, created_at
		FROM crm_customer_activities
		WHERE customer_id = $1 AND organization_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, customerID, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.CustomerID, &a.Kind, &a.Body, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ListIDsForTenant returns all customer IDs of an organization.
func (r *Repository) ListIDsForTenant(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM crm_customers WHERE organization_id = $1 ORDER BY created_at`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list customer ids: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
