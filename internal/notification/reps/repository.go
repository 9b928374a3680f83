// Package reps reads the sales rep directory used to address notifications.
package reps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dealer_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opGetByID    = "notification.reps.get_by_id"
	opListActive = "notification.reps.list_active"
)

// Rep is a dealership sales rep.
type Rep struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	FirstName      string
	LastName       string
	IsActive       bool
}

// DisplayName returns the rep's full name, falling back to the email address.
func (r Rep) DisplayName() string {
	name := strings.TrimSpace(r.FirstName + " " + r.LastName)
	if name == "" {
		return r.Email
	}
	return name
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns an active rep of the organization.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (Rep, error) {
	var rep Rep
	err := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, email, first_name, last_name, is_active
		FROM crm_sales_reps
		WHERE id = $1 AND organization_id = $2 AND is_active
	`, id, organizationID).Scan(&rep.ID, &rep.OrganizationID, &rep.Email, &rep.FirstName, &rep.LastName, &rep.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rep{}, apperr.NotFound("sales rep not found").WithOp(opGetByID)
	}
	if err != nil {
		return Rep{}, fmt.Errorf("%s: %w", opGetByID, err)
	}
	return rep, nil
}

// ListActive returns the organization's active reps ordered by name.
func (r *Repository) ListActive(ctx context.Context, organizationID uuid.UUID) ([]Rep, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, email, first_name, last_name, is_active
		FROM crm_sales_reps
		WHERE organization_id = $1 AND is_active
		ORDER BY first_name, last_name, email
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListActive, err)
	}
	defer rows.Close()

	var result []Rep
	for rows.Next() {
		var rep Rep
		if err := rows.Scan(&rep.ID, &rep.OrganizationID, &rep.Email, &rep.FirstName, &rep.LastName, &rep.IsActive); err != nil {
			return nil, fmt.Errorf("%s: %w", opListActive, err)
		}
		result = append(result, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", opListActive, err)
	}
	return result, nil
}
