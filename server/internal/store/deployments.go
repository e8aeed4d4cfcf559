package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kabinet.io/kabinet/models"
)

// CreateDeploymentInput holds the createDeployment mutation input.
type CreateDeploymentInput struct {
	Flavour      string
	InstanceID   string
	LocalID      string
	LastPulled   *time.Time
	SecretParams models.Any
}

// CreateDeployment records that the backend run by InstanceID deployed a
// flavour under LocalID. Re-declaring the same LocalID updates the existing
// deployment.
func (s *Store) CreateDeployment(ctx context.Context, in CreateDeploymentInput) (d *models.Deployment, err error) {
	defer observe("create_deployment", time.Now(), &err)

	if strings.TrimSpace(in.Flavour) == "" || strings.TrimSpace(in.LocalID) == "" {
		return nil, fmt.Errorf("%w: flavour and localId are required", models.ErrInvalidRequest)
	}

	secret, err := encodeJSON(in.SecretParams)
	if err != nil {
		return nil, err
	}
	var lastPulled sql.NullInt64
	if in.LastPulled != nil {
		lastPulled = sql.NullInt64{Int64: in.LastPulled.UnixNano(), Valid: true}
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		backendID, err := backendByInstance(ctx, tx, in.InstanceID)
		if err != nil {
			return err
		}

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM flavours WHERE id = ?`, in.Flavour).Scan(&exists); err != nil {
			return fmt.Errorf("failed to query flavour: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: flavour %q", models.ErrFlavourNotFound, in.Flavour)
		}

		var id string
		err = tx.QueryRowContext(ctx, `SELECT id FROM deployments WHERE backend_id = ? AND local_id = ?`, backendID, in.LocalID).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id = newID()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO deployments (id, flavour_id, backend_id, local_id, last_pulled, secret_params, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, id, in.Flavour, backendID, in.LocalID, lastPulled, secret, s.now().UnixNano())
			if err != nil {
				return fmt.Errorf("failed to insert deployment: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to query deployment: %w", err)
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE deployments SET flavour_id = ?, last_pulled = ?, secret_params = ? WHERE id = ?
			`, in.Flavour, lastPulled, secret, id)
			if err != nil {
				return fmt.Errorf("failed to update deployment: %w", err)
			}
		}

		d = &models.Deployment{ID: id, LocalID: in.LocalID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetDeployment returns a deployment by ID.
func (s *Store) GetDeployment(ctx context.Context, id string) (d *models.Deployment, err error) {
	defer observe("get_deployment", time.Now(), &err)

	d = &models.Deployment{}
	err = s.db.QueryRowContext(ctx, `SELECT id, local_id FROM deployments WHERE id = ?`, id).Scan(&d.ID, &d.LocalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", models.ErrDeploymentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query deployment: %w", err)
	}
	return d, nil
}

// ListDeployments returns every deployment ordered by creation.
func (s *Store) ListDeployments(ctx context.Context) (list []models.ListDeployment, err error) {
	defer observe("list_deployments", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `SELECT id, local_id FROM deployments ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployments: %w", err)
	}
	defer rows.Close()

	list = []models.ListDeployment{}
	for rows.Next() {
		var d models.ListDeployment
		if err := rows.Scan(&d.ID, &d.LocalID); err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
