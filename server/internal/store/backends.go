package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"kabinet.io/kabinet/models"
)

// DeclareBackend registers the backend run by instanceID, or renames the
// backend the instance declared before.
func (s *Store) DeclareBackend(ctx context.Context, instanceID, kind, name string) (b *models.Backend, err error) {
	defer observe("declare_backend", time.Now(), &err)

	if strings.TrimSpace(instanceID) == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: instanceId and name are required", models.ErrInvalidRequest)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		id, lookupErr := backendByInstance(ctx, tx, instanceID)
		switch {
		case errors.Is(lookupErr, models.ErrNotFound):
			id = newID()
			_, execErr := tx.ExecContext(ctx, `
				INSERT INTO backends (id, name, kind, instance_id, created_at)
				VALUES (?, ?, ?, ?, ?)
			`, id, name, kind, instanceID, s.now().UnixNano())
			if execErr != nil {
				return fmt.Errorf("failed to insert backend: %w", execErr)
			}
		case lookupErr != nil:
			return lookupErr
		default:
			_, execErr := tx.ExecContext(ctx, `UPDATE backends SET name = ?, kind = ? WHERE id = ?`, name, kind, id)
			if execErr != nil {
				return fmt.Errorf("failed to update backend: %w", execErr)
			}
		}
		b = &models.Backend{ID: id, Name: name, Kind: kind, InstanceID: instanceID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("backend declared", zap.String("backend_id", b.ID), zap.String("instance_id", instanceID))
	return b, nil
}

// ListBackends returns every backend ordered by creation.
func (s *Store) ListBackends(ctx context.Context) (list []models.Backend, err error) {
	defer observe("list_backends", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, instance_id
		FROM backends
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query backends: %w", err)
	}
	defer rows.Close()

	list = []models.Backend{}
	for rows.Next() {
		var b models.Backend
		if err := rows.Scan(&b.ID, &b.Name, &b.Kind, &b.InstanceID); err != nil {
			return nil, fmt.Errorf("failed to scan backend: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// GetBackend returns a backend by ID.
func (s *Store) GetBackend(ctx context.Context, id string) (b *models.Backend, err error) {
	defer observe("get_backend", time.Now(), &err)

	b = &models.Backend{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, instance_id FROM backends WHERE id = ?
	`, id).Scan(&b.ID, &b.Name, &b.Kind, &b.InstanceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: backend %q", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query backend: %w", err)
	}
	return b, nil
}

// ListResources returns every resource with its backend.
func (s *Store) ListResources(ctx context.Context) (list []models.Resource, err error) {
	defer observe("list_resources", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.resource_id, b.id, b.name
		FROM resources r
		JOIN backends b ON b.id = r.backend_id
		ORDER BY b.created_at, r.resource_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	list = []models.Resource{}
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.ResourceID, &r.Backend.ID, &r.Backend.Name); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// backendByInstance resolves the backend an agent instance declared.
func backendByInstance(ctx context.Context, q querier, instanceID string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM backends WHERE instance_id = ?`, instanceID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: no backend declared for instance %q", models.ErrNotFound, instanceID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query backend: %w", err)
	}
	return id, nil
}
