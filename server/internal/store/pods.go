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

// PodChange describes the effect of a pod mutation, for event publishing.
type PodChange struct {
	// BackendID is the backend running the pod.
	BackendID string

	// Created is true when the mutation inserted the pod.
	Created bool

	// Status is the pod status after the mutation.
	Status models.PodStatus
}

// UpdatePodInput holds the updatePod mutation input. The pod is addressed
// either by its server ID or by the LocalID its backend chose.
type UpdatePodInput struct {
	Status     models.PodStatus
	InstanceID string
	Pod        *string
	LocalID    *string
}

// CreatePod records a pod the backend run by instanceID started for a
// deployment. Re-creating the same localID returns the existing pod.
func (s *Store) CreatePod(ctx context.Context, deploymentID, instanceID, localID string) (pod *models.Pod, change *PodChange, err error) {
	defer observe("create_pod", time.Now(), &err)

	if strings.TrimSpace(localID) == "" {
		return nil, nil, fmt.Errorf("%w: localId is required", models.ErrInvalidRequest)
	}

	var id string
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		backendID, err := backendByInstance(ctx, tx, instanceID)
		if err != nil {
			return err
		}

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM deployments WHERE id = ?`, deploymentID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to query deployment: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %q", models.ErrDeploymentNotFound, deploymentID)
		}

		change = &PodChange{BackendID: backendID, Status: models.PodStatusPending}
		var status string
		err = tx.QueryRowContext(ctx, `SELECT id, status FROM pods WHERE backend_id = ? AND pod_id = ?`, backendID, localID).Scan(&id, &status)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id = newID()
			now := s.now().UnixNano()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO pods (id, deployment_id, backend_id, pod_id, status, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, id, deploymentID, backendID, localID, string(models.PodStatusPending), now, now)
			if err != nil {
				return fmt.Errorf("failed to insert pod: %w", err)
			}
			change.Created = true
		case err != nil:
			return fmt.Errorf("failed to query pod: %w", err)
		default:
			change.Status = models.PodStatus(status)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	pod, err = s.getPod(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return pod, change, nil
}

// UpdatePod sets the status of a pod.
func (s *Store) UpdatePod(ctx context.Context, in UpdatePodInput) (pod *models.Pod, change *PodChange, err error) {
	defer observe("update_pod", time.Now(), &err)

	if !in.Status.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown pod status %q", models.ErrInvalidRequest, in.Status)
	}
	if in.Pod == nil && in.LocalID == nil {
		return nil, nil, fmt.Errorf("%w: either pod or localId is required", models.ErrInvalidRequest)
	}

	var id string
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var backendID string
		var row *sql.Row
		if in.Pod != nil {
			row = tx.QueryRowContext(ctx, `SELECT id, backend_id FROM pods WHERE id = ?`, *in.Pod)
		} else {
			instanceBackend, err := backendByInstance(ctx, tx, in.InstanceID)
			if err != nil {
				return err
			}
			row = tx.QueryRowContext(ctx, `SELECT id, backend_id FROM pods WHERE backend_id = ? AND pod_id = ?`, instanceBackend, *in.LocalID)
		}
		if err := row.Scan(&id, &backendID); errors.Is(err, sql.ErrNoRows) {
			return models.ErrPodNotFound
		} else if err != nil {
			return fmt.Errorf("failed to query pod: %w", err)
		}

		_, err := tx.ExecContext(ctx, `UPDATE pods SET status = ?, updated_at = ? WHERE id = ?`,
			string(in.Status), s.now().UnixNano(), id)
		if err != nil {
			return fmt.Errorf("failed to update pod: %w", err)
		}
		change = &PodChange{BackendID: backendID, Status: in.Status}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	pod, err = s.getPod(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return pod, change, nil
}

// GetPod returns a pod with its deployment's flavour and release.
func (s *Store) GetPod(ctx context.Context, id string) (pod *models.Pod, err error) {
	defer observe("get_pod", time.Now(), &err)
	return s.getPod(ctx, id)
}

func (s *Store) getPod(ctx context.Context, id string) (*models.Pod, error) {
	pod := &models.Pod{}
	var flavourID string
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.pod_id, d.flavour_id
		FROM pods p
		JOIN deployments d ON d.id = p.deployment_id
		WHERE p.id = ?
	`, id).Scan(&pod.ID, &pod.PodID, &flavourID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", models.ErrPodNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pod: %w", err)
	}

	flavour, err := flavourWithRelease(ctx, s.db, flavourID)
	if err != nil {
		return nil, err
	}
	pod.Deployment.Flavour = *flavour
	return pod, nil
}

// ListPods returns every pod ordered by creation.
func (s *Store) ListPods(ctx context.Context) (list []models.ListPod, err error) {
	defer observe("list_pods", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `SELECT id, pod_id FROM pods ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pods: %w", err)
	}
	defer rows.Close()

	list = []models.ListPod{}
	for rows.Next() {
		var p models.ListPod
		if err := rows.Scan(&p.ID, &p.PodID); err != nil {
			return nil, fmt.Errorf("failed to scan pod: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// DumpLogs stores a log upload for a pod.
func (s *Store) DumpLogs(ctx context.Context, podID, logs string) (dump *models.LogDump, err error) {
	defer observe("dump_logs", time.Now(), &err)

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pods WHERE id = ?`, podID).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to query pod: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %q", models.ErrPodNotFound, podID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO log_dumps (id, pod_id, logs, created_at) VALUES (?, ?, ?, ?)
	`, newID(), podID, logs, s.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to insert log dump: %w", err)
	}

	return &models.LogDump{Pod: models.PodRef{ID: podID}, Logs: logs}, nil
}
