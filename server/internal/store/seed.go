package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kabinet.io/kabinet/pkg/seed"
)

// Seed inserts a fixture in one transaction. Rows that already exist are
// left untouched, so seeding a persistent database twice is harmless.
func (s *Store) Seed(ctx context.Context, fixture *seed.Fixture) (err error) {
	defer observe("seed", time.Now(), &err)

	if fixture == nil {
		return nil
	}
	if err := fixture.Validate(); err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.now()

		for _, b := range fixture.Backends {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO backends (id, name, kind, instance_id, created_at) VALUES (?, ?, ?, ?, ?)
			`, b.ID, b.Name, b.Kind, instanceOrID(b.InstanceID, b.ID), now.UnixNano()); err != nil {
				return fmt.Errorf("failed to seed backend %q: %w", b.ID, err)
			}
		}

		for _, r := range fixture.Resources {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO resources (id, name, resource_id, backend_id) VALUES (?, ?, ?, ?)
			`, r.ID, r.Name, r.ResourceID, r.Backend); err != nil {
				return fmt.Errorf("failed to seed resource %q: %w", r.ID, err)
			}
		}

		definitionIDs := make(map[string]string, len(fixture.Definitions))
		for _, d := range fixture.Definitions {
			var description sql.NullString
			if d.Description != "" {
				description = sql.NullString{String: d.Description, Valid: true}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO definitions (id, name, hash, description) VALUES (?, ?, ?, ?)
			`, d.ID, d.Name, d.Hash, description); err != nil {
				return fmt.Errorf("failed to seed definition %q: %w", d.ID, err)
			}
			definitionIDs[d.Hash] = d.ID
		}

		for i, r := range fixture.Releases {
			scopes, err := encodeJSON(nonNil(r.Scopes))
			if err != nil {
				return err
			}
			releasedAt := r.ReleasedAt
			if releasedAt.IsZero() {
				releasedAt = now.Add(time.Duration(i) * time.Second)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO releases (id, app, version, installed, scopes, colour, description, released_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, r.ID, r.App, r.Version, boolToInt(r.Installed), scopes, r.Colour, r.Description, releasedAt.UnixNano()); err != nil {
				return fmt.Errorf("failed to seed release %q: %w", r.ID, err)
			}

			for pos, f := range r.Flavours {
				if err := seedFlavour(ctx, tx, r.ID, pos, f, definitionIDs); err != nil {
					return err
				}
			}
		}

		for _, g := range fixture.GithubRepos {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO github_repos (id, name, owner, repo, branch) VALUES (?, ?, ?, ?, ?)
			`, g.ID, g.User+"/"+g.Repo, g.User, g.Repo, g.Branch); err != nil {
				return fmt.Errorf("failed to seed github repo %q: %w", g.ID, err)
			}
		}

		for _, u := range fixture.Users {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO users (id) VALUES (?)`, u.ID); err != nil {
				return fmt.Errorf("failed to seed user %q: %w", u.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	fields := make([]zap.Field, 0, 8)
	for kind, n := range fixture.Counts() {
		fields = append(fields, zap.Int(kind, n))
	}
	s.logger.Info("database seeded", fields...)
	return nil
}

func seedFlavour(ctx context.Context, tx *sql.Tx, releaseID string, position int, f seed.Flavour, definitionIDs map[string]string) error {
	manifest, err := encodeJSON(nonNilMap(f.Manifest))
	if err != nil {
		return err
	}
	requirements, err := encodeJSON(nonNilMap(f.Requirements))
	if err != nil {
		return err
	}
	containerType := f.ContainerType
	if containerType == "" {
		containerType = "DOCKER"
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO flavours (id, release_id, name, image, container_type, manifest, requirements, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, releaseID, f.Name, f.Image, containerType, manifest, requirements, position); err != nil {
		return fmt.Errorf("failed to seed flavour %q: %w", f.ID, err)
	}

	for _, hash := range f.Definitions {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO flavour_definitions (flavour_id, definition_id) VALUES (?, ?)
		`, f.ID, definitionIDs[hash]); err != nil {
			return fmt.Errorf("failed to link flavour %q to %q: %w", f.ID, hash, err)
		}
	}
	return nil
}

func instanceOrID(instanceID, id string) string {
	if instanceID != "" {
		return instanceID
	}
	return id
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
