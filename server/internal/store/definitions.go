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

// ListDefinitions returns every definition ordered by name.
func (s *Store) ListDefinitions(ctx context.Context) (list []models.ListDefinition, err error) {
	defer observe("list_definitions", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, hash, description FROM definitions ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query definitions: %w", err)
	}
	defer rows.Close()

	list = []models.ListDefinition{}
	for rows.Next() {
		var d models.ListDefinition
		var description sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &d.Hash, &description); err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		if description.Valid {
			d.Description = &description.String
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// GetDefinition returns the definition with the given hash.
func (s *Store) GetDefinition(ctx context.Context, hash string) (d *models.Definition, err error) {
	defer observe("get_definition", time.Now(), &err)

	if hash == "" {
		return nil, fmt.Errorf("%w: hash is required", models.ErrInvalidRequest)
	}

	d = &models.Definition{}
	err = s.db.QueryRowContext(ctx, `SELECT id, name FROM definitions WHERE hash = ?`, hash).Scan(&d.ID, &d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: definition %q", models.ErrNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query definition: %w", err)
	}
	return d, nil
}

// SearchDefinitions returns at most limit value/label options whose name
// contains search, restricted to ids when given.
func (s *Store) SearchDefinitions(ctx context.Context, search string, ids []string, limit int) (list []models.SearchOption, err error) {
	defer observe("search_definitions", time.Now(), &err)

	query := `SELECT id, name FROM definitions`
	var where []string
	var args []interface{}
	if search != "" {
		where = append(where, "lower(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	if len(ids) > 0 {
		where = append(where, "id IN ("+placeholders(len(ids))+")")
		args = append(args, stringArgs(ids)...)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search definitions: %w", err)
	}
	defer rows.Close()

	list = []models.SearchOption{}
	for rows.Next() {
		var o models.SearchOption
		if err := rows.Scan(&o.Value, &o.Label); err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}
