package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"kabinet.io/kabinet/models"
)

type flavourRow struct {
	id            string
	releaseID     string
	name          string
	image         string
	containerType string
	manifest      sql.NullString
	requirements  sql.NullString
}

type releaseRow struct {
	id          string
	app         string
	version     string
	installed   bool
	scopes      []string
	colour      string
	description string
}

// ListReleases returns every release, newest first.
func (s *Store) ListReleases(ctx context.Context) (list []models.ListRelease, err error) {
	defer observe("list_releases", time.Now(), &err)

	releases, err := queryReleases(ctx, s.db, `ORDER BY released_at DESC, id`)
	if err != nil {
		return nil, err
	}
	flavours, err := releaseFlavours(ctx, s.db)
	if err != nil {
		return nil, err
	}

	list = make([]models.ListRelease, 0, len(releases))
	for _, r := range releases {
		lr := models.ListRelease{
			ID:          r.id,
			Version:     r.version,
			App:         models.ReleaseApp{Identifier: r.app},
			Installed:   r.installed,
			Scopes:      r.scopes,
			Colour:      r.colour,
			Description: r.description,
			Flavours:    []models.ListFlavour{},
		}
		for _, f := range flavours[r.id] {
			lr.Flavours = append(lr.Flavours, models.ListFlavour{ID: f.id, Name: f.name, Manifest: rawJSON(f.manifest)})
		}
		list = append(list, lr)
	}
	return list, nil
}

// GetRelease returns a release with its flavours.
func (s *Store) GetRelease(ctx context.Context, id string) (r *models.Release, err error) {
	defer observe("get_release", time.Now(), &err)
	return getRelease(ctx, s.db, id)
}

func getRelease(ctx context.Context, q querier, id string) (*models.Release, error) {
	releases, err := queryReleases(ctx, q, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, fmt.Errorf("%w: release %q", models.ErrNotFound, id)
	}
	row := releases[0]

	flavours, err := releaseFlavours(ctx, q, id)
	if err != nil {
		return nil, err
	}

	release := &models.Release{
		ID:          row.id,
		Version:     row.version,
		App:         models.ReleaseApp{Identifier: row.app},
		Scopes:      row.scopes,
		Colour:      row.colour,
		Description: row.description,
		Flavours:    []models.ReleaseFlavour{},
	}
	for _, f := range flavours[id] {
		release.Flavours = append(release.Flavours, models.ReleaseFlavour{
			ID:           f.id,
			Name:         f.name,
			Image:        f.image,
			Manifest:     rawJSON(f.manifest),
			Requirements: rawJSON(f.requirements),
		})
	}
	return release, nil
}

// flavourWithRelease returns a flavour embedded with its full release.
func flavourWithRelease(ctx context.Context, q querier, flavourID string) (*models.Flavour, error) {
	var releaseID string
	var manifest sql.NullString
	err := q.QueryRowContext(ctx, `SELECT release_id, manifest FROM flavours WHERE id = ?`, flavourID).Scan(&releaseID, &manifest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: flavour %q", models.ErrFlavourNotFound, flavourID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query flavour: %w", err)
	}

	release, err := getRelease(ctx, q, releaseID)
	if err != nil {
		return nil, err
	}
	return &models.Flavour{Release: *release, Manifest: rawJSON(manifest)}, nil
}

// ListFlavours returns the flavours matching filters.
func (s *Store) ListFlavours(ctx context.Context, filters *models.FlavourFilter, order *models.FlavourOrder, pagination *models.OffsetPaginationInput) (list []models.ListFlavour, err error) {
	defer observe("list_flavours", time.Now(), &err)

	var where []string
	var args []interface{}

	if filters != nil {
		if filters.Search != nil && *filters.Search != "" {
			where = append(where, "lower(f.name) LIKE ?")
			args = append(args, "%"+strings.ToLower(*filters.Search)+"%")
		}
		if len(filters.IDs) > 0 {
			where = append(where, "f.id IN ("+placeholders(len(filters.IDs))+")")
			args = append(args, stringArgs(filters.IDs)...)
		}
		if len(filters.HasDefinitions) > 0 {
			where = append(where, `(
				SELECT COUNT(DISTINCT fd.definition_id) FROM flavour_definitions fd
				WHERE fd.flavour_id = f.id AND fd.definition_id IN (`+placeholders(len(filters.HasDefinitions))+`)
			) = ?`)
			args = append(args, stringArgs(filters.HasDefinitions)...)
			args = append(args, len(uniqueStrings(filters.HasDefinitions)))
		}
	}

	query := `SELECT f.id, f.name, f.manifest FROM flavours f JOIN releases r ON r.id = f.release_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	direction := "ASC"
	if order != nil && order.ReleasedAt.Descending() {
		direction = "DESC"
	}
	query += " ORDER BY r.released_at " + direction + ", f.position, f.id"

	if pagination != nil {
		limit := pagination.Limit
		if limit == 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, pagination.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flavours: %w", err)
	}
	defer rows.Close()

	list = []models.ListFlavour{}
	for rows.Next() {
		var f models.ListFlavour
		var manifest sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &manifest); err != nil {
			return nil, fmt.Errorf("failed to scan flavour: %w", err)
		}
		f.Manifest = rawJSON(manifest)
		list = append(list, f)
	}
	return list, rows.Err()
}

// MatchFlavour picks the newest flavour that implements every definition in
// nodes and whose requirements the environment satisfies.
func (s *Store) MatchFlavour(ctx context.Context, nodes []string, env *models.EnvironmentInput) (m *models.MatchedFlavour, err error) {
	defer observe("match_flavour", time.Now(), &err)

	query := `SELECT f.id, f.image, f.container_type, f.requirements FROM flavours f JOIN releases r ON r.id = f.release_id`
	var where []string
	var args []interface{}

	if len(nodes) > 0 {
		where = append(where, `(
			SELECT COUNT(DISTINCT d.hash) FROM flavour_definitions fd
			JOIN definitions d ON d.id = fd.definition_id
			WHERE fd.flavour_id = f.id AND d.hash IN (`+placeholders(len(nodes))+`)
		) = ?`)
		args = append(args, stringArgs(nodes)...)
		args = append(args, len(uniqueStrings(nodes)))
	}
	if env != nil && env.ContainerType != "" {
		where = append(where, "f.container_type = ?")
		args = append(args, string(env.ContainerType))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.released_at DESC, f.position, f.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flavours: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, image, containerType string
		var requirements sql.NullString
		if err := rows.Scan(&id, &image, &containerType, &requirements); err != nil {
			return nil, fmt.Errorf("failed to scan flavour: %w", err)
		}
		if satisfies(requirements, env) {
			return &models.MatchedFlavour{ID: id, Image: image}, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flavours: %w", err)
	}
	return nil, models.ErrFlavourNotFound
}

// flavourRequirements are the requirement keys the matcher understands.
// Unknown keys are ignored.
type flavourRequirements struct {
	GPU       bool `json:"gpu"`
	Memory    int  `json:"memory"`
	Frequency int  `json:"frequency"`
}

var gpuFeatureKinds = map[string]bool{"cuda": true, "gpu": true, "nvidia": true, "opencl": true}

func satisfies(raw sql.NullString, env *models.EnvironmentInput) bool {
	if env == nil || !raw.Valid {
		return true
	}
	var req flavourRequirements
	if err := json.Unmarshal([]byte(raw.String), &req); err != nil {
		return true
	}

	if req.GPU {
		found := false
		for _, f := range env.Features {
			if gpuFeatureKinds[strings.ToLower(f.Kind)] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if env.CPU != nil {
		if req.Memory > 0 && env.CPU.Memory > 0 && env.CPU.Memory < req.Memory {
			return false
		}
		if req.Frequency > 0 && env.CPU.Frequency > 0 && env.CPU.Frequency < req.Frequency {
			return false
		}
	}
	return true
}

func queryReleases(ctx context.Context, q querier, clause string, args ...interface{}) ([]releaseRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, app, version, installed, scopes, colour, description
		FROM releases `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query releases: %w", err)
	}
	defer rows.Close()

	var list []releaseRow
	for rows.Next() {
		var r releaseRow
		var installed int
		var scopes sql.NullString
		if err := rows.Scan(&r.id, &r.app, &r.version, &installed, &scopes, &r.colour, &r.description); err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		r.installed = installed != 0
		r.scopes = []string{}
		if scopes.Valid && scopes.String != "" {
			if err := json.Unmarshal([]byte(scopes.String), &r.scopes); err != nil {
				return nil, fmt.Errorf("failed to decode release scopes: %w", err)
			}
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// releaseFlavours loads flavours grouped by release, for one release when
// releaseID is given and for all releases otherwise.
func releaseFlavours(ctx context.Context, q querier, releaseID ...string) (map[string][]flavourRow, error) {
	query := `
		SELECT id, release_id, name, image, container_type, manifest, requirements
		FROM flavours`
	var args []interface{}
	if len(releaseID) > 0 {
		query += " WHERE release_id = ?"
		args = append(args, releaseID[0])
	}
	query += " ORDER BY release_id, position, id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flavours: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]flavourRow)
	for rows.Next() {
		var f flavourRow
		if err := rows.Scan(&f.id, &f.releaseID, &f.name, &f.image, &f.containerType, &f.manifest, &f.requirements); err != nil {
			return nil, fmt.Errorf("failed to scan flavour: %w", err)
		}
		grouped[f.releaseID] = append(grouped[f.releaseID], f)
	}
	return grouped, rows.Err()
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
