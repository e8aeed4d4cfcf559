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

// CreateGithubRepo registers user/repo@branch, returning the existing
// repository when it is already known.
func (s *Store) CreateGithubRepo(ctx context.Context, user, repo, branch, name string) (g *models.GithubRepo, err error) {
	defer observe("create_github_repo", time.Now(), &err)

	user, repo, branch = strings.TrimSpace(user), strings.TrimSpace(repo), strings.TrimSpace(branch)
	if user == "" || repo == "" || branch == "" {
		return nil, fmt.Errorf("%w: user, repo and branch are required", models.ErrInvalidRequest)
	}
	if name == "" {
		name = user + "/" + repo
	}

	var id string
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM github_repos WHERE owner = ? AND repo = ? AND branch = ?
		`, user, repo, branch).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to query github repo: %w", err)
		}

		id = newID()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO github_repos (id, name, owner, repo, branch) VALUES (?, ?, ?, ?, ?)
		`, id, name, user, repo, branch)
		if err != nil {
			if isUniqueConstraint(err) {
				return models.ErrConflict
			}
			return fmt.Errorf("failed to insert github repo: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.GithubRepo{
		ID:       id,
		User:     user,
		Repo:     repo,
		Branch:   branch,
		Flavours: []models.GithubRepoFlavour{},
	}, nil
}

// GetGithubRepo returns a repository by ID.
func (s *Store) GetGithubRepo(ctx context.Context, id string) (g *models.GithubRepoFragment, err error) {
	defer observe("get_github_repo", time.Now(), &err)

	g = &models.GithubRepoFragment{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, owner, repo, branch FROM github_repos WHERE id = ?
	`, id).Scan(&g.ID, &g.User, &g.Repo, &g.Branch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: github repo %q", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query github repo: %w", err)
	}
	return g, nil
}

// SearchGithubRepos returns value/label options for repositories whose
// name contains search.
func (s *Store) SearchGithubRepos(ctx context.Context, search string) (list []models.SearchOption, err error) {
	defer observe("search_github_repos", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo FROM github_repos
		WHERE lower(repo) LIKE ? OR lower(name) LIKE ?
		ORDER BY repo, id
	`, "%"+strings.ToLower(search)+"%", "%"+strings.ToLower(search)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search github repos: %w", err)
	}
	defer rows.Close()

	list = []models.SearchOption{}
	for rows.Next() {
		var o models.SearchOption
		if err := rows.Scan(&o.Value, &o.Label); err != nil {
			return nil, fmt.Errorf("failed to scan github repo: %w", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// ListUsers returns every user.
func (s *Store) ListUsers(ctx context.Context) (list []models.User, err error) {
	defer observe("list_users", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	list = []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// EnsureUser records a user the first time it authenticates.
func (s *Store) EnsureUser(ctx context.Context, id string) (err error) {
	defer observe("ensure_user", time.Now(), &err)

	if _, err = s.db.ExecContext(ctx, `INSERT OR IGNORE INTO users (id) VALUES (?)`, id); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}
