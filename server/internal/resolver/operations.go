package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
	"kabinet.io/kabinet/server/internal/store"
)

// searchLimit matches the page size baked into the SearchDefinitions document.
const searchLimit = 10

func (r *Resolver) operations() map[string]operation {
	query := func(field string, h handler) operation {
		return operation{kind: sdk.KindQuery, field: field, resolve: h}
	}
	mutation := func(field string, h handler) operation {
		return operation{kind: sdk.KindMutation, field: field, resolve: h}
	}

	return map[string]operation{
		// Kabinet mutations
		"CreateDeployment": mutation("createDeployment", r.createDeployment),
		"CreatePod":        mutation("createPod", r.createPod),
		"UpdatePod":        mutation("updatePod", r.updatePod),
		"DumpLogs":         mutation("dumpLogs", r.dumpLogs),
		"CreateGithubRepo": mutation("createGithubRepo", r.createGithubRepo),
		"DeclareBackend":   mutation("declareBackend", r.declareBackend),

		// Kabinet queries
		"ListReleases":      query("releases", r.listReleases),
		"GetRelease":        query("release", r.getRelease),
		"GetDeployment":     query("deployment", r.getDeployment),
		"ListDeployments":   query("deployments", r.listDeployments),
		"ListPod":           query("pods", r.listPods),
		"GetPod":            query("pod", r.getPod),
		"ListDefinitions":   query("definitions", r.listDefinitions),
		"GetDefinition":     query("definition", r.getDefinition),
		"SearchDefinitions": query("options", r.searchDefinitions),
		"MatchFlavour":      query("matchFlavour", r.matchFlavour),
		"ListFlavours":      query("flavours", r.listFlavours),
		"ListBackends":      query("backends", r.listBackends),
		"GetBackend":        query("backend", r.getBackend),
		"ListResources":     query("resources", r.listResources),

		"WatchPods": {kind: sdk.KindSubscription, field: "pods"},

		// Kuay
		"create_githubrepo": mutation("createGithubRepo", r.kuayCreateGithubRepo),
		"get_github_repo":   query("githubRepo", r.kuayGetGithubRepo),
		"search_githubrepo": query("githubRepos", r.kuaySearchGithubRepos),

		// Konviktion
		"Users": query("users", r.listUsers),
	}
}

type idArgs struct {
	ID string `json:"id"`
}

func requireID(vars json.RawMessage) (string, error) {
	var args idArgs
	if err := decode(vars, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.ID) == "" {
		return "", fmt.Errorf("%w: id is required", models.ErrInvalidRequest)
	}
	return args.ID, nil
}

func (r *Resolver) createDeployment(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args struct {
		Flavour      string     `json:"flavour"`
		InstanceID   string     `json:"instanceId"`
		LocalID      string     `json:"localId"`
		LastPulled   *time.Time `json:"lastPulled"`
		SecretParams models.Any `json:"secretParams"`
	}
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	return r.store.CreateDeployment(ctx, store.CreateDeploymentInput{
		Flavour:      args.Flavour,
		InstanceID:   args.InstanceID,
		LocalID:      args.LocalID,
		LastPulled:   args.LastPulled,
		SecretParams: args.SecretParams,
	})
}

func (r *Resolver) createPod(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args struct {
		Deployment string `json:"deployment"`
		InstanceID string `json:"instanceId"`
		LocalID    string `json:"localId"`
	}
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	pod, change, err := r.store.CreatePod(ctx, args.Deployment, args.InstanceID, args.LocalID)
	if err != nil {
		return nil, err
	}
	r.publishPod(pod, change)
	return pod, nil
}

func (r *Resolver) updatePod(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args struct {
		Status     models.PodStatus `json:"status"`
		InstanceID string           `json:"instanceId"`
		Pod        *string          `json:"pod"`
		LocalID    *string          `json:"localId"`
	}
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	pod, change, err := r.store.UpdatePod(ctx, store.UpdatePodInput{
		Status:     args.Status,
		InstanceID: args.InstanceID,
		Pod:        args.Pod,
		LocalID:    args.LocalID,
	})
	if err != nil {
		return nil, err
	}
	r.publishPod(pod, change)
	return pod, nil
}

func (r *Resolver) dumpLogs(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args struct {
		Pod  string `json:"pod"`
		Logs string `json:"logs"`
	}
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	return r.store.DumpLogs(ctx, args.Pod, args.Logs)
}

type githubRepoArgs struct {
	User   string `json:"user"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Name   string `json:"name"`
}

func (r *Resolver) createGithubRepo(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args githubRepoArgs
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	return r.store.CreateGithubRepo(ctx, args.User, args.Repo, args.Branch, args.Name)
}

func (r *Resolver) declareBackend(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args struct {
		InstanceID string `json:"instanceId"`
		Kind       string `json:"kind"`
		Name       string `json:"name"`
	}
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	return r.store.DeclareBackend(ctx, args.InstanceID, args.Kind, args.Name)
}

func (r *Resolver) listReleases(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return nonNilSlice(r.store.ListReleases(ctx))
}

func (r *Resolver) getRelease(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	id, err := requireID(vars)
	if err != nil {
		return nil, err
	}
	return r.store.GetRelease(ctx, id)
}

func (r *Resolver) getDeployment(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	id, err := requireID(vars)
	if err != nil {
		return nil, err
	}
	return r.store.GetDeployment(ctx, id)
}

func (r *Resolver) listDeployments(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return nonNilSlice(r.store.ListDeployments(ctx))
}

func (r *Resolver) listPods(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return nonNilSlice(r.store.ListPods(ctx))
}

func (r *Resolver) getPod(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	id, err := requireID(vars)
	if err != nil {
		return nil, err
	}
	return r.store.GetPod(ctx, id)
}

func (r *Resolver) listDefinitions(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return nonNilSlice(r.store.ListDefinitions(ctx))
}

func (r *Resolver) getDefinition(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args struct {
		Hash *string `json:"hash"`
	}
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	hash := ""
	if args.Hash != nil {
		hash = *args.Hash
	}
	return r.store.GetDefinition(ctx, hash)
}

func (r *Resolver) searchDefinitions(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args struct {
		Search *string  `json:"search"`
		Values []string `json:"values"`
	}
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	search := ""
	if args.Search != nil {
		search = *args.Search
	}
	return nonNilSlice(r.store.SearchDefinitions(ctx, search, args.Values, searchLimit))
}

func (r *Resolver) matchFlavour(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args struct {
		Nodes       []string                 `json:"nodes"`
		Environment *models.EnvironmentInput `json:"environment"`
	}
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	if args.Environment != nil {
		if err := args.Environment.Validate(); err != nil {
			return nil, err
		}
	}
	return r.store.MatchFlavour(ctx, args.Nodes, args.Environment)
}

func (r *Resolver) listFlavours(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args struct {
		Filters    *models.FlavourFilter         `json:"filters"`
		Order      *models.FlavourOrder          `json:"order"`
		Pagination *models.OffsetPaginationInput `json:"pagination"`
	}
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	if args.Order != nil {
		if err := args.Order.Validate(); err != nil {
			return nil, err
		}
	}
	if args.Pagination != nil {
		if err := args.Pagination.Validate(); err != nil {
			return nil, err
		}
	}
	return nonNilSlice(r.store.ListFlavours(ctx, args.Filters, args.Order, args.Pagination))
}

func (r *Resolver) listBackends(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return nonNilSlice(r.store.ListBackends(ctx))
}

func (r *Resolver) getBackend(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	id, err := requireID(vars)
	if err != nil {
		return nil, err
	}
	return r.store.GetBackend(ctx, id)
}

func (r *Resolver) listResources(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return nonNilSlice(r.store.ListResources(ctx))
}

func (r *Resolver) kuayCreateGithubRepo(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args githubRepoArgs
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	repo, err := r.store.CreateGithubRepo(ctx, args.User, args.Repo, args.Branch, "")
	if err != nil {
		return nil, err
	}
	return &models.GithubRepoFragment{ID: repo.ID, User: repo.User, Repo: repo.Repo, Branch: repo.Branch}, nil
}

// kuayGetGithubRepo answers null for unknown repositories.
func (r *Resolver) kuayGetGithubRepo(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	id, err := requireID(vars)
	if err != nil {
		return nil, err
	}
	repo, err := r.store.GetGithubRepo(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *Resolver) kuaySearchGithubRepos(ctx context.Context, vars json.RawMessage) (interface{}, error) {
	var args struct {
		Search string `json:"search"`
	}
	if err := decode(vars, &args); err != nil {
		return nil, err
	}
	return nonNilSlice(r.store.SearchGithubRepos(ctx, args.Search))
}

// listUsers registers the calling subject before listing, so a token holder
// always sees itself.
func (r *Resolver) listUsers(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	if subject := SubjectFromContext(ctx); subject != "" {
		if err := r.store.EnsureUser(ctx, subject); err != nil {
			return nil, err
		}
	}
	return nonNilSlice(r.store.ListUsers(ctx))
}

// nonNilSlice makes empty lists encode as [] rather than null.
func nonNilSlice[T any](list []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}
