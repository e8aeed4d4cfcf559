package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/pkg/seed"
)

const (
	testInstance = "default"
	testBackend  = "backend-1"
	gpuHash      = "9f0b3c1e6d0c4a5f8e2b7a1d3c5e7f90"
	blurHash     = "1a2b3c4d5e6f708192a3b4c5d6e7f801"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	st, err := Open(ctx, MemoryPath, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fixture, err := seed.Default()
	if err != nil {
		t.Fatalf("seed.Default() error = %v", err)
	}
	if err := st.Seed(ctx, fixture); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return st
}

func TestSeed_Idempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	fixture, _ := seed.Default()
	if err := st.Seed(ctx, fixture); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}

	releases, err := st.ListReleases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(releases) != 1 {
		t.Fatalf("ListReleases() = %d releases, want 1", len(releases))
	}
	if got := releases[0].FlavourNames(); len(got) != 2 || got[0] != "vanilla" {
		t.Errorf("flavour names = %v", got)
	}
}

func TestDeclareBackend(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.DeclareBackend(ctx, "instance-2", "apptainer", "HPC")
	if err != nil {
		t.Fatalf("DeclareBackend() error = %v", err)
	}
	again, err := st.DeclareBackend(ctx, "instance-2", "apptainer", "HPC renamed")
	if err != nil {
		t.Fatalf("DeclareBackend() again error = %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("redeclare changed id: %s != %s", again.ID, first.ID)
	}

	got, err := st.GetBackend(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "HPC renamed" || got.InstanceID != "instance-2" {
		t.Errorf("GetBackend() = %+v", got)
	}

	list, err := st.ListBackends(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("ListBackends() = %d, want 2", len(list))
	}

	if _, err := st.DeclareBackend(ctx, "", "docker", "x"); !errors.Is(err, models.ErrInvalidRequest) {
		t.Errorf("empty instance error = %v", err)
	}
	if _, err := st.GetBackend(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetBackend(missing) error = %v", err)
	}
}

func TestListResources(t *testing.T) {
	st := newTestStore(t)

	list, err := st.ListResources(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Backend.ID != testBackend || list[0].ResourceID != "gpu-0" {
		t.Errorf("ListResources() = %+v", list)
	}
}

func TestDeploymentsAndPods(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	pulled := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	dep, err := st.CreateDeployment(ctx, CreateDeploymentInput{
		Flavour:      "flavour-1",
		InstanceID:   testInstance,
		LocalID:      "container-1",
		LastPulled:   &pulled,
		SecretParams: json.RawMessage(`{"token":"x"}`),
	})
	if err != nil {
		t.Fatalf("CreateDeployment() error = %v", err)
	}
	again, err := st.CreateDeployment(ctx, CreateDeploymentInput{Flavour: "flavour-2", InstanceID: testInstance, LocalID: "container-1"})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != dep.ID {
		t.Errorf("redeploy changed id")
	}

	pod, change, err := st.CreatePod(ctx, dep.ID, testInstance, "pod-a")
	if err != nil {
		t.Fatalf("CreatePod() error = %v", err)
	}
	if !change.Created || change.BackendID != testBackend || change.Status != models.PodStatusPending {
		t.Errorf("change = %+v", change)
	}
	if pod.PodID != "pod-a" || pod.Deployment.Flavour.Release.ID != "release-1" {
		t.Errorf("pod = %+v", pod)
	}

	_, change, err = st.CreatePod(ctx, dep.ID, testInstance, "pod-a")
	if err != nil {
		t.Fatal(err)
	}
	if change.Created {
		t.Error("re-creating a pod reported Created")
	}

	localID := "pod-a"
	updated, change, err := st.UpdatePod(ctx, UpdatePodInput{Status: models.PodStatusRunning, InstanceID: testInstance, LocalID: &localID})
	if err != nil {
		t.Fatalf("UpdatePod() error = %v", err)
	}
	if updated.ID != pod.ID || change.Status != models.PodStatusRunning || change.Created {
		t.Errorf("UpdatePod() = %+v, %+v", updated, change)
	}

	dump, err := st.DumpLogs(ctx, pod.ID, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if dump.Pod.ID != pod.ID || dump.Logs != "hello" {
		t.Errorf("DumpLogs() = %+v", dump)
	}

	pods, err := st.ListPods(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pods) != 1 {
		t.Errorf("ListPods() = %d, want 1", len(pods))
	}
	deps, err := st.ListDeployments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 1 || deps[0].LocalID != "container-1" {
		t.Errorf("ListDeployments() = %+v", deps)
	}
}

func TestMutationErrors(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	missing := "missing"

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name: "deployment on undeclared backend",
			run: func() error {
				_, err := st.CreateDeployment(ctx, CreateDeploymentInput{Flavour: "flavour-1", InstanceID: "nobody", LocalID: "x"})
				return err
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "deployment of unknown flavour",
			run: func() error {
				_, err := st.CreateDeployment(ctx, CreateDeploymentInput{Flavour: "nope", InstanceID: testInstance, LocalID: "x"})
				return err
			},
			wantErr: models.ErrFlavourNotFound,
		},
		{
			name: "pod of unknown deployment",
			run: func() error {
				_, _, err := st.CreatePod(ctx, "nope", testInstance, "x")
				return err
			},
			wantErr: models.ErrDeploymentNotFound,
		},
		{
			name: "update with invalid status",
			run: func() error {
				_, _, err := st.UpdatePod(ctx, UpdatePodInput{Status: "BOGUS", Pod: &missing})
				return err
			},
			wantErr: models.ErrInvalidRequest,
		},
		{
			name: "update without address",
			run: func() error {
				_, _, err := st.UpdatePod(ctx, UpdatePodInput{Status: models.PodStatusRunning})
				return err
			},
			wantErr: models.ErrInvalidRequest,
		},
		{
			name: "update unknown pod",
			run: func() error {
				_, _, err := st.UpdatePod(ctx, UpdatePodInput{Status: models.PodStatusRunning, Pod: &missing})
				return err
			},
			wantErr: models.ErrPodNotFound,
		},
		{
			name: "logs for unknown pod",
			run: func() error {
				_, err := st.DumpLogs(ctx, missing, "x")
				return err
			},
			wantErr: models.ErrPodNotFound,
		},
		{
			name: "unknown deployment",
			run: func() error {
				_, err := st.GetDeployment(ctx, missing)
				return err
			},
			wantErr: models.ErrDeploymentNotFound,
		},
		{
			name: "unknown pod",
			run: func() error {
				_, err := st.GetPod(ctx, missing)
				return err
			},
			wantErr: models.ErrPodNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefinitions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	list, err := st.ListDefinitions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("ListDefinitions() = %d, want 2", len(list))
	}

	def, err := st.GetDefinition(ctx, blurHash)
	if err != nil {
		t.Fatal(err)
	}
	if def.Name != "Gaussian Blur" {
		t.Errorf("GetDefinition() = %+v", def)
	}
	if _, err := st.GetDefinition(ctx, ""); !errors.Is(err, models.ErrInvalidRequest) {
		t.Errorf("GetDefinition(\"\") error = %v", err)
	}
	if _, err := st.GetDefinition(ctx, "ffff"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetDefinition(unknown) error = %v", err)
	}

	options, err := st.SearchDefinitions(ctx, "blur", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(options) != 1 || options[0].Value != "definition-2" || options[0].Label != "Gaussian Blur" {
		t.Errorf("SearchDefinitions(blur) = %+v", options)
	}

	options, err = st.SearchDefinitions(ctx, "", nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(options) != 1 {
		t.Errorf("SearchDefinitions limit 1 = %d options", len(options))
	}
}

func TestMatchFlavour(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		nodes   []string
		env     *models.EnvironmentInput
		want    string
		wantErr error
	}{
		{name: "both definitions", nodes: []string{gpuHash, blurHash}, want: "flavour-1"},
		{name: "first by position", nodes: []string{gpuHash}, want: "flavour-1"},
		{
			name:  "docker without gpu",
			nodes: []string{gpuHash},
			env:   &models.EnvironmentInput{ContainerType: models.ContainerTypeDocker},
			want:  "flavour-1",
		},
		{
			name:    "apptainer not offered",
			nodes:   []string{gpuHash},
			env:     &models.EnvironmentInput{ContainerType: models.ContainerTypeApptainer},
			wantErr: models.ErrFlavourNotFound,
		},
		{name: "unknown hash", nodes: []string{"ffff"}, wantErr: models.ErrFlavourNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.MatchFlavour(ctx, tt.nodes, tt.env)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("MatchFlavour() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("MatchFlavour() error = %v", err)
			}
			if got.ID != tt.want {
				t.Errorf("MatchFlavour() = %s, want %s", got.ID, tt.want)
			}
		})
	}
}

func TestSatisfies_GPU(t *testing.T) {
	req := sqlNull(`{"gpu": true}`)

	if satisfies(req, &models.EnvironmentInput{ContainerType: models.ContainerTypeDocker}) {
		t.Error("gpu flavour matched an environment without gpu features")
	}
	env := &models.EnvironmentInput{
		ContainerType: models.ContainerTypeDocker,
		Features:      []models.DeviceFeature{{Kind: "CUDA"}},
	}
	if !satisfies(req, env) {
		t.Error("gpu flavour rejected a cuda environment")
	}
	if !satisfies(req, nil) {
		t.Error("nil environment must match everything")
	}
}

func TestListFlavours(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	search := "cud"
	list, err := st.ListFlavours(ctx, &models.FlavourFilter{Search: &search}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "flavour-2" {
		t.Errorf("ListFlavours(search) = %+v", list)
	}

	list, err = st.ListFlavours(ctx, &models.FlavourFilter{HasDefinitions: []string{"definition-2"}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "flavour-1" {
		t.Errorf("ListFlavours(hasDefinitions) = %+v", list)
	}

	list, err = st.ListFlavours(ctx, nil, nil, &models.OffsetPaginationInput{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("ListFlavours(page) = %d, want 1", len(list))
	}
}

func TestGithubReposAndUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	repo, err := st.CreateGithubRepo(ctx, "jhnnsrs", "segment", "main", "")
	if err != nil {
		t.Fatal(err)
	}
	again, err := st.CreateGithubRepo(ctx, "jhnnsrs", "segment", "main", "")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != repo.ID {
		t.Error("re-registering a repo changed its id")
	}

	got, err := st.GetGithubRepo(ctx, repo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Repo != "segment" || got.User != "jhnnsrs" {
		t.Errorf("GetGithubRepo() = %+v", got)
	}
	if _, err := st.GetGithubRepo(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetGithubRepo(missing) error = %v", err)
	}

	options, err := st.SearchGithubRepos(ctx, "SEG")
	if err != nil {
		t.Fatal(err)
	}
	if len(options) != 1 || options[0].Label != "segment" {
		t.Errorf("SearchGithubRepos() = %+v", options)
	}

	if err := st.EnsureUser(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := st.EnsureUser(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Errorf("ListUsers() = %+v, want seeded user and alice", users)
	}
}

func TestPing(t *testing.T) {
	st := newTestStore(t)
	if err := st.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func sqlNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func TestCompactAndRowCounts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	counts, err := st.RowCounts(ctx)
	if err != nil {
		t.Fatalf("RowCounts() error = %v", err)
	}
	if len(counts) != len(Tables) {
		t.Errorf("RowCounts() returned %d tables, want %d", len(counts), len(Tables))
	}
	if counts["backends"] != 1 || counts["definitions"] != 2 {
		t.Errorf("counts = %v", counts)
	}

	stats, err := st.Compact(ctx, true)
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if stats.PageSize <= 0 || stats.SizeAfter <= 0 {
		t.Errorf("stats = %+v", stats)
	}
}
