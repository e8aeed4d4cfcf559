package kabinet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
	"kabinet.io/kabinet/sdk/structures"
)

// fakeServer answers GraphQL requests with canned data per operation name
// and records the variables it received.
type fakeServer struct {
	t         *testing.T
	responses map[string]string

	mu   sync.Mutex
	vars map[string]map[string]interface{}
	docs map[string]string
}

func newFakeServer(t *testing.T, responses map[string]string) (*fakeServer, *Client) {
	t.Helper()

	f := &fakeServer{
		t:         t,
		responses: responses,
		vars:      make(map[string]map[string]interface{}),
		docs:      make(map[string]string),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := NewClient(sdk.ClientConfig{Endpoint: srv.URL + "/graphql", RetryAttempts: 1, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return f, client
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("decode request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.vars[req.OperationName] = req.Variables
	f.docs[req.OperationName] = req.Query
	f.mu.Unlock()

	body, ok := f.responses[req.OperationName]
	if !ok {
		body = `{"errors":[{"message":"unknown operation","extensions":{"code":"UNKNOWN_OPERATION"}}]}`
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (f *fakeServer) variables(op string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vars[op]
}

func (f *fakeServer) document(op string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[op]
}

const podResponse = `{"id":"p1","podId":"local-p1","deployment":{"flavour":{"release":{"id":"r1","version":"0.1.0","app":{"identifier":"mikro"},"scopes":[],"colour":"#00ff00","description":"","flavours":[{"id":"f1","name":"vanilla","image":"jhnnsrs/mikro:0.1.0","manifest":{},"requirements":[]}]},"manifest":{}}}}`

func TestClient_Mutations(t *testing.T) {
	fake, client := newFakeServer(t, map[string]string{
		"CreateDeployment": `{"data":{"createDeployment":{"id":"d1","localId":"local-d1"}}}`,
		"CreatePod":        `{"data":{"createPod":` + podResponse + `}}`,
		"UpdatePod":        `{"data":{"updatePod":` + podResponse + `}}`,
		"DumpLogs":         `{"data":{"dumpLogs":{"pod":{"id":"p1"},"logs":"hello"}}}`,
		"CreateGithubRepo": `{"data":{"createGithubRepo":{"id":"g1","branch":"main","user":"jhnnsrs","repo":"mikro","flavours":[{"definitions":[{"id":"def1","hash":"abc"}]}]}}}`,
		"DeclareBackend":   `{"data":{"declareBackend":{"id":"b1","name":"docker"}}}`,
	})
	ctx := context.Background()

	pulled := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	deployment, err := client.CreateDeployment(ctx, "f1", "instance-1", "local-d1", &pulled, map[string]string{"gpu": "0"})
	if err != nil {
		t.Fatalf("CreateDeployment() error = %v", err)
	}
	if deployment.ID != "d1" || deployment.LocalID != "local-d1" {
		t.Errorf("CreateDeployment() = %+v", deployment)
	}
	vars := fake.variables("CreateDeployment")
	if vars["flavour"] != "f1" || vars["instanceId"] != "instance-1" || vars["lastPulled"] != "2024-05-01T12:00:00Z" {
		t.Errorf("CreateDeployment variables = %v", vars)
	}
	if !strings.Contains(fake.document("CreateDeployment"), "fragment Deployment on Deployment") {
		t.Error("CreateDeployment document does not carry its fragment")
	}

	pod, err := client.CreatePod(ctx, "d1", "instance-1", "local-p1")
	if err != nil {
		t.Fatalf("CreatePod() error = %v", err)
	}
	if pod.Deployment.Flavour.Release.App.Identifier != "mikro" {
		t.Errorf("CreatePod() = %+v", pod)
	}

	localID := "local-p1"
	if _, err := client.UpdatePod(ctx, models.PodStatusRunning, "instance-1", nil, &localID); err != nil {
		t.Fatalf("UpdatePod() error = %v", err)
	}
	vars = fake.variables("UpdatePod")
	if vars["status"] != "RUNNING" || vars["pod"] != nil || vars["localId"] != "local-p1" {
		t.Errorf("UpdatePod variables = %v", vars)
	}

	dump, err := client.DumpLogs(ctx, "p1", "hello")
	if err != nil || dump.Logs != "hello" || dump.Pod.ID != "p1" {
		t.Errorf("DumpLogs() = %+v, %v", dump, err)
	}

	repo, err := client.CreateGithubRepo(ctx, "jhnnsrs", "mikro", "main", "mikro")
	if err != nil {
		t.Fatalf("CreateGithubRepo() error = %v", err)
	}
	if repo.Slug() != "jhnnsrs/mikro@main" || repo.Flavours[0].Definitions[0].Hash != "abc" {
		t.Errorf("CreateGithubRepo() = %+v", repo)
	}

	backend, err := client.DeclareBackend(ctx, "instance-1", "docker", "docker")
	if err != nil || backend.ID != "b1" {
		t.Errorf("DeclareBackend() = %+v, %v", backend, err)
	}
}

func TestClient_UpdatePodValidation(t *testing.T) {
	_, client := newFakeServer(t, nil)
	ctx := context.Background()

	podID := "p1"
	if _, err := client.UpdatePod(ctx, "SLEEPING", "instance-1", &podID, nil); !errors.Is(err, models.ErrInvalidRequest) {
		t.Errorf("UpdatePod(bad status) error = %v", err)
	}
	if _, err := client.UpdatePod(ctx, models.PodStatusFailed, "instance-1", nil, nil); !errors.Is(err, models.ErrInvalidRequest) {
		t.Errorf("UpdatePod(no pod) error = %v", err)
	}
}

func TestClient_Queries(t *testing.T) {
	fake, client := newFakeServer(t, map[string]string{
		"ListReleases":      `{"data":{"releases":[{"id":"r1","version":"0.1.0","app":{"identifier":"mikro"},"installed":true,"scopes":["read"],"flavours":[{"id":"f1","name":"vanilla","manifest":{}},{"id":"f2","name":"gpu","manifest":{}}],"colour":"#fff","description":"d"}]}}`,
		"GetRelease":        `{"data":{"release":{"id":"r1","version":"0.1.0","app":{"identifier":"mikro"},"scopes":[],"colour":"#fff","description":"d","flavours":[{"id":"f1","name":"vanilla","image":"jhnnsrs/mikro:0.1.0","manifest":{},"requirements":[]}]}}}`,
		"GetDeployment":     `{"data":{"deployment":{"id":"d1","localId":"l1"}}}`,
		"ListDeployments":   `{"data":{"deployments":[{"id":"d1","localId":"l1"},{"id":"d2","localId":"l2"}]}}`,
		"ListPod":           `{"data":{"pods":[{"id":"p1","podId":"a"}]}}`,
		"GetPod":            `{"data":{"pod":` + podResponse + `}}`,
		"ListDefinitions":   `{"data":{"definitions":[{"id":"def1","name":"segment","hash":"abc","description":null}]}}`,
		"GetDefinition":     `{"data":{"definition":{"id":"def1","name":"segment"}}}`,
		"SearchDefinitions": `{"data":{"options":[{"value":"def1","label":"segment"}]}}`,
		"MatchFlavour":      `{"data":{"matchFlavour":{"id":"f1","image":"jhnnsrs/mikro:0.1.0"}}}`,
		"ListFlavours":      `{"data":{"flavours":[{"id":"f2","name":"gpu","manifest":{}}]}}`,
		"ListBackends":      `{"data":{"backends":[{"id":"b1","name":"docker","kind":"docker","instanceId":"i1"}]}}`,
		"GetBackend":        `{"data":{"backend":{"id":"b1","name":"docker","kind":"docker","instanceId":"i1"}}}`,
		"ListResources":     `{"data":{"resources":[{"id":"res1","name":"gpu0","resourceId":"0","backend":{"id":"b1","name":"docker"}}]}}`,
	})
	ctx := context.Background()

	releases, err := client.ListReleases(ctx)
	if err != nil || len(releases) != 1 || strings.Join(releases[0].FlavourNames(), ",") != "vanilla,gpu" {
		t.Errorf("ListReleases() = %+v, %v", releases, err)
	}

	release, err := client.GetRelease(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRelease() error = %v", err)
	}
	ref, err := release.Flavours[0].ImageReference()
	if err != nil || ref.Registry != "index.docker.io" {
		t.Errorf("ImageReference() = %+v, %v", ref, err)
	}

	if d, err := client.GetDeployment(ctx, "d1"); err != nil || d.LocalID != "l1" {
		t.Errorf("GetDeployment() = %+v, %v", d, err)
	}
	if ds, err := client.ListDeployments(ctx); err != nil || len(ds) != 2 {
		t.Errorf("ListDeployments() = %+v, %v", ds, err)
	}
	if ps, err := client.ListPods(ctx); err != nil || len(ps) != 1 || ps[0].PodID != "a" {
		t.Errorf("ListPods() = %+v, %v", ps, err)
	}
	if p, err := client.GetPod(ctx, "p1"); err != nil || p.PodID != "local-p1" {
		t.Errorf("GetPod() = %+v, %v", p, err)
	}

	defs, err := client.ListDefinitions(ctx)
	if err != nil || len(defs) != 1 || defs[0].Description != nil {
		t.Errorf("ListDefinitions() = %+v, %v", defs, err)
	}

	if _, err := client.GetDefinition(ctx, ""); err != nil {
		t.Fatalf("GetDefinition() error = %v", err)
	}
	if vars := fake.variables("GetDefinition"); vars["hash"] != nil {
		t.Errorf("GetDefinition empty hash sent %v, want null", vars["hash"])
	}

	search := "seg"
	options, err := client.SearchDefinitions(ctx, &search, nil)
	if err != nil || len(options) != 1 || options[0].Label != "segment" {
		t.Errorf("SearchDefinitions() = %+v, %v", options, err)
	}
	if vars := fake.variables("SearchDefinitions"); vars["search"] != "seg" || vars["values"] != nil {
		t.Errorf("SearchDefinitions variables = %v", vars)
	}

	env := &models.EnvironmentInput{ContainerType: models.ContainerTypeDocker}
	flavour, err := client.MatchFlavour(ctx, []models.NodeHash{"abc"}, env)
	if err != nil || flavour.ID != "f1" {
		t.Errorf("MatchFlavour() = %+v, %v", flavour, err)
	}
	vars := fake.variables("MatchFlavour")
	environment, _ := vars["environment"].(map[string]interface{})
	if environment["containerType"] != "DOCKER" {
		t.Errorf("MatchFlavour environment = %v", vars["environment"])
	}

	flavours, err := client.ListFlavours(ctx,
		&models.FlavourFilter{HasDefinitions: []models.ID{"15"}},
		&models.FlavourOrder{ReleasedAt: models.OrderingDesc},
		&models.OffsetPaginationInput{Limit: 5},
	)
	if err != nil || len(flavours) != 1 {
		t.Errorf("ListFlavours() = %+v, %v", flavours, err)
	}
	vars = fake.variables("ListFlavours")
	order, _ := vars["order"].(map[string]interface{})
	if order["releasedAt"] != "DESC" {
		t.Errorf("ListFlavours order = %v", vars["order"])
	}

	if bs, err := client.ListBackends(ctx); err != nil || bs[0].Kind != "docker" {
		t.Errorf("ListBackends() = %+v, %v", bs, err)
	}
	if b, err := client.GetBackend(ctx, "b1"); err != nil || b.InstanceID != "i1" {
		t.Errorf("GetBackend() = %+v, %v", b, err)
	}
	if rs, err := client.ListResources(ctx); err != nil || rs[0].Backend.Name != "docker" {
		t.Errorf("ListResources() = %+v, %v", rs, err)
	}
}

func TestClient_QueryValidation(t *testing.T) {
	_, client := newFakeServer(t, nil)
	ctx := context.Background()

	if _, err := client.MatchFlavour(ctx, nil, &models.EnvironmentInput{}); !errors.Is(err, models.ErrInvalidRequest) {
		t.Errorf("MatchFlavour(invalid env) error = %v", err)
	}
	if _, err := client.ListFlavours(ctx, nil, &models.FlavourOrder{ReleasedAt: "UP"}, nil); !errors.Is(err, models.ErrInvalidRequest) {
		t.Errorf("ListFlavours(invalid order) error = %v", err)
	}
	if _, err := client.ListFlavours(ctx, nil, nil, &models.OffsetPaginationInput{Limit: -1}); !errors.Is(err, models.ErrInvalidRequest) {
		t.Errorf("ListFlavours(invalid pagination) error = %v", err)
	}
}

func TestClient_NotFound(t *testing.T) {
	_, client := newFakeServer(t, map[string]string{
		"GetPod": `{"data":null,"errors":[{"message":"pod not found","path":["pod"],"extensions":{"code":"NOT_FOUND"}}]}`,
	})

	_, err := client.GetPod(context.Background(), "missing")
	if !errors.Is(err, sdk.ErrNotFound) {
		t.Errorf("GetPod() error = %v, want ErrNotFound", err)
	}
	var gqlErrs sdk.GraphQLErrors
	if !errors.As(err, &gqlErrs) || gqlErrs[0].Code() != "NOT_FOUND" {
		t.Errorf("GetPod() error = %#v", err)
	}
}

func TestOperations(t *testing.T) {
	seen := make(map[string]bool)
	for _, op := range Operations() {
		if seen[op.Name] {
			t.Errorf("duplicate operation %s", op.Name)
		}
		seen[op.Name] = true

		parsed := sdk.ParseOperation(op.Document)
		if parsed.Name != op.Name || parsed.Kind != op.Kind {
			t.Errorf("%s: document declares (%s, %s)", op.Name, parsed.Name, parsed.Kind)
		}
	}
	if len(seen) != 21 {
		t.Errorf("len(Operations()) = %d, want 21", len(seen))
	}
}

func TestRegisterStructures(t *testing.T) {
	_, client := newFakeServer(t, map[string]string{
		"GetPod":        `{"data":{"pod":` + podResponse + `}}`,
		"GetDeployment": `{"data":{"deployment":{"id":"d1","localId":"l1"}}}`,
	})
	reg := structures.NewRegistry()

	if err := RegisterStructures(reg, client); err != nil {
		t.Fatalf("RegisterStructures() error = %v", err)
	}
	if err := RegisterStructures(reg, client); !errors.Is(err, structures.ErrDuplicateStructure) {
		t.Errorf("second RegisterStructures() error = %v", err)
	}

	value, err := reg.Expand(context.Background(), PodStructure, "p1")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	id, err := reg.Shrink(PodStructure, value)
	if err != nil || id != "p1" {
		t.Errorf("Shrink() = %q, %v", id, err)
	}

	s, ok := reg.Lookup(DeploymentStructure)
	if !ok || s.Scope != structures.ScopeGlobal {
		t.Errorf("Lookup(%s) = %+v, %v", DeploymentStructure, s, ok)
	}
	id, err = reg.Shrink(DeploymentStructure, models.Deployment{ID: "d9"})
	if err != nil || id != "d9" {
		t.Errorf("Shrink(deployment) = %q, %v", id, err)
	}
}

func TestPodWatcher_Diff(t *testing.T) {
	w := NewPodWatcher(PodWatcherConfig{})

	events := w.diff([]models.ListPod{{ID: "1", PodID: "a"}, {ID: "2", PodID: "b"}})
	if len(events) != 2 || events[0].Kind() != models.PodEventCreate || events[0].PodID() != "1" {
		t.Fatalf("first diff = %+v", events)
	}

	events = w.diff([]models.ListPod{{ID: "2", PodID: "b2"}, {ID: "3", PodID: "c"}})
	var kinds []string
	for _, e := range events {
		kinds = append(kinds, string(e.Kind())+":"+e.PodID())
	}
	want := "update:2,create:3,delete:1"
	if strings.Join(kinds, ",") != want {
		t.Errorf("second diff = %s, want %s", strings.Join(kinds, ","), want)
	}

	if events := w.diff([]models.ListPod{{ID: "2", PodID: "b2"}, {ID: "3", PodID: "c"}}); len(events) != 0 {
		t.Errorf("unchanged diff = %+v", events)
	}
}

func TestPodWatcher_Poll(t *testing.T) {
	fake, client := newFakeServer(t, map[string]string{
		"ListPod": `{"data":{"pods":[{"id":"1","podId":"a"}]}}`,
	})

	var got []models.PodEvent
	w := NewPodWatcher(PodWatcherConfig{
		Client:      client,
		SkipInitial: true,
		OnEvent: func(_ context.Context, e models.PodEvent) error {
			got = append(got, e)
			return nil
		},
	})

	ctx := context.Background()
	w.Poll(ctx)
	if len(got) != 0 {
		t.Fatalf("initial snapshot emitted %d events", len(got))
	}

	fake.responses["ListPod"] = `{"data":{"pods":[{"id":"1","podId":"a"},{"id":"2","podId":"b"}]}}`
	w.Poll(ctx)
	if len(got) != 1 || got[0].Kind() != models.PodEventCreate || got[0].PodID() != "2" {
		t.Errorf("events = %+v", got)
	}
}

func TestPodWatcher_PollWithoutHandler(t *testing.T) {
	_, client := newFakeServer(t, map[string]string{
		"ListPod": `{"data":{"pods":[{"id":"1","podId":"a"}]}}`,
	})

	w := NewPodWatcher(PodWatcherConfig{Client: client})
	w.Poll(context.Background())

	if len(w.known) != 1 {
		t.Errorf("known pods = %d, want 1", len(w.known))
	}
}
