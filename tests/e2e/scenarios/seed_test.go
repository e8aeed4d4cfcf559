package scenarios

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kabinet.io/kabinet/pkg/seed"
	"kabinet.io/kabinet/tests/e2e/fixtures"
	"kabinet.io/kabinet/tests/e2e/helpers"
)

func TestSeed_WatchAddsEntities(t *testing.T) {
	path := fixtures.Write(t, fixtures.Minimal())
	srv := helpers.StartServer(t, helpers.WithSeedFile(path, true))
	ctx := testContext(t)
	k := srv.Kabinet()

	// State created through the API survives a reseed.
	dep, err := k.CreateDeployment(ctx, "flavour-docker", "instance-a", "container-1", nil, nil)
	require.NoError(t, err)

	fixture := fixtures.Minimal()
	fixture.Backends = append(fixture.Backends, seed.Backend{
		ID: "backend-b", Name: "Backend B", Kind: "apptainer", InstanceID: "instance-b",
	})
	fixtures.Rewrite(t, path, fixture)

	helpers.Eventually(t, 5*time.Second, func() bool {
		b, err := k.GetBackend(ctx, "backend-b")
		return err == nil && b.Name == "Backend B"
	}, "backend-b was not seeded")

	got, err := k.GetDeployment(ctx, dep.ID)
	require.NoError(t, err)
	assert.Equal(t, "container-1", got.LocalID)
}

func TestSeed_InvalidFixtureIsIgnored(t *testing.T) {
	path := fixtures.Write(t, fixtures.Minimal())
	srv := helpers.StartServer(t, helpers.WithSeedFile(path, true))
	ctx := testContext(t)
	k := srv.Kabinet()

	broken := fixtures.Minimal()
	broken.Backends = append(broken.Backends, seed.Backend{ID: "backend-c"})
	fixtures.Rewrite(t, path, broken)

	// A valid rewrite after the broken one is still picked up.
	fixed := fixtures.Minimal()
	fixed.Backends = append(fixed.Backends, seed.Backend{ID: "backend-d", Name: "Backend D"})
	fixtures.Rewrite(t, path, fixed)

	helpers.Eventually(t, 5*time.Second, func() bool {
		_, err := k.GetBackend(ctx, "backend-d")
		return err == nil
	}, "backend-d was not seeded")

	_, err := k.GetBackend(ctx, "backend-c")
	assert.Error(t, err, "a backend without a name must not be seeded")
}
