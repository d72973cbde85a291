package verify

import (
	"context"
	"testing"

	"github.com/argusverify/argus/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLeanDriverFailsClosedOutsideContainer(t *testing.T) {
	t.Setenv("ARGUS_ALLOW_LOCAL_VERIFY", "")
	driver := NewLeanDriver(t.TempDir(), true)
	obligations := []model.Obligation{
		model.NewObligation("f:non_negative_result", "f(...) >= 0", model.CategoryNonNegativity, "d", model.SeverityCritical),
	}
	outcome := driver.Verify(context.Background(), "def f : Int := 0", obligations)
	require.True(t, outcome.VerificationError)
	require.Contains(t, outcome.ErrorMessage, "Docker-only verification is enabled")
	require.Len(t, outcome.ObligationResults, 1)
	require.False(t, outcome.ObligationResults[0].Verified)
}

func TestDafnyDriverFailsClosedOutsideContainer(t *testing.T) {
	t.Setenv("ARGUS_ALLOW_LOCAL_VERIFY", "")
	driver := NewDafnyDriver(true)
	outcome := driver.Verify(context.Background(), "method f() returns (r: int) { r := 0; }", nil)
	require.True(t, outcome.VerificationError)
	require.Equal(t, model.EngineDafny, outcome.Engine)
}

func TestAllowLocalVerifyOverridesContainerRequirement(t *testing.T) {
	t.Setenv("ARGUS_ALLOW_LOCAL_VERIFY", "true")
	driver := NewLeanDriver(t.TempDir(), true)
	// No `lake` binary is expected to exist in the test environment;
	// the point of this test is only that the container check is
	// bypassed and the driver actually attempts the subprocess instead
	// of returning the fail-closed container error.
	outcome := driver.Verify(context.Background(), "def f : Int := 0", nil)
	require.NotEqual(t, "Docker-only verification is enabled (set ARGUS_ALLOW_LOCAL_VERIFY=true to override)", outcome.ErrorMessage)
}

func TestRouterDispatchesByEngine(t *testing.T) {
	t.Setenv("ARGUS_ALLOW_LOCAL_VERIFY", "")
	router := NewRouter(NewLeanDriver("", true), NewDafnyDriver(true))
	leanOutcome := router.Verify(context.Background(), model.EngineLean, "def f : Int := 0", nil)
	require.Equal(t, model.EngineLean, leanOutcome.Engine)

	dafnyOutcome := router.Verify(context.Background(), model.EngineDafny, "method f() {}", nil)
	require.Equal(t, model.EngineDafny, dafnyOutcome.Engine)
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := OpenCache("")
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	key := Key(model.EngineLean, "def f : Int := 0")

	_, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, found)

	outcome := model.VerificationOutcome{Engine: model.EngineLean, RawOutput: "ok"}
	require.NoError(t, cache.Put(ctx, key, outcome))

	got, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "ok", got.RawOutput)
}

func TestCachedRouterSkipsSubprocessOnHit(t *testing.T) {
	t.Setenv("ARGUS_ALLOW_LOCAL_VERIFY", "")
	cache, err := OpenCache("")
	require.NoError(t, err)
	defer cache.Close()

	router := NewRouter(NewLeanDriver("", true), NewDafnyDriver(true))
	cachedRouter := NewCachedRouter(router, cache)

	artifact := "def f : Int := 0"
	want := model.VerificationOutcome{Engine: model.EngineLean, RawOutput: "cached-result"}
	require.NoError(t, cache.Put(context.Background(), Key(model.EngineLean, artifact), want))

	got := cachedRouter.Verify(context.Background(), model.EngineLean, artifact, nil)
	require.Equal(t, "cached-result", got.RawOutput)
}
