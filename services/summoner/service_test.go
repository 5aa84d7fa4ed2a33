package summoner

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"riftlens-backend/lib/testutil"
	"riftlens-backend/services/summoner/db"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T, orchestrator *Orchestrator) Service {
	return setupServiceTTL(t, orchestrator, 0)
}

func setupServiceTTL(t *testing.T, orchestrator *Orchestrator, ttl time.Duration) Service {
	t.Helper()

	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/summoner",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	service, err := NewService(ServiceOptions{
		Orchestrator: orchestrator,
		DB:           setup.DB,
		ProfileTTL:   ttl,
	})
	require.NoError(t, err)
	t.Cleanup(service.Close)
	return service
}

func TestFetchRejectsInvalidIdentity(t *testing.T) {
	service := setupService(t, setupOrchestrator(t, orchestratorConfig{}))
	ctx := context.Background()

	for _, identity := range []Identity{
		{SummonerName: "", TagLine: "KR1", Region: "kr"},
		{SummonerName: strings.Repeat("a", 17), TagLine: "KR1", Region: "kr"},
		{SummonerName: "Hide on bush", TagLine: "#KR1", Region: "kr"},
		{SummonerName: "Hide on bush", TagLine: "K", Region: "kr"},
		{SummonerName: "Hide on bush", TagLine: "KR1", Region: "moon9"},
		{SummonerName: "Hide on bush", TagLine: "KR1", Region: "kr", PreferredSource: "bing.com"},
	} {
		_, err := service.Fetch(ctx, identity)
		require.Error(t, err, "identity %+v", identity)

		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs, "identity %+v", identity)
	}
}

func TestFetchScoresAndPersists(t *testing.T) {
	service := setupService(t, setupOrchestrator(t, orchestratorConfig{
		opgg: pageHandler(opggProfilePage, nil),
	}))
	ctx := context.Background()
	identity := testIdentity()

	profile, err := service.Fetch(ctx, identity)
	require.NoError(t, err)
	require.Equal(t, SourceOPGG, profile.DataSource)

	// 50 base + 15 win rate + 5 gold + 16 kda + 11 cs
	require.Equal(t, 97, profile.OPScore)
	require.Len(t, profile.Insights, 2)
	require.Equal(t, "On a win streak", profile.Insights[0].Title)
	require.Equal(t, "Expand your champion pool", profile.Insights[1].Title)

	// persistence is fire-and-forget, the acquisition row lands last
	require.Eventually(t, func() bool {
		records, err := service.Store().ListAcquisitions(ctx, identity, 10)
		return err == nil && len(records) == 1
	}, time.Second*2, time.Millisecond*10)

	records, err := service.Store().ListAcquisitions(ctx, identity, 10)
	require.NoError(t, err)
	require.Equal(t, SourceOPGG, records[0].DataSource)
	require.False(t, records[0].Degraded)
	require.Empty(t, records[0].FailedSources)

	stored, err := service.Store().GetProfile(ctx, identity)
	require.NoError(t, err)
	require.Equal(t, profile, stored.Profile)
}

func TestFetchDegradedProfileSkipsScoring(t *testing.T) {
	service := setupService(t, setupOrchestrator(t, orchestratorConfig{}))
	ctx := context.Background()
	identity := testIdentity()

	profile, err := service.Fetch(ctx, identity)
	require.NoError(t, err)
	require.Equal(t, SourceDataDragon, profile.DataSource)
	require.Equal(t, []string{SourceOPGG, SourceUGG, SourceLeagueOfGraphs}, profile.FailedSources)

	// no score and no coaching on static reference data
	require.Zero(t, profile.OPScore)
	require.Len(t, profile.Insights, 1)
	require.Equal(t, InsightError, profile.Insights[0].Type)

	require.Eventually(t, func() bool {
		records, err := service.Store().ListAcquisitions(ctx, identity, 10)
		return err == nil && len(records) == 1
	}, time.Second*2, time.Millisecond*10)

	records, err := service.Store().ListAcquisitions(ctx, identity, 10)
	require.NoError(t, err)
	require.True(t, records[0].Degraded)
	require.Equal(t, SourceDataDragon, records[0].DataSource)

	failures, err := service.Store().ListFailures(ctx, identity, 10)
	require.NoError(t, err)
	require.Len(t, failures, 3)
}

func TestFetchTotalFailureStillAudited(t *testing.T) {
	unavailable := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	service := setupService(t, setupOrchestrator(t, orchestratorConfig{dataDragon: unavailable}))
	ctx := context.Background()
	identity := testIdentity()

	_, err := service.Fetch(ctx, identity)
	var total *TotalFailureError
	require.ErrorAs(t, err, &total)

	require.Eventually(t, func() bool {
		records, err := service.Store().ListAcquisitions(ctx, identity, 10)
		return err == nil && len(records) == 1
	}, time.Second*2, time.Millisecond*10)

	records, err := service.Store().ListAcquisitions(ctx, identity, 10)
	require.NoError(t, err)
	require.Empty(t, records[0].DataSource)
	require.False(t, records[0].Degraded)
	require.Equal(t,
		[]string{SourceOPGG, SourceUGG, SourceLeagueOfGraphs, SourceDataDragon},
		records[0].FailedSources)

	failures, err := service.Store().ListFailures(ctx, identity, 10)
	require.NoError(t, err)
	require.Len(t, failures, 4)

	// nothing was worth storing as a profile
	_, err = service.Store().GetProfile(ctx, identity)
	require.Error(t, err)
}

func TestFetchServesStoredProfile(t *testing.T) {
	var opggCalls atomic.Int32
	service := setupServiceTTL(t, setupOrchestrator(t, orchestratorConfig{
		opgg: pageHandler(opggProfilePage, &opggCalls),
	}), time.Hour)
	ctx := context.Background()
	identity := testIdentity()

	first, err := service.Fetch(ctx, identity)
	require.NoError(t, err)
	require.Equal(t, int32(1), opggCalls.Load())

	require.Eventually(t, func() bool {
		_, err := service.Store().GetProfile(ctx, identity)
		return err == nil
	}, time.Second*2, time.Millisecond*10)

	second, err := service.Fetch(ctx, identity)
	require.NoError(t, err)
	require.Equal(t, first, second)
	// served from the store, no second scrape
	require.Equal(t, int32(1), opggCalls.Load())
}

func TestFetchStoredProfileExpires(t *testing.T) {
	var opggCalls atomic.Int32
	service := setupServiceTTL(t, setupOrchestrator(t, orchestratorConfig{
		opgg: pageHandler(opggProfilePage, &opggCalls),
	}), time.Nanosecond)
	ctx := context.Background()
	identity := testIdentity()

	seeded := Profile{DataSource: SourceOPGG, OPScore: 42}
	require.NoError(t, service.Store().UpsertProfile(ctx, identity, seeded))

	profile, err := service.Fetch(ctx, identity)
	require.NoError(t, err)
	require.Equal(t, int32(1), opggCalls.Load())
	require.NotEqual(t, seeded.OPScore, profile.OPScore)
}

func TestFetchExplicitSourceBypassesStored(t *testing.T) {
	var opggCalls atomic.Int32
	service := setupServiceTTL(t, setupOrchestrator(t, orchestratorConfig{
		opgg: pageHandler(opggProfilePage, &opggCalls),
	}), time.Hour)
	ctx := context.Background()
	identity := testIdentity()

	seeded := Profile{DataSource: SourceOPGG, OPScore: 42}
	require.NoError(t, service.Store().UpsertProfile(ctx, identity, seeded))

	// asking for a specific source means that source's live view, even
	// with a fresh copy on disk
	identity.PreferredSource = SourceOPGG
	profile, err := service.Fetch(ctx, identity)
	require.NoError(t, err)
	require.Equal(t, int32(1), opggCalls.Load())
	require.NotEqual(t, seeded.OPScore, profile.OPScore)
}

func TestFetchStoredStaticRowIgnored(t *testing.T) {
	var opggCalls atomic.Int32
	service := setupServiceTTL(t, setupOrchestrator(t, orchestratorConfig{
		opgg: pageHandler(opggProfilePage, &opggCalls),
	}), time.Hour)
	ctx := context.Background()
	identity := testIdentity()

	seeded := Profile{DataSource: SourceDataDragon}
	require.NoError(t, service.Store().UpsertProfile(ctx, identity, seeded))

	// a persisted static fallback row does not satisfy the stored path
	profile, err := service.Fetch(ctx, identity)
	require.NoError(t, err)
	require.Equal(t, SourceOPGG, profile.DataSource)
	require.Equal(t, int32(1), opggCalls.Load())
}
