package summoner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"riftlens-backend/lib/datadragon"
	"riftlens-backend/lib/retryutil"
	"riftlens-backend/lib/riot"
	"riftlens-backend/lib/scrapers/leagueofgraphs"
	"riftlens-backend/lib/scrapers/opgg"
	"riftlens-backend/lib/scrapers/ugg"

	"github.com/stretchr/testify/require"
)

const opggProfilePage = `<!DOCTYPE html>
<html><body>
<script id="__NEXT_DATA__" type="application/json">
{
  "props": {
    "pageProps": {
      "data": {
        "game_name": "Hide on bush",
        "tagline": "KR1",
        "level": 612,
        "profile_icon_id": 6296,
        "summoner_id": "abc123",
        "league_stats": [
          {
            "game_type": "SOLORANKED",
            "tier_info": {"tier": "GOLD", "division": 2, "lp": 54},
            "win": 10,
            "lose": 10
          }
        ],
        "games": [
          {
            "myData": {
              "champion_key": "Ahri",
              "result": "WIN",
              "kill": 2,
              "death": 2,
              "assist": 2,
              "cs_per_minute": 5.5
            }
          }
        ]
      }
    }
  }
}
</script>
</body></html>`

const uggOverviewPage = `<!DOCTYPE html>
<html><body>
<div class="profile-header">
  <img class="summoner-icon" src="https://static.bigbrain.gg/img/profileicon/6296.png"/>
  <span class="summoner-name">Hide on bush</span>
  <span class="summoner-tagline">#KR1</span>
  <span class="summoner-level">Lvl 612</span>
</div>
<div class="rank-block">
  <div class="rank-title">Ranked Solo</div>
  <div class="rank-text">Gold II</div>
  <div class="rank-points">54 LP</div>
  <div class="rank-wins">10W 10L</div>
</div>
<div class="match-history">
  <div class="match-row row-win">
    <div class="match-result">Victory</div>
    <div class="champion-name">Ahri</div>
    <div class="match-kda">2 / 2 / 2</div>
    <div class="match-cs">110 CS (5.5)</div>
  </div>
</div>
</body></html>`

func staticDataHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/versions.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["14.16.1","14.15.1"]`))
	})
	mux.HandleFunc("/cdn/14.16.1/data/en_US/champion.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"14.16.1","data":{"Ahri":{"id":"Ahri","name":"Ahri"}}}`))
	})
	return mux
}

func pageHandler(page string, calls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.Write([]byte(page))
	})
}

func countingNotFound(calls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	})
}

func serveSource(t *testing.T, handler http.Handler) string {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL
}

type orchestratorConfig struct {
	opgg           http.Handler
	ugg            http.Handler
	leagueOfGraphs http.Handler
	dataDragon     http.Handler
	riot           *riot.Client
	scraped        retryutil.Policy
}

func setupOrchestrator(t *testing.T, cfg orchestratorConfig) *Orchestrator {
	t.Helper()

	if cfg.opgg == nil {
		cfg.opgg = http.NotFoundHandler()
	}
	if cfg.ugg == nil {
		cfg.ugg = http.NotFoundHandler()
	}
	if cfg.leagueOfGraphs == nil {
		cfg.leagueOfGraphs = http.NotFoundHandler()
	}
	if cfg.dataDragon == nil {
		cfg.dataDragon = staticDataHandler()
	}
	if cfg.scraped == (retryutil.Policy{}) {
		// a single fast attempt keeps failover walks snappy
		cfg.scraped = retryutil.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	}

	opggClient, err := opgg.NewClient(opgg.ClientOptions{BaseUrl: serveSource(t, cfg.opgg)})
	require.NoError(t, err)
	uggClient, err := ugg.NewClient(ugg.ClientOptions{BaseUrl: serveSource(t, cfg.ugg)})
	require.NoError(t, err)
	logClient, err := leagueofgraphs.NewClient(leagueofgraphs.ClientOptions{BaseUrl: serveSource(t, cfg.leagueOfGraphs)})
	require.NoError(t, err)

	return NewOrchestrator(OrchestratorOptions{
		Clients: SourceClients{
			OPGG:           opggClient,
			UGG:            uggClient,
			LeagueOfGraphs: logClient,
			Riot:           cfg.riot,
			DataDragon:     datadragon.NewClient(datadragon.ClientOptions{BaseUrl: serveSource(t, cfg.dataDragon)}),
		},
		ScrapedPolicy:    cfg.scraped,
		AuthPolicy:       cfg.scraped,
		PerSourceTimeout: time.Second * 10,
	})
}

func testIdentity() Identity {
	return Identity{SummonerName: "Hide on bush", TagLine: "KR1", Region: "kr"}
}

func TestAcquireFirstSourceSucceeds(t *testing.T) {
	var uggCalls, logCalls atomic.Int32
	o := setupOrchestrator(t, orchestratorConfig{
		opgg:           pageHandler(opggProfilePage, nil),
		ugg:            countingNotFound(&uggCalls),
		leagueOfGraphs: countingNotFound(&logCalls),
	})

	result, err := o.Acquire(context.Background(), testIdentity())
	require.NoError(t, err)
	require.False(t, result.Degraded)
	require.Empty(t, result.Failures)

	profile := result.Profile
	require.Equal(t, SourceOPGG, profile.DataSource)
	require.Equal(t, "Hide on bush", profile.Summoner.Name)
	require.Empty(t, profile.FailedSources)

	// lower-priority sources were never consulted
	require.Zero(t, uggCalls.Load())
	require.Zero(t, logCalls.Load())
}

func TestAcquireAdvancesPastFailingSource(t *testing.T) {
	var logCalls atomic.Int32
	o := setupOrchestrator(t, orchestratorConfig{
		ugg:            pageHandler(uggOverviewPage, nil),
		leagueOfGraphs: countingNotFound(&logCalls),
	})

	result, err := o.Acquire(context.Background(), testIdentity())
	require.NoError(t, err)
	require.False(t, result.Degraded)

	require.Equal(t, SourceUGG, result.Profile.DataSource)
	require.Equal(t, []string{SourceOPGG}, result.Profile.FailedSources)
	require.Zero(t, logCalls.Load())

	require.Len(t, result.Failures, 1)
	require.Equal(t, SourceOPGG, result.Failures[0].Source)
	require.Equal(t, retryutil.NotFound, result.Failures[0].Kind)
	require.Equal(t, 1, result.Failures[0].Attempt)
}

func TestAcquireServesStaticFallback(t *testing.T) {
	o := setupOrchestrator(t, orchestratorConfig{})

	result, err := o.Acquire(context.Background(), testIdentity())
	require.NoError(t, err)
	require.True(t, result.Degraded)
	require.Len(t, result.Failures, 3)

	profile := result.Profile
	require.Equal(t, SourceDataDragon, profile.DataSource)
	require.Equal(t, []string{SourceOPGG, SourceUGG, SourceLeagueOfGraphs}, profile.FailedSources)
	require.Equal(t, "Hide on bush", profile.Summoner.Name)
	require.Equal(t, "kr", profile.Summoner.Region)
	require.Empty(t, profile.Matches)
	require.Zero(t, profile.OPScore)

	require.Len(t, profile.Insights, 1)
	require.Equal(t, InsightError, profile.Insights[0].Type)
	require.Contains(t, profile.Insights[0].Description, "14.16.1")
}

func TestAcquireTotalFailure(t *testing.T) {
	unavailable := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	o := setupOrchestrator(t, orchestratorConfig{dataDragon: unavailable})

	result, err := o.Acquire(context.Background(), testIdentity())
	require.Error(t, err)
	require.Contains(t, err.Error(), "every source failed")

	var total *TotalFailureError
	require.ErrorAs(t, err, &total)
	require.Equal(t, "Hide on bush#KR1", total.Identity.RiotId())
	require.Equal(t, []string{SourceOPGG, SourceUGG, SourceLeagueOfGraphs, SourceDataDragon}, total.FailedSources)

	require.Len(t, result.Failures, 4)
	require.Equal(t, SourceDataDragon, result.Failures[3].Source)
	require.Equal(t, retryutil.ServerError, result.Failures[3].Kind)
}

func TestAcquirePreferredSourceOnly(t *testing.T) {
	var opggCalls atomic.Int32
	o := setupOrchestrator(t, orchestratorConfig{
		opgg: pageHandler(opggProfilePage, &opggCalls),
		ugg:  pageHandler(uggOverviewPage, nil),
	})

	identity := testIdentity()
	identity.PreferredSource = SourceUGG

	result, err := o.Acquire(context.Background(), identity)
	require.NoError(t, err)
	require.Equal(t, SourceUGG, result.Profile.DataSource)
	require.Empty(t, result.Failures)
	require.Zero(t, opggCalls.Load())
}

func TestAcquirePreferredSourceFailureGoesStatic(t *testing.T) {
	var opggCalls atomic.Int32
	o := setupOrchestrator(t, orchestratorConfig{
		opgg: pageHandler(opggProfilePage, &opggCalls),
	})

	identity := testIdentity()
	identity.PreferredSource = SourceUGG

	result, err := o.Acquire(context.Background(), identity)
	require.NoError(t, err)
	require.True(t, result.Degraded)
	require.Equal(t, SourceDataDragon, result.Profile.DataSource)
	require.Equal(t, []string{SourceUGG}, result.Profile.FailedSources)

	// a pinned source never falls back to the other scrapers
	require.Zero(t, opggCalls.Load())
}

func TestAcquireRecordsUnconfiguredSource(t *testing.T) {
	o := setupOrchestrator(t, orchestratorConfig{})

	identity := testIdentity()
	identity.PreferredSource = SourceRiotAPI

	result, err := o.Acquire(context.Background(), identity)
	require.NoError(t, err)
	require.True(t, result.Degraded)
	require.Equal(t, []string{SourceRiotAPI}, result.Profile.FailedSources)

	require.Len(t, result.Failures, 1)
	require.Equal(t, SourceRiotAPI, result.Failures[0].Source)
	require.Equal(t, retryutil.ClientError, result.Failures[0].Kind)
	require.Zero(t, result.Failures[0].Attempt)
	require.Contains(t, result.Failures[0].Detail, "source not configured")
}

func TestAcquireTriesRiotApiFirst(t *testing.T) {
	var riotCalls atomic.Int32
	riotClient, err := riot.NewClient(riot.ClientOptions{
		ApiKey:            "test-key",
		BaseUrl:           serveSource(t, countingNotFound(&riotCalls)),
		RequestsPerSecond: 500,
	})
	require.NoError(t, err)

	o := setupOrchestrator(t, orchestratorConfig{
		opgg: pageHandler(opggProfilePage, nil),
		riot: riotClient,
	})

	identity := testIdentity()
	identity.AllowRiotAPI = true

	result, err := o.Acquire(context.Background(), identity)
	require.NoError(t, err)
	require.Equal(t, SourceOPGG, result.Profile.DataSource)
	require.Equal(t, []string{SourceRiotAPI}, result.Profile.FailedSources)
	require.Equal(t, int32(1), riotCalls.Load())
}

func TestAcquireRetriesRetryableFailures(t *testing.T) {
	var opggCalls atomic.Int32
	flaky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if opggCalls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(opggProfilePage))
	})

	o := setupOrchestrator(t, orchestratorConfig{
		opgg:    flaky,
		scraped: retryutil.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond * 5},
	})

	result, err := o.Acquire(context.Background(), testIdentity())
	require.NoError(t, err)
	require.Equal(t, SourceOPGG, result.Profile.DataSource)
	require.Equal(t, int32(3), opggCalls.Load())

	// both failed attempts made the journal even though the source recovered
	require.Len(t, result.Failures, 2)
	require.Equal(t, 1, result.Failures[0].Attempt)
	require.Equal(t, 2, result.Failures[1].Attempt)
	require.Equal(t, retryutil.ServerError, result.Failures[0].Kind)

	// a recovered source is not a failed one
	require.Empty(t, result.FailedSources)
	require.Empty(t, result.Profile.FailedSources)
}

func TestAcquireBreakerShortCircuits(t *testing.T) {
	var opggCalls atomic.Int32
	o := setupOrchestrator(t, orchestratorConfig{
		opgg: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			opggCalls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}),
		ugg: pageHandler(uggOverviewPage, nil),
	})

	identity := testIdentity()
	for i := 0; i < 3; i++ {
		result, err := o.Acquire(context.Background(), identity)
		require.NoError(t, err)
		require.Equal(t, SourceUGG, result.Profile.DataSource)
	}
	require.Equal(t, int32(3), opggCalls.Load())

	// the breaker is open now, the fourth walk skips op.gg without a request
	result, err := o.Acquire(context.Background(), identity)
	require.NoError(t, err)
	require.Equal(t, SourceUGG, result.Profile.DataSource)
	require.Equal(t, int32(3), opggCalls.Load())

	require.Len(t, result.Failures, 1)
	require.Equal(t, SourceOPGG, result.Failures[0].Source)
	require.Equal(t, retryutil.NetworkError, result.Failures[0].Kind)
	require.Zero(t, result.Failures[0].Attempt)
}

func TestAttemptList(t *testing.T) {
	o := &Orchestrator{}

	require.Equal(t,
		[]string{SourceOPGG, SourceUGG, SourceLeagueOfGraphs},
		o.attemptList(Identity{}))
	require.Equal(t,
		[]string{SourceOPGG, SourceUGG, SourceLeagueOfGraphs},
		o.attemptList(Identity{PreferredSource: SourceAll}))
	require.Equal(t,
		[]string{SourceRiotAPI, SourceOPGG, SourceUGG, SourceLeagueOfGraphs},
		o.attemptList(Identity{PreferredSource: SourceAll, AllowRiotAPI: true}))
	require.Equal(t,
		[]string{SourceUGG},
		o.attemptList(Identity{PreferredSource: SourceUGG}))
	require.Equal(t,
		[]string{SourceRiotAPI},
		o.attemptList(Identity{PreferredSource: SourceRiotAPI}))
	require.Equal(t,
		[]string{SourceLeagueOfGraphs},
		o.attemptList(Identity{PreferredSource: SourceLeagueOfGraphs, AllowRiotAPI: true}))
}
