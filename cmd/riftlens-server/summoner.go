package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"riftlens-backend/lib/datadragon"
	"riftlens-backend/lib/pagecache"
	"riftlens-backend/lib/restyutil"
	"riftlens-backend/lib/retryutil"
	"riftlens-backend/lib/riot"
	"riftlens-backend/lib/scrapers/leagueofgraphs"
	"riftlens-backend/lib/scrapers/opgg"
	"riftlens-backend/lib/scrapers/ugg"
	"riftlens-backend/lib/sqliteutil"
	"riftlens-backend/services/summoner"
	"riftlens-backend/services/summoner/db"
)

type CacheConfig struct {
	// Dir is where scraped pages are cached. Empty disables caching.
	Dir      string `json:"dir"`
	TtlHours int    `json:"ttl_hours"`
}

type RiotConfig struct {
	// ApiKeyEnv names the environment variable holding the api key.
	// An empty variable disables the riot_api source.
	ApiKeyEnv         string  `json:"api_key_env"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	MatchCount        int     `json:"match_count"`
}

// RetryConfig overrides one backoff schedule. A zero struct keeps the
// built-in schedule.
type RetryConfig struct {
	MaxAttempts     int `json:"max_attempts"`
	BaseDelayMs     int `json:"base_delay_ms"`
	MaxDelaySeconds int `json:"max_delay_seconds"`
}

func (c RetryConfig) policy() retryutil.Policy {
	return retryutil.Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   time.Duration(c.BaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.MaxDelaySeconds) * time.Second,
	}
}

type SummonerConfig struct {
	Database string      `json:"database"`
	Cache    CacheConfig `json:"cache"`
	Riot     RiotConfig  `json:"riot"`
	// DataDragonVersion pins the static data patch. Empty means newest.
	DataDragonVersion string `json:"data_dragon_version"`

	ScrapeTimeoutSeconds    int `json:"scrape_timeout_seconds"`
	PerSourceTimeoutSeconds int `json:"per_source_timeout_seconds"`
	// ProfileTtlMinutes serves a stored profile this fresh without walking
	// the sources again. Zero always re-acquires.
	ProfileTtlMinutes int `json:"profile_ttl_minutes"`

	ScrapeRetry RetryConfig `json:"scrape_retry"`
	RiotRetry   RetryConfig `json:"riot_retry"`

	// Selector overrides let a broken scraper be patched from config
	// while a code fix is pending. Zero blocks keep the defaults.
	OpggSelectors           opgg.Selectors           `json:"opgg_selectors"`
	UggSelectors            ugg.Selectors            `json:"ugg_selectors"`
	LeagueOfGraphsSelectors leagueofgraphs.Selectors `json:"leagueofgraphs_selectors"`
}

func InitSummoner(ctx context.Context, mux *http.ServeMux, cfg SummonerConfig, verbose bool) (summoner.Service, error) {
	database, err := sqliteutil.OpenDB(db.Schema, cfg.Database)
	if err != nil {
		return summoner.Service{}, err
	}

	var cache *pagecache.Cache
	if cfg.Cache.Dir != "" {
		ttl := time.Duration(cfg.Cache.TtlHours) * time.Hour
		cache, err = pagecache.Open(cfg.Cache.Dir, ttl)
		if err != nil {
			slog.WarnContext(ctx, "open page cache, continuing without", "err", err)
		}
	}

	scrapeTimeout := time.Duration(cfg.ScrapeTimeoutSeconds) * time.Second

	opggClient, err := opgg.NewClient(opgg.ClientOptions{
		Timeout:   scrapeTimeout,
		Selectors: cfg.OpggSelectors,
		Cache:     cache,
	})
	if err != nil {
		return summoner.Service{}, err
	}
	uggClient, err := ugg.NewClient(ugg.ClientOptions{
		Timeout:   scrapeTimeout,
		Selectors: cfg.UggSelectors,
		Cache:     cache,
	})
	if err != nil {
		return summoner.Service{}, err
	}
	logClient, err := leagueofgraphs.NewClient(leagueofgraphs.ClientOptions{
		Timeout:   scrapeTimeout,
		Selectors: cfg.LeagueOfGraphsSelectors,
		Cache:     cache,
	})
	if err != nil {
		return summoner.Service{}, err
	}

	var riotClient *riot.Client
	apiKey := os.Getenv(riotApiKeyEnv(cfg.Riot))
	if apiKey == "" {
		slog.InfoContext(ctx, "no riot api key in environment, riot_api source disabled")
	} else {
		riotClient, err = riot.NewClient(riot.ClientOptions{
			ApiKey:            apiKey,
			RequestsPerSecond: cfg.Riot.RequestsPerSecond,
			MatchCount:        cfg.Riot.MatchCount,
		})
		if err != nil {
			return summoner.Service{}, err
		}
	}

	ddClient := datadragon.NewClient(datadragon.ClientOptions{
		Version: cfg.DataDragonVersion,
	})
	index := loadChampionIndex(ctx, ddClient)

	if verbose {
		opggClient.SetInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/opgg"))
		uggClient.SetInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/ugg"))
		logClient.SetInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/leagueofgraphs"))
		ddClient.SetInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/datadragon"))
		if riotClient != nil {
			riotClient.SetInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/riot"))
		}
	}

	orchestrator := summoner.NewOrchestrator(summoner.OrchestratorOptions{
		Clients: summoner.SourceClients{
			OPGG:           opggClient,
			UGG:            uggClient,
			LeagueOfGraphs: logClient,
			Riot:           riotClient,
			DataDragon:     ddClient,
		},
		ChampionIndex:    index,
		ScrapedPolicy:    cfg.ScrapeRetry.policy(),
		AuthPolicy:       cfg.RiotRetry.policy(),
		PerSourceTimeout: time.Duration(cfg.PerSourceTimeoutSeconds) * time.Second,
	})

	service, err := summoner.NewService(summoner.ServiceOptions{
		Orchestrator: orchestrator,
		DB:           database,
		ProfileTTL:   time.Duration(cfg.ProfileTtlMinutes) * time.Minute,
	})
	if err != nil {
		return summoner.Service{}, err
	}
	summoner.NewAPI(service).Register(mux)

	return service, nil
}

func riotApiKeyEnv(cfg RiotConfig) string {
	if cfg.ApiKeyEnv != "" {
		return cfg.ApiKeyEnv
	}
	return "RIOT_API_KEY"
}

// loadChampionIndex pulls the champion catalog once at startup. Scraped
// champion spellings pass through unresolved when the fetch fails, which
// only costs aggregation quality, so failure is not fatal.
func loadChampionIndex(ctx context.Context, client *datadragon.Client) *datadragon.ChampionIndex {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	ref, serr := client.Fetch(ctx)
	if serr != nil {
		slog.WarnContext(ctx, "load champion index", "err", serr)
		return nil
	}
	slog.InfoContext(ctx, "loaded champion index", "patch", ref.Version)
	return ref.Champions
}
