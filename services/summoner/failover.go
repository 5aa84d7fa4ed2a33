package summoner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"riftlens-backend/lib/datadragon"
	"riftlens-backend/lib/retryutil"
	"riftlens-backend/lib/riot"
	"riftlens-backend/lib/scrapers/leagueofgraphs"
	"riftlens-backend/lib/scrapers/opgg"
	"riftlens-backend/lib/scrapers/ugg"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const opFailover = "failover"

// scrapers in fixed priority order, tried after the riot api when that is
// allowed
var scrapePriority = []string{SourceOPGG, SourceUGG, SourceLeagueOfGraphs}

type SourceClients struct {
	OPGG           *opgg.Client
	UGG            *ugg.Client
	LeagueOfGraphs *leagueofgraphs.Client
	// Riot may be nil when no api key is configured. Requests naming it
	// still record a failure for it instead of silently skipping.
	Riot       *riot.Client
	DataDragon *datadragon.Client
}

type OrchestratorOptions struct {
	Clients SourceClients
	// ChampionIndex canonicalizes scraped champion spellings. May be nil.
	ChampionIndex *datadragon.ChampionIndex
	// ScrapedPolicy and AuthPolicy override the retry defaults when nonzero.
	ScrapedPolicy retryutil.Policy
	AuthPolicy    retryutil.Policy
	// PerSourceTimeout bounds one source's attempts including backoff waits.
	// There is deliberately no deadline across the whole chain.
	PerSourceTimeout time.Duration
}

// source is one entry of the failover chain: an adapter call wrapped into
// its variant mapping, plus the retry policy guarding it.
type source struct {
	name   string
	policy retryutil.Policy
	fetch  func(ctx context.Context, identity Identity) (Profile, *retryutil.SourceError)
}

// Orchestrator drives the sources in priority order until one succeeds,
// falling back to static game data as the last resort. Construction-time
// state is read-only, concurrent requests share nothing else.
type Orchestrator struct {
	sources          map[string]*source
	breakers         map[string]*gobreaker.CircuitBreaker[Profile]
	dataDragon       *datadragon.Client
	staticPolicy     retryutil.Policy
	perSourceTimeout time.Duration
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	scraped := opts.ScrapedPolicy
	if scraped == (retryutil.Policy{}) {
		scraped = retryutil.Scraped()
	}
	auth := opts.AuthPolicy
	if auth == (retryutil.Policy{}) {
		auth = retryutil.Authenticated()
	}
	if opts.PerSourceTimeout == 0 {
		opts.PerSourceTimeout = time.Second * 25
	}

	clients := opts.Clients
	index := opts.ChampionIndex

	sources := map[string]*source{
		SourceOPGG: {
			name:   SourceOPGG,
			policy: scraped,
			fetch: func(ctx context.Context, identity Identity) (Profile, *retryutil.SourceError) {
				data, serr := clients.OPGG.Fetch(ctx, identity.Region, identity.SummonerName, identity.TagLine)
				if serr != nil {
					return Profile{}, serr
				}
				return fromOPGG(identity.Region, data, index), nil
			},
		},
		SourceUGG: {
			name:   SourceUGG,
			policy: scraped,
			fetch: func(ctx context.Context, identity Identity) (Profile, *retryutil.SourceError) {
				data, serr := clients.UGG.Fetch(ctx, identity.Region, identity.SummonerName, identity.TagLine)
				if serr != nil {
					return Profile{}, serr
				}
				return fromUGG(identity.Region, data, index), nil
			},
		},
		SourceLeagueOfGraphs: {
			name:   SourceLeagueOfGraphs,
			policy: scraped,
			fetch: func(ctx context.Context, identity Identity) (Profile, *retryutil.SourceError) {
				data, serr := clients.LeagueOfGraphs.Fetch(ctx, identity.Region, identity.SummonerName, identity.TagLine)
				if serr != nil {
					return Profile{}, serr
				}
				return fromLeagueOfGraphs(identity.Region, data, index), nil
			},
		},
	}
	if clients.Riot != nil {
		sources[SourceRiotAPI] = &source{
			name:   SourceRiotAPI,
			policy: auth,
			fetch: func(ctx context.Context, identity Identity) (Profile, *retryutil.SourceError) {
				data, serr := clients.Riot.Fetch(ctx, identity.Region, identity.SummonerName, identity.TagLine)
				if serr != nil {
					return Profile{}, serr
				}
				return fromRiot(identity.Region, data, index), nil
			},
		}
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker[Profile], len(sources))
	for name := range sources {
		breakers[name] = newBreaker(name)
	}

	return &Orchestrator{
		sources:          sources,
		breakers:         breakers,
		dataDragon:       clients.DataDragon,
		staticPolicy:     scraped,
		perSourceTimeout: opts.PerSourceTimeout,
	}
}

// newBreaker guards one source. A handful of consecutive infrastructure
// failures opens it, NotFound and other per-player outcomes say nothing
// about source health and do not count.
func newBreaker(name string) *gobreaker.CircuitBreaker[Profile] {
	return gobreaker.NewCircuitBreaker[Profile](gobreaker.Settings{
		Name:    name,
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var serr *retryutil.SourceError
			if errors.As(err, &serr) {
				return serr.Kind == retryutil.NotFound || serr.Kind == retryutil.ClientError
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("source circuit breaker state changed",
				"source", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// AcquireResult carries everything one acquisition produced, including the
// failure journal the persistence layer audits.
type AcquireResult struct {
	Profile  Profile
	Degraded bool
	// FailedSources lists the sources the walk exhausted, in attempt order.
	// A source that recovered within its retry allowance is not in it.
	FailedSources []string
	Failures      []FailureRecord
}

// Acquire walks the attempt list until one source yields a profile. Sources
// are tried strictly sequentially so priority stays meaningful: a slow
// high-priority source is waited on, never raced. On exhaustion the static
// fallback produces a degraded profile; if even that fails the error is a
// *TotalFailureError listing every attempted source.
func (o *Orchestrator) Acquire(ctx context.Context, identity Identity) (AcquireResult, error) {
	ctx, span := tracer.Start(ctx, "Acquire")
	defer span.End()

	attemptList := o.attemptList(identity)
	span.SetAttributes(
		attribute.String("riot_id", identity.RiotId()),
		attribute.String("region", identity.Region),
		attribute.StringSlice("attempt_list", attemptList),
	)

	var failedSources []string
	var failures []FailureRecord
	record := func(name string, serr *retryutil.SourceError, attempt int) {
		failures = append(failures, FailureRecord{
			Source:  name,
			Op:      serr.Op,
			Kind:    serr.Kind,
			Attempt: attempt,
			Detail:  serr.Error(),
			At:      time.Now(),
		})
	}

	for _, name := range attemptList {
		src := o.sources[name]
		if src == nil {
			serr := retryutil.Failf(name, opFailover, retryutil.ClientError, "source not configured")
			record(name, serr, 0)
			failedSources = append(failedSources, name)
			slog.WarnContext(ctx, "skipping unconfigured source", "source", name)
			continue
		}

		profile, serr := o.try(ctx, src, identity, record)
		if serr == nil {
			if failedSources != nil {
				profile.FailedSources = failedSources
			}
			slog.InfoContext(ctx, "acquired player data",
				"source", name,
				"riot_id", identity.RiotId(),
				"failed_sources", failedSources,
			)
			return AcquireResult{Profile: profile, FailedSources: failedSources, Failures: failures}, nil
		}

		failedSources = append(failedSources, name)
		slog.WarnContext(ctx, "source exhausted, advancing",
			"source", name,
			"kind", serr.Kind,
			"err", serr.Err,
		)
	}

	// last resort: static game data
	ref, serr := o.fetchStatic(ctx, record)
	if serr != nil {
		allFailed := append(failedSources, SourceDataDragon)
		err := &TotalFailureError{
			Identity:      identity,
			FailedSources: allFailed,
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AcquireResult{FailedSources: allFailed, Failures: failures}, err
	}

	slog.WarnContext(ctx, "serving degraded static profile",
		"riot_id", identity.RiotId(),
		"failed_sources", failedSources,
	)
	profile := fromDataDragon(identity, ref)
	profile.FailedSources = failedSources
	return AcquireResult{Profile: profile, Degraded: true, FailedSources: failedSources, Failures: failures}, nil
}

// attemptList builds the priority-ordered sources for one request. Naming a
// specific source always means only that source, the riot api included. The
// default chain runs the riot api first when the request allows it, then the
// scrapers in fixed priority order. The static fallback is never part of the
// list, it only runs on exhaustion.
func (o *Orchestrator) attemptList(identity Identity) []string {
	preferred := identity.PreferredSource
	if preferred != "" && preferred != SourceAll {
		return []string{preferred}
	}

	var list []string
	if identity.AllowRiotAPI {
		list = append(list, SourceRiotAPI)
	}
	return append(list, scrapePriority...)
}

// try runs one source through its circuit breaker and retry policy. The
// request context is capped per source, so a stalled site turns into a
// Timeout failure and the chain moves on instead of eating the whole
// request.
func (o *Orchestrator) try(ctx context.Context, src *source, identity Identity, record func(string, *retryutil.SourceError, int)) (Profile, *retryutil.SourceError) {
	ctx, cancel := context.WithTimeout(ctx, o.perSourceTimeout)
	defer cancel()

	profile, err := o.breakers[src.name].Execute(func() (Profile, error) {
		var profile Profile
		serr := src.policy.Do(ctx, func(ctx context.Context, attempt int) *retryutil.SourceError {
			p, serr := src.fetch(ctx, identity)
			if serr != nil {
				return serr
			}
			profile = p
			return nil
		}, func(serr *retryutil.SourceError, attempt int) {
			record(src.name, serr, attempt)
		})
		if serr != nil {
			return Profile{}, serr
		}
		return profile, nil
	})
	if err == nil {
		return profile, nil
	}

	var serr *retryutil.SourceError
	if errors.As(err, &serr) {
		return Profile{}, serr
	}
	// the breaker refused without calling the adapter, no attempt was
	// recorded yet
	serr = retryutil.Fail(src.name, opFailover, retryutil.NetworkError, err)
	record(src.name, serr, 0)
	return Profile{}, serr
}

func (o *Orchestrator) fetchStatic(ctx context.Context, record func(string, *retryutil.SourceError, int)) (datadragon.ReferenceData, *retryutil.SourceError) {
	ctx, cancel := context.WithTimeout(ctx, o.perSourceTimeout)
	defer cancel()

	var ref datadragon.ReferenceData
	serr := o.staticPolicy.Do(ctx, func(ctx context.Context, attempt int) *retryutil.SourceError {
		r, serr := o.dataDragon.Fetch(ctx)
		if serr != nil {
			return serr
		}
		ref = r
		return nil
	}, func(serr *retryutil.SourceError, attempt int) {
		record(SourceDataDragon, serr, attempt)
	})
	if serr != nil {
		return datadragon.ReferenceData{}, serr
	}
	return ref, nil
}
