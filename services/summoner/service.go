package summoner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ServiceOptions struct {
	Orchestrator *Orchestrator
	DB           *sql.DB
	// ProfileTTL serves the persisted profile instead of re-acquiring while
	// the stored copy is younger than this. Zero always re-acquires.
	ProfileTTL time.Duration
	// PersistWorkers bounds the fire-and-forget persistence pool.
	PersistWorkers int
}

type Service struct {
	orchestrator *Orchestrator
	store        Store
	validate     *validator.Validate
	pool         *ants.Pool
	profileTTL   time.Duration
}

func NewService(opts ServiceOptions) (Service, error) {
	if opts.PersistWorkers == 0 {
		opts.PersistWorkers = 4
	}
	// nonblocking: a saturated pool drops the write instead of delaying the
	// response
	pool, err := ants.NewPool(opts.PersistWorkers, ants.WithNonblocking(true))
	if err != nil {
		return Service{}, fmt.Errorf("failed to create persistence pool: %w", err)
	}

	return Service{
		orchestrator: opts.Orchestrator,
		store:        NewStore(opts.DB),
		validate:     validator.New(),
		pool:         pool,
		profileTTL:   opts.ProfileTTL,
	}, nil
}

// Close drains in-flight persistence work before releasing the pool so a
// shutdown does not race the audit writes.
func (s Service) Close() {
	s.pool.ReleaseTimeout(time.Second * 5)
}

func (s Service) Store() Store {
	return s.store
}

// Fetch validates the identity, acquires the profile through the failover
// chain, runs analytics and hands the result to persistence in the
// background. A persisted profile younger than the configured ttl
// short-circuits acquisition. The returned error is a
// validator.ValidationErrors for bad input or a *TotalFailureError when
// every source refused.
func (s Service) Fetch(ctx context.Context, identity Identity) (Profile, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	requestId := uuid.NewString()
	span.SetAttributes(
		attribute.String("request_id", requestId),
		attribute.String("riot_id", identity.RiotId()),
		attribute.String("region", identity.Region),
	)

	err := s.validate.Struct(identity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Profile{}, fmt.Errorf("invalid identity: %w", err)
	}

	if profile, ok := s.storedProfile(ctx, identity); ok {
		span.SetAttributes(attribute.Bool("stored", true))
		return profile, nil
	}

	started := time.Now()
	result, err := s.orchestrator.Acquire(ctx, identity)
	took := time.Since(started)
	if err != nil {
		// the audit trail still wants the failed acquisition
		s.persistAsync(requestId, identity, nil, result, took)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Profile{}, err
	}

	profile := result.Profile
	if !result.Degraded {
		// a degraded profile keeps its single informational insight, there
		// is nothing to score
		profile = analyze(profile)
	}

	s.persistAsync(requestId, identity, &profile, result, took)
	return profile, nil
}

// storedProfile returns the persisted copy while it is younger than the
// configured ttl. Explicit single-source requests and static fallback rows
// never qualify.
func (s Service) storedProfile(ctx context.Context, identity Identity) (Profile, bool) {
	if s.profileTTL <= 0 {
		return Profile{}, false
	}
	if identity.PreferredSource != "" && identity.PreferredSource != SourceAll {
		return Profile{}, false
	}

	stored, err := s.store.GetProfile(ctx, identity)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.WarnContext(ctx, "failed to read stored profile",
				"riot_id", identity.RiotId(),
				"err", err,
			)
		}
		return Profile{}, false
	}
	if stored.Profile.DataSource == SourceDataDragon {
		return Profile{}, false
	}
	if time.Since(stored.UpdatedAt) > s.profileTTL {
		return Profile{}, false
	}
	return stored.Profile, true
}

// persistAsync records the profile and the failure journal without making
// the caller wait. Persistence failures are logged and swallowed, the
// response is already computed.
func (s Service) persistAsync(requestId string, identity Identity, profile *Profile, result AcquireResult, took time.Duration) {
	err := s.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		if profile != nil {
			err := s.store.UpsertProfile(ctx, identity, *profile)
			if err != nil {
				slog.WarnContext(ctx, "failed to persist profile",
					"request_id", requestId,
					"riot_id", identity.RiotId(),
					"err", err,
				)
			}
		}

		err := s.store.RecordFailures(ctx, requestId, identity, result.Failures)
		if err != nil {
			slog.WarnContext(ctx, "failed to persist failure records",
				"request_id", requestId,
				"err", err,
			)
		}

		dataSource := ""
		if profile != nil {
			dataSource = profile.DataSource
		}
		err = s.store.RecordAcquisition(ctx, RecordAcquisitionRequest{
			RequestId:     requestId,
			Identity:      identity,
			DataSource:    dataSource,
			Degraded:      result.Degraded,
			FailedSources: result.FailedSources,
			Took:          took,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to persist acquisition",
				"request_id", requestId,
				"err", err,
			)
		}
	})
	if err != nil {
		slog.Warn("persistence pool rejected task",
			"request_id", requestId,
			"err", err,
		)
	}
}
