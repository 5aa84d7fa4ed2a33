package summoner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"riftlens-backend/lib/retryutil"
	"riftlens-backend/services/summoner/db"
)

// Store is the persistence collaborator: an idempotent profile upsert keyed
// by identity plus append-only audit tables for failures and acquisitions.
// The core never depends on it succeeding.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

func (s Store) UpsertProfile(ctx context.Context, identity Identity, profile Profile) error {
	encoded, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return s.qry.UpsertProfile(ctx, db.UpsertProfileParams{
		Region:      identity.Region,
		GameName:    identity.SummonerName,
		TagLine:     identity.TagLine,
		DataSource:  profile.DataSource,
		OpScore:     int64(profile.OPScore),
		ProfileJson: string(encoded),
		UpdatedAt:   time.Now().Unix(),
	})
}

type StoredProfile struct {
	Profile   Profile
	UpdatedAt time.Time
}

func (s Store) GetProfile(ctx context.Context, identity Identity) (StoredProfile, error) {
	row, err := s.qry.GetProfile(ctx, db.GetProfileParams{
		Region:   identity.Region,
		GameName: identity.SummonerName,
		TagLine:  identity.TagLine,
	})
	if err != nil {
		return StoredProfile{}, err
	}

	var profile Profile
	err = json.Unmarshal([]byte(row.ProfileJson), &profile)
	if err != nil {
		return StoredProfile{}, fmt.Errorf("failed to decode stored profile: %w", err)
	}
	return StoredProfile{
		Profile:   profile,
		UpdatedAt: time.Unix(row.UpdatedAt, 0),
	}, nil
}

func (s Store) RecordFailures(ctx context.Context, requestId string, identity Identity, failures []FailureRecord) error {
	if len(failures) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	for _, failure := range failures {
		err := txqry.CreateSourceFailure(ctx, db.CreateSourceFailureParams{
			RequestId: requestId,
			Region:    identity.Region,
			GameName:  identity.SummonerName,
			TagLine:   identity.TagLine,
			Source:    failure.Source,
			Op:        failure.Op,
			Kind:      string(failure.Kind),
			Attempt:   int64(failure.Attempt),
			Detail:    failure.Detail,
			CreatedAt: failure.At.Unix(),
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

type RecordAcquisitionRequest struct {
	RequestId     string
	Identity      Identity
	DataSource    string
	Degraded      bool
	FailedSources []string
	Took          time.Duration
}

func (s Store) RecordAcquisition(ctx context.Context, req RecordAcquisitionRequest) error {
	degraded := int64(0)
	if req.Degraded {
		degraded = 1
	}
	return s.qry.CreateAcquisition(ctx, db.CreateAcquisitionParams{
		RequestId:     req.RequestId,
		Region:        req.Identity.Region,
		GameName:      req.Identity.SummonerName,
		TagLine:       req.Identity.TagLine,
		DataSource:    req.DataSource,
		Degraded:      degraded,
		FailedSources: strings.Join(req.FailedSources, ","),
		DurationMs:    req.Took.Milliseconds(),
		CreatedAt:     time.Now().Unix(),
	})
}

func (s Store) ListFailures(ctx context.Context, identity Identity, limit int) ([]FailureRecord, error) {
	rows, err := s.qry.ListSourceFailures(ctx, db.ListSourceFailuresParams{
		Region:   identity.Region,
		GameName: identity.SummonerName,
		TagLine:  identity.TagLine,
		Limit:    int64(limit),
	})
	if err != nil {
		return nil, err
	}

	failures := make([]FailureRecord, len(rows))
	for i, row := range rows {
		failures[i] = FailureRecord{
			Source:  row.Source,
			Op:      row.Op,
			Kind:    retryutil.Kind(row.Kind),
			Attempt: int(row.Attempt),
			Detail:  row.Detail,
			At:      time.Unix(row.CreatedAt, 0),
		}
	}
	return failures, nil
}

type AcquisitionRecord struct {
	RequestId     string
	DataSource    string
	Degraded      bool
	FailedSources []string
	Took          time.Duration
	At            time.Time
}

func (s Store) ListAcquisitions(ctx context.Context, identity Identity, limit int) ([]AcquisitionRecord, error) {
	rows, err := s.qry.ListAcquisitions(ctx, db.ListAcquisitionsParams{
		Region:   identity.Region,
		GameName: identity.SummonerName,
		TagLine:  identity.TagLine,
		Limit:    int64(limit),
	})
	if err != nil {
		return nil, err
	}

	records := make([]AcquisitionRecord, len(rows))
	for i, row := range rows {
		var failed []string
		if row.FailedSources != "" {
			failed = strings.Split(row.FailedSources, ",")
		}
		records[i] = AcquisitionRecord{
			RequestId:     row.RequestId,
			DataSource:    row.DataSource,
			Degraded:      row.Degraded != 0,
			FailedSources: failed,
			Took:          time.Duration(row.DurationMs) * time.Millisecond,
			At:            time.Unix(row.CreatedAt, 0),
		}
	}
	return records, nil
}
