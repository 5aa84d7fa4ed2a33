package db

import (
	"context"
)

const upsertProfile = `
INSERT INTO profiles (region, game_name, tag_line, data_source, op_score, profile_json, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (region, game_name, tag_line) DO UPDATE SET
    data_source = excluded.data_source,
    op_score = excluded.op_score,
    profile_json = excluded.profile_json,
    updated_at = excluded.updated_at
`

type UpsertProfileParams struct {
	Region      string
	GameName    string
	TagLine     string
	DataSource  string
	OpScore     int64
	ProfileJson string
	UpdatedAt   int64
}

func (q *Queries) UpsertProfile(ctx context.Context, arg UpsertProfileParams) error {
	_, err := q.db.ExecContext(ctx, upsertProfile,
		arg.Region,
		arg.GameName,
		arg.TagLine,
		arg.DataSource,
		arg.OpScore,
		arg.ProfileJson,
		arg.UpdatedAt,
	)
	return err
}

const getProfile = `
SELECT data_source, op_score, profile_json, updated_at FROM profiles
WHERE region = ? AND game_name = ? AND tag_line = ?
`

type GetProfileParams struct {
	Region   string
	GameName string
	TagLine  string
}

type GetProfileRow struct {
	DataSource  string
	OpScore     int64
	ProfileJson string
	UpdatedAt   int64
}

func (q *Queries) GetProfile(ctx context.Context, arg GetProfileParams) (GetProfileRow, error) {
	row := q.db.QueryRowContext(ctx, getProfile, arg.Region, arg.GameName, arg.TagLine)
	var i GetProfileRow
	err := row.Scan(&i.DataSource, &i.OpScore, &i.ProfileJson, &i.UpdatedAt)
	return i, err
}

const createSourceFailure = `
INSERT INTO source_failures (request_id, region, game_name, tag_line, source, op, kind, attempt, detail, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateSourceFailureParams struct {
	RequestId string
	Region    string
	GameName  string
	TagLine   string
	Source    string
	Op        string
	Kind      string
	Attempt   int64
	Detail    string
	CreatedAt int64
}

func (q *Queries) CreateSourceFailure(ctx context.Context, arg CreateSourceFailureParams) error {
	_, err := q.db.ExecContext(ctx, createSourceFailure,
		arg.RequestId,
		arg.Region,
		arg.GameName,
		arg.TagLine,
		arg.Source,
		arg.Op,
		arg.Kind,
		arg.Attempt,
		arg.Detail,
		arg.CreatedAt,
	)
	return err
}

const createAcquisition = `
INSERT INTO acquisitions (request_id, region, game_name, tag_line, data_source, degraded, failed_sources, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateAcquisitionParams struct {
	RequestId     string
	Region        string
	GameName      string
	TagLine       string
	DataSource    string
	Degraded      int64
	FailedSources string
	DurationMs    int64
	CreatedAt     int64
}

func (q *Queries) CreateAcquisition(ctx context.Context, arg CreateAcquisitionParams) error {
	_, err := q.db.ExecContext(ctx, createAcquisition,
		arg.RequestId,
		arg.Region,
		arg.GameName,
		arg.TagLine,
		arg.DataSource,
		arg.Degraded,
		arg.FailedSources,
		arg.DurationMs,
		arg.CreatedAt,
	)
	return err
}

const listSourceFailures = `
SELECT source, op, kind, attempt, detail, created_at FROM source_failures
WHERE region = ? AND game_name = ? AND tag_line = ?
ORDER BY id DESC
LIMIT ?
`

type ListSourceFailuresParams struct {
	Region   string
	GameName string
	TagLine  string
	Limit    int64
}

type ListSourceFailuresRow struct {
	Source    string
	Op        string
	Kind      string
	Attempt   int64
	Detail    string
	CreatedAt int64
}

func (q *Queries) ListSourceFailures(ctx context.Context, arg ListSourceFailuresParams) ([]ListSourceFailuresRow, error) {
	rows, err := q.db.QueryContext(ctx, listSourceFailures,
		arg.Region,
		arg.GameName,
		arg.TagLine,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListSourceFailuresRow
	for rows.Next() {
		var i ListSourceFailuresRow
		err := rows.Scan(&i.Source, &i.Op, &i.Kind, &i.Attempt, &i.Detail, &i.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listAcquisitions = `
SELECT request_id, data_source, degraded, failed_sources, duration_ms, created_at FROM acquisitions
WHERE region = ? AND game_name = ? AND tag_line = ?
ORDER BY id DESC
LIMIT ?
`

type ListAcquisitionsParams struct {
	Region   string
	GameName string
	TagLine  string
	Limit    int64
}

type ListAcquisitionsRow struct {
	RequestId     string
	DataSource    string
	Degraded      int64
	FailedSources string
	DurationMs    int64
	CreatedAt     int64
}

func (q *Queries) ListAcquisitions(ctx context.Context, arg ListAcquisitionsParams) ([]ListAcquisitionsRow, error) {
	rows, err := q.db.QueryContext(ctx, listAcquisitions,
		arg.Region,
		arg.GameName,
		arg.TagLine,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListAcquisitionsRow
	for rows.Next() {
		var i ListAcquisitionsRow
		err := rows.Scan(&i.RequestId, &i.DataSource, &i.Degraded, &i.FailedSources, &i.DurationMs, &i.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
