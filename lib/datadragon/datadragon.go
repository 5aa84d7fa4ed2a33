package datadragon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"riftlens-backend/lib/retryutil"
	"riftlens-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// Name is the canonical source name used in failover and failure records.
const Name = "data_dragon"

const (
	opFetchVersions  = "fetch versions"
	opFetchChampions = "fetch champion catalog"
)

type ClientOptions struct {
	// BaseUrl overrides the production cdn, used by tests.
	BaseUrl string
	Timeout time.Duration
	// Version pins the data dragon patch. Empty means newest published.
	Version string
}

type Client struct {
	http    *resty.Client
	version string
}

func NewClient(opts ClientOptions) *Client {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://ddragon.leagueoflegends.com"
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 15
	}

	http := resty.New().
		SetBaseURL(opts.BaseUrl).
		SetTimeout(opts.Timeout)
	telemetry.InstrumentResty(http, "riftlens.lib.datadragon.http")

	return &Client{http: http, version: opts.Version}
}

type Champion struct {
	// Id is the internal spelling, e.g. "MonkeyKing".
	Id string `json:"id"`
	// Name is the display spelling, e.g. "Wukong".
	Name string `json:"name"`
}

// ReferenceData is game-wide static data. It carries no player fields, a
// profile built from it is always degraded.
type ReferenceData struct {
	// Version is the patch the catalog was published for, e.g. "14.16.1".
	Version   string
	Champions *ChampionIndex
}

type championFile struct {
	Version string              `json:"version"`
	Data    map[string]Champion `json:"data"`
}

// Fetch pulls the newest (or pinned) patch version and its champion catalog.
func (c *Client) Fetch(ctx context.Context) (ReferenceData, *retryutil.SourceError) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	version := c.version
	if version == "" {
		versions, serr := c.Versions(ctx)
		if serr != nil {
			span.SetStatus(codes.Error, serr.Error())
			return ReferenceData{}, serr
		}
		if len(versions) == 0 {
			return ReferenceData{}, retryutil.Failf(Name, opFetchVersions, retryutil.ParseFailure, "version list is empty")
		}
		version = versions[0]
	}

	index, serr := c.Champions(ctx, version)
	if serr != nil {
		span.SetStatus(codes.Error, serr.Error())
		return ReferenceData{}, serr
	}
	return ReferenceData{Version: version, Champions: index}, nil
}

// Versions lists published patches, newest first.
func (c *Client) Versions(ctx context.Context) ([]string, *retryutil.SourceError) {
	res, err := c.http.R().
		SetContext(ctx).
		Get("/api/versions.json")
	if serr := retryutil.Classify(Name, opFetchVersions, res, err); serr != nil {
		return nil, serr
	}

	var versions []string
	err = json.Unmarshal(res.Body(), &versions)
	if err != nil {
		return nil, retryutil.Fail(Name, opFetchVersions, retryutil.ParseFailure, err)
	}
	return versions, nil
}

// Champions loads the champion catalog of a patch.
func (c *Client) Champions(ctx context.Context, version string) (*ChampionIndex, *retryutil.SourceError) {
	endpoint := fmt.Sprintf("/cdn/%s/data/en_US/champion.json", version)
	res, err := c.http.R().
		SetContext(ctx).
		Get(endpoint)
	if serr := retryutil.Classify(Name, opFetchChampions, res, err); serr != nil {
		return nil, serr
	}

	var file championFile
	err = json.Unmarshal(res.Body(), &file)
	if err != nil {
		return nil, retryutil.Fail(Name, opFetchChampions, retryutil.ParseFailure, err)
	}
	if len(file.Data) == 0 {
		return nil, retryutil.Failf(Name, opFetchChampions, retryutil.ParseFailure, "champion catalog is empty")
	}

	champions := make([]Champion, 0, len(file.Data))
	for _, champion := range file.Data {
		champions = append(champions, champion)
	}
	return NewChampionIndex(champions), nil
}
