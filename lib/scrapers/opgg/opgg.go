package opgg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"riftlens-backend/lib/pagecache"
	"riftlens-backend/lib/retryutil"
	"riftlens-backend/lib/scrapers/scrapeclient"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// Name is the canonical source name used in failover and failure records.
const Name = "op.gg"

const opFetchProfile = "fetch profile"

// op.gg spells regions with its own short codes
var regionPaths = map[string]string{
	"na1":  "na",
	"euw1": "euw",
	"eun1": "eune",
	"kr":   "kr",
	"jp1":  "jp",
	"br1":  "br",
	"la1":  "lan",
	"la2":  "las",
	"oc1":  "oce",
	"tr1":  "tr",
	"ru":   "ru",
}

// Selectors locates the payload inside the profile page. The markup is a
// volatile external contract, so the set is versioned and can be overridden
// from config without touching code.
type Selectors struct {
	Version string `json:"version"`
	// DataScript matches the script tag carrying the embedded page state.
	DataScript string `json:"data_script"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Version:    "2025-06",
		DataScript: "script#__NEXT_DATA__",
	}
}

type ClientOptions struct {
	// BaseUrl overrides the production endpoint, used by tests.
	BaseUrl   string
	Timeout   time.Duration
	Selectors Selectors
	// Cache may be nil to disable page caching.
	Cache *pagecache.Cache
}

type Client struct {
	http      *resty.Client
	selectors Selectors
	cache     *pagecache.Cache
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://op.gg"
	}
	if opts.Selectors == (Selectors{}) {
		opts.Selectors = DefaultSelectors()
	}

	http, err := scrapeclient.New(scrapeclient.Options{
		BaseUrl:    opts.BaseUrl,
		Timeout:    opts.Timeout,
		TracerName: "riftlens.lib.scrapers.opgg.http",
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		http:      http,
		selectors: opts.Selectors,
		cache:     opts.Cache,
	}, nil
}

type Summoner struct {
	GameName      string
	TagLine       string
	Level         int
	ProfileIconId int
	SummonerId    string
}

type RankedStanding struct {
	// GameType is op.gg's queue label, e.g. "SOLORANKED".
	GameType string
	// Tier is upper-cased, e.g. "GOLD".
	Tier string
	// Division is 1..4, highest first.
	Division int
	Lp       int
	Wins     int
	Losses   int
}

type Match struct {
	Champion    string
	Win         bool
	Kills       int
	Deaths      int
	Assists     int
	CsPerMinute float64
}

type PlayerData struct {
	Summoner Summoner
	Ranked   []RankedStanding
	Matches  []Match
}

// Fetch performs one attempt against the profile page. Retries are the
// caller's policy, not the adapter's.
func (c *Client) Fetch(ctx context.Context, region, gameName, tagLine string) (PlayerData, *retryutil.SourceError) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	regionPath, ok := regionPaths[strings.ToLower(region)]
	if !ok {
		return PlayerData{}, retryutil.Failf(Name, opFetchProfile, retryutil.NotFound, "unsupported region %q", region)
	}

	endpoint := fmt.Sprintf(
		"/summoners/%s/%s-%s",
		regionPath,
		url.PathEscape(gameName),
		url.PathEscape(tagLine),
	)

	body, serr := c.fetchPage(ctx, endpoint)
	if serr != nil {
		span.SetStatus(codes.Error, serr.Error())
		return PlayerData{}, serr
	}

	data, serr := c.extract(ctx, body)
	if serr != nil {
		span.RecordError(serr)
		span.SetStatus(codes.Error, serr.Error())
		return PlayerData{}, serr
	}
	return data, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string) ([]byte, *retryutil.SourceError) {
	fullUrl := strings.TrimSuffix(c.http.BaseURL, "/") + endpoint

	page, err := c.cache.Get(ctx, Name, fullUrl)
	if err == nil {
		slog.DebugContext(ctx, "serving page from cache", "source", Name, "url", fullUrl)
		return page.Contents, nil
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(endpoint)
	if serr := retryutil.Classify(Name, opFetchProfile, res, err); serr != nil {
		return nil, serr
	}

	body := res.Body()
	err = c.cache.Set(ctx, Name, fullUrl, body)
	if err != nil {
		slog.WarnContext(ctx, "failed to cache page", "source", Name, "err", err)
	}
	return body, nil
}

// the page embeds its state as a json blob in a script tag
type nextData struct {
	Props struct {
		PageProps struct {
			Data summonerPayload `json:"data"`
		} `json:"pageProps"`
	} `json:"props"`
}

type summonerPayload struct {
	GameName        string           `json:"game_name"`
	TagLine         string           `json:"tagline"`
	Level           int              `json:"level"`
	ProfileIconId   int              `json:"profile_icon_id"`
	ProfileImageUrl string           `json:"profile_image_url"`
	SummonerId      string           `json:"summoner_id"`
	LeagueStats     []leagueStat     `json:"league_stats"`
	Games           []map[string]any `json:"games"`
}

type leagueStat struct {
	GameType string `json:"game_type"`
	TierInfo struct {
		Tier     string `json:"tier"`
		Division int    `json:"division"`
		Lp       int    `json:"lp"`
	} `json:"tier_info"`
	Win  int `json:"win"`
	Lose int `json:"lose"`
}

func (c *Client) extract(ctx context.Context, body []byte) (PlayerData, *retryutil.SourceError) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return PlayerData{}, retryutil.Fail(Name, opFetchProfile, retryutil.ParseFailure, err)
	}

	script := doc.Find(c.selectors.DataScript).First()
	if script.Length() == 0 {
		return PlayerData{}, retryutil.Failf(
			Name, opFetchProfile, retryutil.ParseFailure,
			"data script %q not found (selectors %s)", c.selectors.DataScript, c.selectors.Version,
		)
	}

	var envelope nextData
	err = json.Unmarshal([]byte(script.Text()), &envelope)
	if err != nil {
		return PlayerData{}, retryutil.Fail(Name, opFetchProfile, retryutil.ParseFailure, err)
	}

	payload := envelope.Props.PageProps.Data
	if payload.GameName == "" {
		return PlayerData{}, retryutil.Failf(
			Name, opFetchProfile, retryutil.ParseFailure,
			"payload carries no summoner identity",
		)
	}

	iconId := payload.ProfileIconId
	if iconId == 0 {
		iconId = trailingInt(payload.ProfileImageUrl)
	}

	data := PlayerData{
		Summoner: Summoner{
			GameName:      payload.GameName,
			TagLine:       payload.TagLine,
			Level:         payload.Level,
			ProfileIconId: iconId,
			SummonerId:    payload.SummonerId,
		},
	}

	for _, stat := range payload.LeagueStats {
		// unranked queues come through with an empty tier
		if stat.TierInfo.Tier == "" {
			continue
		}
		data.Ranked = append(data.Ranked, RankedStanding{
			GameType: stat.GameType,
			Tier:     strings.ToUpper(stat.TierInfo.Tier),
			Division: stat.TierInfo.Division,
			Lp:       stat.TierInfo.Lp,
			Wins:     stat.Win,
			Losses:   stat.Lose,
		})
	}

	for _, game := range payload.Games {
		match, ok := extractMatch(game)
		if !ok {
			slog.WarnContext(ctx, "skipping unmappable match entry", "source", Name)
			continue
		}
		data.Matches = append(data.Matches, match)
	}

	return data, nil
}
