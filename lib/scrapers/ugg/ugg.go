package ugg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"riftlens-backend/lib/htmlutil"
	"riftlens-backend/lib/pagecache"
	"riftlens-backend/lib/retryutil"
	"riftlens-backend/lib/scrapers/scrapeclient"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// Name is the canonical source name used in failover and failure records.
const Name = "u.gg"

const opFetchProfile = "fetch profile"

// u.gg addresses profiles by riot platform codes directly
var supportedRegions = map[string]bool{
	"na1": true, "euw1": true, "eun1": true, "kr": true, "jp1": true,
	"br1": true, "la1": true, "la2": true, "oc1": true, "tr1": true,
	"ru": true, "ph2": true, "sg2": true, "th2": true, "tw2": true, "vn2": true,
}

// Selectors is the extraction rule set for the profile overview page,
// versioned so a markup change ships as a config update.
type Selectors struct {
	Version string `json:"version"`

	SummonerName  string `json:"summoner_name"`
	SummonerTag   string `json:"summoner_tag"`
	SummonerLevel string `json:"summoner_level"`
	ProfileIcon   string `json:"profile_icon"`

	RankEntry  string `json:"rank_entry"`
	RankQueue  string `json:"rank_queue"`
	RankTier   string `json:"rank_tier"`
	RankPoints string `json:"rank_points"`
	RankRecord string `json:"rank_record"`

	MatchRow      string `json:"match_row"`
	MatchResult   string `json:"match_result"`
	MatchChampion string `json:"match_champion"`
	MatchKda      string `json:"match_kda"`
	MatchCs       string `json:"match_cs"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Version: "2025-07",

		SummonerName:  ".summoner-name",
		SummonerTag:   ".summoner-tagline",
		SummonerLevel: ".summoner-level",
		ProfileIcon:   "img.summoner-icon",

		RankEntry:  ".rank-block",
		RankQueue:  ".rank-title",
		RankTier:   ".rank-text",
		RankPoints: ".rank-points",
		RankRecord: ".rank-wins",

		MatchRow:      ".match-history .match-row",
		MatchResult:   ".match-result",
		MatchChampion: ".champion-name",
		MatchKda:      ".match-kda",
		MatchCs:       ".match-cs",
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
		opts.BaseUrl = "https://u.gg"
	}
	if opts.Selectors == (Selectors{}) {
		opts.Selectors = DefaultSelectors()
	}

	http, err := scrapeclient.New(scrapeclient.Options{
		BaseUrl:    opts.BaseUrl,
		Timeout:    opts.Timeout,
		TracerName: "riftlens.lib.scrapers.ugg.http",
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
	Name          string
	TagLine       string
	Level         int
	ProfileIconId int
}

type RankedStanding struct {
	// Queue is the page label, e.g. "Ranked Solo".
	Queue string
	// Tier is the combined tier text, e.g. "Gold II".
	Tier   string
	Points int
	Wins   int
	Losses int
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

// Fetch performs one attempt against the profile overview page. Retries are
// the caller's policy, not the adapter's.
func (c *Client) Fetch(ctx context.Context, region, gameName, tagLine string) (PlayerData, *retryutil.SourceError) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	region = strings.ToLower(region)
	if !supportedRegions[region] {
		return PlayerData{}, retryutil.Failf(Name, opFetchProfile, retryutil.NotFound, "unsupported region %q", region)
	}

	endpoint := fmt.Sprintf(
		"/lol/profile/%s/%s-%s/overview",
		region,
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

func (c *Client) extract(ctx context.Context, body []byte) (PlayerData, *retryutil.SourceError) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return PlayerData{}, retryutil.Fail(Name, opFetchProfile, retryutil.ParseFailure, err)
	}

	sel := c.selectors

	name := htmlutil.CleanText(doc.Find(sel.SummonerName).First().Text())
	if name == "" {
		return PlayerData{}, retryutil.Failf(
			Name, opFetchProfile, retryutil.ParseFailure,
			"summoner name not found (selectors %s)", sel.Version,
		)
	}

	data := PlayerData{
		Summoner: Summoner{
			Name:    name,
			TagLine: strings.TrimPrefix(htmlutil.CleanText(doc.Find(sel.SummonerTag).First().Text()), "#"),
		},
	}
	if level, ok := htmlutil.ParseInt(doc.Find(sel.SummonerLevel).First().Text()); ok {
		data.Summoner.Level = level
	}
	if src := doc.Find(sel.ProfileIcon).First().AttrOr("src", ""); src != "" {
		data.Summoner.ProfileIconId = trailingInt(src)
	}

	doc.Find(sel.RankEntry).Each(func(_ int, entry *goquery.Selection) {
		tier := htmlutil.CleanText(entry.Find(sel.RankTier).First().Text())
		if tier == "" || strings.EqualFold(tier, "unranked") {
			return
		}

		standing := RankedStanding{
			Queue: htmlutil.CleanText(entry.Find(sel.RankQueue).First().Text()),
			Tier:  tier,
		}
		if lp, ok := htmlutil.ParseInt(entry.Find(sel.RankPoints).First().Text()); ok {
			standing.Points = lp
		}
		standing.Wins, standing.Losses = parseRecord(entry.Find(sel.RankRecord).First().Text())
		data.Ranked = append(data.Ranked, standing)
	})

	doc.Find(sel.MatchRow).Each(func(_ int, row *goquery.Selection) {
		champion := htmlutil.CleanText(row.Find(sel.MatchChampion).First().Text())
		if champion == "" {
			slog.WarnContext(ctx, "skipping match row without champion", "source", Name)
			return
		}

		match := Match{
			Champion: champion,
			Win:      isWin(row, sel.MatchResult),
		}
		match.Kills, match.Deaths, match.Assists = parseKda(row.Find(sel.MatchKda).First().Text())
		if cs, ok := parseCsPerMinute(row.Find(sel.MatchCs).First().Text()); ok {
			match.CsPerMinute = cs
		}
		data.Matches = append(data.Matches, match)
	})

	return data, nil
}
