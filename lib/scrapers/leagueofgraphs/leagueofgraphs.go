package leagueofgraphs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
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
const Name = "leagueofgraphs"

const opFetchProfile = "fetch profile"

// leagueofgraphs drops the platform digit from most regions
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

// Selectors is the extraction rule set for the summoner page, versioned so
// a markup change ships as a config update.
type Selectors struct {
	Version string `json:"version"`

	SummonerName string `json:"summoner_name"`
	SummonerTag  string `json:"summoner_tag"`
	Level        string `json:"level"`
	ProfileIcon  string `json:"profile_icon"`

	RankBox    string `json:"rank_box"`
	RankQueue  string `json:"rank_queue"`
	RankTier   string `json:"rank_tier"`
	RankPoints string `json:"rank_points"`
	RankWins   string `json:"rank_wins"`
	RankLosses string `json:"rank_losses"`

	GameRow      string `json:"game_row"`
	GameChampion string `json:"game_champion"`
	GameResult   string `json:"game_result"`
	GameKills    string `json:"game_kills"`
	GameDeaths   string `json:"game_deaths"`
	GameAssists  string `json:"game_assists"`
	GameCs       string `json:"game_cs"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Version: "2025-05",

		SummonerName: ".pageBanner .txt .name",
		SummonerTag:  ".pageBanner .txt .tagLine",
		Level:        ".pageBanner .bannerSubtitle",
		ProfileIcon:  ".pageBanner img.img",

		RankBox:    ".personalRankingsBox",
		RankQueue:  ".queueLine",
		RankTier:   ".leagueTier",
		RankPoints: ".leaguePoints",
		RankWins:   ".winsNumber",
		RankLosses: ".lossesNumber",

		GameRow:      "table.recentGamesTable tbody tr",
		GameChampion: ".championCellLight .name",
		GameResult:   ".victoryDefeatText",
		GameKills:    ".kills",
		GameDeaths:   ".deaths",
		GameAssists:  ".assists",
		GameCs:       ".csText",
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
		opts.BaseUrl = "https://www.leagueofgraphs.com"
	}
	if opts.Selectors == (Selectors{}) {
		opts.Selectors = DefaultSelectors()
	}

	http, err := scrapeclient.New(scrapeclient.Options{
		BaseUrl:    opts.BaseUrl,
		Timeout:    opts.Timeout,
		TracerName: "riftlens.lib.scrapers.leagueofgraphs.http",
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
	// Queue is the page label, e.g. "Soloqueue".
	Queue string
	// Tier keeps the page's arabic numbering, e.g. "Gold 2".
	Tier   string
	Points int
	Wins   int
	Losses int
}

type Game struct {
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
	Games    []Game
}

// Fetch performs one attempt against the summoner page. Retries are the
// caller's policy, not the adapter's.
func (c *Client) Fetch(ctx context.Context, region, gameName, tagLine string) (PlayerData, *retryutil.SourceError) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	regionPath, ok := regionPaths[strings.ToLower(region)]
	if !ok {
		return PlayerData{}, retryutil.Failf(Name, opFetchProfile, retryutil.NotFound, "unsupported region %q", region)
	}

	endpoint := fmt.Sprintf(
		"/summoner/%s/%s-%s",
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

var csPerMinPattern = regexp.MustCompile(`([\d.]+)\s*/\s*min`)

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
	if level, ok := htmlutil.ParseInt(doc.Find(sel.Level).First().Text()); ok {
		data.Summoner.Level = level
	}
	if src := doc.Find(sel.ProfileIcon).First().AttrOr("src", ""); src != "" {
		data.Summoner.ProfileIconId = trailingInt(src)
	}

	doc.Find(sel.RankBox).Each(func(_ int, box *goquery.Selection) {
		tier := htmlutil.CleanText(box.Find(sel.RankTier).First().Text())
		if tier == "" || strings.EqualFold(tier, "unranked") {
			return
		}

		standing := RankedStanding{
			Queue: htmlutil.CleanText(box.Find(sel.RankQueue).First().Text()),
			Tier:  tier,
		}
		if lp, ok := htmlutil.ParseInt(box.Find(sel.RankPoints).First().Text()); ok {
			standing.Points = lp
		}
		if wins, ok := htmlutil.ParseInt(box.Find(sel.RankWins).First().Text()); ok {
			standing.Wins = wins
		}
		if losses, ok := htmlutil.ParseInt(box.Find(sel.RankLosses).First().Text()); ok {
			standing.Losses = losses
		}
		data.Ranked = append(data.Ranked, standing)
	})

	doc.Find(sel.GameRow).Each(func(_ int, row *goquery.Selection) {
		champion := htmlutil.CleanText(row.Find(sel.GameChampion).First().Text())
		if champion == "" {
			slog.WarnContext(ctx, "skipping game row without champion", "source", Name)
			return
		}

		game := Game{
			Champion: champion,
			Win:      strings.EqualFold(htmlutil.CleanText(row.Find(sel.GameResult).First().Text()), "victory"),
		}
		game.Kills, _ = htmlutil.ParseInt(row.Find(sel.GameKills).First().Text())
		game.Deaths, _ = htmlutil.ParseInt(row.Find(sel.GameDeaths).First().Text())
		game.Assists, _ = htmlutil.ParseInt(row.Find(sel.GameAssists).First().Text())

		csText := htmlutil.CleanText(row.Find(sel.GameCs).First().Text())
		if groups := csPerMinPattern.FindStringSubmatch(csText); len(groups) == 2 {
			game.CsPerMinute, _ = strconv.ParseFloat(groups[1], 64)
		} else if cs, ok := htmlutil.ParseFloat(csText); ok {
			game.CsPerMinute = cs
		}

		data.Games = append(data.Games, game)
	})

	return data, nil
}

func trailingInt(rawUrl string) int {
	base := rawUrl
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	n, err := strconv.Atoi(base)
	if err != nil {
		return 0
	}
	return n
}
