package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"riftlens-backend/lib/retryutil"
	"riftlens-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/sourcegraph/conc/iter"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// Name is the canonical source name used in failover and failure records.
const Name = "riot_api"

const (
	opFetchAccount  = "fetch account"
	opFetchSummoner = "fetch summoner"
	opFetchLeague   = "fetch league entries"
	opFetchMatchIds = "fetch match ids"
	opFetchMatch    = "fetch match"
)

// platform regions and the continental route serving their account and match
// data
var regionalRoutes = map[string]string{
	"na1":  "americas",
	"br1":  "americas",
	"la1":  "americas",
	"la2":  "americas",
	"euw1": "europe",
	"eun1": "europe",
	"tr1":  "europe",
	"ru":   "europe",
	"kr":   "asia",
	"jp1":  "asia",
	"oc1":  "sea",
	"ph2":  "sea",
	"sg2":  "sea",
	"th2":  "sea",
	"tw2":  "sea",
	"vn2":  "sea",
}

// account-v1 is not served from the sea cluster
func accountRoute(route string) string {
	if route == "sea" {
		return "asia"
	}
	return route
}

// the limiter is what actually paces requests, the fan-out just keeps
// connections bounded
const matchFanout = 4

type ClientOptions struct {
	// ApiKey is sent as X-Riot-Token on every request.
	ApiKey string
	// BaseUrl overrides both the platform and regional hosts, used by tests.
	BaseUrl string
	Timeout time.Duration
	// RequestsPerSecond caps outgoing calls client-side so a burst of match
	// lookups does not eat the key's quota. Defaults to 20, the documented
	// development key limit.
	RequestsPerSecond float64
	// MatchCount is how many recent matches to pull, newest first.
	MatchCount int
}

type Client struct {
	http       *resty.Client
	limiter    *rate.Limiter
	baseUrl    string
	matchCount int
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.ApiKey == "" {
		return nil, errors.New("riot api key is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 15
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 20
	}
	if opts.MatchCount == 0 {
		opts.MatchCount = 20
	}
	if opts.BaseUrl != "" {
		_, err := url.Parse(opts.BaseUrl)
		if err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
	}

	http := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("X-Riot-Token", opts.ApiKey)
	telemetry.InstrumentResty(http, "riftlens.lib.riot.http")

	return &Client{
		http:       http,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), int(opts.RequestsPerSecond)),
		baseUrl:    strings.TrimSuffix(opts.BaseUrl, "/"),
		matchCount: opts.MatchCount,
	}, nil
}

func (c *Client) hostUrl(route string) string {
	if c.baseUrl != "" {
		return c.baseUrl
	}
	return fmt.Sprintf("https://%s.api.riotgames.com", route)
}

func (c *Client) get(ctx context.Context, op, route, endpoint string, out any) *retryutil.SourceError {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return retryutil.Fail(Name, op, retryutil.Timeout, err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.hostUrl(route) + endpoint)
	if serr := retryutil.Classify(Name, op, res, err); serr != nil {
		return serr
	}

	err = json.Unmarshal(res.Body(), out)
	if err != nil {
		return retryutil.Fail(Name, op, retryutil.ParseFailure, err)
	}
	return nil
}

// AccountByRiotId resolves the puuid behind a game name and tag line.
func (c *Client) AccountByRiotId(ctx context.Context, route, gameName, tagLine string) (Account, *retryutil.SourceError) {
	endpoint := fmt.Sprintf(
		"/riot/account/v1/accounts/by-riot-id/%s/%s",
		url.PathEscape(gameName),
		url.PathEscape(tagLine),
	)
	var account Account
	if serr := c.get(ctx, opFetchAccount, accountRoute(route), endpoint, &account); serr != nil {
		return Account{}, serr
	}
	return account, nil
}

// SummonerByPuuid returns platform-level profile fields, level and icon.
func (c *Client) SummonerByPuuid(ctx context.Context, region, puuid string) (Summoner, *retryutil.SourceError) {
	endpoint := "/lol/summoner/v4/summoners/by-puuid/" + url.PathEscape(puuid)
	var summoner Summoner
	if serr := c.get(ctx, opFetchSummoner, region, endpoint, &summoner); serr != nil {
		return Summoner{}, serr
	}
	return summoner, nil
}

// LeagueEntries returns the player's current standing per ranked queue.
// Unranked players get an empty list.
func (c *Client) LeagueEntries(ctx context.Context, region, puuid string) ([]LeagueEntry, *retryutil.SourceError) {
	endpoint := "/lol/league/v4/entries/by-puuid/" + url.PathEscape(puuid)
	var entries []LeagueEntry
	if serr := c.get(ctx, opFetchLeague, region, endpoint, &entries); serr != nil {
		return nil, serr
	}
	return entries, nil
}

// MatchIds returns the newest match ids first.
func (c *Client) MatchIds(ctx context.Context, route, puuid string, count int) ([]string, *retryutil.SourceError) {
	endpoint := fmt.Sprintf(
		"/lol/match/v5/matches/by-puuid/%s/ids?count=%d",
		url.PathEscape(puuid),
		count,
	)
	var ids []string
	if serr := c.get(ctx, opFetchMatchIds, route, endpoint, &ids); serr != nil {
		return nil, serr
	}
	return ids, nil
}

// Match returns the full detail of a single game.
func (c *Client) Match(ctx context.Context, route, matchId string) (Match, *retryutil.SourceError) {
	endpoint := "/lol/match/v5/matches/" + url.PathEscape(matchId)
	var match Match
	if serr := c.get(ctx, opFetchMatch, route, endpoint, &match); serr != nil {
		return Match{}, serr
	}
	return match, nil
}

// Fetch performs one attempt at assembling the player's data from the
// official API. Retries are the caller's policy, not the adapter's.
//
// Identity resolution must succeed. Level, standings and match history are
// optional: when the API refuses one of them with a terminal status the
// profile degrades to zero values for that part, but a retryable refusal
// fails the whole attempt so the caller's policy can try again.
func (c *Client) Fetch(ctx context.Context, region, gameName, tagLine string) (PlayerData, *retryutil.SourceError) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	region = strings.ToLower(region)
	route, ok := regionalRoutes[region]
	if !ok {
		return PlayerData{}, retryutil.Failf(Name, opFetchAccount, retryutil.NotFound, "unsupported region %q", region)
	}

	account, serr := c.AccountByRiotId(ctx, route, gameName, tagLine)
	if serr != nil {
		span.SetStatus(codes.Error, serr.Error())
		return PlayerData{}, serr
	}
	data := PlayerData{Account: account}

	summoner, serr := c.SummonerByPuuid(ctx, region, account.Puuid)
	if serr != nil {
		if serr.Kind.Retryable() {
			span.SetStatus(codes.Error, serr.Error())
			return PlayerData{}, serr
		}
		slog.WarnContext(ctx, "profile fields unavailable", "source", Name, "err", serr)
	} else {
		data.Summoner = summoner
	}

	entries, serr := c.LeagueEntries(ctx, region, account.Puuid)
	if serr != nil {
		if serr.Kind.Retryable() {
			span.SetStatus(codes.Error, serr.Error())
			return PlayerData{}, serr
		}
		slog.WarnContext(ctx, "league entries unavailable", "source", Name, "err", serr)
	} else {
		data.Ranked = entries
	}

	ids, serr := c.MatchIds(ctx, route, account.Puuid, c.matchCount)
	if serr != nil {
		if serr.Kind.Retryable() {
			span.SetStatus(codes.Error, serr.Error())
			return PlayerData{}, serr
		}
		slog.WarnContext(ctx, "match history unavailable", "source", Name, "err", serr)
		return data, nil
	}

	matches, serr := c.fetchMatches(ctx, route, ids)
	if serr != nil {
		span.SetStatus(codes.Error, serr.Error())
		return PlayerData{}, serr
	}
	data.Matches = matches

	return data, nil
}

func (c *Client) fetchMatches(ctx context.Context, route string, ids []string) ([]Match, *retryutil.SourceError) {
	details, err := iter.Mapper[string, *Match]{MaxGoroutines: matchFanout}.MapErr(
		ids,
		func(id *string) (*Match, error) {
			match, serr := c.Match(ctx, route, *id)
			if serr != nil {
				if serr.Kind.Retryable() {
					return nil, serr
				}
				slog.WarnContext(ctx, "skipping match", "source", Name, "match_id", *id, "err", serr)
				return nil, nil
			}
			return &match, nil
		},
	)
	if err != nil {
		var serr *retryutil.SourceError
		if errors.As(err, &serr) {
			return nil, serr
		}
		return nil, retryutil.Fail(Name, opFetchMatch, retryutil.NetworkError, err)
	}

	// ids arrive newest first and the mapper writes results by index, so
	// ordering survives the fan-out
	matches := make([]Match, 0, len(details))
	for _, match := range details {
		if match != nil {
			matches = append(matches, *match)
		}
	}
	return matches, nil
}
