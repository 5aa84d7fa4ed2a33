package summoner

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// API exposes the service over plain http. Routes:
//
//	GET /api/summoners/{region}/{riotId}?source=&allowRiotApi=
//	GET /healthz
//
// where riotId is "name-tag" split on the last dash, matching how the
// tracked sites spell profile urls.
type API struct {
	service Service
}

func NewAPI(service Service) API {
	return API{service: service}
}

func (a API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/summoners/{region}/{riotId}", a.handleGetSummoner)
	mux.HandleFunc("GET /healthz", a.handleHealthz)
}

type errorSummoner struct {
	Name    string `json:"name"`
	TagLine string `json:"tagLine"`
}

type errorEnvelope struct {
	Error         string         `json:"error"`
	Details       string         `json:"details,omitempty"`
	FailedSources []string       `json:"failedSources,omitempty"`
	Summoner      *errorSummoner `json:"summoner,omitempty"`
}

func (a API) handleGetSummoner(w http.ResponseWriter, r *http.Request) {
	name, tagLine := splitRiotId(r.PathValue("riotId"))
	allowRiotAPI, _ := strconv.ParseBool(r.URL.Query().Get("allowRiotApi"))

	identity := Identity{
		SummonerName:    name,
		TagLine:         tagLine,
		Region:          strings.ToLower(r.PathValue("region")),
		PreferredSource: r.URL.Query().Get("source"),
		AllowRiotAPI:    allowRiotAPI,
	}

	profile, err := a.service.Fetch(r.Context(), identity)
	if err != nil {
		a.writeError(w, r, identity, err)
		return
	}
	writeJson(w, http.StatusOK, profile)
}

func (a API) writeError(w http.ResponseWriter, r *http.Request, identity Identity, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		writeJson(w, http.StatusBadRequest, errorEnvelope{
			Error:   "invalid request",
			Details: verrs.Error(),
		})
		return
	}

	var total *TotalFailureError
	if errors.As(err, &total) {
		writeJson(w, http.StatusServiceUnavailable, errorEnvelope{
			Error:         "player data is unavailable from every source",
			Details:       total.Error(),
			FailedSources: total.FailedSources,
			Summoner: &errorSummoner{
				Name:    identity.SummonerName,
				TagLine: identity.TagLine,
			},
		})
		return
	}

	slog.ErrorContext(r.Context(), "summoner request failed",
		"riot_id", identity.RiotId(),
		"err", err,
	)
	writeJson(w, http.StatusInternalServerError, errorEnvelope{
		Error: "internal error",
	})
}

func (a API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// splitRiotId breaks "name-tag" on the last dash, game names may carry
// dashes of their own.
func splitRiotId(riotId string) (name, tagLine string) {
	idx := strings.LastIndex(riotId, "-")
	if idx < 0 {
		return riotId, ""
	}
	return riotId[:idx], riotId[idx+1:]
}

func writeJson(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}
