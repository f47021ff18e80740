package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "vbscore API"
	r.Spec.Info.Version = "2.0.0"
	r.Spec.Info.WithDescription("Live volleyball scoreboard: match creation, real-time score stream, and self-contained match archives.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /create_match
	createMatch, _ := r.NewOperationContext(http.MethodPost, "/create_match")
	createMatch.SetSummary("Create match")
	createMatch.SetDescription("Creates a new match and returns the admin and viewer links. The admin link embeds the admin token; share it only with the scorekeeper. Rate limited per caller.")
	createMatch.AddReqStructure(CreateMatchRequest{})
	createMatch.AddRespStructure(CreateMatchResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	createMatch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createMatch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	_ = r.AddOperation(createMatch)

	// GET /scoreboard/{matchID}
	getScoreboard, _ := r.NewOperationContext(http.MethodGet, "/scoreboard/{matchID}")
	getScoreboard.SetSummary("Scoreboard page")
	getScoreboard.SetDescription("Serves the live scoreboard. Finished matches redirect to the archive view; unknown matches redirect to the creation page.")
	getScoreboard.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("text/html"))
	getScoreboard.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusFound))
	_ = r.AddOperation(getScoreboard)

	// GET /archive
	getArchive, _ := r.NewOperationContext(http.MethodGet, "/archive")
	getArchive.SetSummary("Archive page")
	getArchive.SetDescription("Renders a finished match from the self-contained state query token. No server-side lookup.")
	getArchive.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("text/html"))
	_ = r.AddOperation(getArchive)

	// GET /api/matches
	listMatches, _ := r.NewOperationContext(http.MethodGet, "/api/matches")
	listMatches.SetSummary("List live matches")
	listMatches.SetDescription("Returns every live match with derived set scores and set-win tallies.")
	listMatches.AddRespStructure(MatchListResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listMatches)

	// GET /ws/{matchID}
	getStream, _ := r.NewOperationContext(http.MethodGet, "/ws/{matchID}")
	getStream.SetSummary("Live score stream")
	getStream.SetDescription("Upgrades to a WebSocket pushing state snapshots. With a valid token query parameter the session may send point/undo/new_set/end_match actions.")
	getStream.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getStream)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
