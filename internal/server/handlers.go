package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/gear-discovery/internal/config"
	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/gaps"
)

// syncVerticalLimit is the most verticals a triggered run will execute
// synchronously. Larger runs go to the background and the caller polls.
const syncVerticalLimit = 2

// backgroundRunTimeout bounds a detached run.
const backgroundRunTimeout = 30 * time.Minute

// handleTriggerRun starts a discovery run. The request body is an optional
// run config overriding the server's defaults. Runs touching at most
// syncVerticalLimit verticals respond with the finished report; larger runs
// are accepted and executed in the background.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	var req config.RunConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	cfg := req.MergeWithDefaults(s.baseRun)
	// Publishing policy belongs to the server, not the caller. Callers who
	// want a no-write run set dry_run.
	cfg.AutoPublish = s.baseRun.AutoPublish
	// Secrets never come from the request.
	cfg.DatabaseURL = s.baseRun.DatabaseURL
	cfg.GeminiAPIKey = s.baseRun.GeminiAPIKey
	cfg.YouTubeAPIKey = s.baseRun.YouTubeAPIKey
	cfg.SearchAPIKey = s.baseRun.SearchAPIKey
	cfg.SearchEngineID = s.baseRun.SearchEngineID

	if err := cfg.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(cfg.ResolvedVerticals()) <= syncVerticalLimit {
		report, err := s.deps.Launcher(r.Context(), cfg)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.jsonResponse(w, http.StatusOK, report)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundRunTimeout)
		defer cancel()
		if _, err := s.deps.Launcher(ctx, cfg); err != nil {
			log.Printf("background run failed: %v", err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "run started in background; poll GET /runs for progress",
	})
}

// handleGetRun retrieves one run with its report.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, err := s.deps.Runs.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "run not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, run)
}

// handleListRuns lists recent runs, filterable by vertical and status.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filters := db.RunFilters{
		Vertical: r.URL.Query().Get("vertical"),
		Status:   r.URL.Query().Get("status"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 200 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		filters.Limit = limit
	}

	runs, err := s.deps.Runs.ListRuns(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []db.DiscoveryRun{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGapReport returns the library gap backlog, optionally for one
// vertical.
func (s *Server) handleGapReport(w http.ResponseWriter, r *http.Request) {
	vertical := r.URL.Query().Get("vertical")

	topN := 10
	if topStr := r.URL.Query().Get("top"); topStr != "" {
		n, err := strconv.Atoi(topStr)
		if err != nil || n < 1 || n > 100 {
			s.errorResponse(w, http.StatusBadRequest, "top must be between 1 and 100")
			return
		}
		topN = n
	}

	report, err := gaps.BuildReport(r.Context(), s.deps.Gaps, vertical, topN)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, report)
}

// handleGetBag retrieves a published bag with its items by URL code.
func (s *Server) handleGetBag(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	bag, err := s.deps.Bags.GetBagByCode(r.Context(), code)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if bag == nil {
		s.errorResponse(w, http.StatusNotFound, "bag not found")
		return
	}

	items, err := s.deps.Bags.ListBagItems(r.Context(), bag.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []db.BagItem{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"bag": bag, "items": items})
}
