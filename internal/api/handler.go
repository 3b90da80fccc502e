package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/lhiwi/acis-insurance-project/internal/api/middleware"
	"github.com/lhiwi/acis-insurance-project/internal/database"
	"github.com/lhiwi/acis-insurance-project/internal/loader"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/lhiwi/acis-insurance-project/internal/schema"
	"github.com/lhiwi/acis-insurance-project/internal/scoring"
	"github.com/lhiwi/acis-insurance-project/internal/store"
	"github.com/rs/zerolog"
)

const MaxUploadBytes = 200 << 20

type ScoringService interface {
	Score(ctx context.Context, req models.ScoringRequest) (*models.ScoringResult, error)
	Download(ctx context.Context, runID string) ([]byte, error)
	Recent(ctx context.Context, limit int) ([]database.Run, error)
}

type Handler struct {
	service      ScoringService
	defaults     models.ScoringOptions
	downloadName string
	logger       *zerolog.Logger
}

// NewHandler takes the options applied when a request omits mode,
// safeguards or explain.
func NewHandler(service ScoringService, defaults models.ScoringOptions, downloadName string, logger *zerolog.Logger) *Handler {
	return &Handler{
		service:      service,
		defaults:     defaults,
		downloadName: downloadName,
		logger:       logger,
	}
}

// POST /api/v1/score?filename=policies.csv&mode=Staging
// Body: raw file bytes
// Returns: ScoreResponse
func (h *Handler) Score(req *restful.Request, resp *restful.Response) {
	filename := strings.TrimSpace(req.QueryParameter("filename"))
	if filename == "" {
		middleware.HandleError(resp, errors.New("filename query parameter is required"), http.StatusBadRequest)
		return
	}

	opts, err := h.options(req)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(req.Request.Body, MaxUploadBytes+1))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	if len(data) > MaxUploadBytes {
		middleware.HandleError(resp, fmt.Errorf("upload exceeds %d bytes", MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	h.logger.Info().
		Str("filename", filename).
		Str("mode", string(opts.Mode)).
		Bool("safeguards", opts.Safeguards).
		Bool("explain", opts.ShowExplanations).
		Int("bytes", len(data)).
		Msg("Start scoring")

	result, err := h.service.Score(req.Request.Context(), models.ScoringRequest{
		Filename: filename,
		Data:     data,
		Options:  opts,
	})
	if err != nil {
		middleware.HandleError(resp, err, middleware.StatusFor(err))
		return
	}

	h.logger.Info().
		Str("run_id", result.RunID).
		Int("policies", result.Summary.Policies).
		Int("high_risk", result.Summary.HighRiskPolicies).
		Msg("Scoring complete")

	resp.WriteHeaderAndEntity(http.StatusOK, ScoreResponse{
		ScoringResult: result,
		DownloadURL:   fmt.Sprintf("/api/v1/results/%s/download", result.RunID),
	})
}

func (h *Handler) options(req *restful.Request) (models.ScoringOptions, error) {
	opts := h.defaults

	if v := req.QueryParameter("mode"); v != "" {
		mode, err := models.ParseDeploymentMode(v)
		if err != nil {
			return opts, err
		}
		opts.Mode = mode
	}

	for _, p := range []struct {
		name string
		dst  *bool
	}{
		{"safeguards", &opts.Safeguards},
		{"explain", &opts.ShowExplanations},
	} {
		v := req.QueryParameter(p.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid %s value %q", p.name, v)
		}
		*p.dst = b
	}

	return opts, nil
}

// GET /api/v1/results/{run_id}/download
func (h *Handler) Download(req *restful.Request, resp *restful.Response) {
	runID := req.PathParameter("run_id")

	data, err := h.service.Download(req.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.HandleError(resp, err, http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to load result")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	resp.Header().Set("Content-Type", "text/csv; charset=utf-8")
	resp.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.downloadName))
	resp.WriteHeader(http.StatusOK)
	if _, err := resp.Write(data); err != nil {
		h.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to write download")
	}
}

// GET /api/v1/runs?limit=20
func (h *Handler) Runs(req *restful.Request, resp *restful.Response) {
	limit := database.DefaultRunsLimit
	if v := req.QueryParameter("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			middleware.HandleError(resp, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.service.Recent(req.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, scoring.ErrHistoryDisabled) {
			middleware.HandleError(resp, err, http.StatusServiceUnavailable)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to list runs")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{
			RunID:        r.ID,
			Filename:     r.Filename,
			Mode:         r.Mode,
			Policies:     r.Policies,
			HighRisk:     r.HighRisk,
			PremiumLabel: r.PremiumLabel,
			PremiumValue: models.JSONFloat(r.PremiumValue),
			DurationMs:   r.DurationMs,
			CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		}
	}

	resp.WriteHeaderAndEntity(http.StatusOK, RunsResponse{Runs: summaries})
}

// GET /api/v1/formats
func (h *Handler) Formats(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, FormatsResponse{
		Extensions:      loader.SupportedExtensions(),
		RequiredColumns: schema.RequiredColumns,
		Help:            FormatHelp(),
	})
}

// FormatHelp is the upload guidance shown next to the file picker.
func FormatHelp() string {
	exts := loader.SupportedExtensions()
	for i, e := range exts {
		exts[i] = "." + e
	}
	return fmt.Sprintf("Supported formats: %s. Required columns: %s.",
		strings.Join(exts, ", "), strings.Join(schema.RequiredColumns, ", "))
}

// Health handler GET API /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	})
}
