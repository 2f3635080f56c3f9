package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/user/scrape-coordinator/internal/auth"
	"github.com/user/scrape-coordinator/internal/delivery/http/request"
	"github.com/user/scrape-coordinator/internal/delivery/http/response"
	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/usecase"
	"github.com/user/scrape-coordinator/pkg/metrics"
)

// maxBodyBytes bounds callback payload size. Result payloads are per-chunk
// product data, not images, so a few MB is generous.
const maxBodyBytes = 8 << 20

// Handler holds the coordinator's HTTP endpoints.
type Handler struct {
	authenticator *auth.Authenticator
	dispatcher    usecase.Dispatcher
	aggregator    usecase.Aggregator
	admin         usecase.Admin
	reviewer      usecase.PipelineReviewer
}

// NewHandler creates a new Handler.
func NewHandler(
	authenticator *auth.Authenticator,
	dispatcher usecase.Dispatcher,
	aggregator usecase.Aggregator,
	admin usecase.Admin,
	reviewer usecase.PipelineReviewer,
) *Handler {
	return &Handler{
		authenticator: authenticator,
		dispatcher:    dispatcher,
		aggregator:    aggregator,
		admin:         admin,
		reviewer:      reviewer,
	}
}

// --- Runner-facing endpoints ---

// HandleRunnerPoll claims one pending job for a polling runner
// (non-chunked dispatch path).
func (h *Handler) HandleRunnerPoll(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	authResult, ok := h.authenticate(w, r, body, "")
	if !ok {
		return
	}

	var req request.PollRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	runnerName := req.RunnerName
	if runnerName == "" {
		runnerName = authResult.RunnerName
	}

	job, scrapers, err := h.dispatcher.ClaimJob(r.Context(), runnerName)
	if err != nil {
		slog.Error("Failed to claim job", "runner", runnerName, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.PollResponse{}
	if job != nil {
		resp.Job = response.NewJobPayload(job, scrapers)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleClaimChunk claims the next pending chunk of a job.
func (h *Handler) HandleClaimChunk(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	authResult, ok := h.authenticate(w, r, body, "")
	if !ok {
		return
	}

	var req request.ClaimChunkRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.JobID == "" {
		h.writeJSONError(w, "Missing required field: job_id", http.StatusBadRequest)
		return
	}
	runnerName := req.RunnerName
	if runnerName == "" {
		runnerName = authResult.RunnerName
	}

	chunk, remaining, err := h.dispatcher.ClaimChunk(r.Context(), req.JobID, runnerName)
	if err != nil {
		if errors.Is(err, usecase.ErrJobNotFound) {
			h.writeJSONError(w, "Job not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to claim chunk", "job_id", req.JobID, "runner", runnerName, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.ClaimChunkResponse{RemainingChunks: remaining}
	if chunk != nil {
		resp.Chunk = &response.ChunkPayload{
			ChunkID:    chunk.ID,
			ChunkIndex: chunk.ChunkIndex,
			SKUs:       chunk.SKUs,
			Scrapers:   chunk.ScraperNames,
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleGetJob returns the full job payload for a runner that already
// knows its job id. The HMAC scheme signs the job_id query param here
// rather than a body.
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		h.writeJSONError(w, "Missing required query parameter: job_id", http.StatusBadRequest)
		return
	}
	if _, ok := h.authenticate(w, r, nil, jobID); !ok {
		return
	}

	job, scrapers, err := h.dispatcher.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, usecase.ErrJobNotFound) {
			h.writeJSONError(w, "Job not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load job", "job_id", jobID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, response.NewJobPayload(job, scrapers))
}

// HandleChunkCallback records a chunk's terminal result.
func (h *Handler) HandleChunkCallback(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	authResult, ok := h.authenticate(w, r, body, "")
	if !ok {
		return
	}

	var req request.ChunkCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ChunkID == "" || req.Status == "" {
		h.writeJSONError(w, "Missing required fields: chunk_id, status", http.StatusBadRequest)
		return
	}
	runnerName := req.RunnerName
	if runnerName == "" {
		runnerName = authResult.RunnerName
	}

	err := h.aggregator.CompleteChunk(r.Context(), usecase.ChunkCallback{
		ChunkID:    req.ChunkID,
		RunnerName: runnerName,
		Status:     entity.ChunkStatus(req.Status),
		Counts: entity.ChunkSummary{
			TotalSKUs:      req.SKUsProcessed,
			SuccessfulSKUs: req.SKUsSuccessful,
			FailedSKUs:     req.SKUsFailed,
		},
		Results:      req.Results,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrChunkNotFound):
			h.writeJSONError(w, "Chunk not found", http.StatusNotFound)
		case errors.Is(err, usecase.ErrInvalidStatus):
			h.writeJSONError(w, "Status must be completed or failed", http.StatusBadRequest)
		default:
			slog.Error("Failed to process chunk callback", "chunk_id", req.ChunkID, "error", err)
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleJobCallback records a job-level result.
func (h *Handler) HandleJobCallback(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	authResult, ok := h.authenticate(w, r, body, "")
	if !ok {
		return
	}

	var req request.JobCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.JobID == "" || req.Status == "" {
		h.writeJSONError(w, "Missing required fields: job_id, status", http.StatusBadRequest)
		return
	}
	runnerName := req.RunnerName
	if runnerName == "" {
		runnerName = authResult.RunnerName
	}

	err := h.aggregator.CompleteJob(r.Context(), usecase.JobCallback{
		JobID:        req.JobID,
		RunnerName:   runnerName,
		Status:       entity.JobStatus(req.Status),
		Results:      req.Results,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrJobNotFound):
			h.writeJSONError(w, "Job not found", http.StatusNotFound)
		case errors.Is(err, usecase.ErrInvalidStatus):
			h.writeJSONError(w, "Unsupported job status", http.StatusBadRequest)
		default:
			slog.Error("Failed to process job callback", "job_id", req.JobID, "error", err)
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Operator-facing endpoints ---

func (h *Handler) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req request.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := h.admin.CreateJob(r.Context(), usecase.CreateJobParams{
		SKUs:         req.SKUs,
		ScraperNames: req.Scrapers,
		TestMode:     req.TestMode,
		MaxWorkers:   req.MaxWorkers,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrNoScrapers) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to create job", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, response.NewJobSummary(job))
}

func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.admin.ListJobs(r.Context(), 0)
	if err != nil {
		slog.Error("Failed to list jobs", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	summaries := make([]response.JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, response.NewJobSummary(job))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"jobs": summaries})
}

func (h *Handler) HandleJobResults(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, chunks, err := h.admin.JobResults(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, usecase.ErrJobNotFound) {
			h.writeJSONError(w, "Job not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load job results", "job_id", jobID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.JobResultsResponse{
		Job:    response.NewJobSummary(job),
		Chunks: make([]response.ChunkResult, 0, len(chunks)),
	}
	for _, chunk := range chunks {
		resp.Chunks = append(resp.Chunks, response.NewChunkResult(chunk))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleMintRunnerKey(w http.ResponseWriter, r *http.Request) {
	var req request.MintRunnerKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RunnerName == "" {
		h.writeJSONError(w, "Missing required field: runner_name", http.StatusBadRequest)
		return
	}

	token, key, err := h.admin.MintRunnerKey(r.Context(), req.RunnerName)
	if err != nil {
		slog.Error("Failed to mint runner key", "runner", req.RunnerName, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, response.MintRunnerKeyResponse{
		KeyID:      key.ID,
		RunnerName: key.RunnerName,
		Key:        token,
		KeyPrefix:  key.KeyPrefix,
	})
}

func (h *Handler) HandleListRunners(w http.ResponseWriter, r *http.Request) {
	runners, err := h.admin.ListRunners(r.Context())
	if err != nil {
		slog.Error("Failed to list runners", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	payloads := make([]response.RunnerPayload, 0, len(runners))
	for _, runner := range runners {
		payloads = append(payloads, response.RunnerPayload{
			Name:       runner.Name,
			Status:     string(runner.Status),
			LastSeenAt: runner.LastSeenAt,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runners": payloads})
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")

	record, err := h.reviewer.Get(r.Context(), sku)
	if err != nil {
		h.writePipelineError(w, sku, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewProductPayload(record))
}

func (h *Handler) HandleConsolidate(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")

	var req request.ConsolidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Consolidated) == 0 {
		h.writeJSONError(w, "Missing required field: consolidated", http.StatusBadRequest)
		return
	}

	if err := h.reviewer.SubmitConsolidated(r.Context(), sku, req.Consolidated); err != nil {
		h.writePipelineError(w, sku, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.pipelineAction(w, r, h.reviewer.Approve)
}

func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	h.pipelineAction(w, r, h.reviewer.Publish)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.pipelineAction(w, r, h.reviewer.Reject)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

func (h *Handler) pipelineAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, sku string) error) {
	sku := chi.URLParam(r, "sku")
	if err := action(r.Context(), sku); err != nil {
		h.writePipelineError(w, sku, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writePipelineError(w http.ResponseWriter, sku string, err error) {
	switch {
	case errors.Is(err, usecase.ErrProductNotFound):
		h.writeJSONError(w, "Product not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrInvalidTransition):
		h.writeJSONError(w, "Invalid pipeline transition", http.StatusConflict)
	default:
		slog.Error("Pipeline action failed", "sku", sku, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// readBody reads the raw body so HMAC validation can sign the exact bytes.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeJSONError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// authenticate resolves the runner identity via the validator chain. Every
// failure produces the same response shape so callers cannot probe which
// scheme almost worked.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, body []byte, payload string) (*entity.AuthResult, bool) {
	result, err := h.authenticator.Authenticate(r.Context(), &auth.Request{
		Header:  r.Header,
		Body:    body,
		Payload: payload,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			metrics.AuthFailuresTotal.Inc()
			h.writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return nil, false
		}
		slog.Error("Credential store failure during authentication", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return result, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
