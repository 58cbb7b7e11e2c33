package ingress

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/metrics"
	"github.com/manik3160/NeverDown/pkg/storage"
	"go.uber.org/zap"
)

var validate = validator.New()

// incidentHandlers bundles the dependencies every /incidents/* route
// needs.
type incidentHandlers struct {
	store         IncidentStore
	audit         AuditReader
	verifications VerificationReader
	pipeline      Pipeline
	scheduler     Scheduler
	maxRefinement int
	logger        *zap.Logger
}

// createIncidentRequest is the JSON body of POST /incidents, mirroring
// the original IncidentCreate model.
type createIncidentRequest struct {
	Title      string               `json:"title" validate:"required"`
	Severity   domain.Severity      `json:"severity" validate:"required,oneof=critical high medium low"`
	Source     domain.Source        `json:"source" validate:"required,oneof=ci logs monitoring webhook manual"`
	Logs       string               `json:"logs"`
	Repository repositoryRequestDTO `json:"repository" validate:"required"`
}

type repositoryRequestDTO struct {
	URL    string `json:"url" validate:"required"`
	Branch string `json:"branch"`
	Commit string `json:"commit"`
}

func incidentResponse(inc *domain.Incident) map[string]any {
	return map[string]any{
		"id":                  inc.ID,
		"title":               inc.Title,
		"severity":            inc.Severity,
		"source":              inc.Source,
		"status":              inc.Status,
		"repository":          map[string]any{"url": inc.Repository.URL, "branch": inc.Repository.Branch, "commit": inc.Repository.CommitSHA},
		"timeline":            inc.Timeline,
		"latest_pr_url":       inc.LatestPRURL,
		"latest_branch":       inc.LatestBranch,
		"feedback_iterations": inc.FeedbackIterations,
		"error_message":       inc.ErrorMessage,
		"created_at":          inc.CreatedAt,
		"updated_at":          inc.UpdatedAt,
	}
}

// create handles POST /incidents: persists the incident as PENDING and
// hands it to the scheduler for async processing, returning immediately
// (the original's BackgroundTasks.add_task contract).
func (h *incidentHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req createIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	incident := domain.NewIncident(req.Title, req.Severity, req.Source, domain.RepositoryDescriptor{
		URL:       req.Repository.URL,
		Branch:    req.Repository.Branch,
		CommitSHA: req.Repository.Commit,
	}, req.Logs)

	if err := h.store.Save(r.Context(), incident); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.ErrValidation, "failed to create incident"))
		return
	}
	metrics.RecordIngested(string(incident.Source))

	h.scheduler.Submit(func(ctx context.Context) {
		if aerr := h.pipeline.Process(ctx, incident); aerr != nil {
			h.logger.Warn("incident processing failed", zap.String("incident_id", incident.ID.String()), zap.Error(aerr))
		}
	})

	writeJSON(w, http.StatusCreated, incidentResponse(incident))
}

// list handles GET /incidents with optional status/severity filters and
// pagination.
func (h *incidentHandlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ListFilter{
		Status:   domain.State(q.Get("status")),
		Severity: domain.Severity(q.Get("severity")),
		Limit:    queryInt(q, "limit", 50),
		Offset:   queryInt(q, "offset", 0),
	}
	incidents, err := h.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.ErrValidation, "failed to list incidents"))
		return
	}
	summaries := make([]map[string]any, 0, len(incidents))
	for _, inc := range incidents {
		summaries = append(summaries, incidentResponse(inc))
	}
	writeJSON(w, http.StatusOK, summaries)
}

// get handles GET /incidents/{id}.
func (h *incidentHandlers) get(w http.ResponseWriter, r *http.Request) {
	inc, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, incidentResponse(inc))
}

// del handles DELETE /incidents/{id}.
func (h *incidentHandlers) del(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.store.Get(r.Context(), id); err != nil {
		writeNotFound(w, "incident not found")
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.ErrValidation, "failed to delete incident"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// retry handles POST /incidents/{id}/retry: only FAILED or RESOLVED
// incidents may be retried, matching incidents.py's status guard.
func (h *incidentHandlers) retry(w http.ResponseWriter, r *http.Request) {
	inc, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	if inc.Status != domain.StateFailed && inc.Status != domain.StateResolved {
		writeError(w, apperrors.Newf(apperrors.ErrInvalidStateTransition, "cannot retry incident with status %s", inc.Status))
		return
	}

	h.scheduler.Submit(func(ctx context.Context) {
		if aerr := h.pipeline.Process(ctx, inc); aerr != nil {
			h.logger.Warn("incident retry failed", zap.String("incident_id", inc.ID.String()), zap.Error(aerr))
		}
	})
	writeJSON(w, http.StatusOK, incidentResponse(inc))
}

// feedback handles POST /incidents/{id}/feedback, driving the
// refinement loop.
func (h *incidentHandlers) feedback(w http.ResponseWriter, r *http.Request) {
	inc, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	var body struct {
		Feedback string `json:"feedback" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Feedback == "" {
		writeValidationError(w, "feedback body must include a non-empty \"feedback\" field")
		return
	}
	if h.maxRefinement > 0 && inc.FeedbackIterations >= h.maxRefinement {
		writeError(w, apperrors.Newf(apperrors.ErrMaxRetriesExceeded, "refinement iteration limit (%d) already reached", h.maxRefinement))
		return
	}

	id := inc.ID
	h.scheduler.Submit(func(ctx context.Context) {
		if aerr := h.pipeline.Refine(ctx, id, body.Feedback); aerr != nil {
			h.logger.Warn("incident refinement failed", zap.String("incident_id", id.String()), zap.Error(aerr))
		}
	})
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "refinement_queued", "incident_id": id})
}

// status handles GET /incidents/{id}/status.
func (h *incidentHandlers) status(w http.ResponseWriter, r *http.Request) {
	inc, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	patch, err := h.store.GetLatestPatch(r.Context(), inc.ID)
	if err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.ErrValidation, "failed to load latest patch"))
		return
	}
	var verified any
	if patch != nil {
		verified = patch.Verified
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incident_id":    inc.ID,
		"status":         inc.Status,
		"timeline":       inc.Timeline,
		"pr_url":         inc.LatestPRURL,
		"error_message":  inc.ErrorMessage,
		"latest_verified": verified,
	})
}

// audit handles GET /incidents/{id}/audit.
func (h *incidentHandlers) audit(w http.ResponseWriter, r *http.Request) {
	inc, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	limit := queryInt(r.URL.Query(), "limit", 50)
	events, err := h.audit.GetByIncident(r.Context(), inc.ID, limit)
	if err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.ErrValidation, "failed to load audit log"))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// detective handles GET /incidents/{id}/detective.
func (h *incidentHandlers) detective(w http.ResponseWriter, r *http.Request) {
	inc, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	report, err := h.store.GetDetectiveReport(r.Context(), inc.ID)
	if err != nil || report == nil {
		writeError(w, apperrors.New(apperrors.ErrDetectiveError, "detective report not found"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// reasoner handles GET /incidents/{id}/reasoner.
func (h *incidentHandlers) reasoner(w http.ResponseWriter, r *http.Request) {
	inc, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	patch, err := h.store.GetLatestPatch(r.Context(), inc.ID)
	if err != nil || patch == nil {
		writeError(w, apperrors.New(apperrors.ErrPatchNotFound, "reasoner output not found"))
		return
	}
	writeJSON(w, http.StatusOK, patch)
}

// verifier handles GET /incidents/{id}/verifier.
func (h *incidentHandlers) verifier(w http.ResponseWriter, r *http.Request) {
	inc, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	result, err := h.verifications.GetLatest(r.Context(), inc.ID)
	if err != nil || result == nil {
		writeError(w, apperrors.New(apperrors.ErrVerificationFail, "verification result not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (h *incidentHandlers) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(w, "invalid incident id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *incidentHandlers) loadIncident(w http.ResponseWriter, r *http.Request) (*domain.Incident, bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return nil, false
	}
	inc, err := h.store.Get(r.Context(), id)
	if err != nil || inc == nil {
		writeNotFound(w, "incident not found")
		return nil, false
	}
	return inc, true
}

func queryInt(q map[string][]string, key string, fallback int) int {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return fallback
	}
	n := 0
	for _, c := range vals[0] {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}
