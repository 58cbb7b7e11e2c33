package ingress

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/manik3160/NeverDown/pkg/ingress/webhook"
	"github.com/manik3160/NeverDown/pkg/metrics"
	"github.com/manik3160/NeverDown/pkg/publisher"
	"go.uber.org/zap"
)

type webhookHandlers struct {
	store          IncidentStore
	pipeline       Pipeline
	scheduler      Scheduler
	dedup          *webhook.Deduper
	githubSecret   string
	logger         *zap.Logger
}

// verifyGitHubSignature checks the X-Hub-Signature-256 header against an
// HMAC-SHA256 of the raw body, ported from webhooks.py's
// verify_github_signature.
func verifyGitHubSignature(payload []byte, signature, secret string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}
	expected := strings.TrimPrefix(signature, prefix)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	computed := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(computed))
}

// github handles POST /webhooks/github: workflow_run, check_run and
// check_suite completions with conclusion=failure create (or reactivate)
// an incident; everything else is acknowledged but ignored.
func (h *webhookHandlers) github(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeValidationError(w, "failed to read request body")
		return
	}

	if h.githubSecret != "" {
		sig := r.Header.Get("X-Hub-Signature-256")
		if sig == "" || !verifyGitHubSignature(body, sig, h.githubSecret) {
			metrics.RecordWebhookRequest("github", "unauthorized")
			writeError(w, apperrors.New(apperrors.ErrUnauthorizedRepo, "invalid or missing webhook signature"))
			return
		}
	}

	deliveryID := r.Header.Get("X-GitHub-Delivery")
	if h.dedup != nil {
		first, err := h.dedup.SeenFirstTime(r.Context(), "github", deliveryID)
		if err != nil {
			h.logger.Warn("webhook dedup check failed, processing anyway", zap.Error(err))
		} else if !first {
			metrics.RecordWebhookRequest("github", "duplicate")
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate", "delivery_id": deliveryID})
			return
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.RecordWebhookRequest("github", "invalid")
		writeValidationError(w, "invalid JSON payload")
		return
	}

	event := r.Header.Get("X-GitHub-Event")
	switch event {
	case "ping":
		metrics.RecordWebhookRequest("github", "ping")
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "message": "pong"})
	case "push":
		metrics.RecordWebhookRequest("github", "ignored")
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "reason": "push events are not processed"})
	case "workflow_run":
		h.handleRunLike(w, r.Context(), payload, "workflow_run", domain.SeverityHigh)
	case "check_run":
		h.handleRunLike(w, r.Context(), payload, "check_run", domain.SeverityMedium)
	case "check_suite":
		h.handleRunLike(w, r.Context(), payload, "check_suite", domain.SeverityHigh)
	default:
		metrics.RecordWebhookRequest("github", "ignored")
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "github_event": event})
	}
}

// handleRunLike covers workflow_run/check_run/check_suite, which all
// share the same "only act on a completed failure" shape.
func (h *webhookHandlers) handleRunLike(w http.ResponseWriter, ctx context.Context, payload map[string]any, eventKey string, severity domain.Severity) {
	action, _ := payload["action"].(string)
	run, _ := payload[eventKey].(map[string]any)
	conclusion, _ := run["conclusion"].(string)

	if action != "completed" || conclusion != "failure" {
		metrics.RecordWebhookRequest("github", "ignored")
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "reason": "not a failure"})
		return
	}

	repo, _ := payload["repository"].(map[string]any)
	repoURL, _ := repo["html_url"].(string)
	branch, _ := run["head_branch"].(string)
	if branch == "" {
		branch = "main"
	}
	name, _ := run["name"].(string)
	runURL, _ := run["html_url"].(string)

	if existing, err := h.store.FindMostRecentMonitoring(ctx, publisher.CanonicalizeRepoURL(repoURL)); err == nil && existing != nil {
		h.scheduler.Submit(func(bgCtx context.Context) {
			if aerr := h.pipeline.Process(bgCtx, existing); aerr != nil {
				h.logger.Warn("reactivated incident processing failed", zap.String("incident_id", existing.ID.String()), zap.Error(aerr))
			}
		})
		metrics.RecordWebhookRequest("github", "activated")
		writeJSON(w, http.StatusOK, map[string]any{"status": "activated", "incident_id": existing.ID})
		return
	}

	incident := domain.NewIncident(
		"CI Failure: "+name,
		severity,
		domain.SourceCI,
		domain.RepositoryDescriptor{URL: repoURL, Branch: branch},
		"Workflow: "+name+"\nConclusion: failure\nRun URL: "+runURL,
	)
	if err := h.store.Save(ctx, incident); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.ErrValidation, "failed to create incident from webhook"))
		return
	}
	metrics.RecordIngested(string(incident.Source))
	metrics.RecordWebhookRequest("github", "created")
	h.scheduler.Submit(func(bgCtx context.Context) {
		if aerr := h.pipeline.Process(bgCtx, incident); aerr != nil {
			h.logger.Warn("webhook-created incident processing failed", zap.String("incident_id", incident.ID.String()), zap.Error(aerr))
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "created", "incident_id": incident.ID})
}

// datadog handles POST /webhooks/datadog: alert-type events create an
// incident, recoveries are ignored.
func (h *webhookHandlers) datadog(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EventType string   `json:"event_type"`
		Title     string   `json:"title"`
		Body      string   `json:"body"`
		Priority  string   `json:"priority"`
		EventMsg  string   `json:"event_msg"`
		Tags      []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeValidationError(w, "invalid JSON payload")
		return
	}
	eventType := strings.ToLower(payload.EventType)
	if !strings.Contains(eventType, "alert") || strings.Contains(eventType, "recover") {
		metrics.RecordWebhookRequest("datadog", "ignored")
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "reason": "not an alert"})
		return
	}

	severity := domain.SeverityMedium
	if payload.Priority == "P1" {
		severity = domain.SeverityHigh
	}
	title := payload.Title
	if title == "" {
		title = "Datadog Alert"
	}

	incident := domain.NewIncident(title, severity, domain.SourceMonitoring, domain.RepositoryDescriptor{}, payload.EventMsg)
	if err := h.store.Save(r.Context(), incident); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.ErrValidation, "failed to create incident from webhook"))
		return
	}
	metrics.RecordIngested(string(incident.Source))
	metrics.RecordWebhookRequest("datadog", "created")
	h.scheduler.Submit(func(ctx context.Context) {
		if aerr := h.pipeline.Process(ctx, incident); aerr != nil {
			h.logger.Warn("datadog-created incident processing failed", zap.String("incident_id", incident.ID.String()), zap.Error(aerr))
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "created", "incident_id": incident.ID})
}
