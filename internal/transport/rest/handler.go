// Package rest provides HTTP handlers for the webhook, verification and
// admin surfaces.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	gumerrors "github.com/mbocharov/gumhook/internal/errors"
	"github.com/mbocharov/gumhook/internal/service"
	"github.com/mbocharov/gumhook/internal/store"
	"github.com/mbocharov/gumhook/pkg/web"
)

type Handler struct {
	service    service.SubscriberService
	adminToken string
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewHandler creates a new instance of the subscriber API with the provided service.
func NewHandler(svc service.SubscriberService, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{
		service:    svc,
		adminToken: adminToken,
		validate:   validator.New(),
		logger:     logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the subscriber service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Post("/webhook/gumroad", h.Webhook)

	r.Route("/verify", func(r chi.Router) {
		r.Get("/{email}", h.VerifyAny)
		r.Get("/{product}/{email}", h.Verify)
	})

	r.Group(func(r chi.Router) {
		r.Use(web.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/subscribers", h.ListSubscribers)
		r.Post("/subscribers/add", h.AddSubscriber)
		r.Post("/subscribers/remove", h.RemoveSubscriber)
	})
}

// Root returns the service descriptor.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"service": "gumhook",
		"status":  "running",
		"endpoints": []string{
			"POST /webhook/gumroad",
			"GET /health",
			"GET /verify/{email}",
			"GET /verify/{product}/{email}",
			"GET /subscribers",
			"POST /subscribers/add",
			"POST /subscribers/remove",
		},
	})
}

// Webhook handles an inbound Gumroad purchase/subscription lifecycle event.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	fields, err := parseWebhookPayload(r)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Unreadable webhook payload", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), fields)
	if err != nil {
		switch {
		case errors.Is(err, gumerrors.ErrMissingEmail):
			mLogger.WarnContext(r.Context(), "Webhook without email")
			web.RespondError(w, mLogger, http.StatusBadRequest, "No email in webhook payload")
		case errors.Is(err, gumerrors.ErrUntrustedSender):
			mLogger.WarnContext(r.Context(), "Webhook from unexpected seller")
			web.RespondError(w, mLogger, http.StatusForbidden, "Seller verification failed")
		default:
			mLogger.ErrorContext(r.Context(), "Failed to process webhook", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to persist subscriber change")
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Webhook processed",
		"product", result.Product, "action", result.Action, "changed", result.Changed)
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}

// Verify checks membership of an email in one product's subscriber set.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	product := chi.URLParam(r, "product")
	email := chi.URLParam(r, "email")

	result, err := h.service.Verify(r.Context(), product, email)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error verifying subscriber", "product", product, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to verify subscriber")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}

// VerifyAny checks membership across all registered products (legacy unscoped form).
func (h *Handler) VerifyAny(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	email := chi.URLParam(r, "email")

	result, err := h.service.VerifyAny(r.Context(), email)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error verifying subscriber", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to verify subscriber")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}

// ListSubscribers returns every registered product's current subscriber list.
func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	all, err := h.service.ListAll(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error listing subscribers", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to list subscribers")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{"subscribers": all})
}

// subscriberMutationDto is the body of manual add/remove requests.
type subscriberMutationDto struct {
	Email   string `json:"email"   validate:"required,email"`
	Product string `json:"product" validate:"required"`
}

// AddSubscriber directly inserts a subscriber, bypassing event interpretation.
func (h *Handler) AddSubscriber(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	dto, ok := h.decodeMutation(w, r, mLogger)
	if !ok {
		return
	}

	added, err := h.service.Add(r.Context(), dto.Product, dto.Email)
	if err != nil {
		if errors.Is(err, gumerrors.ErrMissingParameter) {
			web.RespondError(w, mLogger, http.StatusBadRequest, "Both email and product are required")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error adding subscriber", "product", dto.Product, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to add subscriber")
		return
	}
	mLogger.InfoContext(r.Context(), "Subscriber added manually", "product", dto.Product, "added", added)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"success": true,
		"added":   added,
		"product": dto.Product,
		"email":   store.NormalizeEmail(dto.Email),
	})
}

// RemoveSubscriber directly deletes a subscriber, bypassing event interpretation.
func (h *Handler) RemoveSubscriber(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	dto, ok := h.decodeMutation(w, r, mLogger)
	if !ok {
		return
	}

	removed, err := h.service.Remove(r.Context(), dto.Product, dto.Email)
	if err != nil {
		if errors.Is(err, gumerrors.ErrMissingParameter) {
			web.RespondError(w, mLogger, http.StatusBadRequest, "Both email and product are required")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error removing subscriber", "product", dto.Product, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to remove subscriber")
		return
	}
	mLogger.InfoContext(r.Context(), "Subscriber removed manually", "product", dto.Product, "removed", removed)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"success": true,
		"removed": removed,
		"product": dto.Product,
		"email":   store.NormalizeEmail(dto.Email),
	})
}

// Health is a side-effect-free diagnostic snapshot.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	snapshot, err := h.service.Health(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error building health snapshot", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to build health snapshot")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, snapshot)
}

// decodeMutation decodes and validates a manual add/remove body.
func (h *Handler) decodeMutation(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (*subscriberMutationDto, bool) {
	var dto subscriberMutationDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		mLogger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return nil, false
		}
		mLogger.WarnContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return &dto, true
}

// parseWebhookPayload flattens the inbound payload into a string field map.
// Gumroad pings are form-encoded; JSON bodies are accepted as well since
// resends from test tooling commonly use them. Unknown fields pass through
// untouched, webhook senders cannot be renegotiated with after the fact.
func parseWebhookPayload(r *http.Request) (map[string]string, error) {
	fields := make(map[string]string)

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		for key, value := range raw {
			fields[key] = stringifyField(value)
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields, nil
}

// stringifyField renders a decoded JSON value the way it would arrive in a
// form payload, so the interpreter sees one representation.
func stringifyField(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
