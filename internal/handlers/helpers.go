// -----------------------------------------------------------------------
// Handler Helpers - JSON envelopes, validation, request context
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/webpeel/webpeel/internal/models"
)

// Error types returned in the error envelope
const (
	ErrInvalidRequest   = "invalid_request"
	ErrInvalidURL       = "invalid_url"
	ErrAuthRequired     = "authentication_required"
	ErrInvalidKey       = "invalid_key"
	ErrBurstLimit       = "burst_limit_exceeded"
	ErrTimeout          = "timeout"
	ErrNotFound         = "not_found"
	ErrExtractionFailed = "extraction_failed"
	ErrLLMAuth          = "llm_auth_failed"
	ErrLLMRateLimited   = "llm_rate_limited"
	ErrInternal         = "internal_error"
)

const maxRequestBody = 1 << 20

var validate = validator.New()

// errorBody is the error half of the response envelope
type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
	Docs    string `json:"docs,omitempty"`
}

type errorEnvelope struct {
	Success   bool      `json:"success"`
	Error     errorBody `json:"error"`
	RequestID string    `json:"requestId,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteAPIError writes the standard error envelope
func WriteAPIError(w http.ResponseWriter, r *http.Request, statusCode int, errType, message, hint string) {
	WriteJSON(w, statusCode, errorEnvelope{
		Success: false,
		Error: errorBody{
			Type:    errType,
			Message: message,
			Hint:    hint,
		},
		RequestID: RequestIDFrom(r.Context()),
	})
}

// RequireMethod validates the HTTP method, writing a 405 envelope otherwise
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	WriteAPIError(w, r, http.StatusMethodNotAllowed, ErrInvalidRequest,
		fmt.Sprintf("method %s not allowed", r.Method), "")
	return false
}

// DecodeBody decodes and validates a JSON request body
func DecodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest, "failed to read request body", "")
		return false
	}
	if len(body) == 0 {
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest, "request body is required", "")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest,
			fmt.Sprintf("invalid JSON: %v", err), "")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest,
			fmt.Sprintf("validation failed: %v", err), "")
		return false
	}
	return true
}

// Context keys set by the server middleware
type contextKey string

const (
	ctxRequestID contextKey = "request_id"
	ctxAPIKey    contextKey = "api_key"
	ctxDecision  contextKey = "quota_decision"
	ctxUsage     contextKey = "usage_escalation"
)

// WithRequestID stores the request ID in the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

// RequestIDFrom returns the request ID, or ""
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

// WithAPIKey stores the authenticated key in the context
func WithAPIKey(ctx context.Context, key *models.APIKey) context.Context {
	return context.WithValue(ctx, ctxAPIKey, key)
}

// APIKeyFrom returns the authenticated key, or nil
func APIKeyFrom(ctx context.Context) *models.APIKey {
	key, _ := ctx.Value(ctxAPIKey).(*models.APIKey)
	return key
}

// WithDecision stores the quota decision in the context
func WithDecision(ctx context.Context, decision *models.QuotaDecision) context.Context {
	return context.WithValue(ctx, ctxDecision, decision)
}

// DecisionFrom returns the quota decision, or nil
func DecisionFrom(ctx context.Context) *models.QuotaDecision {
	decision, _ := ctx.Value(ctxDecision).(*models.QuotaDecision)
	return decision
}

// usageEscalation carries a billed-class upgrade decided after the fetch
// outcome is known. The quota middleware installs it before the handler
// runs and reads it back at commit time.
type usageEscalation struct {
	mu    sync.Mutex
	class models.UsageClass
}

// WithUsageEscalation installs an empty escalation slot in the context
func WithUsageEscalation(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxUsage, &usageEscalation{})
}

// EscalateUsage upgrades the billed class for the current request. No-op
// when no escalation slot is installed.
func EscalateUsage(ctx context.Context, class models.UsageClass) {
	esc, _ := ctx.Value(ctxUsage).(*usageEscalation)
	if esc == nil {
		return
	}
	esc.mu.Lock()
	esc.class = class
	esc.mu.Unlock()
}

// EscalatedUsage returns the upgraded class, or "" when untouched
func EscalatedUsage(ctx context.Context) models.UsageClass {
	esc, _ := ctx.Value(ctxUsage).(*usageEscalation)
	if esc == nil {
		return ""
	}
	esc.mu.Lock()
	defer esc.mu.Unlock()
	return esc.class
}

// ApplySoftLimit downgrades request options when the quota decision says
// so, stamping the degradation headers.
func ApplySoftLimit(w http.ResponseWriter, r *http.Request, opts *models.RequestOptions) *models.RequestOptions {
	decision := DecisionFrom(r.Context())
	if decision == nil || !decision.SoftLimited {
		return opts
	}
	w.Header().Set("X-Soft-Limited", "true")
	if opts != nil {
		var dropped []string
		if opts.Render {
			dropped = append(dropped, "render")
		}
		if opts.Stealth {
			dropped = append(dropped, "stealth")
		}
		if opts.Wait > 0 {
			dropped = append(dropped, "wait")
		}
		if len(opts.Actions) > 0 {
			dropped = append(dropped, "actions")
		}
		if len(dropped) > 0 {
			w.Header().Set("X-Degraded", "weekly limit reached, disabled: "+strings.Join(dropped, ","))
		}
	}
	return opts.Downgraded()
}
