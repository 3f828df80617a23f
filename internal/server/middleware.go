// -----------------------------------------------------------------------
// Server Middleware - request IDs, auth, quota enforcement, recovery
// -----------------------------------------------------------------------

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/handlers"
	"github.com/webpeel/webpeel/internal/models"
)

// withMiddleware wraps the router with the middleware chain. Applied in
// reverse order: last applied runs first.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = s.quotaMiddleware(handler)
	handler = s.authMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = s.requestIDMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	return handler
}

// publicPath reports whether a path skips auth and quota
func publicPath(path string) bool {
	return path == "/health" || path == "/openapi.yaml" || path == "/"
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = common.NewRequestID()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(handlers.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origins := "*"
	if len(s.app.Config.Server.CORSOrigins) > 0 {
		origins = strings.Join(s.app.Config.Server.CORSOrigins, ", ")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.app.Logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.app.Logger.Error().
					Str("error", fmt.Sprintf("%v", err)).
					Str("path", r.URL.Path).
					Msg("Panic recovered")
				handlers.WriteAPIError(w, r, http.StatusInternalServerError,
					handlers.ErrInternal, "internal server error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware resolves the Bearer key to its stored SHA-256 hash. Keys
// are never persisted in plaintext.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPath(r.URL.Path) || s.app.Config.Quota.DisableQuota {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			handlers.WriteAPIError(w, r, http.StatusUnauthorized, handlers.ErrAuthRequired,
				"missing Authorization header", "Pass your API key as: Authorization: Bearer wp_...")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || !strings.HasPrefix(token, models.APIKeyPrefix) {
			handlers.WriteAPIError(w, r, http.StatusUnauthorized, handlers.ErrInvalidKey,
				"malformed API key", "Keys start with wp_")
			return
		}

		key, err := s.app.StorageManager.APIKeys().GetKeyByHash(r.Context(), models.HashAPIKey(token))
		if err != nil || key == nil {
			handlers.WriteAPIError(w, r, http.StatusUnauthorized, handlers.ErrInvalidKey,
				"unknown or revoked API key", "")
			return
		}
		if terr := s.app.StorageManager.APIKeys().TouchKey(r.Context(), key.ID); terr != nil {
			s.app.Logger.Warn().Err(terr).Str("key_id", key.ID).Msg("Key touch failed")
		}
		next.ServeHTTP(w, r.WithContext(handlers.WithAPIKey(r.Context(), key)))
	})
}

// quotaMiddleware enforces burst and weekly limits and stamps the usage
// headers on every authenticated response.
func (s *Server) quotaMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := handlers.APIKeyFrom(r.Context())
		if key == nil {
			next.ServeHTTP(w, r)
			return
		}

		class := s.classify(r)
		decision, err := s.app.Quota.Check(r.Context(), key, class)
		if err != nil {
			handlers.WriteAPIError(w, r, http.StatusInternalServerError, handlers.ErrInternal,
				"quota check failed", "")
			return
		}
		writeQuotaHeaders(w, decision)

		if decision.HardBlocked {
			w.Header().Set("Retry-After", strconv.Itoa(decision.Burst.ResetsIn))
			handlers.WriteAPIError(w, r, http.StatusTooManyRequests, handlers.ErrBurstLimit,
				fmt.Sprintf("hourly burst limit of %d requests exceeded", decision.Burst.Limit),
				"Wait for the burst window to reset or spread requests out")
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		ctx := handlers.WithDecision(r.Context(), decision)
		ctx = handlers.WithUsageEscalation(ctx)
		next.ServeHTTP(rw, r.WithContext(ctx))

		// Handlers may upgrade the class once the fetch outcome is known,
		// e.g. a challenge bypass bills as a captcha solve
		if escalated := handlers.EscalatedUsage(ctx); escalated != "" {
			class = escalated
		}
		if rw.statusCode < http.StatusInternalServerError {
			if cerr := s.app.Quota.Commit(r.Context(), key, class, decision); cerr != nil {
				s.app.Logger.Warn().Err(cerr).Str("key_id", key.ID).Msg("Quota commit failed")
			}
		}
		s.appendUsageLog(r, key, class, rw.statusCode, time.Since(start))
	})
}

// classify picks the usage class for billing. POST bodies are sniffed and
// restored so handlers can still decode them.
func (s *Server) classify(r *http.Request) models.UsageClass {
	if strings.HasPrefix(r.URL.Path, "/v1/search") {
		return models.UsageSearch
	}
	if r.Method == http.MethodGet {
		if r.URL.Query().Get("stealth") == "true" {
			return models.UsageStealth
		}
		return models.UsageBasic
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return models.UsageBasic
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var probe struct {
		Stealth bool `json:"stealth"`
	}
	if json.Unmarshal(body, &probe) == nil && probe.Stealth {
		return models.UsageStealth
	}
	return models.UsageBasic
}

func (s *Server) appendUsageLog(r *http.Request, key *models.APIKey, class models.UsageClass, status int, elapsed time.Duration) {
	log := &models.UsageLog{
		ID:         common.NewRequestID(),
		APIKeyID:   key.ID,
		Endpoint:   r.URL.Path,
		Class:      class,
		StatusCode: status,
		ElapsedMs:  elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.app.StorageManager.UsageLogs().AppendUsageLog(r.Context(), log); err != nil {
		s.app.Logger.Warn().Err(err).Msg("Usage log append failed")
	}
}

func writeQuotaHeaders(w http.ResponseWriter, decision *models.QuotaDecision) {
	h := w.Header()
	h.Set("X-Burst-Limit", strconv.Itoa(decision.Burst.Limit))
	h.Set("X-Burst-Used", strconv.Itoa(decision.Burst.Count))
	h.Set("X-Burst-Remaining", strconv.Itoa(decision.Burst.Remaining))

	h.Set("X-Weekly-Limit", strconv.Itoa(decision.Weekly.Limit))
	h.Set("X-Weekly-Used", strconv.Itoa(decision.Weekly.Used))
	h.Set("X-Weekly-Remaining", strconv.Itoa(decision.Weekly.Remaining))
	h.Set("X-Weekly-Percent", strconv.FormatFloat(decision.Weekly.PercentUsed, 'f', 1, 64))
	h.Set("X-Weekly-Resets-At", decision.Weekly.ResetsAt.Format(time.RFC3339))

	if decision.Extra.Enabled {
		h.Set("X-Extra-Usage-Enabled", "true")
		h.Set("X-Extra-Usage-Balance", strconv.FormatFloat(decision.Extra.Balance, 'f', 3, 64))
		h.Set("X-Extra-Usage-Spent", strconv.FormatFloat(decision.Extra.Spent, 'f', 3, 64))
		h.Set("X-Extra-Usage-Limit", strconv.FormatFloat(decision.Extra.SpendingLimit, 'f', 2, 64))
	}
}

// responseWriter captures the status code for logging and quota commit
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush passes through so SSE streaming keeps working behind the wrapper
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
