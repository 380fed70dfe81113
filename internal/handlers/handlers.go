package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"slices"

	"expense-api/internal/auth"
	"expense-api/internal/logger"
	"expense-api/internal/middleware"
	"expense-api/internal/models"
	"expense-api/internal/storage"
)

// Context key type to avoid collisions.
type contextKey string

// RequestContextKey is the context key for the authenticated request scope.
const RequestContextKey contextKey = "request"

const maxBodyBytes = 1 << 20

// RequestContext is built once per authenticated request. Store is a
// connection dedicated to the request and released when it ends.
type RequestContext struct {
	UserID int64
	Store  *storage.Session
}

// ServiceInfo describes the running service.
type ServiceInfo struct {
	Name      string
	Version   string
	APIPrefix string
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db       *storage.DB
	verifier *auth.Verifier
	info     ServiceInfo
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, verifier *auth.Verifier, info ServiceInfo) *Handlers {
	return &Handlers{db: db, verifier: verifier, info: info}
}

// Register adds all service routes to mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	prefix := h.info.APIPrefix

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET "+prefix+"/health", h.Health)

	mux.Handle("GET "+prefix+"/expenses", h.Authenticated(h.ListExpenses))
	mux.Handle("POST "+prefix+"/expenses", h.Authenticated(h.CreateExpense))
	mux.Handle("GET "+prefix+"/expenses/{id}", h.Authenticated(h.GetExpense))
	mux.Handle("PUT "+prefix+"/expenses/{id}", h.Authenticated(h.UpdateExpense))
	mux.Handle("DELETE "+prefix+"/expenses/{id}", h.Authenticated(h.DeleteExpense))
}

// GetRequestContext retrieves the authenticated request scope.
func GetRequestContext(r *http.Request) *RequestContext {
	if rc, ok := r.Context().Value(RequestContextKey).(*RequestContext); ok {
		return rc
	}
	return nil
}

// Authenticated verifies the bearer token, acquires a database session for
// the lifetime of the request and hands both to next.
func (h *Handlers) Authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		userID, err := h.verifier.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			log.Debug().Err(err).Msg("Authentication failed")
			h.writeError(w, r, err)
			return
		}

		session, err := h.db.Session(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		defer func() {
			if err := session.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to release database session")
			}
		}()

		ctx := context.WithValue(r.Context(), RequestContextKey, &RequestContext{UserID: userID, Store: session})
		ctx = logger.WithContext(ctx, logger.WithFields(log, map[string]interface{}{
			"user_id": userID,
			"route":   r.Pattern,
		}))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Root describes the service.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"service": h.info.Name,
		"version": h.info.Version,
		"api":     h.info.APIPrefix,
	})
}

// writeError maps domain errors onto HTTP responses. Anything unrecognised
// is logged and reported as a generic server error.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.WriteFieldError(w, http.StatusBadRequest, verr.Field, verr.Error())
	case errors.Is(err, models.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON decodes a JSON object into dst one key at a time, so a value
// that fails to parse is reported against its own field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return models.Invalid("body", "invalid JSON: %v", err)
	}

	for _, key := range slices.Sorted(maps.Keys(fields)) {
		single, err := json.Marshal(map[string]json.RawMessage{key: fields[key]})
		if err != nil {
			return models.Invalid(key, "invalid value: %v", err)
		}
		if err := json.Unmarshal(single, dst); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return models.Invalid(key, "invalid value of JSON type %s", typeErr.Value)
			}
			return models.Invalid(key, "invalid value: %v", err)
		}
	}
	return nil
}
