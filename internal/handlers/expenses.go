package handlers

import (
	"net/http"
	"strconv"

	"expense-api/internal/middleware"
	"expense-api/internal/models"
)

const (
	defaultLimit = 100
	maxLimit     = 100
)

// ListExpenses handles GET /expenses?skip=&limit=
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	rc := GetRequestContext(r)

	skip, err := queryInt(r, "skip", 0)
	if err == nil && skip < 0 {
		err = models.Invalid("skip", "must be greater than or equal to 0")
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	limit, err := queryInt(r, "limit", defaultLimit)
	if err == nil && (limit < 1 || limit > maxLimit) {
		err = models.Invalid("limit", "must be between 1 and %d", maxLimit)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	expenses, err := rc.Store.ListExpenses(r.Context(), rc.UserID, skip, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, expenses)
}

// CreateExpense handles POST /expenses
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	rc := GetRequestContext(r)

	var req models.ExpenseCreate
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	expense, err := rc.Store.CreateExpense(r.Context(), rc.UserID, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, expense)
}

// GetExpense handles GET /expenses/{id}
func (h *Handlers) GetExpense(w http.ResponseWriter, r *http.Request) {
	rc := GetRequestContext(r)

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	expense, err := rc.Store.GetExpense(r.Context(), rc.UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, expense)
}

// UpdateExpense handles PUT /expenses/{id}
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	rc := GetRequestContext(r)

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req models.ExpenseUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	expense, err := rc.Store.UpdateExpense(r.Context(), rc.UserID, id, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, expense)
}

// DeleteExpense handles DELETE /expenses/{id}
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	rc := GetRequestContext(r)

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := rc.Store.DeleteExpense(r.Context(), rc.UserID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} segment. A malformed id cannot name an expense,
// so it is reported as not found.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, models.ErrNotFound
	}
	return id, nil
}

func queryInt(r *http.Request, key string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.Invalid(key, "must be an integer")
	}
	return n, nil
}
