package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pigeonworks-llc/firefly-sync/pkg/emulator/store"
	"github.com/pigeonworks-llc/firefly-sync/pkg/firefly"
)

// TransactionsHandler handles transaction-related API endpoints.
type TransactionsHandler struct {
	store   *store.Store
	perPage int
}

// NewTransactionsHandler creates a new TransactionsHandler.
func NewTransactionsHandler(s *store.Store, perPage int) *TransactionsHandler {
	return &TransactionsHandler{store: s, perPage: perPage}
}

// List handles GET /api/v1/transactions with optional start and end dates.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	start, end := query.Get("start"), query.Get("end")
	for field, value := range map[string]string{"start": start, "end": end} {
		if value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			writeJSONError(w, http.StatusUnprocessableEntity, "The given data was invalid.", map[string][]string{
				field: {"The " + field + " is not a valid date."},
			})
			return
		}
	}

	groups, err := h.store.ListTransactions(start, end)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to list transactions.", nil)
		return
	}

	data, meta := paginate(groups, page, h.perPage)
	writeJSON(w, http.StatusOK, firefly.TransactionArray{Data: data, Meta: meta})
}

// Get handles GET /api/v1/transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := store.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Resource not found", nil)
		return
	}

	group, err := h.store.GetTransaction(id)
	if err != nil {
		writeStoreError(w, err, "Failed to get transaction.")
		return
	}
	writeJSON(w, http.StatusOK, firefly.TransactionSingle{Data: *group})
}

// Create handles POST /api/v1/transactions.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req firefly.TransactionStore
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}

	group, err := h.store.CreateTransaction(req)
	if err != nil {
		writeStoreError(w, err, "Failed to create transaction.")
		return
	}
	writeJSON(w, http.StatusOK, firefly.TransactionSingle{Data: *group})
}

// Update handles PUT /api/v1/transactions/{id}.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := store.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Resource not found", nil)
		return
	}

	var req firefly.TransactionUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}

	group, err := h.store.UpdateTransaction(id, req)
	if err != nil {
		writeStoreError(w, err, "Failed to update transaction.")
		return
	}
	writeJSON(w, http.StatusOK, firefly.TransactionSingle{Data: *group})
}

// Delete handles DELETE /api/v1/transactions/{id}.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := store.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Resource not found", nil)
		return
	}

	if err := h.store.DeleteTransaction(id); err != nil {
		writeStoreError(w, err, "Failed to delete transaction.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
