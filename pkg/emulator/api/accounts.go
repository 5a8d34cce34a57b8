package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pigeonworks-llc/firefly-sync/pkg/emulator/store"
	"github.com/pigeonworks-llc/firefly-sync/pkg/firefly"
)

// AccountsHandler handles account-related API endpoints.
type AccountsHandler struct {
	store   *store.Store
	perPage int
}

// NewAccountsHandler creates a new AccountsHandler.
func NewAccountsHandler(s *store.Store, perPage int) *AccountsHandler {
	return &AccountsHandler{store: s, perPage: perPage}
}

// List handles GET /api/v1/accounts.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	accounts, err := h.store.ListAccounts(r.URL.Query().Get("type"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to list accounts.", nil)
		return
	}

	data, meta := paginate(accounts, page, h.perPage)
	writeJSON(w, http.StatusOK, firefly.AccountArray{Data: data, Meta: meta})
}

// Get handles GET /api/v1/accounts/{id}.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := store.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Resource not found", nil)
		return
	}

	account, err := h.store.GetAccount(id)
	if err != nil {
		writeStoreError(w, err, "Failed to get account.")
		return
	}
	writeJSON(w, http.StatusOK, firefly.AccountSingle{Data: *account})
}

// Create handles POST /api/v1/accounts.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req firefly.AccountStore
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}

	account, err := h.store.CreateAccount(req)
	if err != nil {
		writeStoreError(w, err, "Failed to create account.")
		return
	}
	writeJSON(w, http.StatusOK, firefly.AccountSingle{Data: *account})
}

// writeStoreError maps store errors to API errors.
func writeStoreError(w http.ResponseWriter, err error, message string) {
	var vErr *store.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSONError(w, http.StatusUnprocessableEntity, vErr.Message, map[string][]string{
			vErr.Field: {vErr.Message},
		})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidID):
		writeJSONError(w, http.StatusNotFound, "Resource not found", nil)
	default:
		writeJSONError(w, http.StatusInternalServerError, message, nil)
	}
}

// pageParam parses the 1-based page query parameter.
func pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	s := r.URL.Query().Get("page")
	if s == "" {
		return 1, true
	}
	page, err := strconv.Atoi(s)
	if err != nil || page < 1 {
		writeJSONError(w, http.StatusBadRequest, "Invalid page.", nil)
		return 0, false
	}
	return page, true
}

// paginate returns one page of items and the matching meta block.
func paginate[T any](items []T, page, perPage int) ([]T, firefly.Meta) {
	total := len(items)
	totalPages := max((total+perPage-1)/perPage, 1)

	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)
	data := items[start:end]
	if data == nil {
		data = []T{}
	}

	return data, firefly.Meta{Pagination: firefly.Pagination{
		Total:       total,
		Count:       len(data),
		PerPage:     perPage,
		CurrentPage: page,
		TotalPages:  totalPages,
	}}
}
