package auth

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !h.decodeName(w, r, &req) {
		return
	}

	user, err := h.service.CreateAccount(r.Context(), mustUser(r), NamePair{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountResponses([]*User{user})[0])
}

func (h *Handler) CreateAccounts(w http.ResponseWriter, r *http.Request) {
	var req bulkAccountsRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	for i := range req.Accounts {
		req.Accounts[i].trim()
	}
	if !h.check(w, &req) {
		return
	}

	names := make([]NamePair, 0, len(req.Accounts))
	for _, a := range req.Accounts {
		names = append(names, NamePair{FirstName: a.FirstName, LastName: a.LastName})
	}

	created, skipped, err := h.service.CreateAccounts(r.Context(), mustUser(r), names)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bulkAccountsResponse{
		Created: newAccountResponses(created),
		Skipped: skipped,
	})
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	query := listAccountsQuery{Status: r.URL.Query().Get("status")}
	if !h.check(w, &query) {
		return
	}

	users, err := h.service.ListAccounts(r.Context(), mustUser(r), query.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponses(users))
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Account not found")
		return
	}

	founder := mustUser(r)
	if err := h.service.DeleteAccount(r.Context(), founder, uint(id)); err != nil {
		h.writeError(w, r, err, withDetail(ErrNotFound, "Account not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.Promote(r.Context(), mustUser(r), req.UserID, req.Role)
	if err != nil {
		h.writeError(w, r, err, withDetail(ErrNotFound, "User not found"))
		return
	}
	h.log.Info("promotion applied", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	writeJSON(w, http.StatusOK, messageResponse{Message: "User role updated to " + user.Role})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), mustUser(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}
