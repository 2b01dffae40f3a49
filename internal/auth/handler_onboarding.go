package auth

import (
	"net/http"
	"strings"
)

func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !h.decodeName(w, r, &req) {
		return
	}

	token, user, err := h.service.Claim(r.Context(), req.FirstName, req.LastName)
	if err != nil {
		h.writeError(w, r, err, withDetail(ErrNotFound, "No account found with that name"))
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{
		OnboardingToken: token,
		FirstName:       user.FirstName,
	})
}

func (h *Handler) OnboardingStatus(w http.ResponseWriter, r *http.Request) {
	status := h.service.OnboardingStatus(mustUser(r))
	writeJSON(w, http.StatusOK, onboardingStatusResponse{
		OnboardingStep: status.Step,
		FirstName:      status.FirstName,
		LastName:       status.LastName,
		Email:          status.Email,
	})
}

func (h *Handler) SetOnboardingEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.SetOnboardingEmail(r.Context(), mustUser(r), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Verification code sent"})
}

func (h *Handler) VerifyOnboardingCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.VerifyOnboardingCode(r.Context(), mustUser(r), req.Code); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified"})
}

func (h *Handler) ResendOnboardingCode(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResendOnboardingCode(r.Context(), mustUser(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "New verification code sent"})
}

func (h *Handler) SetOnboardingPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.service.SetOnboardingPassword(r.Context(), mustUser(r), req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(token))
}

// decodeName trims both names before validating so that blank names are
// rejected.
func (h *Handler) decodeName(w http.ResponseWriter, r *http.Request, req *nameRequest) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := decodeBody(r, req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return false
	}
	req.trim()
	return h.check(w, req)
}

func (n *nameRequest) trim() {
	n.FirstName = strings.TrimSpace(n.FirstName)
	n.LastName = strings.TrimSpace(n.LastName)
}
