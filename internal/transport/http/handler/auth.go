package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/smartprep/auth-api/internal/application/auth"
	"github.com/smartprep/auth-api/internal/domain"
	"github.com/smartprep/auth-api/internal/pkg/validate"
	"github.com/smartprep/auth-api/internal/transport/http/middleware"
)

// AuthHandler handles the OTP registration and login endpoints.
type AuthHandler struct {
	svc    auth.Service
	otpTTL time.Duration
}

func NewAuthHandler(svc auth.Service, otpTTL time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, otpTTL: otpTTL}
}

func (h *AuthHandler) SendOtp(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.svc.RequestOtp(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "OTP sent successfully to your email", map[string]interface{}{
		"email":         req.Email,
		"expiryMinutes": int(h.otpTTL.Minutes()),
	})
}

func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fullname, err := h.svc.ConfirmOtp(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "OTP verified successfully. You can now complete your registration.", map[string]interface{}{
		"email":    req.Email,
		"fullname": fullname,
		"verified": true,
	})
}

func (h *AuthHandler) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req domain.CompleteRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, token, err := h.svc.CompleteRegistration(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Registration completed successfully", map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, token, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := h.svc.Profile(r.Context(), claims.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Profile retrieved successfully", map[string]interface{}{
		"user": user,
	})
}
