package httpx

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopico/shop-api/internal/auth"
	"github.com/shopico/shop-api/internal/users"
)

type AuthHandler struct {
	Svc *auth.Service
}

func (h *AuthHandler) Register(r chi.Router, a *Auth) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Post("/reset-password", h.resetPassword)
	r.Post("/refresh-token", h.refreshToken)
	r.With(a.Authenticate).Get("/me", h.me)
}

type registerReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type authResp struct {
	ID           string     `json:"_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         users.Role `json:"role"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decodeJSON(w, r, &req) {
		return
	}

	u, pair, err := h.Svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "User already exists")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, authResp{
		ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
		Token: pair.Access, RefreshToken: pair.Refresh,
	})
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}

	u, pair, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, authResp{
		ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
		Token: pair.Access, RefreshToken: pair.Refresh,
	})
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *AuthHandler) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.Svc.RefreshPair(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefresh) {
			writeError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":      "Token refreshed successfully",
		"token":        pair.Access,
		"refreshToken": pair.Refresh,
	})
}

type logoutReq struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	var req logoutReq
	// Body is optional; a bare logout still succeeds.
	_ = decodeBody(r, &req)
	if req.RefreshToken != "" {
		h.Svc.Logout(r.Context(), req.RefreshToken)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

type resetPasswordReq struct {
	Email           string `json:"email" validate:"required,email"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordReq
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Svc.ResetPassword(r.Context(), req.Email, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Current password is incorrect")
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
	}
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}
