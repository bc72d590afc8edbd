package httpx

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopico/shop-api/internal/users"
)

// UsersHandler is the admin-only user management surface.
type UsersHandler struct {
	Store *users.Store
}

func (h *UsersHandler) Register(r chi.Router, a *Auth) {
	r.Use(a.Authenticate, RequireAdmin)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Put("/{id}/role", h.updateRole)
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *UsersHandler) get(w http.ResponseWriter, r *http.Request) {
	u, err := h.Store.ByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type updateUserReq struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role"`
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateUserReq
	if !decodeJSON(w, r, &req) {
		return
	}

	var role users.Role
	if req.Role != "" {
		var err error
		role, err = users.ParseRole(req.Role)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid role")
			return
		}
	}

	u, err := h.Store.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.Email, role)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User removed"})
}

type updateRoleReq struct {
	Role string `json:"role" validate:"required"`
}

func (h *UsersHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleReq
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := users.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	u, err := h.Store.UpdateRole(r.Context(), chi.URLParam(r, "id"), role)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, u)
}
