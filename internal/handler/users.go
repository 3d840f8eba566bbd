package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pavelanni/academy/internal/auth"
	"github.com/pavelanni/academy/internal/model"
)

// bcrypt ignores input beyond this many bytes.
const maxPasswordBytes = 72

type registerRequest struct {
	Email    string         `json:"email" validate:"required,email,max=255"`
	FullName string         `json:"full_name" validate:"required,max=255"`
	Password string         `json:"password" validate:"required,min=8,max=72"`
	Role     model.UserRole `json:"role" validate:"omitempty,oneof=methodist student"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(req.Password) > maxPasswordBytes {
		h.writeError(w, r, model.Invalid("FieldInvalid", "password is too long",
			map[string]any{"Field": "password", "Rule": "max=72"}))
		return
	}
	if req.Role == "" {
		req.Role = model.UserRoleStudent
	}
	if req.Role == model.UserRoleMethodist && !h.config.AllowMethodistSignup {
		h.writeError(w, r, forbidden("MethodistSignupDisabled"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.store.CreateUser(r.Context(), model.User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         req.Role,
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			err = &apiError{kind: model.ErrConflict, msgID: "EmailTaken"}
		}
		h.writeError(w, r, err)
		return
	}
	user, err := h.store.GetUserByID(r.Context(), id)
	if err == nil && user == nil {
		err = fmt.Errorf("user %d missing after insert", id)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	token, _, err := h.tokens.Login(r.Context(), h.store, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.tokens.TTL().Seconds()),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.UserFromContext(r.Context()))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	users, err := h.store.ListUsers(r.Context(), skip, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if user == nil {
		h.writeError(w, r, notFound("UserNotFound"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
