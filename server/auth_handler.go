package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"Playly/core/auth"
	"Playly/logger"
	"Playly/model"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// RegisterHandler creates a new user account.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}

	if existing, err := h.userRepo.GetUserByUsername(r.Context(), req.Username); err != nil {
		respondError(w, err)
		return
	} else if existing != nil {
		respondMessage(w, http.StatusBadRequest, "Username already exists")
		return
	}
	if existing, err := h.userRepo.GetUserByEmail(r.Context(), req.Email); err != nil {
		respondError(w, err)
		return
	} else if existing != nil {
		respondMessage(w, http.StatusBadRequest, "Email already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("Failed to hash password", logger.ErrorField(err))
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	id, err := h.userRepo.CreateUser(r.Context(), user)
	if err != nil {
		respondError(w, err)
		return
	}
	user.ID = id

	token, err := h.tokens.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		logger.Error("Failed to issue token", logger.ErrorField(err))
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	logger.Info("User registered",
		logger.Int64("userID", user.ID),
		logger.String("username", user.Username))
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// LoginHandler authenticates a user by email or username and returns an
// access token.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Password == "" || (req.Username == "" && req.Email == "") {
		respondMessage(w, http.StatusBadRequest, "Email or username and password are required")
		return
	}

	user, err := h.lookupLoginUser(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		respondMessage(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		logger.Error("Failed to issue token", logger.ErrorField(err))
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	logger.Info("User logged in", logger.Int64("userID", user.ID))
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// lookupLoginUser resolves the login credential to a user. An explicit
// email field wins; an identifier carrying an "@" is tried as an email
// first, then as a username.
func (h *APIHandler) lookupLoginUser(ctx context.Context, req loginRequest) (*model.User, error) {
	if req.Email != "" {
		return h.userRepo.GetUserByEmail(ctx, req.Email)
	}
	if strings.Contains(req.Username, "@") {
		user, err := h.userRepo.GetUserByEmail(ctx, req.Username)
		if err != nil || user != nil {
			return user, err
		}
	}
	return h.userRepo.GetUserByUsername(ctx, req.Username)
}
