package main

import (
	"log"
	"net/http"
	"strings"

	"ultradianService/internal/auth"
)

func NewAuthHandler(authRepo auth.AuthRepository) *AuthHandler {
	return &AuthHandler{authRepo: authRepo}
}

type AuthHandler struct {
	authRepo auth.AuthRepository
}

func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, auth.NewUserFromRequest)
}

// RegisterAdminUser creates a user with the admin role.
// WARNING: development/testing only - disable in production.
func (h *AuthHandler) RegisterAdminUser(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, auth.NewAdminUserFromRequest)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, build func(*auth.NewUserRequest) *auth.User) {
	var req auth.NewUserRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Password) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "username, password and email are required")
		return
	}

	user := build(&req)
	if err := h.authRepo.CreateUser(user); err != nil {
		log.Printf("Failed to create user %s: %v", req.Username, err)
		writeError(w, registrationStatus(err), err.Error())
		return
	}

	token, err := auth.GenerateJWT(user)
	if err != nil {
		log.Printf("Failed to generate JWT token: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user": auth.UserRegistrationResponse{
			ID:       *user.ID,
			Username: *user.Username,
			Email:    *user.Email,
			Role:     *user.Role,
		},
		"token": token,
	})
}

// registrationStatus maps repository validation failures onto HTTP codes.
func registrationStatus(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "already exists"):
		return http.StatusConflict
	case strings.Contains(msg, "invalid email") || strings.Contains(msg, "required"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var creds auth.UserLoginCredentials
	if !readJSON(w, r, &creds) {
		return
	}
	if strings.TrimSpace(creds.Username) == "" || strings.TrimSpace(creds.Password) == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	authenticated, err := h.authRepo.AuthenticateUser(&creds)
	if err != nil || !authenticated {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	user, err := h.authRepo.GetUserInfo(creds.Username)
	if err != nil {
		log.Printf("Failed to load user %s after login: %v", creds.Username, err)
		writeError(w, http.StatusInternalServerError, "Failed to load user info")
		return
	}

	token, err := auth.GenerateJWT(user)
	if err != nil {
		log.Printf("Failed to generate JWT token: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, auth.UserLoginResponse{Token: token})
}

func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	_, username, _, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "User information not found in context")
		return
	}

	user, err := h.authRepo.GetUserInfo(username)
	if err != nil {
		log.Printf("Failed to load user %s: %v", username, err)
		writeError(w, http.StatusInternalServerError, "Failed to load user info")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         *user.ID,
		"username":   *user.Username,
		"email":      *user.Email,
		"role":       *user.Role,
		"created_at": *user.CreatedAt,
	})
}
