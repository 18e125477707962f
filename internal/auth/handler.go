package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"clariox/internal/auth/model"
	"clariox/internal/auth/service"
	"clariox/pkg/logger"
)

type AuthHandler struct {
	Service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{Service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tok, err := h.Service.Register(r.Context(), creds)
	switch {
	case errors.Is(err, model.ErrEmailTaken):
		http.Error(w, "Email already registered", http.StatusBadRequest)
		return
	case errors.Is(err, model.ErrInvalidEmail), errors.Is(err, model.ErrWeakPassword):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		logger.Sugar.Errorf("Handler: Failed to register user: %v", err)
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tok)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tok, err := h.Service.Login(r.Context(), creds)
	if errors.Is(err, model.ErrInvalidCredentials) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to log in: %v", err)
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tok)
}
