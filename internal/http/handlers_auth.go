package http

import (
	"net/http"
	"strings"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func (s *Server) accountsAvailable(w http.ResponseWriter) bool {
	if s.authenticator == nil || s.jwtManager == nil {
		writeJSON(w, http.StatusServiceUnavailable,
			errorResponse{Error: "accounts are not available on this backend"})
		return false
	}
	return true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.accountsAvailable(w) {
		return
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	user, err := s.authenticator.Register(r.Context(), email, sanitizeInput(req.DisplayName), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:  token,
		UserID: user.ID,
		Email:  user.Email,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.accountsAvailable(w) {
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:  token,
		UserID: user.ID,
		Email:  user.Email,
	})
}
