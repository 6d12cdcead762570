package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/desertthunder/ytfetch/internal/shared"
)

// maxBodyBytes caps account request bodies.
const maxBodyBytes = 64 << 10

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// register creates an account and signs the new user in.
func (a *App) register(w http.ResponseWriter, r *http.Request) {
	creds, err := decodeCredentials(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
		return
	}

	user, err := a.accounts.Register(r.Context(), creds.Username, creds.Email, creds.Password)
	if err != nil {
		a.writeAccountError(w, "registration failed", err)
		return
	}

	if err := a.sessions.Login(w, user.ID()); err != nil {
		a.logger.Error("failed to start session", "user_id", user.ID(), "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Registration succeeded but login failed"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Registration successful"})
}

// login checks credentials and starts a session.
func (a *App) login(w http.ResponseWriter, r *http.Request) {
	creds, err := decodeCredentials(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
		return
	}

	user, err := a.accounts.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		a.writeAccountError(w, "login failed", err)
		return
	}

	if err := a.sessions.Login(w, user.ID()); err != nil {
		a.logger.Error("failed to start session", "user_id", user.ID(), "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Login failed"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Login successful"})
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	a.sessions.Logout(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// writeAccountError maps account errors to status codes.
func (a *App) writeAccountError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	message := "Something went wrong, please try again"

	switch {
	case errors.Is(err, shared.ErrDuplicateUsername):
		status, message = http.StatusConflict, "Username already exists"
	case errors.Is(err, shared.ErrDuplicateEmail):
		status, message = http.StatusConflict, "Email already exists"
	case errors.Is(err, shared.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, shared.ErrInvalidInput):
		status, message = http.StatusBadRequest, strings.TrimPrefix(err.Error(), shared.ErrInvalidInput.Error()+": ")
	}

	if isClientError(err) {
		a.logger.Debug(op, "error", err)
	} else {
		a.logger.Error(op, "error", err)
	}
	writeJSON(w, status, messageResponse{Message: message})
}

// decodeCredentials reads a JSON body, or form fields for non-JSON submissions.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var creds credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" || mediaType == "" {
		err := json.NewDecoder(r.Body).Decode(&creds)
		return creds, err
	}

	if err := r.ParseForm(); err != nil {
		return creds, err
	}
	creds.Username = r.PostFormValue("username")
	creds.Email = r.PostFormValue("email")
	creds.Password = r.PostFormValue("password")
	return creds, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
