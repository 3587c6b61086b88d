package fakeapi

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	contentTypeJSON = "application/json"

	codeInvalidCredentials   = "invalid_credentials"
	codeEmailNotVerified     = "email_not_verified"
	codeDuplicateEmail       = "duplicate_email"
	codeValidation           = "validation_error"
	codeUnauthorized         = "unauthorized"
	codeInvalidRefresh       = "invalid_refresh_token"
	codeInvalidGoogleToken   = "invalid_google_token"
	codeTokenMissing         = "token_missing"
	codeTokenInvalid         = "token_invalid"
	codeTokenExpired         = "token_expired"
	codeInvalidCurrentPass   = "invalid_current_password"
	codePasswordChangeDenied = "password_change_not_allowed"
	codeNotFound             = "not_found"
	codeInternal             = "internal_error"
)

// apiError is the backend's error envelope.
type apiError struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{
		Timestamp: s.nowTime().UTC().Format(time.RFC3339),
		Status:    status,
		Error:     code,
		Message:   message,
	})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(s.refreshTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func refreshCookie(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
