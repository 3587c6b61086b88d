package fakeapi

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type authResponse struct {
	AccessToken      string `json:"accessToken"`
	TokenType        string `json:"tokenType"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
	UserID           string `json:"userId,omitempty"`
	Email            string `json:"email,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// signIn issues a bearer token and a fresh renewal cookie for u.
func (s *Server) signIn(w http.ResponseWriter, u *User) {
	access, err := s.issuer.Issue(u)
	if err != nil {
		log.Err(err).Msg("[Server signIn] failed to issue access token")
		s.writeError(w, http.StatusInternalServerError, codeInternal, "Unexpected server error.")
		return
	}
	refresh, err := s.refresh.Create(u.ID)
	if err != nil {
		log.Err(err).Msg("[Server signIn] failed to create refresh token")
		s.writeError(w, http.StatusInternalServerError, codeInternal, "Unexpected server error.")
		return
	}

	s.setRefreshCookie(w, refresh)
	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:      access,
		TokenType:        tokenTypeBearer,
		ExpiresInSeconds: s.issuer.ExpiresInSeconds(),
		UserID:           u.ID,
		Email:            u.Email,
	})
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	type request struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, codeValidation, "Request validation failed.")
			return
		}
		if strings.TrimSpace(req.FullName) == "" || !strings.Contains(req.Email, "@") {
			s.writeError(w, http.StatusBadRequest, codeValidation, "Request validation failed.")
			return
		}
		if err := validatePassword(req.Password); err != nil {
			s.writeError(w, http.StatusBadRequest, codeValidation, "Password must be at least 8 characters.")
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, codeInternal, "Unexpected server error.")
			return
		}
		u, err := s.insertUser(&User{
			Email:        req.Email,
			FullName:     strings.TrimSpace(req.FullName),
			PasswordHash: hash,
			Provider:     ProviderLocal,
		})
		if err != nil {
			s.writeError(w, http.StatusConflict, codeDuplicateEmail, "An account with this email already exists.")
			return
		}

		s.verifications.Issue(u.Email)
		writeJSON(w, http.StatusCreated, messageResponse{Message: "Account created. Check your inbox for the verification link."})
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
			s.writeError(w, http.StatusBadRequest, codeValidation, "Request validation failed.")
			return
		}

		u, err := s.users.GetByEmail(req.Email)
		if err != nil || u.Provider != ProviderLocal || !CheckPasswordHash(req.Password, u.PasswordHash) {
			s.writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "Invalid email or password.")
			return
		}
		if !u.Verified {
			s.writeError(w, http.StatusForbidden, codeEmailNotVerified, "Email not verified. Check your inbox.")
			return
		}

		s.signIn(w, u)
	}
}

func (s *Server) GoogleLoginHandler() http.HandlerFunc {
	type request struct {
		IDToken string `json:"idToken"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.IDToken) == "" {
			s.writeError(w, http.StatusBadRequest, codeInvalidGoogleToken, "Google identity token is missing.")
			return
		}

		identity, err := s.google(r.Context(), req.IDToken)
		if err != nil || identity.Email == "" || !identity.EmailVerified {
			s.writeError(w, http.StatusUnauthorized, codeInvalidGoogleToken, "Google identity token is invalid.")
			return
		}

		u, err := s.users.GetByEmail(identity.Email)
		switch {
		case err == nil && u.Provider != ProviderGoogle:
			s.writeError(w, http.StatusConflict, codeDuplicateEmail, "An account with this email already exists.")
			return
		case err != nil:
			name := strings.TrimSpace(identity.Name)
			if name == "" {
				name = fullNameFromEmail(identity.Email)
			}
			if u, err = s.AddGoogleUser(identity.Email, name); err != nil {
				s.writeError(w, http.StatusConflict, codeDuplicateEmail, "An account with this email already exists.")
				return
			}
		}

		s.signIn(w, u)
	}
}

// RefreshHandler exchanges the renewal cookie for a new bearer token. The
// cookie is rotated on every successful exchange.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := refreshCookie(r)
		if token == "" {
			s.writeError(w, http.StatusUnauthorized, codeInvalidRefresh, "Refresh token missing.")
			return
		}

		userID, next, err := s.refresh.Rotate(token)
		if err != nil {
			clearRefreshCookie(w)
			s.writeError(w, http.StatusUnauthorized, codeInvalidRefresh, "Refresh token invalid or expired.")
			return
		}
		u, err := s.users.GetByID(userID)
		if err != nil {
			s.refresh.Revoke(next)
			clearRefreshCookie(w)
			s.writeError(w, http.StatusUnauthorized, codeInvalidRefresh, "Refresh token invalid or expired.")
			return
		}
		access, err := s.issuer.Issue(u)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, codeInternal, "Unexpected server error.")
			return
		}

		s.setRefreshCookie(w, next)
		writeJSON(w, http.StatusOK, authResponse{
			AccessToken:      access,
			TokenType:        tokenTypeBearer,
			ExpiresInSeconds: s.issuer.ExpiresInSeconds(),
		})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := refreshCookie(r); token != "" {
			s.refresh.Revoke(token)
		}
		clearRefreshCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ResendVerificationHandler always answers 204 so that the response does not
// reveal whether the email is registered.
func (s *Server) ResendVerificationHandler() http.HandlerFunc {
	type request struct {
		Email string `json:"email"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
			s.writeError(w, http.StatusBadRequest, codeValidation, "Email is required.")
			return
		}

		if u, err := s.users.GetByEmail(req.Email); err == nil && !u.Verified {
			s.verifications.Issue(u.Email)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	type request struct {
		Token string `json:"token"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req); err != nil || req.Token == "" {
			s.writeError(w, http.StatusBadRequest, codeTokenMissing, "Verification token is missing.")
			return
		}

		email, code := s.verifications.Consume(req.Token)
		switch code {
		case codeTokenExpired:
			s.writeError(w, http.StatusGone, codeTokenExpired, "Verification link has expired.")
			return
		case codeTokenInvalid:
			s.writeError(w, http.StatusBadRequest, codeTokenInvalid, "Verification link is invalid.")
			return
		}

		u, err := s.users.GetByEmail(email)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, codeTokenInvalid, "Verification link is invalid.")
			return
		}
		_, _ = s.users.Update(u.ID, s.nowTime(), func(u *User) { u.Verified = true })
		w.WriteHeader(http.StatusNoContent)
	}
}

// ChangePasswordHandler revokes every renewal token of the user on success,
// so other sessions must sign in again.
func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	type request struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.users.GetByID(userIDFromContext(r.Context()))
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, codeUnauthorized, "Access token invalid or expired.")
			return
		}
		if u.Provider != ProviderLocal {
			s.writeError(w, http.StatusForbidden, codePasswordChangeDenied, "Password cannot be changed for this account type.")
			return
		}

		var req request
		if err := decodeJSON(r, &req); err != nil || req.CurrentPassword == "" {
			s.writeError(w, http.StatusBadRequest, codeValidation, "Current password is required.")
			return
		}
		if err := validatePassword(req.NewPassword); err != nil {
			s.writeError(w, http.StatusBadRequest, codeValidation, "New password must be at least 8 characters.")
			return
		}
		if !CheckPasswordHash(req.CurrentPassword, u.PasswordHash) {
			s.writeError(w, http.StatusUnauthorized, codeInvalidCurrentPass, "Current password is incorrect.")
			return
		}

		hash, err := HashPassword(req.NewPassword)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, codeInternal, "Unexpected server error.")
			return
		}
		_, _ = s.users.Update(u.ID, s.nowTime(), func(u *User) { u.PasswordHash = hash })
		s.refresh.RevokeUser(u.ID)
		clearRefreshCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) DeleteAccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFromContext(r.Context())
		if err := s.users.Delete(userID); err != nil {
			s.writeError(w, http.StatusNotFound, codeNotFound, "Account not found.")
			return
		}
		s.refresh.RevokeUser(userID)
		clearRefreshCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}
