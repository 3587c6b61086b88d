package fakeapi

import (
	"net/http"
	"strings"
)

func (s *Server) AccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.users.GetByID(userIDFromContext(r.Context()))
		if err != nil {
			s.writeError(w, http.StatusNotFound, codeNotFound, "Account not found.")
			return
		}
		writeJSON(w, http.StatusOK, u.response())
	}
}

func (s *Server) UpdateAccountHandler() http.HandlerFunc {
	type request struct {
		FullName string `json:"fullName"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.FullName) == "" {
			s.writeError(w, http.StatusBadRequest, codeValidation, "Full name is required.")
			return
		}

		u, err := s.users.Update(userIDFromContext(r.Context()), s.nowTime(), func(u *User) {
			u.FullName = strings.TrimSpace(req.FullName)
		})
		if err != nil {
			s.writeError(w, http.StatusNotFound, codeNotFound, "Account not found.")
			return
		}
		writeJSON(w, http.StatusOK, u.response())
	}
}

// ChangePlanHandler switches the plan tier. Credits are not client writable.
func (s *Server) ChangePlanHandler() http.HandlerFunc {
	type request struct {
		Plan string `json:"plan"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req); err != nil || !validPlans[strings.ToUpper(req.Plan)] {
			s.writeError(w, http.StatusBadRequest, codeValidation, "Unknown plan.")
			return
		}

		u, err := s.users.Update(userIDFromContext(r.Context()), s.nowTime(), func(u *User) {
			u.Plan = strings.ToUpper(req.Plan)
		})
		if err != nil {
			s.writeError(w, http.StatusNotFound, codeNotFound, "Account not found.")
			return
		}
		writeJSON(w, http.StatusOK, u.response())
	}
}
