package http

import (
	"net/http"

	"sysfinance/internal/core"
	applog "sysfinance/internal/log"
	"sysfinance/internal/services"
)

type registerRequest struct {
	Email         string     `json:"email" validate:"required,email,max=254"`
	Password      string     `json:"password" validate:"required,min=6,max=72"`
	FullName      string     `json:"full_name" validate:"max=120"`
	MonthlySalary core.Money `json:"monthly_salary"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	u, err := s.svc.Auth.Register(r.Context(), services.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		FullName:      req.FullName,
		MonthlySalary: req.MonthlySalary,
	})
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(u).Write(w)
}

// handleLogin verifies credentials; the month's recurring transactions are
// generated before the token is issued.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpLogin, err)
		return
	}

	res, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, applog.OpLogin, err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Auth.Me(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(u).Write(w)
}
