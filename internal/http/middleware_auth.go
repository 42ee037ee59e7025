package http

import (
	"net/http"
	"strings"

	"sysfinance/internal/auth"
	applog "sysfinance/internal/log"
)

// requireAuth validates the bearer token and puts the user id on the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			UnauthorizedError("missing Authorization header").Write(w)
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			UnauthorizedError("invalid Authorization header format").Write(w)
			return
		}

		id, err := s.svc.Tokens.ParseToken(strings.TrimSpace(token))
		if err != nil {
			UnauthorizedError("invalid or expired token").Write(w)
			return
		}

		ctx := auth.WithUserID(r.Context(), id)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
