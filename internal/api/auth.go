package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/models"
	"broker-backoffice/internal/session"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	sessionIDKey
)

func identityFrom(ctx context.Context) models.Identity {
	id, _ := ctx.Value(identityKey).(models.Identity)
	return id
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authenticate resolves the bearer session. Without an auth provider every
// request runs as the demo identity.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.svc.Sessions.Offline() {
			ctx := context.WithValue(r.Context(), identityKey, session.DemoIdentity())
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeError(w, apperrors.NewAuthenticationError("missing bearer token"))
			return
		}
		sess, err := s.svc.Sessions.Get(token)
		if err != nil {
			writeError(w, apperrors.NewAuthenticationError(err.Error()))
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, sess.Identity)
		ctx = context.WithValue(ctx, sessionIDKey, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r.Context()).Role != models.RoleAdmin {
			writeError(w, apperrors.NewForbiddenError("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string                    `json:"token,omitempty"`
	Identity  models.Identity           `json:"identity"`
	Sections  []models.DashboardSection `json:"sections"`
	ExpiresAt string                    `json:"expiresAt,omitempty"`
	Demo      bool                      `json:"demo,omitempty"`
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, apperrors.NewInvalidInputError("email and password are required"))
		return
	}

	sess, err := s.svc.Sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Warn("sign-in rejected", map[string]interface{}{"email": req.Email, "reason": session.Message(err)})
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     sess.ID,
		Identity:  sess.Identity,
		Sections:  models.SectionsFor(sess.Identity.Role),
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	id, _ := r.Context().Value(sessionIDKey).(string)
	if id != "" {
		if err := s.svc.Sessions.SignOut(r.Context(), id); err != nil {
			s.logger.Warn("sign-out failed", map[string]interface{}{"error": err.Error()})
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{
		Identity: identity,
		Sections: models.SectionsFor(identity.Role),
		Demo:     s.svc.Sessions.Offline(),
	})
}
