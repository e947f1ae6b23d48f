package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role is a session's authorization level. Only admin may reach write
// endpoints (spec.md §4.G).
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

const sessionCookieName = "basim_session"

// session is one logged-in principal. Sessions live only in memory and
// are invalidated on process restart, per spec.md §6.
type session struct {
	Role      Role
	CreatedAt time.Time
}

// sessionStore is the process-wide set of live sessions.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

func (s *sessionStore) create(role Role) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = &session{Role: role, CreatedAt: time.Now()}
	return token
}

func (s *sessionStore) get(token string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	return sess, ok
}

func (s *sessionStore) delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

type principalKey struct{}

func principalFrom(ctx context.Context) (*session, bool) {
	sess, ok := ctx.Value(principalKey{}).(*session)
	return sess, ok
}

// requireRole is middleware that rejects requests without a valid
// session (401) or without the required role (403).
func (s *Server) requireRole(minRole Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		sess, ok := s.sessions.get(cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if minRole == RoleAdmin && sess.Role != RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, sess)
		next(w, r.WithContext(ctx))
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Role Role `json:"role"`
}

// handleLogin authenticates the built-in admin account against
// bcrypt-hashed credentials, or issues an anonymous viewer session to
// anyone presenting no credentials at all (the demo/training use case
// spec.md §1 targets has no self-service viewer accounts).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var role Role
	switch {
	case req.Username == "" && req.Password == "":
		role = RoleViewer
	case req.Username == s.adminUser && s.checkAdminPassword(req.Password):
		role = RoleAdmin
	default:
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := s.sessions.create(role)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Role: role})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.sessions.delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
