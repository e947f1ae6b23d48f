// Package httpapi implements BASim's HTTP/JSON gateway: cookie-session
// auth, registry reads/overrides, scenario and parameter admin, per
// spec.md §4.G.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"campussim/internal/campus"
	"campussim/internal/clock"
	"campussim/internal/config"
	"campussim/internal/registry"
	"campussim/internal/tick"
)

// Server holds everything the HTTP gateway needs to answer requests:
// the shared registry, the assembled campus (for admin operations like
// scenario/parameter changes), the clock (for override expiry timing)
// and the tick driver (for tick-boundary snapshots).
type Server struct {
	Reg    *registry.Registry
	Campus *campus.Campus
	Clock  *clock.Clock
	Driver *tick.Driver
	Logger *slog.Logger

	adminUser  string
	adminHash  []byte
	sessions   *sessionStore
	router     *mux.Router
	unitSystem atomic.Value // config.UnitSystem
}

// NewServer builds a Server and its route table. It hashes the admin
// password once at startup (never logged, never stored in plaintext
// beyond the process's own env read) using bcrypt, per SPEC_FULL.md §6.
func NewServer(cfg config.Config, reg *registry.Registry, c *campus.Campus, clk *clock.Clock, drv *tick.Driver, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("httpapi: hashing admin password: %w", err)
	}

	s := &Server{
		Reg:       reg,
		Campus:    c,
		Clock:     clk,
		Driver:    drv,
		Logger:    logger,
		adminUser: cfg.AdminUser,
		adminHash: hash,
		sessions:  newSessionStore(),
	}
	s.unitSystem.Store(cfg.UnitSystem)
	s.router = s.buildRoutes()
	return s, nil
}

func (s *Server) checkAdminPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword(s.adminHash, []byte(candidate)) == nil
}

func (s *Server) unitSystemValue() config.UnitSystem {
	return s.unitSystem.Load().(config.UnitSystem)
}

// Handler returns the complete http.Handler for the gateway, wrapped
// with access logging.
func (s *Server) Handler() http.Handler {
	return handlers.CombinedLoggingHandler(os.Stdout, s.router)
}

func (s *Server) buildRoutes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	r.HandleFunc("/api/status", s.requireRole(RoleViewer, s.handleStatus)).Methods(http.MethodGet)
	r.HandleFunc("/api/plant", s.requireRole(RoleViewer, s.handlePlant)).Methods(http.MethodGet)
	r.HandleFunc("/api/electrical", s.requireRole(RoleViewer, s.handleElectrical)).Methods(http.MethodGet)
	r.HandleFunc("/api/buildings", s.requireRole(RoleViewer, s.handleBuildings)).Methods(http.MethodGet)
	r.HandleFunc("/api/building/{id}", s.requireRole(RoleViewer, s.handleBuilding)).Methods(http.MethodGet)
	r.HandleFunc("/api/datacenter", s.requireRole(RoleViewer, s.handleDataCenter)).Methods(http.MethodGet)
	r.HandleFunc("/api/wastewater", s.requireRole(RoleViewer, s.handleWastewater)).Methods(http.MethodGet)
	r.HandleFunc("/api/overrides", s.requireRole(RoleViewer, s.handleOverrides)).Methods(http.MethodGet)

	r.HandleFunc("/api/override/set", s.requireRole(RoleAdmin, s.handleOverrideSet)).Methods(http.MethodPost)
	r.HandleFunc("/api/override/release", s.requireRole(RoleAdmin, s.handleOverrideRelease)).Methods(http.MethodPost)

	r.HandleFunc("/api/admin/parameters", s.requireRole(RoleViewer, s.handleParametersGet)).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/parameters", s.requireRole(RoleAdmin, s.handleParametersSet)).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/scenario", s.requireRole(RoleAdmin, s.handleScenario)).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/unit-system", s.requireRole(RoleAdmin, s.handleUnitSystem)).Methods(http.MethodPost)

	return r
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
