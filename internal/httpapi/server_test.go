package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campussim/internal/campus"
	"campussim/internal/clock"
	"campussim/internal/config"
	"campussim/internal/registry"
	"campussim/internal/tick"
	"campussim/internal/weather"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	reg := registry.New()
	cfg := config.Config{
		CampusSize:      config.SizeSmall,
		SimulationSpeed: 1,
		GeoLat:          36.16,
		UnitSystem:      config.UnitsUS,
		AdminUser:       "admin",
		AdminPassword:   "s3cret",
	}
	c, err := campus.Assemble(cfg, reg, campus.ProfileGeneric)
	require.NoError(t, err)

	simStart := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	clk := clock.New(simStart, 1)
	drv := tick.New(clk, c, reg, nil)

	s, err := NewServer(cfg, reg, c, clk, drv, nil)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func loginAs(t *testing.T, s *Server, username, password string) *http.Cookie {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/login", loginRequest{Username: username, Password: password}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLoginWithNoCredentialsGrantsViewerRole(t *testing.T) {
	s := testServer(t)
	rec := doJSON(t, s, http.MethodPost, "/login", loginRequest{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, RoleViewer, resp.Role)
}

func TestLoginWithValidAdminCredentialsGrantsAdminRole(t *testing.T) {
	s := testServer(t)
	rec := doJSON(t, s, http.MethodPost, "/login", loginRequest{Username: "admin", Password: "s3cret"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, RoleAdmin, resp.Role)
}

func TestLoginWithBadPasswordIsRejected(t *testing.T) {
	s := testServer(t)
	rec := doJSON(t, s, http.MethodPost, "/login", loginRequest{Username: "admin", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusRequiresAuthentication(t *testing.T) {
	s := testServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/status", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusReachableByViewer(t *testing.T) {
	s := testServer(t)
	viewer := loginAs(t, s, "", "")
	rec := doJSON(t, s, http.MethodGet, "/api/status", nil, viewer)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOverrideSetForbiddenForViewer(t *testing.T) {
	s := testServer(t)
	viewer := loginAs(t, s, "", "")
	rec := doJSON(t, s, http.MethodPost, "/api/override/set", overrideSetRequest{
		PointPath: "Weather.oat", Value: 50, Priority: 8,
	}, viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOverrideSetAndReleaseRoundTripForAdmin(t *testing.T) {
	s := testServer(t)
	admin := loginAs(t, s, "admin", "s3cret")

	path := "Building_1.AHU_1.VAV_101.effective_setpoint"
	_, err := s.Reg.Read(path)
	require.NoError(t, err, "fixture assumes this VAV setpoint point exists")

	setRec := doJSON(t, s, http.MethodPost, "/api/override/set", overrideSetRequest{
		PointPath: path, Value: 80, Priority: 8,
	}, admin)
	require.Equal(t, http.StatusOK, setRec.Code)

	v, err := s.Reg.Read(path)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, v.Effective, 0.01)

	priority := 8
	relRec := doJSON(t, s, http.MethodPost, "/api/override/release", overrideReleaseRequest{
		PointPath: path, Priority: &priority,
	}, admin)
	require.Equal(t, http.StatusOK, relRec.Code)
}

func TestOverrideSetUnknownPointReturnsNotFound(t *testing.T) {
	s := testServer(t)
	admin := loginAs(t, s, "admin", "s3cret")

	rec := doJSON(t, s, http.MethodPost, "/api/override/set", overrideSetRequest{
		PointPath: "No.Such.Point", Value: 1, Priority: 8,
	}, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParametersSetAppliesPartialUpdate(t *testing.T) {
	s := testServer(t)
	admin := loginAs(t, s, "admin", "s3cret")

	rec := doJSON(t, s, http.MethodPost, "/api/admin/parameters", map[string]float64{
		"thermal_mass": 2.0,
	}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	getRec := doJSON(t, s, http.MethodGet, "/api/admin/parameters", nil, admin)
	require.Equal(t, http.StatusOK, getRec.Code)
	assert.Contains(t, getRec.Body.String(), "2")
}

func TestScenarioEndpointRejectsUnknownScenario(t *testing.T) {
	s := testServer(t)
	admin := loginAs(t, s, "admin", "s3cret")

	rec := doJSON(t, s, http.MethodPost, "/api/admin/scenario", scenarioRequest{Scenario: "Blizzard"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenarioEndpointAppliesValidScenario(t *testing.T) {
	s := testServer(t)
	admin := loginAs(t, s, "admin", "s3cret")

	rec := doJSON(t, s, http.MethodPost, "/api/admin/scenario", scenarioRequest{Scenario: "Heatwave"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, weather.ScenarioHeatwave, s.Campus.Scenario())
}

func TestUnitSystemRoundTripConvertsFahrenheitDisplay(t *testing.T) {
	s := testServer(t)
	admin := loginAs(t, s, "admin", "s3cret")

	rec := doJSON(t, s, http.MethodPost, "/api/admin/unit-system", unitSystemRequest{UnitSystem: "Metric"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, config.UnitsMetric, s.unitSystemValue())

	view := s.snapshotView("Weather.")
	for _, p := range view {
		assert.NotEqual(t, "F", p.Units)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	s := testServer(t)
	admin := loginAs(t, s, "admin", "s3cret")

	logoutRec := doJSON(t, s, http.MethodPost, "/logout", nil, admin)
	require.Equal(t, http.StatusOK, logoutRec.Code)

	rec := doJSON(t, s, http.MethodGet, "/api/status", nil, admin)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
