package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	iauth "github.com/flagforge/flagforge/internal/auth"
	"github.com/flagforge/flagforge/internal/cache"
	testutil "github.com/flagforge/flagforge/internal/database/testutil"
	"github.com/flagforge/flagforge/internal/middleware"
	"github.com/flagforge/flagforge/internal/models"
	"github.com/flagforge/flagforge/internal/realtime"
	"github.com/flagforge/flagforge/internal/services"
)

type stubGrader struct {
	message string
	err     error
}

func (g stubGrader) SubmitFlag(ctx context.Context, playerID, machineID, flag string) (string, error) {
	return g.message, g.err
}

type routerFixture struct {
	db       *gorm.DB
	router   *gin.Engine
	sessions *iauth.SessionService
	admins   *services.AdminService
}

func newTestRouter(t *testing.T, graderClient services.GraderClient) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	store := cache.NewDatabaseStore(db)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "router-test-secret",
		Issuer:         "test",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("jwt service: %v", err)
	}

	sessionSvc, err := iauth.NewSessionService(iauth.SessionConfig{DB: db, JWT: jwtSvc, Store: store})
	if err != nil {
		t.Fatalf("session service: %v", err)
	}

	hub := realtime.NewHub()
	adminSvc := services.NewAdminService(db)
	playerSvc := services.NewPlayerService(db)
	flagSvc := services.NewFlagService(db, graderClient, hub, realtime.StreamPlayers)

	router, err := NewRouter(Deps{
		DB:          db,
		JWT:         jwtSvc,
		Sessions:    sessionSvc,
		Handshakes:  iauth.NewHandshakeStore(store, 0),
		Admins:      adminSvc,
		Players:     playerSvc,
		Flags:       flagSvc,
		Leaderboard: services.NewLeaderboardService(db),
		SiteIP:      services.NewSiteIPService(db),
		Hub:         hub,
		RateStore:   middleware.NewMemoryRateStore(),
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	return &routerFixture{db: db, router: router, sessions: sessionSvc, admins: adminSvc}
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, w.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %s", w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("decode data: %v (body: %s)", err, w.Body.String())
		}
	}
}

// playerToken provisions a user row with a player-role session and returns
// the user ID with a valid access token.
func (f *routerFixture) playerToken(t *testing.T) (string, string) {
	t.Helper()

	user := models.User{
		Provider: "test",
		Subject:  uuid.NewString(),
		Email:    fmt.Sprintf("%s@example.test", uuid.NewString()[:8]),
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	pair, err := f.sessions.CreateSession(context.Background(), iauth.CreateSessionInput{UserID: user.ID})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return user.ID, pair.AccessToken
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	f := newTestRouter(t, stubGrader{})

	if w := f.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for /health, got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/site", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for /api/site, got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/leaderboard", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for /api/leaderboard, got %d", w.Code)
	}

	for _, path := range []string{"/api/auth/me", "/api/players/me", "/api/dashboard", "/api/admin/site-ip"} {
		if w := f.do(t, http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without token, got %d", path, w.Code)
		}
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	f := newTestRouter(t, stubGrader{})

	if w := f.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for /health, got %d", w.Code)
	}

	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "flagforge_api_latency_seconds") {
		t.Fatalf("metrics output missing latency series")
	}
}

func TestRouter_OAuthLoginWithoutProvider(t *testing.T) {
	f := newTestRouter(t, stubGrader{})

	w := f.do(t, http.MethodGet, "/api/auth/oauth/login", "", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 redirect, got %d", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.Contains(loc, "/auth/error") || !strings.Contains(loc, "provider_unavailable") {
		t.Fatalf("expected redirect to error page, got %q", loc)
	}
}

func TestRouter_OAuthCallbackFailures(t *testing.T) {
	f := newTestRouter(t, stubGrader{})

	cases := []struct {
		name   string
		path   string
		reason string
	}{
		{"provider error", "/auth/callback?error=access_denied", "access_denied"},
		{"missing code", "/auth/callback?state=abc", "missing_code"},
		{"unknown state", "/auth/callback?code=abc&state=never-minted", "invalid_state"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tc.path, "", nil)
			if w.Code != http.StatusSeeOther {
				t.Fatalf("expected 303, got %d", w.Code)
			}
			loc := w.Header().Get("Location")
			if !strings.Contains(loc, "/auth/error") || !strings.Contains(loc, tc.reason) {
				t.Fatalf("expected error redirect with reason %q, got %q", tc.reason, loc)
			}
		})
	}
}

func TestRouter_AdminSiteIPFlow(t *testing.T) {
	f := newTestRouter(t, stubGrader{})

	email := fmt.Sprintf("%s@admin.test", uuid.NewString()[:8])
	if err := f.admins.EnsureBootstrapAdmin(context.Background(), email, "s3cure-pass"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}

	w := f.do(t, http.MethodPost, "/api/auth/admin/login", "", gin.H{"email": email, "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/auth/admin/login", "", gin.H{"email": email, "password": "s3cure-pass"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin login, got %d: %s", w.Code, w.Body.String())
	}

	var login struct {
		Tokens iauth.TokenPair `json:"tokens"`
	}
	decodeData(t, w, &login)

	w = f.do(t, http.MethodPut, "/api/admin/site-ip", login.Tokens.AccessToken, gin.H{"ip_address": "10.10.14.2"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for site-ip update, got %d: %s", w.Code, w.Body.String())
	}

	var site struct {
		IPAddress string `json:"ip_address"`
	}
	w = f.do(t, http.MethodGet, "/api/site", "", nil)
	decodeData(t, w, &site)
	if site.IPAddress != "10.10.14.2" {
		t.Fatalf("expected updated site IP, got %q", site.IPAddress)
	}

	// Player-role tokens must not reach the admin surface.
	_, playerTok := f.playerToken(t)
	if w := f.do(t, http.MethodPut, "/api/admin/site-ip", playerTok, gin.H{"ip_address": "10.10.14.3"}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for player on admin route, got %d", w.Code)
	}
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, w.Body.String())
	}
	if envelope.Success {
		t.Fatalf("expected error envelope, got %s", w.Body.String())
	}
	return envelope.Error.Code
}

func TestRouter_DashboardBeforeOnboardingSignalsPlayerNotFound(t *testing.T) {
	f := newTestRouter(t, stubGrader{})

	_, token := f.playerToken(t)

	// The client branches to /create-player on this exact code; the generic
	// not-found would bounce the user to the home page instead.
	for _, path := range []string{"/api/dashboard", "/api/players/me"} {
		w := f.do(t, http.MethodGet, path, token, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, w.Code)
		}
		if code := decodeErrorCode(t, w); code != "PLAYER_NOT_FOUND" {
			t.Fatalf("expected PLAYER_NOT_FOUND for %s, got %q", path, code)
		}
	}

	w := f.do(t, http.MethodPost, "/api/dashboard/flags", token, gin.H{
		"machine_id": uuid.NewString(),
		"flag_type":  "user",
		"flag":       "HTB{example}",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for flag submit without player, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "PLAYER_NOT_FOUND" {
		t.Fatalf("expected PLAYER_NOT_FOUND for flag submit, got %q", code)
	}
}

func TestRouter_PlayerDashboardFlow(t *testing.T) {
	f := newTestRouter(t, stubGrader{message: "✅ Correct flag!"})

	machine := models.Machine{Name: "router-test-" + uuid.NewString()[:8]}
	if err := f.db.Create(&machine).Error; err != nil {
		t.Fatalf("create machine: %v", err)
	}

	_, token := f.playerToken(t)

	// Dashboard access before onboarding routes the client to player creation.
	if w := f.do(t, http.MethodGet, "/api/players/me", token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before player exists, got %d", w.Code)
	}

	username := "pwner-" + uuid.NewString()[:8]
	w := f.do(t, http.MethodPost, "/api/players", token, gin.H{"username": username})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for player create, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/dashboard", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for dashboard, got %d: %s", w.Code, w.Body.String())
	}
	var boards []services.MachineView
	decodeData(t, w, &boards)
	found := false
	for _, b := range boards {
		if b.ID == machine.ID {
			found = true
			if len(b.Slots) != 2 {
				t.Fatalf("expected user and root slots, got %d", len(b.Slots))
			}
		}
	}
	if !found {
		t.Fatalf("dashboard missing machine %s", machine.ID)
	}

	w = f.do(t, http.MethodPost, "/api/dashboard/flags", token, gin.H{
		"machine_id": machine.ID,
		"flag_type":  "user",
		"flag":       "HTB{example}",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for flag submit, got %d: %s", w.Code, w.Body.String())
	}
	var result services.SubmitResult
	decodeData(t, w, &result)
	if !result.Accepted {
		t.Fatalf("expected accepted submission, got %+v", result)
	}

	w = f.do(t, http.MethodGet, "/api/leaderboard", "", nil)
	decodeData(t, w, nil)
	if !strings.Contains(w.Body.String(), username) {
		t.Fatalf("leaderboard missing player %s", username)
	}
}

func TestRouter_StaticPagesAndAPINotFound(t *testing.T) {
	f := newTestRouter(t, stubGrader{})

	for _, page := range []string{"/", "/dashboard", "/leaderboard", "/create-player", "/admin/login"} {
		w := f.do(t, http.MethodGet, page, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for page %s, got %d", page, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
			t.Fatalf("expected html for %s, got %q", page, ct)
		}
	}

	w := f.do(t, http.MethodGet, "/api/no-such-endpoint", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 JSON for unknown api route, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("expected json 404 for api route, got %q", ct)
	}
}
