package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rileydk/Pomodoro/internal/db"
	"github.com/Rileydk/Pomodoro/internal/handler"
	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/preference"
	"github.com/Rileydk/Pomodoro/internal/repository"
	"github.com/Rileydk/Pomodoro/internal/router"
	"github.com/Rileydk/Pomodoro/internal/service"
	"github.com/Rileydk/Pomodoro/internal/session"
)

type pairResponse struct {
	Token  string `json:"token"`
	Device struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"device"`
}

type stateEnvelope struct {
	State struct {
		State        string `json:"state"`
		Type         string `json:"type"`
		CurrentRound int    `json:"currentRound"`
		TimeLeft     int    `json:"timeLeft"`
	} `json:"state"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			State struct {
				State string `json:"state"`
			} `json:"state"`
		} `json:"details"`
	} `json:"error"`
}

type rollupsEnvelope struct {
	Stale   bool `json:"stale"`
	Rollups []struct {
		Key               string `json:"key"`
		FocusTotalMinutes int    `json:"focusTotalMinutes"`
		RestTotalMinutes  int    `json:"restTotalMinutes"`
	} `json:"rollups"`
}

type idleTicker struct{}

func (idleTicker) Start(time.Duration, func()) {}
func (idleTicker) Stop()                       {}

type testServer struct {
	handler http.Handler
	reports *service.ReportService
}

func TestSessionFlowAndConflict(t *testing.T) {
	server := setupTestServer(t)
	token := pairDevice(t, server.handler, "phone")

	state := getState(t, server.handler, token)
	if state.State.State != "not_started" || state.State.Type != "focus" || state.State.CurrentRound != 0 {
		t.Fatalf("unexpected initial state %+v", state.State)
	}

	status, _ := requestJSON(t, server.handler, http.MethodPost, "/api/session/start", token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d", status)
	}

	status, rawConflict := requestJSON(t, server.handler, http.MethodPost, "/api/session/start", token, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on second start, got %d", status)
	}
	var conflictResp apiErrorEnvelope
	if err := json.Unmarshal(rawConflict, &conflictResp); err != nil {
		t.Fatalf("unmarshal conflict response: %v", err)
	}
	if conflictResp.Error.Code != "invalid_transition" || conflictResp.Error.Details.State.State != "counting" {
		t.Fatalf("unexpected conflict body %+v", conflictResp.Error)
	}

	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/session/pause", token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on pause, got %d", status)
	}
	if state := getState(t, server.handler, token); state.State.State != "paused" {
		t.Fatalf("expected paused, got %s", state.State.State)
	}

	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/session/reset", token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on reset, got %d", status)
	}

	status, body := requestJSON(t, server.handler, http.MethodPut, "/api/settings", token, map[string]int{"focusMinutes": 50})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on settings update, got %d: %s", status, body)
	}
	if state := getState(t, server.handler, token); state.State.TimeLeft != 50*60 {
		t.Fatalf("expected new focus length applied, got %d", state.State.TimeLeft)
	}

	status, _ = requestJSON(t, server.handler, http.MethodPut, "/api/settings", token, map[string]int{"roundsPerSession": 0})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid settings, got %d", status)
	}
}

func TestReportsEndpoints(t *testing.T) {
	server := setupTestServer(t)
	token := pairDevice(t, server.handler, "watch")
	ctx := context.Background()

	start := time.Date(2024, time.April, 10, 9, 0, 0, 0, time.UTC)
	for _, minutes := range []int{25, 15} {
		if err := server.reports.RecordInterval(ctx, start, start.Add(time.Duration(minutes)*time.Minute), model.RecordFocus); err != nil {
			t.Fatalf("record interval: %v", err)
		}
		start = start.Add(time.Hour)
	}

	status, body := requestJSON(t, server.handler, http.MethodGet, "/api/reports/rollups?kind=daily&date=2024-04-10", token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for rollups, got %d: %s", status, body)
	}
	var daily rollupsEnvelope
	if err := json.Unmarshal(body, &daily); err != nil {
		t.Fatalf("unmarshal rollups: %v", err)
	}
	if len(daily.Rollups) != 1 || daily.Rollups[0].FocusTotalMinutes != 40 || daily.Stale {
		t.Fatalf("unexpected daily rollups %+v", daily)
	}

	status, _ = requestJSON(t, server.handler, http.MethodGet, "/api/reports/rollups?kind=monthly&scope=daily", token, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for finer scope, got %d", status)
	}

	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/reports/reset", token, map[string][]string{"kinds": {"daily"}})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on reset, got %d", status)
	}

	_, body = requestJSON(t, server.handler, http.MethodGet, "/api/reports/rollups?kind=weekly&scope=monthly&date=2024-04-10", token, nil)
	var weekly rollupsEnvelope
	if err := json.Unmarshal(body, &weekly); err != nil {
		t.Fatalf("unmarshal weekly: %v", err)
	}
	if len(weekly.Rollups) != 1 || weekly.Rollups[0].FocusTotalMinutes != 40 {
		t.Fatalf("expected weekly row untouched by daily reset, got %+v", weekly.Rollups)
	}

	status, body = requestJSON(t, server.handler, http.MethodGet, "/api/reports/details?kind=focus&date=2024-04-10", token, nil)
	if status != http.StatusOK || !strings.Contains(string(body), `"durationMinutes":15`) {
		t.Fatalf("unexpected details response %d: %s", status, body)
	}
}

func TestUnauthorized(t *testing.T) {
	server := setupTestServer(t)

	status, _ := requestJSON(t, server.handler, http.MethodGet, "/api/session", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	status, _ = requestJSON(t, server.handler, http.MethodGet, "/api/session", "not-a-jwt", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", status)
	}
	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/auth/pair", "", map[string]string{
		"deviceName":  "phone",
		"pairingCode": "wrong",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong pairing code, got %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := setupTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/session/start", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	server.handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestHealthAndMetrics(t *testing.T) {
	server := setupTestServer(t)

	status, _ := requestJSON(t, server.handler, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for health, got %d", status)
	}
	status, body := requestJSON(t, server.handler, http.MethodGet, "/metrics", "", nil)
	if status != http.StatusOK || !strings.Contains(string(body), "pomodoro_http_requests_total") {
		t.Fatalf("expected pomodoro metrics, got %d", status)
	}
}

func setupTestServer(t *testing.T) testServer {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if _, err := db.RunMigrations(ctx, database, migrationsDir, logger); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	prefs := preference.New(repository.NewPreferenceRepository(database), logger)
	broadcaster := session.NewBroadcaster(logger)
	reportService := service.NewReportService(repository.NewRecordRepository(database), service.ReportOptions{
		Location:        time.UTC,
		InitialInterval: time.Millisecond,
		OnRecorded:      broadcaster.Recorded,
		Logger:          logger,
	})
	engine, err := session.NewEngine(ctx, session.Options{
		Preferences: prefs,
		Recorder:    reportService,
		Ticker:      idleTicker{},
		Observer:    broadcaster,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	authService := service.NewAuthService("test-secret", 24*time.Hour, "4711")
	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Session:  handler.NewSessionHandler(service.NewSessionService(engine, reportService), broadcaster),
		Settings: handler.NewSettingsHandler(service.NewSettingsService(prefs, engine)),
		Reports:  handler.NewReportHandler(reportService),
	}

	return testServer{
		handler: router.New(authService, handlers, []string{"http://localhost:5173"}, logger),
		reports: reportService,
	}
}

func pairDevice(t *testing.T, server http.Handler, name string) string {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/pair", "", map[string]string{
		"deviceName":  name,
		"pairingCode": "4711",
	})
	if status != http.StatusCreated {
		t.Fatalf("pair %s failed with status %d: %s", name, status, string(body))
	}
	var resp pairResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal pair response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token for device %s", name)
	}
	return resp.Token
}

func getState(t *testing.T, server http.Handler, token string) stateEnvelope {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/session", token, nil)
	if status != http.StatusOK {
		t.Fatalf("get state failed with status %d: %s", status, string(body))
	}
	var stateResp stateEnvelope
	if err := json.Unmarshal(body, &stateResp); err != nil {
		t.Fatalf("unmarshal state response: %v", err)
	}
	return stateResp
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
