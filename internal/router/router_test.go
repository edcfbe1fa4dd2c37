package router_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"focusbubble/backend/internal/alarm"
	"focusbubble/backend/internal/clock"
	"focusbubble/backend/internal/handler"
	"focusbubble/backend/internal/hub"
	"focusbubble/backend/internal/notify"
	"focusbubble/backend/internal/repository"
	"focusbubble/backend/internal/router"
	"focusbubble/backend/internal/service"
	"focusbubble/backend/internal/storage"
)

const pairingKey = "let-me-in"

type testServer struct {
	handler  http.Handler
	registry *hub.Registry
	alarms   *alarm.Manual
	clock    *clock.Fake
	events   *service.EventLog
}

func setupTestServer(t *testing.T, jwtSecret string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zerolog.Nop()
	clk := clock.NewFake(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	alarms := alarm.NewManual()
	registry := hub.NewRegistry()
	repo := repository.New(storage.NewMemory())
	eventLog := service.NewEventLog(20, clk)

	settingsService := service.NewSettingsService(repo, logger)
	historyService := service.NewHistoryService(repo, clk, service.HistoryOptions{}, logger)
	timerService := service.NewTimerService(service.TimerDeps{
		Repo:      repo,
		History:   historyService,
		Settings:  settingsService,
		Alarms:    alarms,
		Publisher: eventLog.Logged(service.NewBroadcaster(registry, logger)),
		Notifier:  notify.NewHubNotifier(registry, logger),
		Clock:     clk,
		Logger:    logger,
	})
	require.Nil(t, timerService.Restore(context.Background()))

	hash := ""
	if jwtSecret != "" {
		raw, err := bcrypt.GenerateFromPassword([]byte(pairingKey), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(raw)
	}
	authService := service.NewAuthService(jwtSecret, hash, time.Hour, logger)

	engine := router.New(
		authService,
		handler.NewAuthHandler(authService),
		handler.NewMessageHandler(timerService, historyService, settingsService, eventLog, logger),
		handler.NewEventsHandler(registry, time.Minute, logger),
		[]string{"chrome-extension://*", "http://localhost:5173"},
		logger,
	)
	return &testServer{handler: engine, registry: registry, alarms: alarms, clock: clk, events: eventLog}
}

func (s *testServer) send(t *testing.T, token string, message map[string]any) (int, map[string]any) {
	t.Helper()
	status, body := requestJSON(t, s.handler, http.MethodPost, "/api/messages", token, message)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded), string(body))
	return status, decoded
}

func TestMessageLifecycle(t *testing.T) {
	server := setupTestServer(t, "")

	status, resp := server.send(t, "", map[string]any{"type": "GET_STATE"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "idle", resp["state"].(map[string]any)["status"])
	assert.Equal(t, 25.0, resp["settings"].(map[string]any)["defaultDuration"])

	_, resp = server.send(t, "", map[string]any{"type": "START_TIMER", "duration": 25, "mode": "focus"})
	require.Equal(t, true, resp["success"], resp)
	state := resp["state"].(map[string]any)
	assert.Equal(t, "running", state["status"])
	assert.Equal(t, 1500.0, state["remainingSeconds"])

	server.clock.Advance(2 * time.Minute)
	_, resp = server.send(t, "", map[string]any{"type": "PAUSE_TIMER"})
	require.Equal(t, true, resp["success"], resp)
	assert.Equal(t, 1380.0, resp["state"].(map[string]any)["remainingSeconds"])

	_, resp = server.send(t, "", map[string]any{"type": "RESUME_TIMER"})
	require.Equal(t, true, resp["success"], resp)

	_, resp = server.send(t, "", map[string]any{"type": "DISTRACTION_DETECTED", "data": map[string]any{"url": "https://video.example", "reason": "tab-switch"}})
	require.Equal(t, true, resp["success"], resp)
	assert.Equal(t, 1.0, resp["distractions"])

	_, resp = server.send(t, "", map[string]any{"type": "STOP_TIMER", "saveSession": true})
	require.Equal(t, true, resp["success"], resp)
	session := resp["session"].(map[string]any)
	assert.Equal(t, false, session["completed"])
	assert.Equal(t, 120.0, session["actualDurationSeconds"])

	_, resp = server.send(t, "", map[string]any{"type": "GET_SESSIONS", "limit": 10})
	require.Equal(t, true, resp["success"], resp)
	require.Len(t, resp["sessions"], 1)

	_, resp = server.send(t, "", map[string]any{"type": "GET_STATS"})
	require.Equal(t, true, resp["success"], resp)
	assert.Equal(t, 1.0, resp["stats"].(map[string]any)["totalSessions"])

	_, resp = server.send(t, "", map[string]any{"type": "DELETE_SESSION", "sessionId": session["id"]})
	require.Equal(t, true, resp["success"], resp)

	status, resp = server.send(t, "", map[string]any{"type": "DELETE_SESSION", "sessionId": session["id"]})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "session_not_found", resp["code"])

	_, resp = server.send(t, "", map[string]any{"type": "RECOMPUTE_STATS"})
	require.Equal(t, true, resp["success"], resp)
	assert.Equal(t, 0.0, resp["stats"].(map[string]any)["totalSessions"])
}

func TestCompletionThroughAlarm(t *testing.T) {
	server := setupTestServer(t, "")

	_, resp := server.send(t, "", map[string]any{"type": "START_TIMER", "duration": 1})
	require.Equal(t, true, resp["success"], resp)

	server.clock.Advance(time.Minute)
	server.alarms.Fire(context.Background(), service.AlarmCompletion)

	_, resp = server.send(t, "", map[string]any{"type": "GET_SESSIONS"})
	sessions := resp["sessions"].([]any)
	require.Len(t, sessions, 1)
	assert.Equal(t, true, sessions[0].(map[string]any)["completed"])
}

func TestMessageErrors(t *testing.T) {
	server := setupTestServer(t, "")

	status, resp := server.send(t, "", map[string]any{"type": "LAUNCH_ROCKET"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "unknown_message_type", resp["code"])
	assert.Equal(t, "Unknown message type: LAUNCH_ROCKET", resp["error"])

	for _, duration := range []any{"soon", -3, 0} {
		_, resp = server.send(t, "", map[string]any{"type": "START_TIMER", "duration": duration})
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "invalid_duration", resp["code"], "duration %v", duration)
	}

	_, resp = server.send(t, "", map[string]any{"type": "PAUSE_TIMER"})
	assert.Equal(t, "no_active_timer", resp["code"])
	_, resp = server.send(t, "", map[string]any{"type": "RESUME_TIMER"})
	assert.Equal(t, "no_paused_timer", resp["code"])

	_, resp = server.send(t, "", map[string]any{"type": "DISTRACTION_DETECTED"})
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, true, resp["ignored"])

	status, body := requestJSON(t, server.handler, http.MethodPost, "/api/messages", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "invalid_request")
}

func TestDistractionWithTopLevelFields(t *testing.T) {
	server := setupTestServer(t, "")

	_, resp := server.send(t, "", map[string]any{"type": "START_TIMER", "duration": 25})
	require.Equal(t, true, resp["success"], resp)

	_, resp = server.send(t, "", map[string]any{"type": "DISTRACTION_DETECTED", "url": "https://social.example", "reason": "tab"})
	require.Equal(t, true, resp["success"], resp)
	assert.Equal(t, true, resp["recorded"])
	assert.Equal(t, 1.0, resp["distractions"])

	_, resp = server.send(t, "", map[string]any{"type": "DISTRACTION_DETECTED", "url": 42})
	assert.Equal(t, "invalid_request", resp["code"])
}

func TestEventLogRecordsMessagesAndTransitions(t *testing.T) {
	server := setupTestServer(t, "")

	_, resp := server.send(t, "", map[string]any{"type": "START_TIMER", "duration": 25})
	require.Equal(t, true, resp["success"], resp)
	_, resp = server.send(t, "", map[string]any{"type": "RESUME_TIMER"})
	require.Equal(t, false, resp["success"])

	_, resp = server.send(t, "", map[string]any{"type": "GET_EVENT_LOG"})
	require.Equal(t, true, resp["success"], resp)
	events := resp["events"].([]any)

	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event.(map[string]any)["type"].(string))
	}
	assert.Equal(t, []string{"MESSAGE_RECEIVED", "TIMER_STARTED", "MESSAGE_RECEIVED", "MESSAGE_FAILED"}, types)

	failed := events[3].(map[string]any)["fields"].(map[string]any)
	assert.Equal(t, "RESUME_TIMER", failed["type"])
	assert.Equal(t, "no_paused_timer", failed["code"])
	assert.Len(t, server.events.Entries(), 4)
}

func TestClearAllDataKeepsSettings(t *testing.T) {
	server := setupTestServer(t, "")

	_, resp := server.send(t, "", map[string]any{"type": "UPDATE_SETTINGS", "settings": map[string]any{"defaultDuration": 40}})
	require.Equal(t, true, resp["success"], resp)
	assert.Equal(t, 2400.0, resp["state"].(map[string]any)["durationSeconds"])

	_, resp = server.send(t, "", map[string]any{"type": "START_TIMER"})
	require.Equal(t, true, resp["success"], resp)
	_, resp = server.send(t, "", map[string]any{"type": "STOP_TIMER"})
	require.Equal(t, true, resp["success"], resp)

	_, resp = server.send(t, "", map[string]any{"type": "CLEAR_ALL_DATA"})
	require.Equal(t, true, resp["success"], resp)

	_, resp = server.send(t, "", map[string]any{"type": "GET_SESSIONS"})
	assert.Empty(t, resp["sessions"])
	_, resp = server.send(t, "", map[string]any{"type": "GET_SETTINGS"})
	assert.Equal(t, 40.0, resp["settings"].(map[string]any)["defaultDuration"])

	_, resp = server.send(t, "", map[string]any{"type": "UPDATE_SETTINGS", "settings": map[string]any{"sessionsUntilLongBreak": 0}})
	assert.Equal(t, "invalid_settings", resp["code"])
}

func TestComponentAuth(t *testing.T) {
	server := setupTestServer(t, "test-secret")

	status, _ := requestJSON(t, server.handler, http.MethodPost, "/api/messages", "", map[string]any{"type": "GET_STATE"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/connect", "", map[string]any{"pairingKey": "guess"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := requestJSON(t, server.handler, http.MethodPost, "/api/connect", "", map[string]any{"pairingKey": pairingKey, "kind": "runtime"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var connect struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &connect))
	require.NotEmpty(t, connect.Token)

	status, resp := server.send(t, connect.Token, map[string]any{"type": "GET_STATE"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, resp["success"])

	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/messages", "forged", map[string]any{"type": "GET_STATE"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCORSPreflight(t *testing.T) {
	server := setupTestServer(t, "")

	for _, origin := range []string{"chrome-extension://abcdefghijklmnop", "http://localhost:5173"} {
		req := httptest.NewRequest(http.MethodOptions, "/api/messages", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		recorder := httptest.NewRecorder()
		server.handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Equal(t, origin, recorder.Header().Get("Access-Control-Allow-Origin"))
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/messages", nil)
	req.Header.Set("Origin", "https://evil.example")
	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, req)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestEventStreamReceivesBroadcasts(t *testing.T) {
	server := setupTestServer(t, "")
	httpServer := httptest.NewServer(server.handler)
	defer httpServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpServer.URL+"/api/events?kind=content&tabId=4&url=https://news.example", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q", prefix)
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	waitFor("event:connected")
	assert.Equal(t, []hub.Tab{{ID: 4, URL: "https://news.example"}}, server.registry.QueryTabs(ctx))

	_, body := server.send(t, "", map[string]any{"type": "START_TIMER", "duration": 5})
	require.Equal(t, true, body["success"], body)

	waitFor("event:TIMER_STARTED")
	data := waitFor("data:")
	assert.Contains(t, data, `"type":"TIMER_STARTED"`)
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
		require.NoError(t, err)
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
