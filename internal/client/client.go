package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"focusbubble/backend/internal/model"
)

// Error is a {success:false} reply from the service.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client speaks the message protocol over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type StateReply struct {
	State    model.StateView `json:"state"`
	Settings model.Settings  `json:"settings"`
}

type StartReply struct {
	State           model.StateView `json:"state"`
	ReplacedSession *model.Session  `json:"replacedSession"`
}

type StopReply struct {
	State   model.StateView `json:"state"`
	Session *model.Session  `json:"session"`
}

type DistractionReply struct {
	Recorded     bool            `json:"recorded"`
	Ignored      bool            `json:"ignored"`
	Distractions int             `json:"distractions"`
	State        model.StateView `json:"state"`
}

type ConnectReply struct {
	Token     string          `json:"token"`
	ExpiresAt *time.Time      `json:"expiresAt"`
	Component model.Component `json:"component"`
}

// Send posts one message and decodes the reply into out, which may be nil.
func (c *Client) Send(ctx context.Context, message map[string]any, out any) error {
	return c.post(ctx, "/api/messages", message, out)
}

func (c *Client) Connect(ctx context.Context, pairingKey, kind string, tabID int) (*ConnectReply, error) {
	var reply ConnectReply
	body := map[string]any{"pairingKey": pairingKey, "kind": kind, "tabId": tabID}
	if err := c.post(ctx, "/api/connect", body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) State(ctx context.Context) (*StateReply, error) {
	var reply StateReply
	if err := c.Send(ctx, map[string]any{"type": "GET_STATE"}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Start begins a session. A nil duration uses the configured length for mode.
func (c *Client) Start(ctx context.Context, durationMinutes *float64, mode model.Mode, saveActive bool) (*StartReply, error) {
	message := map[string]any{"type": "START_TIMER", "saveActive": saveActive}
	if durationMinutes != nil {
		message["duration"] = *durationMinutes
	}
	if mode != "" {
		message["mode"] = mode
	}
	var reply StartReply
	if err := c.Send(ctx, message, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) Pause(ctx context.Context) (*model.StateView, error) {
	return c.stateCall(ctx, "PAUSE_TIMER")
}

func (c *Client) Resume(ctx context.Context) (*model.StateView, error) {
	return c.stateCall(ctx, "RESUME_TIMER")
}

func (c *Client) Reset(ctx context.Context) (*model.StateView, error) {
	return c.stateCall(ctx, "RESET_TIMER")
}

func (c *Client) Stop(ctx context.Context, saveSession bool) (*StopReply, error) {
	var reply StopReply
	if err := c.Send(ctx, map[string]any{"type": "STOP_TIMER", "saveSession": saveSession}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) Sessions(ctx context.Context, limit int) ([]model.Session, error) {
	var reply struct {
		Sessions []model.Session `json:"sessions"`
	}
	if err := c.Send(ctx, map[string]any{"type": "GET_SESSIONS", "limit": limit}, &reply); err != nil {
		return nil, err
	}
	return reply.Sessions, nil
}

// Events returns the service's recent-events debug log, oldest first.
func (c *Client) Events(ctx context.Context) ([]model.LogEntry, error) {
	var reply struct {
		Events []model.LogEntry `json:"events"`
	}
	if err := c.Send(ctx, map[string]any{"type": "GET_EVENT_LOG"}, &reply); err != nil {
		return nil, err
	}
	return reply.Events, nil
}

func (c *Client) Stats(ctx context.Context, recompute bool) (*model.Statistics, error) {
	messageType := "GET_STATS"
	if recompute {
		messageType = "RECOMPUTE_STATS"
	}
	var reply struct {
		Stats model.Statistics `json:"stats"`
	}
	if err := c.Send(ctx, map[string]any{"type": messageType}, &reply); err != nil {
		return nil, err
	}
	return &reply.Stats, nil
}

func (c *Client) Settings(ctx context.Context) (*model.Settings, error) {
	var reply struct {
		Settings model.Settings `json:"settings"`
	}
	if err := c.Send(ctx, map[string]any{"type": "GET_SETTINGS"}, &reply); err != nil {
		return nil, err
	}
	return &reply.Settings, nil
}

func (c *Client) UpdateSettings(ctx context.Context, patch model.SettingsPatch) (*model.Settings, error) {
	var reply struct {
		Settings model.Settings `json:"settings"`
	}
	if err := c.Send(ctx, map[string]any{"type": "UPDATE_SETTINGS", "settings": patch}, &reply); err != nil {
		return nil, err
	}
	return &reply.Settings, nil
}

func (c *Client) Distraction(ctx context.Context, url, reason string) (*DistractionReply, error) {
	var reply DistractionReply
	message := map[string]any{
		"type": "DISTRACTION_DETECTED",
		"data": map[string]string{"url": url, "reason": reason},
	}
	if err := c.Send(ctx, message, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.Send(ctx, map[string]any{"type": "DELETE_SESSION", "sessionId": sessionID}, nil)
}

func (c *Client) ClearAll(ctx context.Context) error {
	return c.Send(ctx, map[string]any{"type": "CLEAR_ALL_DATA"}, nil)
}

func (c *Client) stateCall(ctx context.Context, messageType string) (*model.StateView, error) {
	var reply struct {
		State model.StateView `json:"state"`
	}
	if err := c.Send(ctx, map[string]any{"type": messageType}, &reply); err != nil {
		return nil, err
	}
	return &reply.State, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !envelope.Success {
		return &Error{Status: resp.StatusCode, Code: envelope.Code, Message: envelope.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
