package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "focusbubble/backend/internal/errors"
	"focusbubble/backend/internal/metrics"
	"focusbubble/backend/internal/middleware"
	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/service"
)

// Request message types.
const (
	TypeStartTimer         = "START_TIMER"
	TypePauseTimer         = "PAUSE_TIMER"
	TypeResumeTimer        = "RESUME_TIMER"
	TypeStopTimer          = "STOP_TIMER"
	TypeResetTimer         = "RESET_TIMER"
	TypeGetState           = "GET_STATE"
	TypeGetStats           = "GET_STATS"
	TypeGetSessions        = "GET_SESSIONS"
	TypeDistractionDetect  = "DISTRACTION_DETECTED"
	TypeUpdateSettings     = "UPDATE_SETTINGS"
	TypeGetSettings        = "GET_SETTINGS"
	TypeDeleteSession      = "DELETE_SESSION"
	TypeClearAllData       = "CLEAR_ALL_DATA"
	TypeRecomputeStats     = "RECOMPUTE_STATS"
	TypeGetEventLog        = "GET_EVENT_LOG"
	maxMessageBytes        = 64 << 10
	defaultStopSaveSession = true
)

// Request is one {type, ...payload} message. Raw holds the whole body so
// each type can decode the fields it needs.
type Request struct {
	Type string
	Raw  json.RawMessage
}

// ParseRequest reads the message type out of body.
func ParseRequest(body []byte) (Request, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Request{}, fmt.Errorf("decode message: %w", err)
	}
	return Request{Type: envelope.Type, Raw: body}, nil
}

// Response is {success:true, ...fields} or {success:false, error, code}.
type Response struct {
	Success bool
	Error   string
	Code    string
	Fields  map[string]any
	status  int
}

func (r Response) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+3)
	for key, value := range r.Fields {
		out[key] = value
	}
	out["success"] = r.Success
	if !r.Success {
		out["error"] = r.Error
		out["code"] = r.Code
	}
	return json.Marshal(out)
}

// Status is the HTTP status the response travels with.
func (r Response) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func ok(fields map[string]any) Response {
	return Response{Success: true, Fields: fields}
}

func failure(apiErr *apperrors.APIError) Response {
	if apiErr == nil {
		apiErr = apperrors.Internal("")
	}
	return Response{Error: apiErr.Message, Code: apiErr.Code, status: apiErr.Status}
}

// MessageHandler is the message router: it maps request types onto engine
// and history operations and never lets an error escape as a panic.
type MessageHandler struct {
	timer    *service.TimerService
	history  *service.HistoryService
	settings *service.SettingsService
	events   *service.EventLog
	logger   zerolog.Logger
}

func NewMessageHandler(
	timer *service.TimerService,
	history *service.HistoryService,
	settings *service.SettingsService,
	events *service.EventLog,
	logger zerolog.Logger,
) *MessageHandler {
	return &MessageHandler{
		timer:    timer,
		history:  history,
		settings: settings,
		events:   events,
		logger:   logger.With().Str("component", "router").Logger(),
	}
}

// Handle serves POST /api/messages.
func (h *MessageHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageBytes))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		writeResponse(c, failure(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid request body")))
		return
	}
	req, err := ParseRequest(body)
	if err != nil {
		writeResponse(c, failure(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid request body")))
		return
	}

	sender, _ := middleware.Component(c)
	writeResponse(c, h.Dispatch(c.Request.Context(), sender, req))
}

// Dispatch runs one request message.
func (h *MessageHandler) Dispatch(ctx context.Context, sender model.Component, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Interface("panic", r).Str("type", req.Type).Msg("Message handler panicked")
			resp = failure(apperrors.Internal(""))
		}
		metrics.MessagesHandled.WithLabelValues(metricType(req.Type), strconv.FormatBool(resp.Success)).Inc()
		if !resp.Success {
			h.events.Record("MESSAGE_FAILED", map[string]any{"type": req.Type, "code": resp.Code})
			h.logger.Debug().Str("type", req.Type).Str("code", resp.Code).Str("sender", sender.ID).Msg(resp.Error)
		}
	}()

	if req.Type != TypeGetEventLog {
		h.events.Record("MESSAGE_RECEIVED", map[string]any{"type": req.Type, "sender": sender.ID})
	}

	switch req.Type {
	case TypeStartTimer:
		return h.startTimer(ctx, req)
	case TypePauseTimer:
		view, apiErr := h.timer.Pause(ctx)
		return stateResponse(view, apiErr)
	case TypeResumeTimer:
		view, apiErr := h.timer.Resume(ctx)
		return stateResponse(view, apiErr)
	case TypeStopTimer:
		return h.stopTimer(ctx, req)
	case TypeResetTimer:
		view, apiErr := h.timer.Reset(ctx)
		return stateResponse(view, apiErr)
	case TypeGetState:
		return h.getState(ctx)
	case TypeGetStats:
		stats, apiErr := h.history.Statistics(ctx)
		if apiErr != nil {
			return failure(apiErr)
		}
		return ok(map[string]any{"stats": stats})
	case TypeGetSessions:
		return h.getSessions(ctx, req)
	case TypeDistractionDetect:
		return h.recordDistraction(ctx, sender, req)
	case TypeUpdateSettings:
		return h.updateSettings(ctx, req)
	case TypeGetSettings:
		settings, apiErr := h.settings.Get(ctx)
		if apiErr != nil {
			return failure(apiErr)
		}
		return ok(map[string]any{"settings": settings})
	case TypeDeleteSession:
		return h.deleteSession(ctx, req)
	case TypeClearAllData:
		if apiErr := h.timer.ClearHistory(ctx); apiErr != nil {
			return failure(apiErr)
		}
		return ok(nil)
	case TypeRecomputeStats:
		stats, apiErr := h.history.RecomputeStatistics(ctx)
		if apiErr != nil {
			return failure(apiErr)
		}
		return ok(map[string]any{"stats": stats})
	case TypeGetEventLog:
		return ok(map[string]any{"events": h.events.Entries()})
	default:
		return failure(apperrors.UnknownMessageType(req.Type))
	}
}

func (h *MessageHandler) startTimer(ctx context.Context, req Request) Response {
	var payload struct {
		Duration   json.RawMessage `json:"duration"`
		Mode       model.Mode      `json:"mode"`
		SaveActive bool            `json:"saveActive"`
	}
	if err := json.Unmarshal(req.Raw, &payload); err != nil {
		return failure(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid START_TIMER payload"))
	}

	duration, apiErr := parseDuration(payload.Duration)
	if apiErr != nil {
		return failure(apiErr)
	}

	result, apiErr := h.timer.Start(ctx, service.StartInput{
		DurationMinutes: duration,
		Mode:            payload.Mode,
		DiscardActive:   !payload.SaveActive,
	})
	if apiErr != nil {
		return failure(apiErr)
	}
	fields := map[string]any{"state": result.State}
	if result.Replaced != nil {
		fields["replacedSession"] = result.Replaced
	}
	return ok(fields)
}

// parseDuration accepts a JSON number of minutes. Absent or null means the
// configured default.
func parseDuration(raw json.RawMessage) (*float64, *apperrors.APIError) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var minutes float64
	if err := json.Unmarshal(trimmed, &minutes); err != nil {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidDuration, "duration must be a number of minutes")
	}
	if minutes <= 0 {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidDuration, "duration must be a positive number of minutes")
	}
	return &minutes, nil
}

func (h *MessageHandler) stopTimer(ctx context.Context, req Request) Response {
	var payload struct {
		SaveSession *bool `json:"saveSession"`
	}
	if err := json.Unmarshal(req.Raw, &payload); err != nil {
		return failure(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid STOP_TIMER payload"))
	}
	save := defaultStopSaveSession
	if payload.SaveSession != nil {
		save = *payload.SaveSession
	}

	result, apiErr := h.timer.Stop(ctx, save)
	if apiErr != nil {
		return failure(apiErr)
	}
	fields := map[string]any{"state": result.State}
	if result.Session != nil {
		fields["session"] = result.Session
	}
	return ok(fields)
}

func (h *MessageHandler) getState(ctx context.Context) Response {
	view, apiErr := h.timer.State(ctx)
	if apiErr != nil {
		return failure(apiErr)
	}
	settings, apiErr := h.settings.Get(ctx)
	if apiErr != nil {
		return failure(apiErr)
	}
	return ok(map[string]any{"state": view, "settings": settings})
}

func (h *MessageHandler) getSessions(ctx context.Context, req Request) Response {
	var payload struct {
		Limit *float64 `json:"limit"`
	}
	if err := json.Unmarshal(req.Raw, &payload); err != nil {
		return failure(apperrors.BadRequest(apperrors.CodeInvalidRequest, "limit must be a number"))
	}
	limit := 0
	if payload.Limit != nil {
		limit = int(*payload.Limit)
	}

	sessions, apiErr := h.history.List(ctx, limit)
	if apiErr != nil {
		return failure(apiErr)
	}
	return ok(map[string]any{"sessions": sessions})
}

func (h *MessageHandler) recordDistraction(ctx context.Context, sender model.Component, req Request) Response {
	var payload struct {
		Data struct {
			URL    string `json:"url"`
			Reason string `json:"reason"`
		} `json:"data"`
		URL    string `json:"url"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(req.Raw, &payload); err != nil {
		return failure(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid DISTRACTION_DETECTED payload"))
	}
	url := firstNonEmpty(payload.Data.URL, payload.URL, sender.URL)
	reason := firstNonEmpty(payload.Data.Reason, payload.Reason)

	result, apiErr := h.timer.RecordDistraction(ctx, service.DistractionInput{URL: url, Reason: reason})
	if apiErr != nil {
		return failure(apiErr)
	}
	fields := map[string]any{
		"recorded":     result.Recorded,
		"distractions": result.Distractions,
		"state":        result.State,
	}
	if result.Ignored {
		fields["ignored"] = true
	}
	return ok(fields)
}

func (h *MessageHandler) updateSettings(ctx context.Context, req Request) Response {
	var payload struct {
		Settings *model.SettingsPatch `json:"settings"`
	}
	if err := json.Unmarshal(req.Raw, &payload); err != nil || payload.Settings == nil {
		return failure(apperrors.BadRequest(apperrors.CodeInvalidSettings, "settings must be an object"))
	}

	settings, view, apiErr := h.timer.UpdateSettings(ctx, *payload.Settings)
	if apiErr != nil {
		return failure(apiErr)
	}
	return ok(map[string]any{"settings": settings, "state": view})
}

func (h *MessageHandler) deleteSession(ctx context.Context, req Request) Response {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(req.Raw, &payload); err != nil || payload.SessionID == "" {
		return failure(apperrors.BadRequest(apperrors.CodeInvalidRequest, "sessionId is required"))
	}
	if apiErr := h.history.Delete(ctx, payload.SessionID); apiErr != nil {
		return failure(apiErr)
	}
	return ok(nil)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func stateResponse(view *model.StateView, apiErr *apperrors.APIError) Response {
	if apiErr != nil {
		return failure(apiErr)
	}
	return ok(map[string]any{"state": view})
}

// metricType bounds label cardinality to the known message types.
func metricType(messageType string) string {
	switch messageType {
	case TypeStartTimer, TypePauseTimer, TypeResumeTimer, TypeStopTimer, TypeResetTimer,
		TypeGetState, TypeGetStats, TypeGetSessions, TypeDistractionDetect, TypeUpdateSettings,
		TypeGetSettings, TypeDeleteSession, TypeClearAllData, TypeRecomputeStats, TypeGetEventLog:
		return messageType
	default:
		return "unknown"
	}
}
