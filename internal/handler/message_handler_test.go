package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "focusbubble/backend/internal/errors"
)

func TestParseDuration(t *testing.T) {
	for _, raw := range []string{"", "null", "  null "} {
		minutes, apiErr := parseDuration(json.RawMessage(raw))
		require.Nil(t, apiErr, raw)
		assert.Nil(t, minutes)
	}

	minutes, apiErr := parseDuration(json.RawMessage("12.5"))
	require.Nil(t, apiErr)
	assert.Equal(t, 12.5, *minutes)

	for _, raw := range []string{`"25"`, "true", "-1", "0", "{}"} {
		_, apiErr := parseDuration(json.RawMessage(raw))
		require.NotNil(t, apiErr, raw)
		assert.Equal(t, apperrors.CodeInvalidDuration, apiErr.Code)
	}
}

func TestResponseShape(t *testing.T) {
	raw, err := json.Marshal(ok(map[string]any{"distractions": 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"distractions":2}`, string(raw))

	resp := failure(apperrors.Conflict(apperrors.CodeAlreadyPaused, "Timer is already paused"))
	raw, err = json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Timer is already paused","code":"already_paused"}`, string(raw))
	assert.Equal(t, http.StatusConflict, resp.Status())

	assert.Equal(t, http.StatusInternalServerError, failure(nil).Status())
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"type":"GET_SESSIONS","limit":5}`))
	require.NoError(t, err)
	assert.Equal(t, TypeGetSessions, req.Type)

	_, err = ParseRequest([]byte(`[1,2]`))
	assert.Error(t, err)

	assert.Equal(t, "unknown", metricType("DROP_TABLES"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "https://nested.example", firstNonEmpty("https://nested.example", "https://top.example"))
	assert.Equal(t, "https://top.example", firstNonEmpty("", "https://top.example", "https://sender.example"))
	assert.Empty(t, firstNonEmpty("", ""))
	assert.Equal(t, TypeGetEventLog, metricType(TypeGetEventLog))
}
