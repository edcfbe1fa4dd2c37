package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusbubble/backend/internal/clock"
	"focusbubble/backend/internal/model"
)

func TestEventLogKeepsMostRecent(t *testing.T) {
	clk := clock.NewFake(testEpoch)
	log := NewEventLog(3, clk)

	for i := 0; i < 5; i++ {
		clk.Advance(time.Second)
		log.Record(fmt.Sprintf("EVENT_%d", i), nil)
	}

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "EVENT_2", entries[0].Type)
	assert.Equal(t, "EVENT_4", entries[2].Type)
	assert.Equal(t, testEpoch.Add(5*time.Second), entries[2].Time)

	entries[0].Type = "mutated"
	assert.Equal(t, "EVENT_2", log.Entries()[0].Type)
}

func TestEventLogNilIsSafe(t *testing.T) {
	var log *EventLog
	log.Record("IGNORED", nil)
	assert.Empty(t, log.Entries())
	assert.Equal(t, DefaultEventLogSize, NewEventLog(0, nil).size)
}

func TestLoggedPublisherRecordsEngineEvents(t *testing.T) {
	env := newTestEnv(t)
	log := NewEventLog(10, env.clock)
	env.engine.publisher = log.Logged(env.publisher)
	ctx := context.Background()

	env.start(t, 25, model.ModeFocus)
	env.fire(AlarmTick)
	_, apiErr := env.engine.RecordDistraction(ctx, DistractionInput{URL: "https://news.example"})
	require.Nil(t, apiErr)
	_, apiErr = env.engine.Stop(ctx, true)
	require.Nil(t, apiErr)

	types := make([]string, 0)
	for _, entry := range log.Entries() {
		types = append(types, entry.Type)
	}
	assert.Equal(t, []string{"TIMER_STARTED", "DISTRACTION_COUNT_UPDATED", "TIMER_STOPPED"}, types)

	stopped := log.Entries()[2]
	assert.Equal(t, "session-1", stopped.Fields["sessionId"])
	assert.Equal(t, false, stopped.Fields["completed"])
	assert.Equal(t, 1, log.Entries()[1].Fields["distractions"])

	// Ticks still reach listeners.
	assert.Contains(t, env.publisher.types(), model.EventTimerTick)
}
