package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake(t *testing.T) {
	start := time.Date(2026, 5, 4, 23, 59, 0, 0, time.UTC)
	f := NewFake(start)
	assert.Equal(t, start, f.Now())

	f.Advance(2 * time.Minute)
	assert.Equal(t, "2026-05-05", f.Now().Format("2006-01-02"))

	f.Set(start)
	assert.Equal(t, start, f.Now())
}

func TestRealLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	now := Real{Location: loc}.Now()
	assert.Equal(t, loc, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Second)
}
