package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) any {
	t.Helper()
	select {
	case msg := <-sub.C():
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestSendMessageWithoutListeners(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.SendMessage(context.Background(), "hello"), ErrNoReceiver)
	assert.ErrorIs(t, r.SendMessageToTab(context.Background(), 7, "hello"), ErrNoReceiver)
}

func TestRuntimeAndTabDelivery(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	popup := r.Subscribe(KindRuntime, 0, "")
	dashboard := r.Subscribe(KindRuntime, 0, "")
	tab := r.Subscribe(KindContent, 42, "https://example.com")
	t.Cleanup(popup.Close)
	t.Cleanup(dashboard.Close)
	t.Cleanup(tab.Close)

	assert.NotEqual(t, popup.ID, dashboard.ID)
	assert.Equal(t, 3, r.SubscriberCount())

	require.NoError(t, r.SendMessage(ctx, "runtime"))
	assert.Equal(t, "runtime", receive(t, popup))
	assert.Equal(t, "runtime", receive(t, dashboard))

	require.NoError(t, r.SendMessageToTab(ctx, 42, "tab"))
	assert.Equal(t, "tab", receive(t, tab))

	assert.Equal(t, []Tab{{ID: 42, URL: "https://example.com"}}, r.QueryTabs(ctx))
}

func TestCloseUnregisters(t *testing.T) {
	r := NewRegistry()
	tab := r.Subscribe(KindContent, 3, "")
	tab.Close()
	tab.Close()

	assert.Empty(t, r.QueryTabs(context.Background()))
	assert.Zero(t, r.SubscriberCount())

	_, open := <-tab.C()
	assert.False(t, open)
}

func TestFullBufferDoesNotBlock(t *testing.T) {
	r := NewRegistry()
	sub := r.Subscribe(KindRuntime, 0, "")
	t.Cleanup(sub.Close)

	for i := 0; i < defaultBuffer; i++ {
		require.NoError(t, r.SendMessage(context.Background(), i))
	}
	assert.ErrorIs(t, r.SendMessage(context.Background(), "overflow"), ErrBufferFull)
}
