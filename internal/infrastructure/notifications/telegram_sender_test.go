package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/serviceportal/pkg/config"
)

type fakeBotAPI struct {
	mu   sync.Mutex
	sent []map[string]string
}

func (f *fakeBotAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Portal","username":"portal_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			f.mu.Lock()
			f.sent = append(f.sent, map[string]string{"chat_id": r.FormValue("chat_id"), "text": r.FormValue("text")})
			f.mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"group"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}
}

func TestNewTelegramSender(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TelegramConfig
		wantErr bool
	}{
		{name: "missing token", cfg: config.TelegramConfig{ChatID: 42}, wantErr: true},
		{name: "missing chat", cfg: config.TelegramConfig{Token: "123:abc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTelegramSender(tt.cfg)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestTelegramSender_Notify(t *testing.T) {
	fake := &fakeBotAPI{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	sender, err := NewTelegramSender(config.TelegramConfig{
		Token:       "123:abc",
		ChatID:      42,
		APIEndpoint: server.URL + "/bot%s/%s",
	})
	require.NoError(t, err)
	assert.Equal(t, "portal_bot", sender.BotName())

	require.NoError(t, sender.Notify(context.Background(), "New Plumbing request #1"))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "42", fake.sent[0]["chat_id"])
	assert.Equal(t, "New Plumbing request #1", fake.sent[0]["text"])
}

func TestTelegramSender_NotifyCancelled(t *testing.T) {
	fake := &fakeBotAPI{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	sender, err := NewTelegramSender(config.TelegramConfig{Token: "123:abc", ChatID: 42, APIEndpoint: server.URL + "/bot%s/%s"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sender.Notify(ctx, "ignored"), context.Canceled)
	assert.Empty(t, fake.sent)
}
