package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigmaHunter/internal/calculator"
	"SigmaHunter/internal/collector"
	"SigmaHunter/internal/model"
)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []string
	failures int
}

func (f *fakeTelegram) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bottok/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failures > 0 {
			f.failures--
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "42", payload["chat_id"])
		assert.Equal(t, "HTML", payload["parse_mode"])
		f.sent = append(f.sent, payload["text"])
	})
	mux.HandleFunc("/bottok/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("offset"))
		fmt.Fprint(w, `{"ok":true,"result":[{"update_id":7,"message":{"text":" /bands "}},{"update_id":8}]}`)
	})
	return mux
}

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("tok", "42", "")
	n.APIBase = srv.URL
	return n
}

func TestSend(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).Send(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, fake.sent)
}

func TestSendWithRetry_RecoversAfterFailure(t *testing.T) {
	fake := &fakeTelegram{failures: 1}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).SendWithRetry(context.Background(), "retry me", 2))
	assert.Equal(t, []string{"retry me"}, fake.sent)
}

func TestSendWithRetry_CancelledContext(t *testing.T) {
	fake := &fakeTelegram{failures: 10}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.Error(t, newTestNotifier(srv).SendWithRetry(ctx, "x", 3))
}

func TestPollOnce(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	var got []string
	next, err := newTestNotifier(srv).PollOnce(context.Background(), srv.Client(), 7, 0, func(cmd string) string {
		got = append(got, cmd)
		return "reply to " + cmd
	})
	require.NoError(t, err)
	assert.Equal(t, 9, next)
	assert.Equal(t, []string{"/bands"}, got)
	assert.Equal(t, []string{"reply to /bands"}, fake.sent)
}

func TestPollOnce_RejectedResponseKeepsOffset(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`},
		{"ok false", http.StatusOK, `{"ok":false,"description":"Conflict: terminated by other getUpdates request"}`},
		{"gateway html", http.StatusBadGateway, `<html>bad gateway</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			called := false
			next, err := newTestNotifier(srv).PollOnce(context.Background(), srv.Client(), 7, 0, func(string) string {
				called = true
				return ""
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprint(tt.status))
			assert.Equal(t, 7, next)
			assert.False(t, called)
		})
	}
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewTelegramNotifier("", "", "").Enabled())
	assert.True(t, NewTelegramNotifier("t", "c", "").Enabled())
	var n *TelegramNotifier
	assert.False(t, n.Enabled())
}

func TestFormatRunSummary(t *testing.T) {
	far, err := calculator.CalculateBands("SOXX", 100, 4)
	require.NoError(t, err)
	near, err := calculator.CalculateBands("GLD", 100, 0.5)
	require.NoError(t, err)
	run := &model.Run{
		StartedAt: time.Date(2026, 10, 17, 16, 30, 0, 0, time.UTC),
		Results: []model.BandResult{
			{Symbol: "SOXX", Band: &far},
			{Symbol: "URA", Err: &collector.FetchError{Symbol: "URA", Stage: collector.StageExpirations, Err: calculator.ErrNoExpirations}},
			{Symbol: "GLD", Band: &near},
		},
	}
	msg := FormatRunSummary(run, 2)
	assert.Contains(t, msg, "2026-10-17 16:30")
	assert.Contains(t, msg, "<b>SOXX</b> 100.00 (±4.00)\n")
	assert.Contains(t, msg, "2σ: 92.00 ~ 108.00 | dist 8.00%")
	assert.Contains(t, msg, "<b>GLD</b> 100.00 (±0.50) 🔴")
	assert.Contains(t, msg, "URA (expirations)")
}

func TestFormatRunSummary_MarkerMatchesDisplayedDistance(t *testing.T) {
	edge, err := calculator.CalculateBands("UGL", 100, 1.002)
	require.NoError(t, err)
	run := &model.Run{Results: []model.BandResult{{Symbol: "UGL", Band: &edge}}}

	msg := FormatRunSummary(run, 2)
	assert.Contains(t, msg, "dist 2.00%")
	assert.Contains(t, msg, "<b>UGL</b> 100.00 (±1.00) 🔴")
}
