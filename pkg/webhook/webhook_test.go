package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigil-project/vigil/pkg/webhook"
)

func TestClientDeliversEvent(t *testing.T) {
	var mu sync.Mutex
	var got []webhook.Event
	var sig string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var ev webhook.Event
		require.NoError(t, json.Unmarshal(body, &ev))
		mu.Lock()
		got = append(got, ev)
		sig = r.Header.Get("X-Vigil-Signature")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := webhook.DefaultConfig()
	cfg.Enabled = true
	cfg.URL = srv.URL
	cfg.Secret = "hush"

	c := webhook.NewClient(cfg)
	c.Send(webhook.Event{
		Event:       webhook.EventFileModified,
		Path:        "docs/a.txt",
		Attribution: "user alice",
	})
	require.NoError(t, c.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, webhook.EventFileModified, got[0].Event)
	assert.Equal(t, "docs/a.txt", got[0].Path)
	assert.NotEmpty(t, got[0].Timestamp)

	// The signature must cover the exact payload bytes that arrived.
	payload, err := json.Marshal(got[0])
	require.NoError(t, err)
	mac := hmac.New(sha256.New, []byte("hush"))
	mac.Write(payload)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), sig)
}

func TestClientRetriesOnServerError(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := webhook.DefaultConfig()
	cfg.Enabled = true
	cfg.URL = srv.URL
	cfg.RetryDelay = 10 * time.Millisecond

	c := webhook.NewClient(cfg)
	c.Send(webhook.Event{Event: webhook.EventFileDeleted, Path: "a.txt"})
	require.NoError(t, c.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestDisabledClientIsNoop(t *testing.T) {
	c := webhook.NewClient(webhook.DefaultConfig())
	c.Send(webhook.Event{Event: webhook.EventFileCreated, Path: "a.txt"})
	assert.NoError(t, c.Close())
}
