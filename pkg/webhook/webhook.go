// Package webhook provides HTTP webhook notification support for vigil alerts.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// EventType represents the type of vigil event that can trigger webhooks.
type EventType string

const (
	EventFileCreated  EventType = "file.created"
	EventFileModified EventType = "file.modified"
	EventFileDeleted  EventType = "file.deleted"
	EventFileMoved    EventType = "file.moved"
)

// Event represents a vigil alert payload sent to webhooks.
type Event struct {
	Event       EventType `json:"event"`
	Timestamp   string    `json:"timestamp"`
	MonitorID   string    `json:"monitor_id,omitempty"`
	Root        string    `json:"root,omitempty"`
	Path        string    `json:"path,omitempty"`
	Hash        string    `json:"hash,omitempty"`
	Attribution string    `json:"attribution,omitempty"`
}

// Config represents the webhook configuration.
type Config struct {
	Enabled    bool
	URL        string
	Secret     string
	MaxRetries int
	RetryDelay time.Duration
	QueueSize  int
}

// DefaultConfig returns the default webhook configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
		QueueSize:  100,
	}
}

// Client handles sending webhook notifications. Dispatch is
// asynchronous and best-effort: a slow or unreachable endpoint never
// blocks the event loop.
type Client struct {
	config *Config
	http   *http.Client
	queue  chan Event
	wg     sync.WaitGroup
	done   chan struct{}
	once   sync.Once

	// onError receives dispatch failures; replaceable in tests.
	onError func(error)
}

// NewClient creates a new webhook client.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}

	c := &Client{
		config:  cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		queue:   make(chan Event, cfg.QueueSize),
		done:    make(chan struct{}),
		onError: func(error) {},
	}

	if cfg.Enabled && cfg.URL != "" {
		c.start()
	}
	return c
}

// SetErrorHandler installs a callback for dispatch failures.
func (c *Client) SetErrorHandler(fn func(error)) {
	if fn != nil {
		c.onError = fn
	}
}

func (c *Client) start() {
	c.once.Do(func() {
		c.wg.Add(1)
		go c.worker()
	})
}

func (c *Client) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			// Drain remaining events before exit. Retries still run
			// here: Close waits for the queue to deliver.
			for {
				select {
				case ev := <-c.queue:
					if err := c.sendSync(ev); err != nil {
						c.onError(err)
					}
				default:
					return
				}
			}
		case ev := <-c.queue:
			if err := c.sendSync(ev); err != nil {
				c.onError(err)
			}
		}
	}
}

// Send queues an event for background delivery. A full queue drops the
// event rather than blocking.
func (c *Client) Send(ev Event) {
	if !c.config.Enabled || c.config.URL == "" {
		return
	}
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().Format(time.RFC3339)
	}
	select {
	case c.queue <- ev:
	default:
		c.onError(fmt.Errorf("webhook queue full, dropping event %s for %s", ev.Event, ev.Path))
	}
}

// sendSync delivers one event with retries.
func (c *Client) sendSync(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(c.config.RetryDelay)
		}

		req, err := c.createRequest(payload)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	return lastErr
}

func (c *Client) createRequest(payload []byte) (*http.Request, error) {
	req, err := http.NewRequest("POST", c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Vigil-Webhook/1.0")

	if c.config.Secret != "" {
		req.Header.Set("X-Vigil-Signature", sign(payload, c.config.Secret))
	}
	return req, nil
}

// sign creates an HMAC-SHA256 signature for the payload.
func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Close shuts down the webhook client, draining queued events first.
func (c *Client) Close() error {
	if !c.config.Enabled || c.config.URL == "" {
		return nil
	}
	close(c.done)
	c.wg.Wait()
	return nil
}
