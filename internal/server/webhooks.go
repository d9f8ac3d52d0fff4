package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"bobemploi/internal/config"
	"bobemploi/internal/domain"
	"bobemploi/internal/repo"
)

const (
	webhookInterval = 2 * time.Second
	webhookTimeout  = 5 * time.Second
	webhookBatch    = 100
	webhookAttempts = 3
)

// eventDelivery is the body posted to webhooks.
type eventDelivery struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	UserID     string          `json:"userId,omitempty"`
	EntityKind string          `json:"entityKind"`
	EntityID   string          `json:"entityId,omitempty"`
	ActorID    string          `json:"actorId"`
	TS         string          `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

func newEventDelivery(evt domain.Event) eventDelivery {
	payload := json.RawMessage("{}")
	if evt.Payload != "" && json.Valid([]byte(evt.Payload)) {
		payload = json.RawMessage(evt.Payload)
	}
	return eventDelivery{
		ID:         evt.ID,
		Type:       evt.Type,
		UserID:     evt.UserID,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
		TS:         evt.TS,
		Payload:    payload,
	}
}

// webhookTarget is one configured webhook and how far it has read the log.
// Targets are only touched by the goroutine delivering to them.
type webhookTarget struct {
	url     string
	secret  string
	types   map[string]bool
	client  *http.Client
	cursor  int64
	started bool
}

func newWebhookTarget(hook config.WebhookConfig) *webhookTarget {
	timeout := webhookTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	t := &webhookTarget{
		url:    strings.TrimSpace(hook.URL),
		secret: strings.TrimSpace(hook.Secret),
		client: &http.Client{Timeout: timeout},
	}
	for _, typ := range hook.Events {
		if typ = strings.TrimSpace(typ); typ != "" {
			if t.types == nil {
				t.types = map[string]bool{}
			}
			t.types[typ] = true
		}
	}
	return t
}

func (t *webhookTarget) wants(typ string) bool {
	return t.types == nil || t.types[typ]
}

// WebhookDispatcher forwards new audit events to the configured webhooks,
// which is how password reset tokens reach a mailer. Each webhook reads the
// log at its own pace; a delivery that keeps failing is retried on the next
// tick, so events reach a webhook in order and at least once.
type WebhookDispatcher struct {
	repo     repo.Repo
	targets  []*webhookTarget
	logger   *slog.Logger
	interval time.Duration
}

// NewWebhookDispatcher returns nil when no webhook is enabled.
func NewWebhookDispatcher(cfg Config) *WebhookDispatcher {
	if cfg.Settings == nil || cfg.DB == nil {
		return nil
	}
	var targets []*webhookTarget
	for _, hook := range cfg.Settings.Server.Webhooks {
		if hook.Enabled != nil && !*hook.Enabled || strings.TrimSpace(hook.URL) == "" {
			continue
		}
		targets = append(targets, newWebhookTarget(hook))
	}
	if len(targets) == 0 {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookDispatcher{
		repo:     repo.Repo{DB: cfg.DB},
		targets:  targets,
		logger:   logger.With("component", "webhooks"),
		interval: webhookInterval,
	}
}

// Run delivers events until ctx is done. Events logged before the first
// delivery round are not sent.
func (d *WebhookDispatcher) Run(ctx context.Context) {
	if d == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce runs one delivery round, webhooks in parallel. Calls must not
// overlap.
func (d *WebhookDispatcher) DispatchOnce(ctx context.Context) {
	var g errgroup.Group
	for _, t := range d.targets {
		g.Go(func() error {
			d.drain(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *WebhookDispatcher) drain(ctx context.Context, t *webhookTarget) {
	if !t.started {
		latest, err := d.repo.LatestEventID(ctx)
		if err != nil {
			d.logger.Warn("read latest event", "url", t.url, "err", err)
			return
		}
		t.cursor, t.started = latest, true
	}
	evts, err := d.repo.EventsAfter(ctx, webhookBatch, t.cursor)
	if err != nil {
		d.logger.Warn("read events", "url", t.url, "err", err)
		return
	}
	for _, evt := range evts {
		if t.wants(evt.Type) {
			if err := d.deliver(ctx, t, evt); err != nil {
				d.logger.Warn("delivery failed", "url", t.url, "event_id", evt.ID, "err", err)
				return
			}
			d.logger.Debug("delivered", "url", t.url, "event_id", evt.ID, "type", evt.Type)
		}
		t.cursor = evt.ID
	}
}

func (d *WebhookDispatcher) deliver(ctx context.Context, t *webhookTarget, evt domain.Event) error {
	body, err := json.Marshal(newEventDelivery(evt))
	if err != nil {
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), webhookAttempts-1), ctx)
	return backoff.Retry(func() error {
		return t.post(ctx, evt, body)
	}, policy)
}

func (t *webhookTarget) post(ctx context.Context, evt domain.Event, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Bob-Event", evt.Type)
	req.Header.Set("X-Bob-Delivery", strconv.FormatInt(evt.ID, 10))
	if t.secret != "" {
		mac := hmac.New(sha256.New, []byte(t.secret))
		mac.Write(body)
		req.Header.Set("X-Bob-Secret", t.secret)
		req.Header.Set("X-Bob-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}
	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 == 2 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	err = fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}
