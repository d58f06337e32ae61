// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package push delivers task status changes to client-registered webhooks.
package push

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/internal/metrics"
	"github.com/go-a2a/a2a-engine/internal/pool"
)

// Notifier is told about every task status change. Implementations are best effort:
// Notify never blocks on delivery and never reports failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, task *a2a.Task)
}

// HTTPNotifier posts status changes to the webhooks registered in a [ConfigStore].
//
// Deliveries run on a fixed set of workers, each fed by its own bounded queue. All
// notifications of one task go to the same worker, so a webhook sees them in the order
// the statuses changed. When a queue is full the notification is dropped and logged.
type HTTPNotifier struct {
	configs ConfigStore
	client  *http.Client
	signer  *JWTSigner
	logger  *slog.Logger

	retries  int
	backoff  time.Duration
	perHost  rate.Limit
	burst    int
	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter

	workers   int
	queueSize int

	mu     sync.RWMutex
	closed bool
	shards []chan delivery
	wg     sync.WaitGroup
}

var _ Notifier = (*HTTPNotifier)(nil)

type delivery struct {
	taskID  string
	body    []byte
	configs []a2a.PushNotificationConfig
}

// Option configures an [HTTPNotifier].
type Option func(*HTTPNotifier)

// WithHTTPClient sets the client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(n *HTTPNotifier) { n.client = c }
}

// WithSigner signs every notification body.
func WithSigner(s *JWTSigner) Option {
	return func(n *HTTPNotifier) { n.signer = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *HTTPNotifier) { n.logger = l }
}

// WithRetry sets the number of extra attempts after a failed delivery and the initial
// backoff between them, doubled after each attempt.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(n *HTTPNotifier) {
		n.retries = retries
		n.backoff = backoff
	}
}

// WithRateLimit bounds deliveries per webhook host.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(n *HTTPNotifier) {
		n.perHost = rate.Limit(perSecond)
		n.burst = burst
	}
}

// WithWorkers sets the number of delivery workers and the total queue depth shared
// between them.
func WithWorkers(workers, queueSize int) Option {
	return func(n *HTTPNotifier) {
		n.workers = workers
		n.queueSize = queueSize
	}
}

// NewHTTPNotifier returns a running notifier. Call Close to stop its workers.
func NewHTTPNotifier(configs ConfigStore, opts ...Option) *HTTPNotifier {
	n := &HTTPNotifier{
		configs:   configs,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    slog.Default(),
		retries:   2,
		backoff:   200 * time.Millisecond,
		perHost:   rate.Limit(20),
		burst:     10,
		limiters:  make(map[string]*rate.Limiter),
		workers:   4,
		queueSize: 256,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.startWorkers()
	return n
}

func (n *HTTPNotifier) startWorkers() {
	workers := max(n.workers, 1)
	depth := max((n.queueSize+workers-1)/workers, 1)
	n.shards = make([]chan delivery, workers)
	for i := range n.shards {
		n.shards[i] = make(chan delivery, depth)
		n.wg.Add(1)
		go n.worker(n.shards[i])
	}
}

// shard returns the queue of the worker owning taskID.
func (n *HTTPNotifier) shard(taskID string) chan delivery {
	h := fnv.New32a()
	_, _ = h.Write([]byte(taskID))
	return n.shards[h.Sum32()%uint32(len(n.shards))]
}

// Notify implements [Notifier].
func (n *HTTPNotifier) Notify(ctx context.Context, task *a2a.Task) {
	configs, err := n.configs.Get(ctx, task.ID)
	if err != nil {
		n.logger.WarnContext(ctx, "load push configs", "task_id", task.ID, "error", err)
		return
	}
	if len(configs) == 0 {
		return
	}

	ev := &a2a.TaskStatusUpdateEvent{
		Kind:      a2a.KindStatusUpdate,
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Status:    task.Status,
		Final:     a2a.EndsTurn(task.Status.State),
	}
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)
	if err := json.MarshalWrite(buf, ev); err != nil {
		n.logger.ErrorContext(ctx, "encode push notification", "task_id", task.ID, "error", err)
		return
	}
	job := delivery{
		taskID:  task.ID,
		body:    bytes.Clone(buf.Bytes()),
		configs: configs,
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.shard(task.ID) <- job:
	default:
		metrics.PushDeliveries.WithLabelValues("dropped").Add(float64(len(configs)))
		n.logger.WarnContext(ctx, "push queue full, dropping notification",
			"task_id", task.ID, "state", task.Status.State)
	}
}

func (n *HTTPNotifier) worker(jobs <-chan delivery) {
	defer n.wg.Done()
	for job := range jobs {
		n.deliverAll(context.Background(), job)
	}
}

func (n *HTTPNotifier) deliverAll(ctx context.Context, job delivery) {
	var g errgroup.Group
	for _, cfg := range job.configs {
		g.Go(func() error {
			if err := n.deliver(ctx, cfg, job.body); err != nil {
				metrics.PushDeliveries.WithLabelValues("failed").Inc()
				n.logger.WarnContext(ctx, "push notification failed",
					"task_id", job.taskID, "url", cfg.URL, "error", err)
				return err
			}
			metrics.PushDeliveries.WithLabelValues("delivered").Inc()
			n.logger.DebugContext(ctx, "push notification delivered", "task_id", job.taskID, "url", cfg.URL)
			return nil
		})
	}
	_ = g.Wait()
}

func (n *HTTPNotifier) limiter(rawURL string) *rate.Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	n.limitMu.Lock()
	defer n.limitMu.Unlock()
	l, ok := n.limiters[host]
	if !ok {
		l = rate.NewLimiter(n.perHost, n.burst)
		n.limiters[host] = l
	}
	return l
}

// permanentError stops the retry loop.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func (n *HTTPNotifier) deliver(ctx context.Context, cfg a2a.PushNotificationConfig, body []byte) error {
	backoff := n.backoff
	var err error
	for attempt := 0; attempt <= n.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = n.limiter(cfg.URL).Wait(ctx); err != nil {
			return err
		}
		err = n.post(ctx, cfg, body)
		if err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
	}
	return err
}

func (n *HTTPNotifier) post(ctx context.Context, cfg a2a.PushNotificationConfig, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return permanentError{err}
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	if n.signer != nil {
		token, err := n.signer.Sign(body)
		if err != nil {
			return permanentError{err}
		}
		req.Header.Set(SignatureHeader, token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("webhook returned %s", resp.Status)
	default:
		return permanentError{fmt.Errorf("webhook returned %s", resp.Status)}
	}
}

// Close stops accepting notifications and waits for queued deliveries, bounded by ctx.
func (n *HTTPNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		for _, jobs := range n.shards {
			close(jobs)
		}
	}
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
