package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/delayqueue"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	notifications.NotificationStore
	notifications.DeliveryLogStore
}

// Job is one attempt of one (recipient, channel) unit.
type Job struct {
	NotificationID string
	RecipientID    string
	UserID         string
	Channel        notifications.Channel
	Attempt        int
}

type unitKey struct {
	recipientID string
	channel     notifications.Channel
}

func (j Job) key() unitKey { return unitKey{j.RecipientID, j.Channel} }

func (j Job) entry(due time.Time) delayqueue.Entry {
	return delayqueue.Entry{
		NotificationID: j.NotificationID,
		RecipientID:    j.RecipientID,
		UserID:         j.UserID,
		Channel:        j.Channel,
		Attempt:        j.Attempt,
		DueAt:          due,
	}
}

func jobFromEntry(e delayqueue.Entry) Job {
	return Job{
		NotificationID: e.NotificationID,
		RecipientID:    e.RecipientID,
		UserID:         e.UserID,
		Channel:        e.Channel,
		Attempt:        e.Attempt,
	}
}

// Outcome is how one attempt ended.
type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeRetrying  Outcome = "retrying"
	OutcomeFailed    Outcome = "failed"
	OutcomeThrottled Outcome = "throttled"
	OutcomeWithdrawn Outcome = "withdrawn"
	OutcomeSkipped   Outcome = "skipped"
)

// Result describes one attempt.
type Result struct {
	Job     Job
	Outcome Outcome
	Log     notifications.DeliveryLog
	// Err is the classified delivery error for failed and retrying outcomes.
	Err error
	// RetryAt is when the next attempt is due for retrying and throttled
	// outcomes.
	RetryAt time.Time
}

// Report summarizes DispatchAll.
type Report struct {
	Submitted   int
	InProgress  int
	Unsupported []notifications.Channel
}

type pool struct {
	jobs    chan Job
	workers int
}

// Dispatcher runs delivery attempts on per-channel worker pools.
type Dispatcher struct {
	cfg        Config
	store      Store
	transports map[notifications.Channel]channel.Transport
	limiters   map[notifications.Channel]Limiter
	addresses  AddressBook
	delay      delayqueue.Queue
	backoff    Backoff
	registerer prometheus.Registerer
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time

	pools map[notifications.Channel]*pool

	claimMu sync.Mutex
	claims  map[unitKey]struct{}

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup
}

func New(store Store, cfg Config, opts ...Option) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		cfg:        cfg,
		store:      store,
		transports: make(map[notifications.Channel]channel.Transport),
		limiters:   make(map[notifications.Channel]Limiter),
		addresses:  NewMemoryAddressBook(),
		backoff:    NewBackoff(cfg),
		registerer: prometheus.NewRegistry(),
		logger:     slog.Default(),
		now:        time.Now,
		pools:      make(map[notifications.Channel]*pool),
		claims:     make(map[unitKey]struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.delay == nil {
		d.delay = delayqueue.NewTimerQueue(delayqueue.WithTimerClock(d.now))
	}

	m, err := NewMetrics(d.registerer)
	if err != nil {
		return nil, err
	}
	d.metrics = m

	for ch := range d.transports {
		d.pools[ch] = &pool{
			jobs:    make(chan Job, cfg.QueueSize),
			workers: cfg.workersFor(ch),
		}
	}
	return d, nil
}

// Metrics exposes the collectors, mainly for tests.
func (d *Dispatcher) Metrics() *Metrics { return d.metrics }

// Channels lists channels that have a transport.
func (d *Dispatcher) Channels() []notifications.Channel {
	out := make([]notifications.Channel, 0, len(d.transports))
	for ch := range d.transports {
		out = append(out, ch)
	}
	return out
}

// Start launches the pools and the delay queue consumer.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.running, d.cancel = true, cancel
	d.mu.Unlock()

	for _, p := range d.pools {
		for range p.workers {
			d.wg.Add(1)
			go d.work(runCtx, p)
		}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.delay.Run(runCtx, d.handleDue); err != nil {
			d.logger.LogAttrs(runCtx, slog.LevelError, "delay queue stopped",
				logger.Component("dispatcher"), logger.Error(err))
		}
	}()

	d.logger.LogAttrs(ctx, slog.LevelInfo, "dispatcher started",
		logger.Component("dispatcher"), logger.Count("channels", len(d.pools)))
	return nil
}

// Stop waits for running attempts and parks queued ones back on the delay
// queue with their current attempt, due immediately, so a durable queue hands
// them to the next dispatcher. Parked units are released.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.done)
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()

	ctx := context.Background()
	var parked, lost int
	for _, p := range d.pools {
	drain:
		for {
			select {
			case job := <-p.jobs:
				if err := d.park(ctx, job); err != nil {
					lost++
				} else {
					parked++
				}
			default:
				break drain
			}
		}
	}

	level := slog.LevelInfo
	if lost > 0 {
		level = slog.LevelError
	}
	d.logger.LogAttrs(ctx, level, "dispatcher stopped",
		logger.Component("dispatcher"), logger.Count("parked", parked), logger.Count("lost", lost))
	return nil
}

// park reschedules a queued job that will not run on this dispatcher and
// releases its unit.
func (d *Dispatcher) park(ctx context.Context, job Job) error {
	defer d.release(job.key())
	if err := d.delay.Push(ctx, job.entry(d.now())); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "could not park queued attempt",
			logger.NotificationID(job.NotificationID), logger.RecipientID(job.RecipientID),
			logger.Channel(string(job.Channel)), logger.Attempt(job.Attempt), logger.Error(err))
		return err
	}
	return nil
}

// Run returns a function for errgroup that runs the dispatcher until ctx is
// done.
func (d *Dispatcher) Run(ctx context.Context) func() error {
	return func() error {
		if err := d.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return d.Stop()
	}
}

// Submit claims the unit for (r, ch) and queues its first attempt. It blocks
// while the channel queue is full.
func (d *Dispatcher) Submit(ctx context.Context, r notifications.Recipient, ch notifications.Channel) error {
	if d.isStopped() {
		return ErrStopped
	}
	if _, ok := d.transports[ch]; !ok {
		return fmt.Errorf("%w: %s", ErrNoTransport, ch)
	}

	job := Job{NotificationID: r.NotificationID, RecipientID: r.ID, UserID: r.UserID, Channel: ch, Attempt: 1}
	if !d.tryClaim(job.key()) {
		return ErrInProgress
	}
	if err := d.enqueue(ctx, job); err != nil {
		d.release(job.key())
		return err
	}
	return nil
}

// Dispatch runs the first attempt for (r, ch) on the calling goroutine.
// Retries it schedules run on the pools once the dispatcher is started.
func (d *Dispatcher) Dispatch(ctx context.Context, r notifications.Recipient, ch notifications.Channel) (Result, error) {
	if _, ok := d.transports[ch]; !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNoTransport, ch)
	}

	job := Job{NotificationID: r.NotificationID, RecipientID: r.ID, UserID: r.UserID, Channel: ch, Attempt: 1}
	if !d.tryClaim(job.key()) {
		return Result{}, ErrInProgress
	}
	return d.process(ctx, job)
}

// DispatchAll submits every recipient on every channel of n. A channel
// without a transport gets one unattributed failed log and is skipped. Units
// already in progress are counted, not resubmitted.
func (d *Dispatcher) DispatchAll(ctx context.Context, n notifications.Notification, recipients []notifications.Recipient) (Report, error) {
	var report Report

	for _, ch := range n.Channels {
		if _, ok := d.transports[ch]; !ok {
			msg := fmt.Sprintf("no transport configured for channel %s", ch)
			if _, err := d.store.AppendDeliveryLog(ctx, notifications.DeliveryLog{
				NotificationID: n.ID,
				Channel:        ch,
				Status:         notifications.StatusFailed,
				ErrorMessage:   &msg,
			}); err != nil {
				return report, err
			}
			d.logger.LogAttrs(ctx, slog.LevelWarn, "channel has no transport",
				logger.NotificationID(n.ID), logger.Channel(string(ch)))
			report.Unsupported = append(report.Unsupported, ch)
			continue
		}

		for _, r := range recipients {
			switch err := d.Submit(ctx, r, ch); {
			case err == nil:
				report.Submitted++
			case errors.Is(err, ErrInProgress):
				report.InProgress++
			default:
				return report, err
			}
		}
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "notification dispatched",
		logger.NotificationID(n.ID),
		logger.Count("submitted", report.Submitted),
		logger.Count("in_progress", report.InProgress),
	)
	return report, nil
}

// Acknowledge records a provider delivery receipt. Only sent logs can become
// delivered; repeating an acknowledgement is a no-op.
func (d *Dispatcher) Acknowledge(ctx context.Context, logID string, status notifications.DeliveryStatus) (notifications.DeliveryLog, error) {
	if status != notifications.StatusDelivered {
		return notifications.DeliveryLog{}, fmt.Errorf("%w: receipts may only report %s, got %s",
			notifications.ErrInvalidTransition, notifications.StatusDelivered, status)
	}

	l, err := d.store.GetDeliveryLog(ctx, logID)
	if err != nil {
		return notifications.DeliveryLog{}, err
	}
	if l.Status == notifications.StatusDelivered {
		return l, nil
	}

	l, err = d.store.UpdateDeliveryLog(ctx, logID, notifications.LogUpdate{
		From: notifications.StatusSent,
		To:   notifications.StatusDelivered,
	})
	if err != nil {
		return l, err
	}

	d.logger.LogAttrs(ctx, slog.LevelDebug, "delivery acknowledged",
		logger.DeliveryLogID(logID), logger.Channel(string(l.Channel)))
	return l, nil
}

// Withdraw stops every attempt of the notification that has not yet reached
// its transport.
func (d *Dispatcher) Withdraw(ctx context.Context, notificationID string) error {
	if err := d.store.WithdrawNotification(ctx, notificationID, d.now()); err != nil {
		return err
	}
	d.logger.LogAttrs(ctx, slog.LevelInfo, "notification withdrawn", logger.NotificationID(notificationID))
	return nil
}

func (d *Dispatcher) work(ctx context.Context, p *pool) {
	defer d.wg.Done()

	// Attempts outlive Stop so in-flight sends and their log writes finish.
	attemptCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			if _, err := d.process(attemptCtx, job); err != nil {
				d.logger.LogAttrs(ctx, slog.LevelError, "delivery attempt failed to complete",
					logger.RecipientID(job.RecipientID), logger.Channel(string(job.Channel)),
					logger.Attempt(job.Attempt), logger.Error(err))
			}
		}
	}
}

// handleDue moves a due retry back onto its pool. The unit stays claimed
// while it waits; claiming again covers entries scheduled by another replica.
func (d *Dispatcher) handleDue(ctx context.Context, e delayqueue.Entry) {
	job := jobFromEntry(e)
	if _, ok := d.transports[job.Channel]; !ok {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "dropping retry for channel without transport",
			logger.RecipientID(job.RecipientID), logger.Channel(string(job.Channel)))
		return
	}

	d.claim(job.key())
	if err := d.enqueue(ctx, job); err != nil {
		// The entry already left the delay queue; put it back.
		d.logger.LogAttrs(ctx, slog.LevelDebug, "due retry not queued, parking",
			logger.RecipientID(job.RecipientID), logger.Channel(string(job.Channel)),
			logger.Attempt(job.Attempt), logger.Error(err))
		_ = d.park(context.WithoutCancel(ctx), job)
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, job Job) error {
	p := d.pools[job.Channel]
	select {
	case <-d.done:
		return ErrStopped
	default:
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrStopped
	}
}

// process runs one attempt of a claimed unit and releases the claim unless
// another attempt was scheduled. The returned error reports storage or
// scheduling problems; delivery failures are in Result.Err.
func (d *Dispatcher) process(ctx context.Context, job Job) (res Result, err error) {
	res.Job = job
	keep := false
	defer func() {
		if !keep {
			d.release(job.key())
		}
		if res.Outcome != "" {
			d.metrics.Attempts.WithLabelValues(string(job.Channel), string(res.Outcome)).Inc()
		}
	}()

	log := d.logger.With(
		logger.NotificationID(job.NotificationID),
		logger.RecipientID(job.RecipientID),
		logger.Channel(string(job.Channel)),
		logger.Attempt(job.Attempt),
	)

	withdrawn, err := d.store.IsWithdrawn(ctx, job.NotificationID)
	if err != nil {
		return res, err
	}
	if withdrawn {
		res.Outcome = OutcomeWithdrawn
		log.LogAttrs(ctx, slog.LevelDebug, "skipping withdrawn notification")
		return res, nil
	}

	n, err := d.store.GetNotification(ctx, job.NotificationID)
	if err != nil {
		return res, err
	}

	l, err := d.store.UpsertDeliveryLog(ctx, job.NotificationID, job.RecipientID, job.Channel)
	if errors.Is(err, notifications.ErrInvalidTransition) {
		res.Outcome, res.Log = OutcomeSkipped, l
		log.LogAttrs(ctx, slog.LevelDebug, "unit already delivered", logger.Status(string(l.Status)))
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.Log = l

	addr, err := d.address(ctx, job)
	if err != nil {
		if errors.Is(err, ErrNoAddress) {
			err = channel.Permanent(err)
		}
		return d.fail(ctx, log, res, err, &keep)
	}

	if lim, ok := d.limiters[job.Channel]; ok {
		allowed, err := lim.Allow(ctx, string(job.Channel))
		switch {
		case err != nil:
			log.LogAttrs(ctx, slog.LevelWarn, "throttle unavailable, sending anyway", logger.Error(err))
		case !allowed.Allowed:
			due := d.now().Add(allowed.RetryAfter)
			if err := d.delay.Push(ctx, job.entry(due)); err != nil {
				return res, err
			}
			keep = true
			res.Outcome, res.RetryAt = OutcomeThrottled, due
			log.LogAttrs(ctx, slog.LevelDebug, "throttled", slog.Duration("retry_after", allowed.RetryAfter))
			return res, nil
		}
	}

	msg := channel.Message{
		ID:             l.ID,
		NotificationID: n.ID,
		RecipientID:    job.RecipientID,
		UserID:         job.UserID,
		Channel:        job.Channel,
		Address:        addr,
		Subject:        n.Subject,
		Body:           n.Body,
	}

	ack, sendErr := d.send(ctx, msg)
	if sendErr != nil {
		return d.fail(ctx, log, res, sendErr, &keep)
	}

	sentAt := d.now()
	l, err = d.store.UpdateDeliveryLog(ctx, l.ID, notifications.LogUpdate{
		From:   notifications.StatusPending,
		To:     notifications.StatusSent,
		SentAt: &sentAt,
	})
	if err != nil {
		return res, err
	}
	res.Outcome, res.Log = OutcomeSent, l
	log.LogAttrs(ctx, slog.LevelInfo, "notification sent",
		logger.DeliveryLogID(l.ID), slog.String("provider_message_id", ack.ProviderMessageID))
	return res, nil
}

// send calls the transport under the attempt timeout. A timed out call is
// transient whatever the transport returned.
func (d *Dispatcher) send(ctx context.Context, msg channel.Message) (channel.Ack, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	defer cancel()

	ch := string(msg.Channel)
	d.metrics.InFlight.WithLabelValues(ch).Inc()
	start := time.Now()
	ack, err := d.transports[msg.Channel].Send(ctx, msg)
	d.metrics.Duration.WithLabelValues(ch).Observe(time.Since(start).Seconds())
	d.metrics.InFlight.WithLabelValues(ch).Dec()

	if err == nil {
		return ack, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ack, channel.Transient(fmt.Errorf("attempt timed out after %v: %w", d.cfg.AttemptTimeout, ctx.Err()))
	}
	return ack, channel.Classify(err)
}

// fail records a failed attempt and schedules the next one when the error is
// transient and attempts remain.
func (d *Dispatcher) fail(ctx context.Context, log *slog.Logger, res Result, cause error, keep *bool) (Result, error) {
	cause = channel.Classify(cause)
	res.Err = cause

	msg := errorMessage(cause)
	l, err := d.store.UpdateDeliveryLog(ctx, res.Log.ID, notifications.LogUpdate{
		From:         notifications.StatusPending,
		To:           notifications.StatusFailed,
		ErrorMessage: &msg,
	})
	if err != nil {
		return res, err
	}
	res.Log = l

	job := res.Job
	if !channel.IsTransient(cause) || job.Attempt >= d.cfg.MaxAttempts {
		res.Outcome = OutcomeFailed
		log.LogAttrs(ctx, slog.LevelWarn, "delivery failed", logger.Error(cause),
			slog.Bool("permanent", channel.IsPermanent(cause)))
		return res, nil
	}

	next := job
	next.Attempt++
	due := d.now().Add(d.backoff.Delay(job.Attempt))
	if err := d.delay.Push(ctx, next.entry(due)); err != nil {
		res.Outcome = OutcomeFailed
		log.LogAttrs(ctx, slog.LevelError, "could not schedule retry", logger.Error(err))
		return res, err
	}

	*keep = true
	res.Outcome, res.RetryAt = OutcomeRetrying, due
	d.metrics.Retries.WithLabelValues(string(job.Channel)).Inc()
	log.LogAttrs(ctx, slog.LevelInfo, "delivery retry scheduled", logger.Error(cause), slog.Time("retry_at", due))
	return res, nil
}

// errorMessage flattens joined errors onto one line for the delivery log.
func errorMessage(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", ": ")
}

func (d *Dispatcher) address(ctx context.Context, job Job) (string, error) {
	if job.Channel == notifications.ChannelInApp {
		return job.UserID, nil
	}
	return d.addresses.Address(ctx, job.UserID, job.Channel)
}

func (d *Dispatcher) tryClaim(k unitKey) bool {
	d.claimMu.Lock()
	defer d.claimMu.Unlock()
	if _, ok := d.claims[k]; ok {
		return false
	}
	d.claims[k] = struct{}{}
	return true
}

func (d *Dispatcher) claim(k unitKey) {
	d.claimMu.Lock()
	defer d.claimMu.Unlock()
	d.claims[k] = struct{}{}
}

func (d *Dispatcher) release(k unitKey) {
	d.claimMu.Lock()
	defer d.claimMu.Unlock()
	delete(d.claims, k)
}

func (d *Dispatcher) isStopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}
