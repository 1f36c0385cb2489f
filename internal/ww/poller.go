package ww

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pointsbridge/ww-adapter/internal/metrics"
)

// AccountState describes how the host should present an account.
type AccountState string

const (
	// StatePending means no poll cycle has completed yet.
	StatePending AccountState = "pending"
	// StateOK means the last poll produced a snapshot.
	StateOK AccountState = "ok"
	// StateReauthRequired means the last poll failed with an auth error;
	// operator intervention (new credentials) is needed.
	StateReauthRequired AccountState = "reauth_required"
	// StateUnavailable means the last poll failed transiently.
	StateUnavailable AccountState = "unavailable"
)

// SummarySource is the client surface the poller consumes.
type SummarySource interface {
	GetPointsSummary(ctx context.Context, day time.Time) (*PointsSnapshot, error)
}

// EventPublisher emits account events to the host's event bus.
type EventPublisher interface {
	PublishSummaryUpdated(ctx context.Context, account string, snap *PointsSnapshot) error
	PublishStateChanged(ctx context.Context, account string, state string) error
}

// Poller periodically fetches the My Day summary for one account and retains
// the latest snapshot in memory. WW has no push channel, so polling is the
// only mechanism for updates.
type Poller struct {
	logger    *zap.Logger
	account   string
	source    SummarySource
	publisher EventPublisher
	interval  time.Duration
	stopCh    chan struct{}

	mu         sync.RWMutex
	last       *PointsSnapshot
	lastErr    error
	state      AccountState
	lastPolled time.Time
}

// NewPoller constructs a poller for one account.
func NewPoller(logger *zap.Logger, account string, source SummarySource, pub EventPublisher, interval time.Duration) *Poller {
	return &Poller{
		logger:    logger,
		account:   account,
		source:    source,
		publisher: pub,
		interval:  interval,
		stopCh:    make(chan struct{}),
		state:     StatePending,
	}
}

// Start runs the poll loop until the context is canceled or Stop is called.
// An immediate first poll precedes the ticker so the account has data right
// after setup.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("ww.poller_started",
		zap.String("account", p.account),
		zap.Duration("interval", p.interval))

	p.pollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.pollOnce(ctx)
		case <-ctx.Done():
			p.logger.Info("ww.poller_stopped (context cancelled)",
				zap.String("account", p.account))
			return
		case <-p.stopCh:
			p.logger.Info("ww.poller_stopped (manual stop)",
				zap.String("account", p.account))
			return
		}
	}
}

// Stop signals the poller to stop gracefully.
func (p *Poller) Stop() {
	select {
	case <-p.stopCh:
	default:
		close(p.stopCh)
	}
}

// Latest returns the most recent snapshot, the account state, and the last
// poll error, if any. The snapshot is nil until the first successful poll.
func (p *Poller) Latest() (*PointsSnapshot, AccountState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.state, p.lastErr
}

// LastPolled returns when the last poll cycle finished (zero before the first).
func (p *Poller) LastPolled() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPolled
}

// pollOnce runs one poll cycle: fetch, classify, record, publish.
func (p *Poller) pollOnce(ctx context.Context) {
	snap, err := p.source.GetPointsSummary(ctx, time.Time{})

	state := StateOK
	if err != nil {
		switch {
		case IsAuth(err):
			state = StateReauthRequired
		default:
			// Connection and generic failures both present as transient.
			state = StateUnavailable
		}
	}

	p.mu.Lock()
	prevState := p.state
	p.state = state
	p.lastErr = err
	p.lastPolled = time.Now()
	if err == nil {
		p.last = snap
	}
	p.mu.Unlock()

	if err != nil {
		metrics.IncPoll(p.account, string(state))
		p.logger.Warn("ww.poll_failed",
			zap.String("account", p.account),
			zap.String("state", string(state)),
			zap.Error(err))
		if p.publisher != nil && state != prevState {
			if perr := p.publisher.PublishStateChanged(ctx, p.account, string(state)); perr != nil {
				p.logger.Debug("nats.publish_failed", zap.Error(perr))
			}
		}
		return
	}

	metrics.IncPoll(p.account, "ok")
	metrics.SetPoint(p.account, "daily_points_remaining", snap.DailyPointsRemaining)
	metrics.SetPoint(p.account, "daily_points_used", snap.DailyPointsUsed)
	metrics.SetPoint(p.account, "daily_activity_points_earned", snap.DailyActivityPointsEarned)
	metrics.SetPoint(p.account, "weekly_points_remaining", snap.WeeklyPointsRemaining)

	if p.publisher != nil {
		if state != prevState {
			if perr := p.publisher.PublishStateChanged(ctx, p.account, string(state)); perr != nil {
				p.logger.Debug("nats.publish_failed", zap.Error(perr))
			}
		}
		if perr := p.publisher.PublishSummaryUpdated(ctx, p.account, snap); perr != nil {
			p.logger.Debug("nats.publish_failed", zap.Error(perr))
		}
	}

	p.logger.Info("ww.summary_polled",
		zap.String("account", p.account),
		zap.Time("polled_at", p.lastPolled))
}
