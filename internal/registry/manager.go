package registry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pointsbridge/ww-adapter/internal/rate"
	"github.com/pointsbridge/ww-adapter/internal/ww"
	"github.com/pointsbridge/ww-adapter/pkg/utils"
)

// ErrAlreadyRegistered is returned when an account with the same username is
// already active.
var ErrAlreadyRegistered = errors.New("account already registered")

// Manager provisions account coordinators: it validates credentials, builds
// the client and poller, starts polling, and records the pair in the
// registry. Teardown goes back through Remove.
type Manager struct {
	logger   *zap.Logger
	reg      *Registry
	rateMgr  *rate.Manager
	pub      ww.EventPublisher
	interval time.Duration

	// baseCtx parents every poller so process shutdown stops them all.
	baseCtx context.Context
}

// NewManager wires a Manager. pub may be nil when no event bus is configured.
func NewManager(baseCtx context.Context, logger *zap.Logger, reg *Registry, rateMgr *rate.Manager, pub ww.EventPublisher, interval time.Duration) *Manager {
	return &Manager{
		logger:   logger,
		reg:      reg,
		rateMgr:  rateMgr,
		pub:      pub,
		interval: interval,
		baseCtx:  baseCtx,
	}
}

// Create validates the credentials against the live WW API and, on success,
// registers the account and starts its poller. The validation doubles as the
// login check, so a bad password surfaces as an auth error here rather than
// on the first poll.
func (m *Manager) Create(ctx context.Context, creds ww.Credentials) (*Entry, error) {
	if creds.Region == "" {
		creds.Region = ww.DefaultRegion
	}
	if m.reg.HasAccount(creds.Username) {
		return nil, ErrAlreadyRegistered
	}

	client, err := ww.NewClient(m.logger, m.rateMgr, creds)
	if err != nil {
		return nil, err
	}

	if _, err := client.ValidateCredentials(ctx); err != nil {
		m.logger.Warn("ww.validate_credentials_failed",
			zap.String("account", utils.MaskEmail(creds.Username)),
			zap.Error(err))
		return nil, err
	}

	poller := ww.NewPoller(m.logger, creds.Username, client, m.pub, m.interval)
	pollCtx, cancel := context.WithCancel(m.baseCtx)
	go poller.Start(pollCtx)

	entry := m.reg.Add(creds.Username, creds.Region, client, poller, cancel)
	m.logger.Info("ww.account_registered",
		zap.String("entry_id", entry.ID),
		zap.String("account", utils.MaskEmail(creds.Username)),
		zap.String("region", creds.Region))
	return entry, nil
}

// Get returns the entry for id.
func (m *Manager) Get(id string) (*Entry, bool) { return m.reg.Get(id) }

// List returns all active entries.
func (m *Manager) List() []*Entry { return m.reg.List() }

// Remove tears down the entry for id.
func (m *Manager) Remove(id string) bool {
	removed := m.reg.Remove(id)
	if removed {
		m.logger.Info("ww.account_removed", zap.String("entry_id", id))
	}
	return removed
}
