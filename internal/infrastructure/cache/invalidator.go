package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/asakaida/pagetypes/internal/infrastructure/logger"
	"github.com/asakaida/pagetypes/internal/repositories/postgres"
	"github.com/lib/pq"
)

// Target drops cached page type views
type Target interface {
	Invalidate(ctx context.Context, pageTypeID int64)
	InvalidateAll(ctx context.Context)
}

// Invalidator keeps page type caches consistent across instances.
// It uses PostgreSQL LISTEN/NOTIFY on the page type change channel and
// evicts the page type named in each notification.
type Invalidator struct {
	mu           sync.Mutex
	target       Target
	connStr      string
	listener     *pq.Listener
	logger       *logger.Logger
	pingInterval time.Duration
	stopCh       chan struct{}
	stopped      bool
}

// NewInvalidator creates a new Invalidator.
// connStr is the PostgreSQL connection string for LISTEN/NOTIFY.
func NewInvalidator(target Target, connStr string, log *logger.Logger) *Invalidator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Invalidator{
		target:       target,
		connStr:      connStr,
		logger:       log,
		pingInterval: 90 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// Start begins listening for change notifications
func (i *Invalidator) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			i.logger.Warn("Cache invalidation listener problem", "event", ev, "error", err)
		}
	}

	i.listener = pq.NewListener(i.connStr, 10*time.Second, time.Minute, reportProblem)
	if err := i.listener.Listen(postgres.PageTypeChangedChannel); err != nil {
		i.listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", postgres.PageTypeChangedChannel, err)
	}

	go i.run(ctx)
	return nil
}

// Stop stops listening and releases the connection
func (i *Invalidator) Stop() error {
	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		return nil
	}
	i.stopped = true
	close(i.stopCh)
	i.mu.Unlock()

	if i.listener != nil {
		return i.listener.Close()
	}
	return nil
}

func (i *Invalidator) run(ctx context.Context) {
	i.loop(ctx, i.listener.Notify, i.listener.Ping)
}

// loop returns once notify is closed, which happens when the listener is
// closed by Stop
func (i *Invalidator) loop(ctx context.Context, notify <-chan *pq.Notification, ping func() error) {
	ticker := time.NewTicker(i.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.stopCh:
			return
		case <-ctx.Done():
			return
		case n, ok := <-notify:
			if !ok {
				return
			}
			i.handle(ctx, n)
		case <-ticker.C:
			go func() {
				if err := ping(); err != nil {
					i.logger.Warn("Cache invalidation listener ping failed", "error", err)
				}
			}()
		}
	}
}

// handle applies one notification. A nil notification means the
// connection was re-established and events may have been missed.
func (i *Invalidator) handle(ctx context.Context, n *pq.Notification) {
	if n == nil {
		i.logger.Info("Cache invalidation listener reconnected, clearing page type cache")
		i.target.InvalidateAll(ctx)
		return
	}

	id, err := strconv.ParseInt(n.Extra, 10, 64)
	if err != nil {
		i.logger.Warn("Ignoring malformed page type notification", "channel", n.Channel, "payload", n.Extra)
		return
	}
	i.target.Invalidate(ctx, id)
}
