package devices

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller refreshes the full parameter set on a fixed interval.
type Poller struct {
	refresh  func(ctx context.Context) error
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewPoller(refresh func(ctx context.Context) error, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		refresh:  refresh,
		interval: interval,
		logger:   logger,
	}
}

// Start starts cyclic polling. The first refresh runs immediately.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)

	go p.pollLoop(ctx)

	p.logger.Info("Poller started", zap.Duration("interval", p.interval))

	return nil
}

// Stop stops polling. A refresh in progress is abandoned between two
// parameters; the exchange in flight completes.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("Poller stopped")
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if err := p.refresh(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("Poll failed", zap.Error(err))
	}
}

// IsRunning gibt an ob Poller läuft
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
