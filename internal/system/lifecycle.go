package system

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/api/rest"
	"github.com/KevinKickass/HomeGateway/internal/api/rpc"
	"github.com/KevinKickass/HomeGateway/internal/api/websocket"
	"github.com/KevinKickass/HomeGateway/internal/auth"
	"github.com/KevinKickass/HomeGateway/internal/config"
	"github.com/KevinKickass/HomeGateway/internal/devices"
	"github.com/KevinKickass/HomeGateway/internal/interfaces"
	"github.com/KevinKickass/HomeGateway/internal/presets"
	"github.com/KevinKickass/HomeGateway/internal/storage"
	"github.com/KevinKickass/HomeGateway/internal/telemetry"
)

// LifecycleManager wires the device manager to the API servers and owns
// their start and shutdown order.
type LifecycleManager struct {
	config        *config.Config
	store         storage.Store
	deviceManager *devices.Manager
	presets       *presets.Loader
	authService   *auth.Service
	wsHub         *websocket.Hub
	metrics       *prometheus.Registry
	logger        *zap.Logger

	restServer *rest.Server
	grpcServer *rpc.Server
	grpcAddr   net.Addr
	hubCancel  context.CancelFunc

	stateMu      sync.RWMutex
	currentState SystemState
	startedAt    time.Time
	lastError    error

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// Options overrides parts of the wiring, mainly for tests.
type Options struct {
	Devices devices.ManagerOptions
}

func NewLifecycleManager(cfg *config.Config, store storage.Store, opts Options, logger *zap.Logger) (*LifecycleManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = storage.NewMemoryStore(0)
	}

	lm := &LifecycleManager{
		config:       cfg,
		store:        store,
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}

	devOpts := opts.Devices
	devOpts.Store = store
	if cfg.Metrics.Enabled && devOpts.Collector == nil {
		lm.metrics = prometheus.NewRegistry()
		lm.metrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector, err := telemetry.NewPrometheusCollector(lm.metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		devOpts.Collector = collector
	}

	loader, err := presets.NewLoader(cfg.Presets.SearchPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset loader: %w", err)
	}

	lm.presets = loader
	lm.deviceManager = devices.NewManager(cfg.Helios, devOpts, logger)
	lm.authService = auth.NewService(cfg.Auth, logger)
	lm.wsHub = websocket.NewHub(logger, lm.authService)

	return lm, nil
}

// Start starts the entire system
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.logger.Info("Starting HomeGateway")

	hubCtx, cancel := context.WithCancel(context.Background())
	lm.hubCancel = cancel
	go lm.wsHub.Run(hubCtx)

	lm.deviceManager.Subscribe(lm.wsHub.PublishChanges)

	if err := lm.startGRPCServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start gRPC: %w", err))
		return err
	}

	lm.deviceManager.OnRefresh(func(h devices.Health) {
		lm.grpcServer.SetReachable(h.Reachable())
		lm.trackReachability(h)
		lm.broadcastStatus()
	})

	if err := lm.deviceManager.Start(ctx); err != nil {
		lm.setError(fmt.Errorf("failed to start device manager: %w", err))
		return err
	}

	if err := lm.startRESTServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start REST API: %w", err))
		return err
	}

	lm.stateMu.Lock()
	lm.startedAt = time.Now()
	lm.stateMu.Unlock()
	lm.setState(StateRunning)
	if h := lm.deviceManager.Health(); !h.LastRefresh.IsZero() {
		lm.trackReachability(h)
	}
	lm.broadcastStatus()

	lm.logger.Info("System started successfully",
		zap.Int("grpc_port", lm.config.Server.GRPCPort),
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.String("device", lm.config.Helios.Address),
		zap.Bool("auth_enabled", lm.authService.Enabled()),
		zap.Bool("metrics_enabled", lm.metrics != nil))

	return nil
}

func (lm *LifecycleManager) startGRPCServer() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", lm.config.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	lm.grpcAddr = lis.Addr()

	lm.grpcServer = rpc.NewServer(lm.deviceManager, lm.authService, lm.logger)

	go func() {
		if err := lm.grpcServer.Serve(lis); err != nil {
			lm.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()

	return nil
}

func (lm *LifecycleManager) startRESTServer() error {
	var gatherer prometheus.Gatherer
	if lm.metrics != nil {
		gatherer = lm.metrics
	}
	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub, lm.authService, gatherer)
	return lm.restServer.Start()
}

// Shutdown gracefully shuts down the system. Later calls return the result
// of the first.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.setState(StateStopping)
		lm.broadcastStatus()

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)
		close(lm.shutdownChan)
	})

	return shutdownErr
}

// Done is closed once Shutdown has completed.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var wg sync.WaitGroup
	errChan := make(chan error, 3)

	// 1. REST API Server graceful shutdown
	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}()
	}

	// 2. gRPC Server graceful stop
	if lm.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.grpcServer.GracefulStop()
		}()
	}

	// Wait for all shutdowns
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var errs []error
	select {
	case <-done:
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		errs = append(errs, fmt.Errorf("shutdown timeout exceeded"))
	}
drain:
	for {
		select {
		case err := <-errChan:
			errs = append(errs, err)
		default:
			break drain
		}
	}

	// 3. Device Manager last, in-flight requests may still need it
	if err := lm.deviceManager.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("device manager stop failed: %w", err))
	}

	if lm.hubCancel != nil {
		lm.hubCancel()
	}
	lm.store.Close()

	if len(errs) == 0 {
		lm.logger.Info("Graceful shutdown completed")
	}
	return errors.Join(errs...)
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Unexpected state transition", zap.Error(err))
	}
	lm.currentState = state
}

// trackReachability moves between RUNNING and DEGRADED after a full read.
// Other states are left alone.
func (lm *LifecycleManager) trackReachability(h devices.Health) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	switch {
	case lm.currentState == StateRunning && !h.Reachable():
		lm.currentState = StateDegraded
		lm.logger.Warn("Ventilation unit unreachable, system degraded",
			zap.String("address", h.Address),
			zap.Int("failed", h.Failed))
	case lm.currentState == StateDegraded && h.Reachable():
		lm.currentState = StateRunning
		lm.logger.Info("Ventilation unit reachable again", zap.String("address", h.Address))
	}
}

func (lm *LifecycleManager) setError(err error) {
	lm.logger.Error("System error", zap.Error(err))

	lm.stateMu.Lock()
	lm.currentState = StateError
	lm.lastError = err
	lm.stateMu.Unlock()

	lm.broadcastStatus()
}

func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	status := interfaces.SystemStatus{
		State:            lm.currentState.String(),
		Device:           lm.deviceManager.Health(),
		MailboxState:     lm.deviceManager.MailboxState().String(),
		ConnectedClients: lm.wsHub.GetClientCount(),
	}
	if !lm.startedAt.IsZero() {
		status.StartedAt = lm.startedAt.Unix()
	}
	if lm.lastError != nil {
		status.Error = lm.lastError.Error()
	}
	return status
}

func (lm *LifecycleManager) broadcastStatus() {
	lm.wsHub.Broadcast(websocket.NewMessage(websocket.MessageTypeSystemStatus, lm.GetCurrentStatus()))
}

// GRPCAddr is the bound gRPC address once started.
func (lm *LifecycleManager) GRPCAddr() net.Addr {
	return lm.grpcAddr
}

// RESTHandler exposes the HTTP router once started, mainly for tests.
func (lm *LifecycleManager) RESTHandler() http.Handler {
	return lm.restServer.Handler()
}

// DeviceManager returns the device manager
func (lm *LifecycleManager) DeviceManager() *devices.Manager {
	return lm.deviceManager
}

// Presets returns the preset loader
func (lm *LifecycleManager) Presets() *presets.Loader {
	return lm.presets
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}
