// Package joblauncher provides the component that launches CORE valid
// computations. It consumes task updates from JetStream for automatic
// launches and exposes an HTTP endpoint for manual ones.
package joblauncher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/corevalid-adapter/launcher"
	"github.com/c360studio/corevalid-adapter/objectstore"
	"github.com/c360studio/corevalid-adapter/storage"
	"github.com/c360studio/corevalid-adapter/taskmanager"
	"github.com/c360studio/corevalid-adapter/urlvalidation"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	componentName    = "job-launcher"
	componentVersion = "0.1.0"
)

// Component implements the job-launcher processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	adapter *launcher.Adapter
	manual  *launcher.ManualLauncher
	auto    *launcher.AutoLauncher
	metrics *launcher.Metrics
	redis   *redis.Client
	kv      *storage.LaunchMarkers

	// Lifecycle state machine
	// States: 0=stopped, 1=starting, 2=running, 3=stopping
	state     atomic.Int32
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}

	// Flow counters
	updatesReceived atomic.Int64
	updateErrors    atomic.Int64
	lastActivityMu  sync.RWMutex
	lastActivity    time.Time
}

const (
	stateStopped  = 0
	stateStarting = 1
	stateRunning  = 2
	stateStopping = 3
)

// NewComponent creates a new job-launcher component.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	config, err := ParseConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	logger := deps.GetLogger().With("component", componentName)

	timeout, err := config.lookupTimeout()
	if err != nil {
		return nil, err
	}
	lookup, err := taskmanager.NewClient(config.TaskManagerTimestampURL, timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("create task manager client: %w", err)
	}

	presigner, err := objectstore.NewPresigner(config.ObjectStore)
	if err != nil {
		return nil, fmt.Errorf("create presigner: %w", err)
	}

	c := &Component{
		name:       componentName,
		config:     config,
		natsClient: deps.NATSClient,
		logger:     logger,
		metrics:    launcher.NewMetrics(),
	}

	markers, err := c.buildMarkers()
	if err != nil {
		return nil, err
	}

	runner := &natsRunner{subject: config.RunSubject}
	if deps.NATSClient != nil {
		runner.publisher = deps.NATSClient
	}

	mapper := launcher.NewFileMapper(presigner, urlvalidation.New(config.Whitelist))
	c.adapter = launcher.NewAdapter(mapper, runner, logger, c.metrics)
	c.manual = launcher.NewManualLauncher(markers, lookup, c.adapter, logger, c.metrics)
	c.auto = launcher.NewAutoLauncher(launcher.NewTriggerFilter(config.AutoTriggerFiletypes), c.adapter, logger, c.metrics)

	return c, nil
}

// buildMarkers creates the configured in-flight marker set.
func (c *Component) buildMarkers() (launcher.MarkerSet, error) {
	if c.config.MarkerBackend == MarkerBackendMemory {
		return launcher.NewMemoryMarkers(), nil
	}

	ttl, err := c.config.markerTTL()
	if err != nil {
		return nil, err
	}
	holder := componentName + "-" + uuid.NewString()

	if c.config.MarkerBackend == MarkerBackendKV {
		// Bound to its bucket in Start, once JetStream is reachable.
		c.kv = storage.NewLaunchMarkers(c.config.MarkerBucket, ttl, holder)
		return c.kv, nil
	}

	c.redis = redis.NewClient(&redis.Options{Addr: c.config.RedisAddr})
	return launcher.NewRedisMarkers(c.redis, ttl, holder), nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized job-launcher",
		"task_stream", c.config.TaskStreamName,
		"task_subject", c.config.TaskSubject,
		"run_subject", c.config.RunSubject,
		"marker_backend", c.config.MarkerBackend)
	return nil
}

// Start begins consuming task updates.
func (c *Component) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateStopped, stateStarting) {
		currentState := c.state.Load()
		if currentState == stateRunning || currentState == stateStarting {
			return fmt.Errorf("component already running or starting")
		}
		return fmt.Errorf("component in invalid state: %d", currentState)
	}

	// Ensure we transition to stopped if setup fails
	defer func() {
		if c.state.Load() == stateStarting {
			c.state.Store(stateStopped)
		}
	}()

	if c.natsClient == nil {
		return fmt.Errorf("NATS client required")
	}

	js, err := c.natsClient.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}

	if c.redis != nil {
		if err := c.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", c.config.RedisAddr, err)
		}
	}
	if c.kv != nil {
		if err := c.kv.Open(ctx, js); err != nil {
			return err
		}
	}

	childCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.startTime = time.Now()
	c.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.handleTaskUpdates(childCtx, js)
	}()
	go func() {
		defer wg.Done()
		c.handleManualRuns(childCtx, js)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	c.state.Store(stateRunning)

	c.logger.Info("job-launcher started",
		"task_subject", c.config.TaskSubject,
		"manual_run_subject", c.config.ManualRunSubject,
		"run_subject", c.config.RunSubject)

	return nil
}

// Stop gracefully stops the component, waiting up to timeout for the
// update consumer to exit.
func (c *Component) Stop(timeout time.Duration) error {
	if !c.state.CompareAndSwap(stateRunning, stateStopping) {
		currentState := c.state.Load()
		if currentState == stateStopped || currentState == stateStopping {
			return nil
		}
		return fmt.Errorf("component in unexpected state: %d", currentState)
	}

	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(timeout):
			c.logger.Warn("Consumers did not stop in time", "timeout", timeout)
		}
	}

	c.state.Store(stateStopped)

	c.logger.Info("job-launcher stopped")

	return nil
}

// Close releases the marker backend connection.
func (c *Component) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

// Metrics returns the launcher's collectors for registration.
func (c *Component) Metrics() *launcher.Metrics {
	return c.metrics
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        componentName,
		Type:        "processor",
		Description: "Launches CORE valid computations from task updates and operator requests",
		Version:     componentVersion,
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}
	return toPorts(c.config.Ports.Inputs, component.DirectionInput)
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}
	return toPorts(c.config.Ports.Outputs, component.DirectionOutput)
}

func toPorts(defs []component.PortDefinition, direction component.Direction) []component.Port {
	ports := make([]component.Port, len(defs))
	for i, portDef := range defs {
		port := component.Port{
			Name:        portDef.Name,
			Direction:   direction,
			Required:    portDef.Required,
			Description: portDef.Description,
		}
		if portDef.Type == "jetstream" {
			port.Config = component.JetStreamPort{
				StreamName: portDef.StreamName,
				Subjects:   []string{portDef.Subject},
			}
		} else {
			port.Config = component.NATSPort{Subject: portDef.Subject}
		}
		ports[i] = port
	}
	return ports
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return launcherSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	state := c.state.Load()

	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	switch state {
	case stateStarting:
		status = "starting"
	case stateRunning:
		status = "running"
	case stateStopping:
		status = "stopping"
	}

	return component.HealthStatus{
		Healthy:    state == stateRunning,
		LastCheck:  time.Now(),
		ErrorCount: int(c.updateErrors.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	var errorRate float64
	if received := c.updatesReceived.Load(); received > 0 {
		errorRate = float64(c.updateErrors.Load()) / float64(received)
	}
	return component.FlowMetrics{
		ErrorRate:    errorRate,
		LastActivity: c.getLastActivity(),
	}
}

func (c *Component) touch() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}
