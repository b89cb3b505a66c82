// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/reachy_twin/internal/calibration"
	"github.com/relabs-tech/reachy_twin/internal/config"
	"github.com/relabs-tech/reachy_twin/internal/daemon"
	"github.com/relabs-tech/reachy_twin/internal/feed"
	"github.com/relabs-tech/reachy_twin/internal/kinematics"
	"github.com/relabs-tech/reachy_twin/internal/link"
	"github.com/relabs-tech/reachy_twin/internal/logging"
	"github.com/relabs-tech/reachy_twin/internal/render"
	"github.com/relabs-tech/reachy_twin/internal/robot"
)

// Mirror follows the robot daemon and republishes solved joint frames.
type Mirror struct {
	cfg       *config.Config
	logger    *zap.SugaredLogger
	solver    *kinematics.Solver
	store     *robot.Store
	pump      *render.Pump
	link      *link.Reconnector
	transport daemon.Transport
	hub       *Hub
	publisher Publisher

	ctxMu sync.Mutex
	ctx   context.Context

	messages atomic.Uint64
	rejected atomic.Uint64
}

// NewMirror wires a mirror from cfg. publisher may be nil.
func NewMirror(cfg *config.Config, clk clock.Clock, publisher Publisher, logger *zap.SugaredLogger) *Mirror {
	if clk == nil {
		clk = clock.New()
	}

	solver := kinematics.NewSolver(calibrationFor(cfg, logger))

	m := &Mirror{
		cfg:       cfg,
		logger:    logger,
		solver:    solver,
		publisher: publisher,
		ctx:       context.Background(),
		hub:       NewHub(logger),
	}

	m.store = robot.NewStore(solver, robot.Options{
		SolvePassive: cfg.EnablePassiveJoints,
		UseHeadPose:  cfg.EnableHeadPose,
	}, clk)
	m.pump = render.NewPump(clk, cfg.ApplyRateHz, m.store, cfg.EnablePassiveJoints, logger)

	endpoint := daemon.Endpoint{
		Host:          cfg.DaemonHost,
		Port:          cfg.DaemonPort,
		Frequency:     cfg.StreamFrequency,
		PassiveJoints: false,
		HeadPose:      cfg.EnableHeadPose,
	}
	if cfg.DaemonTransport == config.TransportHTTP {
		m.transport = daemon.NewPollTransport(daemon.FullStateURL(endpoint),
			time.Duration(cfg.PollInterval)*time.Millisecond, clk, logger)
	} else {
		m.transport = daemon.NewWebSocketTransport(daemon.StreamURL(endpoint), logger)
	}

	policy := link.Policy{
		MaxAttempts: cfg.ReconnectMaxAttempts,
		BaseDelay:   cfg.ReconnectBase(),
		Growth:      cfg.ReconnectGrowth,
		MaxDelay:    cfg.ReconnectCap(),
	}
	m.link = link.NewReconnector(clk, policy, m.dial, logger)
	m.link.Subscribe(m.onState)

	m.pump.AddSink(func(f render.Frame) {
		m.hub.Broadcast("frame", f)
		if m.publisher != nil {
			m.publisher.PublishFrame(f)
		}
	})
	return m
}

// calibrationFor loads the configured calibration file, or the production values
// when none is set or it cannot be used.
func calibrationFor(cfg *config.Config, logger *zap.SugaredLogger) calibration.Calibration {
	cal, _ := calibration.Load(cfg.CalibrationFile, logger)
	return cal
}

func (m *Mirror) dial() {
	m.ctxMu.Lock()
	ctx := m.ctx
	m.ctxMu.Unlock()
	m.transport.Start(ctx, m)
}

func (m *Mirror) onState(s link.State) {
	status := link.StatusFor(s)
	m.logger.Infof("mirror: link %s", s)
	m.hub.Broadcast("status", status)
	if m.publisher != nil {
		m.publisher.PublishStatus(status)
	}
}

// OnOpen implements daemon.Handler.
func (m *Mirror) OnOpen() {
	m.link.OnOpen()
}

// OnMessage implements daemon.Handler.
func (m *Mirror) OnMessage(data []byte) {
	m.messages.Add(1)
	msg := feed.ParseStateMessage(data)
	if msg.Empty() {
		m.rejected.Add(1)
		m.logger.Debugf("mirror: ignoring message without usable fields")
		return
	}
	m.store.Merge(msg)
}

// OnClose implements daemon.Handler.
func (m *Mirror) OnClose(err error) {
	m.link.OnClose(err)
}

// Reconnect restarts the connection cycle with a fresh retry budget.
func (m *Mirror) Reconnect() {
	_ = m.transport.Close()
	m.link.Connect()
}

// Status returns the current connection indicator.
func (m *Mirror) Status() link.Status {
	return link.StatusFor(m.link.State())
}

// Stats summarizes traffic for the status endpoint.
type Stats struct {
	Messages      uint64 `json:"messages"`
	Rejected      uint64 `json:"rejected"`
	Version       uint64 `json:"version"`
	Applied       int    `json:"applied"`
	RetryAttempts int    `json:"retry_attempts"`
	Retries       int    `json:"retries_scheduled"`
}

// Stats returns traffic counters.
func (m *Mirror) Stats() Stats {
	return Stats{
		Messages:      m.messages.Load(),
		Rejected:      m.rejected.Load(),
		Version:       m.store.Version(),
		Applied:       m.pump.Applied(),
		RetryAttempts: m.link.Attempts(),
		Retries:       m.link.Scheduled(),
	}
}

// Handler returns the HTTP API and static file handler.
func (m *Mirror) Handler() http.Handler {
	return newWebMux(m, m.cfg.WebStaticDir, m.logger)
}

// Run connects to the daemon and serves until ctx is done. srv may be nil to skip
// the HTTP server.
func (m *Mirror) Run(ctx context.Context, srv *http.Server) error {
	m.ctxMu.Lock()
	m.ctx = ctx
	m.ctxMu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.hub.Run(gctx) })
	g.Go(func() error { return m.pump.Run(gctx) })
	if srv != nil {
		g.Go(func() error {
			m.logger.Infof("mirror: web server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "web server")
			}
			return nil
		})
	}

	m.link.Connect()

	<-gctx.Done()
	m.logger.Infof("mirror: shutting down")

	// stop retries before closing the socket so the close is not treated as a failure
	m.link.Close()
	err := m.transport.Close()
	m.transport.Wait()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = multierr.Append(err, srv.Shutdown(shutdownCtx))
		cancel()
	}
	if m.publisher != nil {
		err = multierr.Append(err, m.publisher.Close())
	}
	return multierr.Append(g.Wait(), err)
}

// RunMirror runs the mirror service with the global configuration.
func RunMirror() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("configuration not initialized")
	}

	logger, err := logging.New("mirror", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	publisher, err := NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientIDMirror, cfg.TopicJoints, cfg.TopicStatus, logger)
	if err != nil {
		logger.Warnf("mirror: MQTT unavailable, continuing without it: %v", err)
		publisher = nil
	}

	m := NewMirror(cfg, clock.New(), publisher, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return m.Run(ctx, srv)
}
