package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/relabs-tech/reachy_twin/internal/config"
	"github.com/relabs-tech/reachy_twin/internal/feed"
	"github.com/relabs-tech/reachy_twin/internal/kinematics"
	"github.com/relabs-tech/reachy_twin/internal/logging"
	"github.com/relabs-tech/reachy_twin/internal/motion"
)

const (
	defaultStreamHz = 20
	maxStreamHz     = 200
)

// MockDaemon serves the daemon state API from a motion source.
type MockDaemon struct {
	src      motion.Source
	solver   *kinematics.Solver
	clk      clock.Clock
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// NewMockDaemon creates a daemon that samples src on every request or stream tick.
func NewMockDaemon(src motion.Source, solver *kinematics.Solver, clk clock.Clock, logger *zap.SugaredLogger) *MockDaemon {
	if clk == nil {
		clk = clock.New()
	}
	return &MockDaemon{
		src:    src,
		solver: solver,
		clk:    clk,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  socketBufferSize,
			WriteBufferSize: socketBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler routes the full-state endpoint and the state stream.
func (d *MockDaemon) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state/full", d.fullState)
	mux.HandleFunc("/api/state/ws/full", d.stream)
	return mux
}

type streamOptions struct {
	frequency int
	passive   bool
	headPose  bool
	matrix    bool
}

func parseStreamOptions(q url.Values) streamOptions {
	opts := streamOptions{
		frequency: defaultStreamHz,
		passive:   q.Get("with_passive_joints") == "true",
		headPose:  q.Get("with_head_pose") == "true",
		matrix:    q.Get("use_pose_matrix") == "true",
	}
	if f, err := strconv.Atoi(q.Get("frequency")); err == nil && f > 0 {
		opts.frequency = f
	}
	if opts.frequency > maxStreamHz {
		opts.frequency = maxStreamHz
	}
	return opts
}

func (d *MockDaemon) fullState(w http.ResponseWriter, r *http.Request) {
	s, err := d.src.Next()
	if err != nil {
		d.logger.Warnf("mock: sample error: %v", err)
		http.Error(w, "no sample", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"control_mode":      "enabled",
		"head_joints":       s.Active[:],
		"body_yaw":          s.BodyYaw(),
		"antennas_position": s.Antennas[:],
		"head_pose":         s.Pose,
	}, d.logger)
}

// streamMessage builds one stream message for s.
func (d *MockDaemon) streamMessage(s motion.Sample, opts streamOptions) map[string]any {
	msg := map[string]any{
		"head_joints":       s.Active[:],
		"antennas_position": s.Antennas[:],
	}
	matrix := feed.PoseRecordToMatrix(s.Pose)
	if opts.headPose {
		if opts.matrix {
			msg["head_pose"] = map[string]any{"m": matrix}
		} else {
			msg["head_pose"] = s.Pose
		}
	}
	if opts.passive && d.solver != nil {
		msg["passive_joints"] = d.solver.Solve(s.Active[:], matrix)
	}
	return msg
}

func (d *MockDaemon) stream(w http.ResponseWriter, r *http.Request) {
	opts := parseStreamOptions(r.URL.Query())
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warnf("mock: upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	d.logger.Infof("mock: stream client connected at %d Hz", opts.frequency)

	// the reader only notices the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := d.clk.Ticker(time.Second / time.Duration(opts.frequency))
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			d.logger.Infof("mock: stream client disconnected")
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			s, err := d.src.Next()
			if err != nil {
				d.logger.Warnf("mock: sample error: %v", err)
				continue
			}
			payload, err := json.Marshal(d.streamMessage(s, opts))
			if err != nil {
				d.logger.Errorf("mock: marshal: %v", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				d.logger.Infof("mock: stream write failed: %v", err)
				return
			}
		}
	}
}

// RunMockDaemon serves synthetic robot motion on the configured mock port.
func RunMockDaemon() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("configuration not initialized")
	}

	logger, err := logging.New("mock_daemon", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	clk := clock.New()
	d := NewMockDaemon(motion.NewMockSource(clk), kinematics.NewSolver(calibrationFor(cfg, logger)), clk, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MockDaemonPort),
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("mock: daemon listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "mock daemon")
	case <-ctx.Done():
	}

	logger.Infof("mock: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
