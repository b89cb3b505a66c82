package daemon

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Handler receives the events of one connection session. OnClose is called at most
// once per session, and never for a session closed through Transport.Close.
type Handler interface {
	OnOpen()
	OnMessage(data []byte)
	OnClose(err error)
}

// Transport opens sessions to the daemon.
type Transport interface {
	// Start begins a session in the background and returns immediately.
	Start(ctx context.Context, h Handler)
	// Close ends the current session without reporting it to the handler.
	Close() error
	// Wait blocks until every session goroutine has returned.
	Wait()
}

// wsSession is one dial-and-read cycle. A session belongs to the transport only
// while it is t.current.
type wsSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *websocket.Conn
}

// WebSocketTransport streams state over the daemon's websocket endpoint.
type WebSocketTransport struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.SugaredLogger

	mu      sync.Mutex
	current *wsSession
	wg      sync.WaitGroup
}

// NewWebSocketTransport creates a transport for the stream at url.
func NewWebSocketTransport(url string, logger *zap.SugaredLogger) *WebSocketTransport {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second
	return &WebSocketTransport{url: url, dialer: &dialer, logger: logger}
}

// Start dials the stream and pumps messages to h until the connection ends. A
// session that is still running is closed first.
func (t *WebSocketTransport) Start(ctx context.Context, h Handler) {
	if ctx.Err() != nil {
		return
	}
	_ = t.Close()

	sessCtx, cancel := context.WithCancel(ctx)
	s := &wsSession{ctx: sessCtx, cancel: cancel}

	t.mu.Lock()
	t.current = s
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()
		t.session(s, h)
	}()
}

// owns reports whether s is still the live session. Callers hold t.mu.
func (t *WebSocketTransport) owns(s *wsSession) bool {
	return t.current == s && s.ctx.Err() == nil
}

// dialerFor returns a dialer whose connections close when s ends, so Close also
// aborts a handshake in flight.
func (t *WebSocketTransport) dialerFor(s *wsSession) *websocket.Dialer {
	d := *t.dialer
	d.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		var nd net.Dialer
		c, err := nd.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		go func() {
			<-s.ctx.Done()
			c.Close()
		}()
		return c, nil
	}
	return &d
}

func (t *WebSocketTransport) session(s *wsSession, h Handler) {
	conn, _, err := t.dialerFor(s).DialContext(s.ctx, t.url, nil)
	if err != nil {
		t.mu.Lock()
		live := t.owns(s)
		t.mu.Unlock()
		if live {
			h.OnClose(errors.Wrapf(err, "dial %s", t.url))
		}
		return
	}

	t.mu.Lock()
	if !t.owns(s) {
		t.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	t.mu.Unlock()

	t.logger.Infof("daemon: websocket connected to %s", t.url)
	h.OnOpen()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			live := t.owns(s)
			if live {
				t.current = nil
			}
			t.mu.Unlock()
			conn.Close()

			if !live {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Warnf("daemon: websocket closed unexpectedly: %v", err)
			}
			h.OnClose(errors.Wrap(err, "read"))
			return
		}

		t.mu.Lock()
		live := t.owns(s)
		t.mu.Unlock()
		if !live {
			conn.Close()
			return
		}
		h.OnMessage(data)
	}
}

// Close ends the current session, whether it is still dialing or already
// streaming, without reporting it to its handler.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	s := t.current
	t.current = nil
	var conn *websocket.Conn
	if s != nil {
		s.cancel()
		conn = s.conn
	}
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return conn.Close()
}

// Wait blocks until every session goroutine has returned.
func (t *WebSocketTransport) Wait() {
	t.wg.Wait()
}

// PollTransport fetches the full state over HTTP at a fixed interval. A session
// opens on the first successful fetch and ends on the first failed one.
type PollTransport struct {
	url      string
	client   *http.Client
	interval time.Duration
	clk      clock.Clock
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPollTransport creates a poller for url.
func NewPollTransport(url string, interval time.Duration, clk clock.Clock, logger *zap.SugaredLogger) *PollTransport {
	if clk == nil {
		clk = clock.New()
	}
	return &PollTransport{
		url:      url,
		client:   &http.Client{Timeout: 2 * time.Second},
		interval: interval,
		clk:      clk,
		logger:   logger,
	}
}

// Start begins polling in the background.
func (t *PollTransport) Start(ctx context.Context, h Handler) {
	if ctx.Err() != nil {
		return
	}
	sessCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.cancel = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.session(sessCtx, h)
	}()
}

func (t *PollTransport) session(ctx context.Context, h Handler) {
	ticker := t.clk.Ticker(t.interval)
	defer ticker.Stop()

	opened := false
	for {
		data, err := t.fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			h.OnClose(err)
			return
		}
		if !opened {
			opened = true
			t.logger.Infof("daemon: polling %s every %v", t.url, t.interval)
			h.OnOpen()
		}
		h.OnMessage(data)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *PollTransport) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "poll %s", t.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("poll %s: HTTP %d", t.url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

// Close stops the current polling session.
func (t *PollTransport) Close() error {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Wait blocks until every polling goroutine has returned.
func (t *PollTransport) Wait() {
	t.wg.Wait()
}
