package app

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/relabs-tech/reachy_twin/internal/link"
)

type statusResponse struct {
	link.Status
	Transport string `json:"transport"`
	Stats     Stats  `json:"stats"`
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("web: json encode error: %v", err)
	}
}

// newWebMux serves the JSON API, the browser websocket and static files.
func newWebMux(m *Mirror, staticDir string, logger *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()

	// latest applied frame
	mux.HandleFunc("/api/joints", func(w http.ResponseWriter, r *http.Request) {
		frame, ok := m.pump.Latest()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, frame, logger)
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{
			Status:    m.Status(),
			Transport: m.cfg.DaemonTransport,
			Stats:     m.Stats(),
		}, logger)
	})

	mux.HandleFunc("/api/reconnect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		logger.Infof("web: manual reconnect requested")
		m.Reconnect()
		writeJSON(w, http.StatusAccepted, m.Status(), logger)
	})

	mux.Handle("/ws/joints", m.hub)

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}
