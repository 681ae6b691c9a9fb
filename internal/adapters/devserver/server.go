// Package devserver serves the build directory with live reload.
package devserver

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/coder/websocket"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const (
	// ReloadScriptPath serves the browser client.
	ReloadScriptPath = "/__kiln/reload.js"
	// SocketPath accepts the client's websocket.
	SocketPath = "/__kiln/ws"

	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

//go:embed reload.js
var reloadScript []byte

var _ ports.DevServer = (*Server)(nil)

// message is the wire format pushed to browsers.
type message struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Server implements ports.DevServer.
type Server struct {
	logger ports.Logger
	hub    *hub
}

// NewServer creates a dev server. Nothing listens until Serve is called.
func NewServer(logger ports.Logger) *Server {
	s := &Server{logger: logger}
	s.hub = newHub(func() { logger.Warn("dev server: dropped a slow browser connection") })
	return s
}

// Serve listens on cfg and serves root until ctx is canceled.
func (s *Server) Serve(ctx context.Context, root string, cfg domain.ServerConfig) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrServerStartFailed.Error()), "addr", addr)
	}

	srv := &http.Server{
		Handler:           s.Handler(root),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.RunHub(ctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("serving " + root + " at http://" + ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return zerr.Wrap(err, domain.ErrServerStartFailed.Error())
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// RunHub delivers reload messages to browsers until ctx is canceled.
func (s *Server) RunHub(ctx context.Context) {
	s.hub.run(ctx)
}

// Clients returns the number of connected browsers.
func (s *Server) Clients() int {
	return int(s.hub.count.Load())
}

// Reload tells browsers to refresh according to mode.
func (s *Server) Reload(mode domain.ReloadMode) {
	switch mode {
	case domain.ReloadNone:
		return
	case domain.ReloadStyles:
		s.send(message{Type: "css"})
	default:
		s.send(message{Type: "reload"})
	}
}

// NotifyError shows err as an overlay in connected browsers.
func (s *Server) NotifyError(err error) {
	if err == nil {
		return
	}
	s.send(message{Type: "error", Message: err.Error()})
}

func (s *Server) send(m message) {
	data, err := json.Marshal(m)
	if err != nil {
		s.logger.Error(err)
		return
	}
	if !s.hub.publish(data) {
		s.logger.Warn("dev server: reload queue full, dropping " + m.Type + " message")
	}
}

// Handler serves root with the reload endpoints mounted.
func (s *Server) Handler(root string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ReloadScriptPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		serveBytes(w, r, "reload.js", time.Time{}, reloadScript)
	})
	mux.HandleFunc(SocketPath, s.handleSocket)
	mux.Handle("/", &fileHandler{root: root})
	return mux
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return
	}

	c := &client{send: make(chan []byte, sendQueueSize)}
	if !s.hub.join(r.Context(), c) {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer s.hub.leave(c)

	// Browsers never send; CloseRead handles control frames and cancels ctx on close.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			_ = conn.CloseNow()
			return
		case <-s.hub.done:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "client too slow")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

type fileHandler struct {
	root string
}

func (h *fileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	file := filepath.Join(h.root, filepath.FromSlash(name))
	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, "index.html")
		info, err = os.Stat(file)
	}
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	data, err := os.ReadFile(file)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if strings.EqualFold(filepath.Ext(file), ".html") {
		if injected, err := InjectReloadScript(data); err == nil {
			data = injected
		}
	}
	serveBytes(w, r, filepath.Base(file), info.ModTime(), data)
}

// serveBytes writes data with the dev server's caching headers.
// The ETag lets http.ServeContent answer conditional requests.
func serveBytes(w http.ResponseWriter, r *http.Request, name string, modTime time.Time, data []byte) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Cache-Control", "no-cache")
	header.Set("ETag", fmt.Sprintf(`"%016x"`, xxhash.Sum64(data)))
	http.ServeContent(w, r, name, modTime, bytes.NewReader(data))
}
