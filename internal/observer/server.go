// Package observer serves engine scenes to external renderers over a
// loopback-only HTTP and websocket endpoint. It never mutates the engine.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gabe/mobwatch/internal/engine"
)

const DefaultBroadcastInterval = time.Second

var (
	ErrNotLoopback = errors.New("observer must listen on a loopback address")
	ErrNoScene     = errors.New("no scene published yet")
)

// Server keeps the latest published scene and pushes it to websocket
// clients at a fixed interval
type Server struct {
	log      *log.Logger
	interval time.Duration
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	latest  []byte
	version uint64

	clients atomic.Int64
}

// NewServer creates a server that broadcasts at interval
func NewServer(interval time.Duration, logger *log.Logger) *Server {
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		log:      logger,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4 * 1024,
			WriteBufferSize:   64 * 1024,
			EnableCompression: true,
			CheckOrigin:       func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

// Publish encodes scene as the latest snapshot. It is safe to call from
// the engine goroutine while clients are reading.
func (s *Server) Publish(scene engine.Scene) {
	data, err := json.Marshal(scene)
	if err != nil {
		s.log.Printf("Observer: failed to encode scene: %v\n", err)
		return
	}
	s.mu.Lock()
	s.latest = data
	s.version++
	s.mu.Unlock()
}

func (s *Server) snapshot() ([]byte, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.version
}

// Clients returns the number of connected websocket clients
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Handler routes GET /scene and GET /ws
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/scene", s.SceneHandler())
	mux.HandleFunc("/ws", s.WSHandler())
	return mux
}

// SceneHandler returns the latest scene as JSON
func (s *Server) SceneHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		data, _ := s.snapshot()
		if data == nil {
			http.Error(rw, ErrNoScene.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		rw.Write(data)
	}
}

// WSHandler upgrades to a websocket and sends the scene whenever a newer
// one is available, checking once per broadcast interval
func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		s.clients.Add(1)
		defer s.clients.Add(-1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Reader: clients send nothing, but reading notices the close.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		var sent uint64
		for {
			if data, version := s.snapshot(); data != nil && version != sent {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
				sent = version
			}
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
				return
			case <-ticker.C:
			}
		}
	}
}

// ListenAndServe serves until ctx is cancelled. addr must resolve to a
// loopback interface.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := Listen(addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Listen opens a TCP listener on a loopback address
func Listen(addr string) (net.Listener, error) {
	if !IsLoopbackAddr(addr) {
		return nil, fmt.Errorf("%w: %s", ErrNotLoopback, addr)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Printf("Observer: listening on %s\n", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// IsLoopbackAddr reports whether a host:port listen address is loopback
// only. "localhost" counts; an empty host (all interfaces) does not.
func IsLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
