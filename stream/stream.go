// Package stream serves a live dye preview over websockets and accepts
// splats and config patches from remote clients.
//
// The solver is single-threaded, so the server never touches it: inbound
// messages become Commands on a channel that the frame loop drains, and
// outbound frames are encoded by the frame loop before Broadcast.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/splat"
)

// Inbound message types.
const (
	TypeSplats = "splats"
	TypeConfig = "config"
	TypePause  = "pause"
	TypeResume = "resume"
	TypeReset  = "reset"
)

// TypeFrame is the outbound frame message type.
const TypeFrame = "frame"

const (
	writeTimeout = 2 * time.Second
	maxMessage   = 1 << 20
)

// Message is the inbound wire format. Config is a partial config document
// in JSON using the YAML key names.
type Message struct {
	Type   string          `json:"type"`
	Splats []splat.Splat   `json:"splats,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Frame is the outbound wire format: 8-bit RGB, top row first.
type Frame struct {
	Type   string `json:"type"`
	Frame  int64  `json:"frame"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pixels []byte `json:"pixels"`
}

// Controller is the subset of the solver a Command can drive.
type Controller interface {
	AddSplats(list []splat.Splat)
	ApplyPatch(patch []byte) error
	Pause()
	Resume()
	Reset()
}

// Command is one validated inbound request.
type Command struct {
	Type   string
	Splats []splat.Splat
	Patch  []byte
}

// Apply executes the command against c.
func (cmd Command) Apply(c Controller) error {
	switch cmd.Type {
	case TypeSplats:
		c.AddSplats(cmd.Splats)
	case TypeConfig:
		return c.ApplyPatch(cmd.Patch)
	case TypePause:
		c.Pause()
	case TypeResume:
		c.Resume()
	case TypeReset:
		c.Reset()
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

// Server is an http.Handler upgrading every request to a websocket.
type Server struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	commands chan Command

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

// NewServer creates a server whose command channel holds up to buffer
// pending commands. Commands arriving when it is full are dropped.
func NewServer(log *slog.Logger, buffer int) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		commands: make(chan Command, max(buffer, 1)),
		clients:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Commands returns the inbound command channel.
func (s *Server) Commands() <-chan Command {
	return s.commands
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ServeHTTP handles one websocket session until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessage)

	s.mu.Lock()
	s.clients[conn] = &sync.Mutex{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	s.log.Info("stream client connected", "remote", r.RemoteAddr)
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("stream read ended", "remote", r.RemoteAddr, "error", err)
			}
			return
		}
		cmd, err := decode(msg)
		if err != nil {
			s.log.Warn("rejected stream message", "remote", r.RemoteAddr, "error", err)
			continue
		}
		select {
		case s.commands <- cmd:
		default:
			s.log.Warn("stream command dropped, frame loop behind", "type", cmd.Type)
		}
	}
}

func decode(msg Message) (Command, error) {
	cmd := Command{Type: msg.Type}
	switch msg.Type {
	case TypeSplats:
		if len(msg.Splats) == 0 {
			return cmd, errors.New("splats message without splats")
		}
		cmd.Splats = msg.Splats
	case TypeConfig:
		if len(msg.Config) == 0 {
			return cmd, errors.New("config message without config")
		}
		cmd.Patch = []byte(msg.Config)
	case TypePause, TypeResume, TypeReset:
	default:
		return cmd, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return cmd, nil
}

// Broadcast sends f to every client. Clients whose write fails are dropped.
func (s *Server) Broadcast(f Frame) {
	f.Type = TypeFrame
	s.mu.RLock()
	var failed []*websocket.Conn
	for conn, mu := range s.clients {
		mu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := conn.WriteJSON(f)
		mu.Unlock()
		if err != nil {
			failed = append(failed, conn)
		}
	}
	s.mu.RUnlock()

	if len(failed) == 0 {
		return
	}
	s.mu.Lock()
	for _, conn := range failed {
		delete(s.clients, conn)
		conn.Close()
	}
	s.mu.Unlock()
	s.log.Info("dropped stream clients", "count", len(failed))
}

// ListenAndServe serves the websocket endpoint at /ws until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("stream server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("stream server: %w", err)
	}
}

// EncodeDye box-filters dye by an integer factor into 8-bit RGB, flipping
// rows so the top of the domain comes first. dst is reused when large enough.
func EncodeDye(dst []byte, dye *field.Buffer, downsample int) (pixels []byte, w, h int) {
	k := max(downsample, 1)
	w = max(dye.W/k, 1)
	h = max(dye.H/k, 1)
	need := w * h * 3
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]

	inv := 1 / float32(k*k)
	for oy := 0; oy < h; oy++ {
		row := h - 1 - oy
		for ox := 0; ox < w; ox++ {
			var sum [3]float32
			for sy := oy * k; sy < min((oy+1)*k, dye.H); sy++ {
				for sx := ox * k; sx < min((ox+1)*k, dye.W); sx++ {
					for c := 0; c < 3 && c < dye.C; c++ {
						sum[c] += dye.At(sx, sy, c)
					}
				}
			}
			o := (row*w + ox) * 3
			for c := 0; c < 3; c++ {
				dst[o+c] = toByte(sum[c] * inv)
			}
		}
	}
	return dst, w, h
}

func toByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
