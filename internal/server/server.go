package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"onvif-ptz/internal/protocol"
	"onvif-ptz/internal/ptz"
)

// Handler processes one PTZ command. It is satisfied by *ptz.Dispatcher.
type Handler interface {
	Handle(ctx context.Context, name string, data ptz.Data) (string, error)
}

// Config for the server
type Config struct {
	ListenAddr string
	Driver     string
	Transport  string
}

// Server is the websocket control surface for the PTZ router
type Server struct {
	cfg       Config
	ptz       Handler
	log       logrus.FieldLogger
	clients   map[*Client]bool
	clientsMu sync.RWMutex
	upgrader  websocket.Upgrader
	httpSrv   *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// Client represents a connected WebSocket client
type Client struct {
	conn   *websocket.Conn
	server *Server
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// New creates a new server instance
func New(cfg Config, h Handler, log logrus.FieldLogger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		ptz:     h,
		log:     log.WithField("component", "server"),
		clients: make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for local use
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}
	s.httpSrv = &http.Server{Addr: cfg.ListenAddr, Handler: s.Handler()}
	return s
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.log.WithField("listen", s.cfg.ListenAddr).Info("server starting")
	return s.httpSrv.ListenAndServe()
}

// Stop stops the server
func (s *Server) Stop() {
	s.cancel()

	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.log.WithError(err).Warn("server shutdown")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		conn:   conn,
		server: s,
		send:   make(chan []byte, 256),
	}

	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()

	// Start client goroutines
	go client.writePump()
	go client.readPump()

	// Send initial status
	client.sendStatus()
}

func (c *Client) sendStatus() {
	status := protocol.StatusPayload{
		Driver:    c.server.cfg.Driver,
		Transport: c.server.cfg.Transport,
	}
	c.sendMessage(protocol.TypeStatus, status)
}

func (c *Client) sendMessage(msgType string, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		c.server.log.WithError(err).Error("failed to create message")
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.server.log.WithError(err).Error("failed to marshal message")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.server.log.Warn("client send buffer full, dropping message")
	}
}

func (c *Client) readPump() {
	defer func() {
		c.server.clientsMu.Lock()
		delete(c.server.clients, c)
		c.server.clientsMu.Unlock()
		c.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.WithError(err).Warn("websocket error")
			}
			return
		}

		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(protocol.ErrInvalidMessage, "Failed to parse message")
		return
	}

	switch msg.Type {
	case protocol.TypePing:
		var payload protocol.PingPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return
		}
		c.sendMessage(protocol.TypePong, protocol.PongPayload{
			ClientTimestamp: payload.Timestamp,
			ServerTimestamp: time.Now().UnixMilli(),
		})

	case protocol.TypeStatus:
		c.sendStatus()

	case protocol.TypePTZCommand:
		var payload protocol.PTZCommandPayload
		if err := msg.ParsePayload(&payload); err != nil {
			c.sendError(protocol.ErrInvalidMessage, "Failed to parse ptz_command")
			return
		}
		c.handlePTZ(payload.Command, payload.Data())

	case protocol.TypePTZStop:
		c.handlePTZ("stop", ptz.Data{})

	case protocol.TypePTZPreset:
		var payload protocol.PTZPresetPayload
		if err := msg.ParsePayload(&payload); err != nil {
			c.sendError(protocol.ErrInvalidMessage, "Failed to parse ptz_preset")
			return
		}
		name, data, ok := payload.Command()
		if !ok {
			c.sendError(protocol.ErrInvalidMessage, "Unknown preset action: "+payload.Action)
			return
		}
		c.handlePTZ(name, data)

	default:
		c.server.log.WithField("type", msg.Type).Warn("unknown message type")
	}
}

func (c *Client) handlePTZ(name string, data ptz.Data) {
	token, err := c.server.ptz.Handle(c.server.ctx, name, data)
	if err != nil {
		c.sendError(protocol.ErrUnavailable, err.Error())
		return
	}
	if token != "" {
		c.sendMessage(protocol.TypePresetSaved, protocol.PresetSavedPayload{Token: token})
	}
}

func (c *Client) sendError(code, message string) {
	c.sendMessage(protocol.TypeError, protocol.ErrorPayload{Code: code, Message: message})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
