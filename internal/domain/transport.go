package domain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transport defines the interface for MCP transport mechanisms.
// Implementations handle communication between MCP clients and the server
// using either stdio or HTTP transport.
type Transport interface {
	// Start begins listening for incoming MCP messages.
	// Returns an error if the transport cannot be initialized.
	Start(ctx context.Context) error

	// Send transmits a JSON-RPC response to the client. Safe for
	// concurrent use.
	Send(response *Response) error

	// Receive returns a channel for incoming JSON-RPC requests.
	// The channel is closed when the transport is shut down.
	Receive() <-chan *Request

	// Close gracefully shuts down the transport.
	Close() error
}

// maxMessageSize bounds a single newline-delimited message.
const maxMessageSize = 10 << 20

// StdioTransport implements Transport using stdin/stdout for communication.
// It reads newline-delimited JSON-RPC messages from stdin and writes
// responses to stdout.
type StdioTransport struct {
	reader     *bufio.Reader
	writer     *bufio.Writer
	reqChan    chan *Request
	logger     *zap.Logger
	maxMessage int
	mu         sync.Mutex
	closed     bool
}

// NewStdioTransport creates a StdioTransport bound to os.Stdin and os.Stdout.
func NewStdioTransport(logger *zap.Logger) *StdioTransport {
	t := NewStdioTransportWithIO(os.Stdin, os.Stdout)
	if logger != nil {
		t.logger = logger
	}
	return t
}

// NewStdioTransportWithIO creates a new StdioTransport with custom IO streams.
// This is primarily used for testing.
func NewStdioTransportWithIO(reader io.Reader, writer io.Writer) *StdioTransport {
	return &StdioTransport{
		reader:     bufio.NewReaderSize(reader, 64*1024),
		writer:     bufio.NewWriter(writer),
		reqChan:    make(chan *Request, 10),
		logger:     zap.NewNop(),
		maxMessage: maxMessageSize,
	}
}

// Start spawns the read loop.
func (t *StdioTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport is closed")
	}
	t.mu.Unlock()

	go t.readLoop(ctx)
	return nil
}

// readLoop reads newline-delimited requests until EOF, a read error, or
// cancellation.
func (t *StdioTransport) readLoop(ctx context.Context) {
	defer close(t.reqChan)

	for {
		if ctx.Err() != nil {
			return
		}

		raw, tooLarge, err := t.readLine()
		line := bytes.TrimSpace(raw)
		if err != nil && !(errors.Is(err, io.EOF) && (tooLarge || len(line) > 0)) {
			if !errors.Is(err, io.EOF) {
				t.logger.Error("stdio read failed", zap.Error(err))
			}
			return
		}

		if tooLarge || len(line) > t.maxMessage {
			t.sendError(nil, InvalidRequest, "Invalid Request", "message too large")
			continue
		}
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			t.sendError(nil, ParseError, "Parse error", err.Error())
			continue
		}

		if req.JSONRPC != "2.0" {
			t.sendError(req.ID, InvalidRequest, "Invalid Request", "invalid jsonrpc version")
			continue
		}

		select {
		case t.reqChan <- &req:
		case <-ctx.Done():
			return
		}
	}
}

// readLine reads one newline-terminated line. Once the line outgrows the
// message limit the rest of it is discarded as it is read, so an oversized
// line never sits in memory whole.
func (t *StdioTransport) readLine() (line []byte, tooLarge bool, err error) {
	// Room for a trailing "\r\n" on a line exactly at the limit.
	limit := t.maxMessage + 2
	for {
		chunk, readErr := t.reader.ReadSlice('\n')
		if !tooLarge {
			if len(line)+len(chunk) > limit {
				tooLarge = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLarge, readErr
	}
}

// Send writes a JSON-RPC response to stdout as a single line.
func (t *StdioTransport) Send(response *Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transport is closed")
	}

	if response.JSONRPC == "" {
		response.JSONRPC = "2.0"
	}

	// encoding/json escapes control characters, so the output is one line.
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}

	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush response: %w", err)
	}

	return nil
}

// Receive returns the channel for incoming JSON-RPC requests.
func (t *StdioTransport) Receive() <-chan *Request {
	return t.reqChan
}

// Close marks the transport closed. The request channel is closed by the
// read loop when stdin ends.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *StdioTransport) sendError(id interface{}, code int, message string, data interface{}) {
	response := &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
	if err := t.Send(response); err != nil {
		t.logger.Warn("failed to send transport error", zap.Error(err))
	}
}

// HTTPTransport implements Transport using HTTP with SSE for communication.
// It exposes two endpoints:
// 1. SSE endpoint (GET /mcp) for server-to-client messages
// 2. HTTP POST endpoint (/mcp/message?sessionId=) for client-to-server messages
type HTTPTransport struct {
	host    string
	port    int
	server  *http.Server
	reqChan chan *Request
	logger  *zap.Logger
	mu      sync.Mutex
	closed  bool

	sessions   map[string]*sseSession
	sessionsMu sync.RWMutex

	keepAlive time.Duration
}

// sseSession represents an active SSE connection
type sseSession struct {
	id          string
	messageChan chan *Response
	done        chan struct{}
	closeOnce   sync.Once
}

func (s *sseSession) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// NewHTTPTransport creates a new HTTPTransport instance.
func NewHTTPTransport(host string, port int, logger *zap.Logger) *HTTPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPTransport{
		host:      host,
		port:      port,
		reqChan:   make(chan *Request, 32),
		logger:    logger,
		sessions:  make(map[string]*sseSession),
		keepAlive: 30 * time.Second,
	}
}

// Handler returns the HTTP handler serving both endpoints.
func (t *HTTPTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", t.handleSSE)
	mux.HandleFunc("/mcp/message", t.handleMessage)
	return mux
}

// Start begins the HTTP server and starts listening for incoming requests.
func (t *HTTPTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport is closed")
	}
	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	t.server = &http.Server{
		Addr:              addr,
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := t.server
	t.mu.Unlock()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("http transport stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		_ = t.Close()
	}()

	return nil
}

// handleSSE handles SSE connections (GET requests) for server-to-client messages.
func (t *HTTPTransport) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	session := &sseSession{
		id:          uuid.NewString(),
		messageChan: make(chan *Response, 16),
		done:        make(chan struct{}),
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	t.sessionsMu.Lock()
	t.sessions[session.id] = session
	t.sessionsMu.Unlock()
	t.mu.Unlock()

	defer func() {
		t.sessionsMu.Lock()
		delete(t.sessions, session.id)
		t.sessionsMu.Unlock()
		session.close()
		t.logger.Debug("sse session closed", zap.String("session", session.id))
	}()

	// Tell the client where to post its messages.
	fmt.Fprintf(w, "event: endpoint\ndata: /mcp/message?sessionId=%s\n\n", session.id)
	flusher.Flush()
	t.logger.Debug("sse session established", zap.String("session", session.id), zap.String("remote", r.RemoteAddr))

	ticker := time.NewTicker(t.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-session.done:
			return
		case response := <-session.messageChan:
			data, err := json.Marshal(response)
			if err != nil {
				t.logger.Error("failed to marshal sse message", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// handleMessage handles HTTP POST requests for client-to-server messages.
func (t *HTTPTransport) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "Missing sessionId parameter", http.StatusBadRequest)
		return
	}

	t.sessionsMu.RLock()
	session, exists := t.sessions[sessionID]
	t.sessionsMu.RUnlock()
	if !exists {
		http.Error(w, "Invalid session", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		t.sendErrorToSession(session, nil, ParseError, "Parse error", err.Error())
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if req.JSONRPC != "2.0" {
		t.sendErrorToSession(session, req.ID, InvalidRequest, "Invalid Request", "invalid jsonrpc version")
		w.WriteHeader(http.StatusAccepted)
		return
	}
	req.SessionID = sessionID

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}

	select {
	case t.reqChan <- &req:
		w.WriteHeader(http.StatusAccepted)
	default:
		t.sendErrorToSession(session, req.ID, InternalError, "Internal error", "request queue full")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}

// sendErrorToSession sends an error response to a specific session.
func (t *HTTPTransport) sendErrorToSession(session *sseSession, id interface{}, code int, message string, data interface{}) {
	response := &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}

	select {
	case session.messageChan <- response:
	default:
		t.logger.Warn("sse session queue full, dropping error", zap.String("session", session.id))
	}
}

// Send delivers a response to the session that sent the request. Responses
// without a session are broadcast to every open session.
func (t *HTTPTransport) Send(response *Response) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return fmt.Errorf("transport is closed")
	}

	if response.JSONRPC == "" {
		response.JSONRPC = "2.0"
	}

	t.sessionsMu.RLock()
	defer t.sessionsMu.RUnlock()

	var targets []*sseSession
	if response.SessionID != "" {
		session, ok := t.sessions[response.SessionID]
		if !ok {
			return fmt.Errorf("session %s is gone", response.SessionID)
		}
		targets = append(targets, session)
	} else {
		for _, session := range t.sessions {
			targets = append(targets, session)
		}
	}

	if len(targets) == 0 {
		return fmt.Errorf("no active sessions")
	}

	for _, session := range targets {
		select {
		case session.messageChan <- response:
		case <-session.done:
		default:
			t.logger.Warn("sse session queue full, dropping response", zap.String("session", session.id))
		}
	}

	return nil
}

// Receive returns the channel for incoming JSON-RPC requests.
func (t *HTTPTransport) Receive() <-chan *Request {
	return t.reqChan
}

// Close gracefully shuts down the HTTP server and all SSE sessions.
func (t *HTTPTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	t.sessionsMu.Lock()
	for _, session := range t.sessions {
		session.close()
	}
	t.sessions = make(map[string]*sseSession)
	t.sessionsMu.Unlock()

	close(t.reqChan)
	server := t.server
	t.mu.Unlock()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}

	return nil
}
