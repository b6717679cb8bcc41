package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"jira-mcp-server/internal/domain"
)

// ServerName is reported in the initialize handshake.
const ServerName = "jira-mcp-server"

// supportedProtocolVersions lists MCP revisions the server speaks, newest first.
var supportedProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// errRequestCancelled marks a request cancelled by the client; its response
// is suppressed.
var errRequestCancelled = errors.New("request cancelled by client")

// Server is the main MCP server implementation.
// It reads JSON-RPC requests from the transport, handles them concurrently
// up to a fixed bound and writes responses back.
type Server struct {
	transport  domain.Transport
	dispatcher *Dispatcher
	logger     *zap.Logger
	version    string

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	inflightMu sync.Mutex
	inflight   map[requestKey]*inflightRequest

	done chan struct{}
}

// NewServer creates a new MCP server instance. maxConcurrent bounds the
// number of requests handled at once.
func NewServer(transport domain.Transport, dispatcher *Dispatcher, logger *zap.Logger, maxConcurrent int, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = domain.DefaultMaxConcurrent
	}
	return &Server{
		transport:  transport,
		dispatcher: dispatcher,
		logger:     logger,
		version:    version,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		inflight:   make(map[requestKey]*inflightRequest),
		done:       make(chan struct{}),
	}
}

// Start begins the server operation.
// It starts the transport layer and begins processing incoming requests.
func (s *Server) Start(ctx context.Context) error {
	if err := s.transport.Start(ctx); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}

	s.logger.Info("server started")

	go s.processRequests(ctx)

	return nil
}

// Done is closed once the request loop has stopped and every in-flight
// request has finished.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// processRequests reads requests until the transport closes or ctx ends.
func (s *Server) processRequests(ctx context.Context) {
	defer func() {
		s.wg.Wait()
		close(s.done)
	}()

	reqChan := s.transport.Receive()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("server shutting down")
			return
		case req, ok := <-reqChan:
			if !ok {
				s.logger.Info("transport closed")
				return
			}

			// Notifications are cheap and must take effect before later
			// requests are scheduled.
			if req.IsNotification() {
				s.handleNotification(req)
				continue
			}

			if err := s.sem.Acquire(ctx, 1); err != nil {
				return
			}

			reqCtx, cancel := context.WithCancelCause(ctx)
			entry := s.track(req, cancel)

			s.wg.Add(1)
			go func(req *domain.Request) {
				defer s.wg.Done()
				defer s.sem.Release(1)
				defer s.untrack(entry)

				response := s.handleRequest(reqCtx, req)
				if response == nil {
					return
				}
				if errors.Is(context.Cause(reqCtx), errRequestCancelled) {
					s.logger.Debug("response suppressed for cancelled request", zap.Any("request_id", req.ID))
					return
				}
				s.send(response)
			}(req)
		}
	}
}

// handleRequest processes a single JSON-RPC request and returns its response.
func (s *Server) handleRequest(ctx context.Context, req *domain.Request) *domain.Response {
	s.logger.Debug("received request",
		zap.String("method", req.Method),
		zap.Any("request_id", req.ID))

	if req.Method == "" {
		return s.errorResponse(req, domain.InvalidRequest, "Invalid Request", "method is required")
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return s.result(req, map[string]interface{}{})
	case "tools/list":
		return s.result(req, map[string]interface{}{"tools": s.dispatcher.Registry().ListTools()})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "resources/list":
		return s.result(req, map[string]interface{}{"resources": s.dispatcher.Registry().ListResources()})
	case "resources/read":
		return s.handleResourcesRead(ctx, req)
	default:
		return s.errorResponse(req, domain.MethodNotFound, "Method not found", fmt.Sprintf("unknown method: %s", req.Method))
	}
}

// handleNotification handles messages that carry no id and get no reply.
func (s *Server) handleNotification(req *domain.Request) {
	switch req.Method {
	case "notifications/initialized":
		s.logger.Debug("client initialized")
	case "notifications/cancelled":
		var params struct {
			RequestID interface{} `json:"requestId"`
			Reason    string      `json:"reason"`
		}
		if err := decodeParams(req.Params, &params); err != nil || params.RequestID == nil {
			s.logger.Warn("malformed cancellation notice")
			return
		}
		if s.cancel(req.SessionID, params.RequestID) {
			s.logger.Info("request cancelled",
				zap.Any("request_id", params.RequestID),
				zap.String("reason", params.Reason))
		}
	default:
		s.logger.Debug("ignoring notification", zap.String("method", req.Method))
	}
}

// handleInitialize handles the MCP initialize method.
// This is the initial handshake between client and server.
func (s *Server) handleInitialize(req *domain.Request) *domain.Response {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	_ = decodeParams(req.Params, &params)

	version := supportedProtocolVersions[0]
	for _, v := range supportedProtocolVersions {
		if v == params.ProtocolVersion {
			version = v
			break
		}
	}

	return s.result(req, map[string]interface{}{
		"protocolVersion": version,
		"capabilities": map[string]interface{}{
			"tools":     map[string]interface{}{},
			"resources": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    ServerName,
			"version": s.version,
		},
	})
}

// handleToolsCall handles the MCP tools/call method. Tool failures are
// returned as error envelopes, never as JSON-RPC errors.
func (s *Server) handleToolsCall(ctx context.Context, req *domain.Request) *domain.Response {
	toolReq, err := parseToolRequest(req.Params)
	if err != nil {
		return s.errorResponse(req, domain.InvalidParams, "Invalid params", err.Error())
	}

	return s.result(req, s.dispatcher.Dispatch(ctx, toolReq))
}

// handleResourcesRead handles the MCP resources/read method.
func (s *Server) handleResourcesRead(ctx context.Context, req *domain.Request) *domain.Response {
	var params domain.ResourceReadRequest
	if err := decodeParams(req.Params, &params); err != nil || params.URI == "" {
		return s.errorResponse(req, domain.InvalidParams, "Invalid params", "uri is required")
	}

	value, err := s.dispatcher.ReadResource(ctx, params.URI)
	if err != nil {
		return &domain.Response{
			JSONRPC:   "2.0",
			ID:        req.ID,
			Error:     domain.RPCErrorFor(err),
			SessionID: req.SessionID,
		}
	}

	text, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return s.errorResponse(req, domain.InternalError, "Internal error", "failed to render resource")
	}

	mimeType := "application/json"
	if res, ok := s.dispatcher.Registry().Resource(params.URI); ok && res.MimeType != "" {
		mimeType = res.MimeType
	}

	return s.result(req, map[string]interface{}{
		"contents": []domain.ResourceContents{{
			URI:      params.URI,
			MimeType: mimeType,
			Text:     string(text),
		}},
	})
}

// parseToolRequest parses the params field into a ToolRequest.
func parseToolRequest(params interface{}) (*domain.ToolRequest, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required for tools/call")
	}

	var toolReq domain.ToolRequest
	if err := decodeParams(params, &toolReq); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool request: %w", err)
	}

	if toolReq.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}

	if toolReq.Arguments == nil {
		toolReq.Arguments = make(map[string]interface{})
	}

	return &toolReq, nil
}

// decodeParams converts already-decoded params into out by a JSON round
// trip; params arrive as generic maps.
func decodeParams(params interface{}, out interface{}) error {
	if params == nil {
		return fmt.Errorf("params are missing")
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	return json.Unmarshal(data, out)
}

func (s *Server) result(req *domain.Request, result interface{}) *domain.Response {
	return &domain.Response{
		JSONRPC:   "2.0",
		ID:        req.ID,
		Result:    result,
		SessionID: req.SessionID,
	}
}

func (s *Server) errorResponse(req *domain.Request, code int, message string, data interface{}) *domain.Response {
	return &domain.Response{
		JSONRPC:   "2.0",
		ID:        req.ID,
		Error:     &domain.Error{Code: code, Message: message, Data: data},
		SessionID: req.SessionID,
	}
}

func (s *Server) send(response *domain.Response) {
	if err := s.transport.Send(response); err != nil {
		s.logger.Error("failed to send response",
			zap.Any("request_id", response.ID),
			zap.Error(err))
	}
}

// requestKey identifies an in-flight request within its session. The
// string id "1" and the numeric id 1 are different requests.
type requestKey struct {
	sessionID string
	id        string
}

func newRequestKey(sessionID string, id interface{}) requestKey {
	var normalized string
	switch v := id.(type) {
	case string:
		normalized = "s:" + v
	case float64, float32, int, int32, int64, json.Number:
		// Decoded ids are float64 while in-process callers may use ints.
		normalized = fmt.Sprintf("n:%v", v)
	default:
		normalized = fmt.Sprintf("%T:%v", v, v)
	}
	return requestKey{sessionID: sessionID, id: normalized}
}

type inflightRequest struct {
	key    requestKey
	cancel context.CancelCauseFunc
}

// track registers a request for cancellation. A reused id replaces the
// earlier entry; cancellation then targets the newest request.
func (s *Server) track(req *domain.Request, cancel context.CancelCauseFunc) *inflightRequest {
	entry := &inflightRequest{key: newRequestKey(req.SessionID, req.ID), cancel: cancel}
	s.inflightMu.Lock()
	s.inflight[entry.key] = entry
	s.inflightMu.Unlock()
	return entry
}

// untrack removes entry unless a later request with the same id has
// replaced it, then releases the entry's context.
func (s *Server) untrack(entry *inflightRequest) {
	s.inflightMu.Lock()
	if s.inflight[entry.key] == entry {
		delete(s.inflight, entry.key)
	}
	s.inflightMu.Unlock()
	entry.cancel(nil)
}

// cancel aborts the in-flight request with the given id, if any.
func (s *Server) cancel(sessionID string, id interface{}) bool {
	s.inflightMu.Lock()
	entry, ok := s.inflight[newRequestKey(sessionID, id)]
	s.inflightMu.Unlock()
	if ok {
		entry.cancel(errRequestCancelled)
	}
	return ok
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	s.logger.Info("closing server")
	return s.transport.Close()
}
