package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"jira-mcp-server/internal/domain"
)

// Dispatcher turns tool invocations into envelopes: lookup, validation,
// handler call, rendering. It keeps no state between calls.
type Dispatcher struct {
	registry *Registry
	mapper   domain.ResponseMapper
	observer *DispatchObserver
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over registry. observer and logger
// may be nil.
func NewDispatcher(registry *Registry, mapper domain.ResponseMapper, observer *DispatchObserver, logger *zap.Logger) *Dispatcher {
	if mapper == nil {
		mapper = domain.NewResponseMapper()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry: registry,
		mapper:   mapper,
		observer: observer,
		logger:   logger,
	}
}

// Registry returns the catalogue the dispatcher serves.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch executes one tool invocation. It always returns an envelope;
// failures are rendered with IsError set.
func (d *Dispatcher) Dispatch(ctx context.Context, req *domain.ToolRequest) *domain.ToolResponse {
	ctx, finish := d.observer.Start(ctx, opToolCall, req.Name)
	started := time.Now()

	result, err := d.invoke(ctx, req)
	finish(err)

	if err != nil {
		d.logFailure("tool call failed", req.Name, started, err)
		return d.mapper.MapError(err)
	}

	resp, err := d.mapper.MapToToolResponse(result)
	if err != nil {
		internal := &domain.BackendUnavailableError{Reason: domain.ReasonInternal, Detail: "failed to render result", Err: err}
		d.logFailure("tool result rendering failed", req.Name, started, internal)
		return d.mapper.MapError(internal)
	}

	d.logger.Debug("tool call completed",
		zap.String("tool", req.Name),
		zap.Duration("duration", time.Since(started)))
	return resp
}

func (d *Dispatcher) invoke(ctx context.Context, req *domain.ToolRequest) (result interface{}, err error) {
	tool, ok := d.registry.Tool(req.Name)
	if !ok {
		return nil, &domain.DispatchError{Reason: domain.DispatchUnknownTool, Name: req.Name}
	}

	args, err := tool.Schema.Validate(req.Arguments)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &domain.BackendUnavailableError{Reason: domain.ReasonInternal, Detail: fmt.Sprintf("handler panicked: %v", r)}
		}
	}()

	return tool.Handler(ctx, args)
}

// ReadResource produces the current value of the resource at uri.
func (d *Dispatcher) ReadResource(ctx context.Context, uri string) (result interface{}, err error) {
	ctx, finish := d.observer.Start(ctx, opResourceRead, uri)
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &domain.BackendUnavailableError{Reason: domain.ReasonInternal, Detail: fmt.Sprintf("resource producer panicked: %v", r)}
		}
		finish(err)
		if err != nil {
			d.logFailure("resource read failed", uri, started, err)
		}
	}()

	res, ok := d.registry.Resource(uri)
	if !ok {
		return nil, &domain.DispatchError{Reason: domain.DispatchUnknownResource, Name: uri}
	}
	return res.Producer(ctx)
}

func (d *Dispatcher) logFailure(msg, name string, started time.Time, err error) {
	kind, _ := domain.KindOf(err)
	level := zap.WarnLevel
	if kind == domain.KindBackendUnavailable || kind == "" {
		level = zap.ErrorLevel
	}
	if ce := d.logger.Check(level, msg); ce != nil {
		ce.Write(
			zap.String("name", name),
			zap.String("kind", string(kind)),
			zap.Duration("duration", time.Since(started)),
			zap.Error(err),
		)
	}
}
