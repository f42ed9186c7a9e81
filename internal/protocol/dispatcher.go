package protocol

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/ratelimit"
	"github.com/markdown-ticket/mdt/internal/sanitize"
)

// State is a step of the call state machine.
type State int

const (
	StateReceived State = iota
	StateValidated
	StateRateChecked
	StateDispatched
	StateSanitized
	StateResponded
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "Received"
	case StateValidated:
		return "Validated"
	case StateRateChecked:
		return "RateChecked"
	case StateDispatched:
		return "Dispatched"
	case StateSanitized:
		return "Sanitized"
	case StateResponded:
		return "Responded"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Params are a tool's decoded parameters. ToolName ties each concrete
// params type to the tool that decoded it.
type Params interface {
	ToolName() string
}

// Tool is one callable operation.
type Tool interface {
	Name() string
	Definition() mcp.Tool
	// Decode validates raw arguments into typed params. Errors should be
	// *Error with CodeInvalidParams.
	Decode(args Args) (Params, error)
	// Execute runs the operation and returns the text shown to the caller.
	Execute(ctx context.Context, p Params) (string, error)
}

// Options configures a Dispatcher.
type Options struct {
	// Limiter may be nil to disable rate limiting.
	Limiter *ratelimit.Limiter
	// Sanitize runs every successful result through sanitize.Text.
	Sanitize bool
	Metrics  *Metrics
	Logger   *zap.Logger
}

// Dispatcher routes calls to tools. It is safe for concurrent use once
// all tools are registered.
type Dispatcher struct {
	tools     map[string]Tool
	limiter   *ratelimit.Limiter
	sanitize  bool
	sanitizer func(string) string
	metrics   *Metrics
	logger    *zap.Logger
}

// NewDispatcher creates a Dispatcher with the given tools.
func NewDispatcher(opts Options, tools ...Tool) (*Dispatcher, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	d := &Dispatcher{
		tools:     make(map[string]Tool),
		limiter:   opts.Limiter,
		sanitize:  opts.Sanitize,
		sanitizer: sanitize.Text,
		metrics:   opts.Metrics,
		logger:    opts.Logger.Named("protocol"),
	}
	for _, t := range tools {
		if err := d.Register(t); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register adds a tool. Names must be unique.
func (d *Dispatcher) Register(t Tool) error {
	if _, dup := d.tools[t.Name()]; dup {
		return fmt.Errorf("tool %s registered twice", t.Name())
	}
	d.tools[t.Name()] = t
	return nil
}

// Tools returns the registered tools sorted by name.
func (d *Dispatcher) Tools() []Tool {
	out := make([]Tool, 0, len(d.tools))
	for _, t := range d.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Dispatch runs one call through the state machine.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) *Response {
	start := time.Now()
	resp := &Response{Tool: name, Trace: []State{StateReceived}}
	advance := func(s State) { resp.Trace = append(resp.Trace, s) }

	defer func() {
		advance(StateResponded)
		elapsed := time.Since(start)
		d.metrics.Record(ctx, name, elapsed, resp.Err)

		fields := []zap.Field{zap.String("tool", name), zap.Duration("duration", elapsed)}
		if resp.Err != nil {
			fields = append(fields, zap.Int("code", int(resp.Err.Code)))
			d.logger.Info("tool call failed", fields...)
			return
		}
		d.logger.Debug("tool call", fields...)
	}()

	tool, ok := d.tools[name]
	if !ok {
		resp.Err = NewError(CodeMethodNotFound, "unknown tool: %s", name)
		return resp
	}

	params, err := tool.Decode(Args(args))
	if err != nil {
		resp.Err, _ = FromError(err)
		if resp.Err.Code == CodeExecutionError {
			resp.Err = InvalidParams("invalid parameters")
		}
		return resp
	}
	if params == nil || params.ToolName() != name {
		d.logger.Error("decoder returned params for another tool", zap.String("tool", name))
		resp.Err = &Error{Code: CodeExecutionError, Message: genericExecutionMessage}
		return resp
	}
	advance(StateValidated)

	if d.limiter != nil {
		if decision := d.limiter.Allow(name); !decision.Allowed {
			resp.Err = &Error{
				Code:       CodeRateLimited,
				Message:    cleanMessage(fmt.Sprintf("rate limit exceeded for %s; retry in %s", scopeLabel(decision.Scope), decision.RetryAfter.Round(time.Millisecond))),
				RetryAfter: decision.RetryAfter,
			}
			return resp
		}
	}
	advance(StateRateChecked)

	data, err := d.execute(ctx, tool, params)
	if err != nil {
		e, internal := FromError(err)
		if internal {
			d.logger.Error("tool execution failed", zap.String("tool", name), zap.Error(err))
		}
		resp.Err = e
		return resp
	}
	advance(StateDispatched)

	if d.sanitize {
		clean, err := d.clean(data)
		if err != nil {
			d.logger.Error("sanitizing tool output", zap.String("tool", name), zap.Error(err))
			resp.Err = &Error{Code: CodeExecutionError, Message: genericExecutionMessage}
			return resp
		}
		data = clean
	}
	advance(StateSanitized)

	resp.Data = data
	return resp
}

func (d *Dispatcher) execute(ctx context.Context, tool Tool, params Params) (data string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, params)
}

func (d *Dispatcher) clean(s string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sanitizer panicked: %v", r)
		}
	}()
	return d.sanitizer(s), nil
}

func scopeLabel(scope string) string {
	if scope == ratelimit.GlobalScope {
		return "all tools"
	}
	return scope
}
