package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lewis121025/Generate-Agent/internal/util"
	"github.com/Lewis121025/Generate-Agent/logging"
	"github.com/Lewis121025/Generate-Agent/telemetry"
)

// Runtime is the name-keyed registry and execution facade. Registration
// happens at startup; execution is concurrent-safe and read-mostly.
type Runtime struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	sink   telemetry.Sink
	logger logging.Logger
}

// RuntimeOptions configure a Runtime.
type RuntimeOptions struct {
	Sink   telemetry.Sink
	Logger logging.Logger
}

// NewRuntime builds an empty runtime.
func NewRuntime(optFns ...func(o *RuntimeOptions)) *Runtime {
	opts := RuntimeOptions{
		Sink:   telemetry.NopSink{},
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Sink == nil {
		opts.Sink = telemetry.NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Runtime{tools: make(map[string]Tool), sink: opts.Sink, logger: opts.Logger}
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Runtime) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Lookup returns the named tool.
func (r *Runtime) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names lists registered tool names, sorted.
func (r *Runtime) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute looks up the tool, validates the input against its schema, runs it
// between tool_start/tool_complete telemetry events, and returns the result.
// An unknown name is a NOT_FOUND error, never a silent no-op.
func (r *Runtime) Execute(ctx context.Context, req Request) (*Result, error) {
	t, ok := r.Lookup(req.Name)
	if !ok {
		return nil, NewError(NotFound, req.Name, "unknown tool", nil)
	}

	if schema := t.Parameters(); len(schema) > 0 {
		if err := util.ValidateParameters(req.Input, schema); err != nil {
			return nil, NewError(ValidationError, req.Name, err.Error(), err)
		}
	}

	r.sink.Emit("tool_start", map[string]any{"tool": req.Name})
	start := time.Now()
	result, err := t.Run(ctx, req.Input)
	dur := time.Since(start)
	if err != nil {
		logging.LogToolCall(r.logger, req.Name, dur, 0, err)
		r.sink.Emit("tool_error", map[string]any{"tool": req.Name, "error": err.Error()})
		if terr, ok := err.(*Error); ok {
			return nil, terr
		}
		return nil, NewError(ExecutionError, req.Name, err.Error(), err)
	}
	logging.LogToolCall(r.logger, req.Name, dur, result.CostUSD, nil)
	r.sink.Emit("tool_complete", map[string]any{"tool": req.Name, "cost": result.CostUSD})
	return result, nil
}

// Describe renders the registered capabilities as a prompt fragment for the
// reasoning loop: name, description and parameter schema per tool.
func (r *Runtime) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		t := r.tools[name]
		fmt.Fprintf(&sb, "- %s: %s\n  Parameters: %s\n", t.Name(), t.Description(), compactSchema(t.Parameters()))
	}
	return sb.String()
}

func compactSchema(schema map[string]any) string {
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		typ := ""
		if p, ok := props[k].(map[string]any); ok {
			typ, _ = p["type"].(string)
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", k, typ))
	}
	return strings.Join(parts, ", ")
}
