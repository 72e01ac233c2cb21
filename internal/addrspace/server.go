package addrspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/airquality-weather/internal/metrics"
)

// RootID is the identifier of the top-level Objects folder.
const RootID = "Objects"

var (
	ErrNodeExists     = errors.New("node already exists")
	ErrParentNotFound = errors.New("parent node not found")
	ErrNodeNotFound   = errors.New("node not found")
	ErrNotVariable    = errors.New("node is not a variable")
	ErrNotWritable    = errors.New("node is not writable")
	ErrStopped        = errors.New("address space loop stopped")
)

// Config holds the endpoint parameters advertised by the server.
type Config struct {
	EndpointURL string
	HostName    string
	Port        int
}

type task struct {
	ctx  context.Context
	fn   func(ctx context.Context)
	done chan struct{}
}

// Server is an in-memory address space driven by a single processing loop.
//
// Node store and hooks are not synchronized. Before Run starts, the owner may
// call methods directly; afterwards all access must go through Do.
type Server struct {
	cfg    Config
	logger *zap.SugaredLogger

	nodes map[string]*Node
	hook  LookupHook

	tasks   chan task
	stopped chan struct{}
}

// NewServer creates a server holding only the Objects folder.
func NewServer(cfg Config, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger.With("component", "addrspace"),
		nodes:   make(map[string]*Node),
		tasks:   make(chan task),
		stopped: make(chan struct{}),
	}
	s.nodes[RootID] = &Node{
		ID:          RootID,
		Class:       ClassObject,
		BrowseName:  RootID,
		DisplayName: RootID,
	}
	return s
}

// Info returns the endpoint configuration.
func (s *Server) Info() Config {
	return s.cfg
}

// SetLookupHook installs hook in front of every node lookup.
func (s *Server) SetLookupHook(hook LookupHook) {
	s.hook = hook
}

// GetNode looks up id through the installed hook.
func (s *Server) GetNode(ctx context.Context, id string) (*Node, bool) {
	if s.hook != nil {
		return s.hook(ctx, id, s.lookup)
	}
	return s.lookup(ctx, id)
}

func (s *Server) lookup(_ context.Context, id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// AddObjectNode adds a container node.
func (s *Server) AddObjectNode(ctx context.Context, spec NodeSpec) error {
	return s.addNode(ctx, spec, ClassObject)
}

// AddVariableNode adds a variable with a static value.
func (s *Server) AddVariableNode(ctx context.Context, spec NodeSpec) error {
	spec.Source = nil
	return s.addNode(ctx, spec, ClassVariable)
}

// AddDataSourceVariableNode adds a variable whose value is produced by
// spec.Source on every read.
func (s *Server) AddDataSourceVariableNode(ctx context.Context, spec NodeSpec) error {
	if spec.Source == nil {
		return fmt.Errorf("data source variable %q: missing read function", spec.ID)
	}
	return s.addNode(ctx, spec, ClassVariable)
}

// addNode resolves the parent and the new identifier through the lookup hook,
// so adding a node re-enters any installed hook.
func (s *Server) addNode(ctx context.Context, spec NodeSpec, class NodeClass) error {
	parent, ok := s.GetNode(ctx, spec.ParentID)
	if !ok {
		return fmt.Errorf("add %q: %w: %q", spec.ID, ErrParentNotFound, spec.ParentID)
	}
	if _, exists := s.GetNode(ctx, spec.ID); exists {
		return fmt.Errorf("add %q: %w", spec.ID, ErrNodeExists)
	}

	display := spec.DisplayName
	if display == "" {
		display = spec.BrowseName
	}
	s.nodes[spec.ID] = &Node{
		ID:          spec.ID,
		ParentID:    spec.ParentID,
		Class:       class,
		BrowseName:  spec.BrowseName,
		DisplayName: display,
		Description: spec.Description,
		Value:       spec.Value,
		source:      spec.Source,
	}
	parent.children = append(parent.children, spec.ID)

	metrics.NodesCreatedTotal.WithLabelValues(class.String()).Inc()
	s.logger.Debugw("node added", "id", spec.ID, "class", class.String())
	return nil
}

// Read returns the current value of a variable.
func (s *Server) Read(ctx context.Context, id string) (DataValue, error) {
	n, ok := s.GetNode(ctx, id)
	if !ok {
		return DataValue{}, fmt.Errorf("read %q: %w", id, ErrNodeNotFound)
	}
	if n.Class != ClassVariable {
		return DataValue{}, fmt.Errorf("read %q: %w", id, ErrNotVariable)
	}
	if n.source == nil {
		return DataValue{Value: n.Value, HasValue: true}, nil
	}

	var dv DataValue
	if err := n.source(ctx, id, &dv); err != nil {
		return DataValue{}, fmt.Errorf("read %q: %w", id, err)
	}
	return dv, nil
}

// Write rejects every write; all variables are read-only.
func (s *Server) Write(ctx context.Context, id string, _ any) error {
	if _, ok := s.GetNode(ctx, id); !ok {
		return fmt.Errorf("write %q: %w", id, ErrNodeNotFound)
	}
	return fmt.Errorf("write %q: %w", id, ErrNotWritable)
}

// Browse returns the children of id. Each child is looked up through the hook.
func (s *Server) Browse(ctx context.Context, id string) ([]*Node, error) {
	n, ok := s.GetNode(ctx, id)
	if !ok {
		return nil, fmt.Errorf("browse %q: %w", id, ErrNodeNotFound)
	}

	ids := n.Children()
	out := make([]*Node, 0, len(ids))
	for _, childID := range ids {
		if child, ok := s.GetNode(ctx, childID); ok {
			out = append(out, child)
		}
	}
	return out, nil
}

// Run processes submitted tasks one at a time until ctx is cancelled. A task
// that has started always runs to completion.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.stopped)

	s.logger.Infow("address space running",
		"endpoint", s.cfg.EndpointURL, "host", s.cfg.HostName, "port", s.cfg.Port)

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("address space stopped")
			return nil
		case t := <-s.tasks:
			start := time.Now()
			t.fn(t.ctx)
			close(t.done)
			metrics.EngineTasksTotal.Inc()
			s.logger.Debugw("task done", "duration", time.Since(start))
		}
	}
}

// Do runs fn on the processing loop and waits for it to finish. Once fn has
// been accepted, Do waits for completion even if ctx is cancelled, and fn sees
// a context that is never cancelled.
func (s *Server) Do(ctx context.Context, fn func(ctx context.Context)) error {
	t := task{
		ctx:  context.WithoutCancel(ctx),
		fn:   fn,
		done: make(chan struct{}),
	}

	select {
	case s.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}

	<-t.done
	return nil
}
