// Package scheduler runs request handlers inline, on the main loop, or on a fixed worker pool.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/internal/eventqueue"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	_configKey         = "scheduler"
	_defaultWorkers    = 4
	_defaultQueueSize  = 64
	_overloadedMessage = "Server overloaded"
)

// Module provides the Scheduler.
var Module = fx.Provide(New)

// Kind tells where a task runs.
type Kind int

// Task kinds.
const (
	// KindImmediate tasks carry their actions and run nothing.
	KindImmediate Kind = iota
	// KindSync tasks run on the main loop with exclusive access to the session.
	KindSync
	// KindAsync tasks run on a worker with a snapshot of the session.
	KindAsync
)

func (k Kind) String() string {
	switch k {
	case KindImmediate:
		return "immediate"
	case KindSync:
		return "sync"
	default:
		return "async"
	}
}

// SyncFunc runs on the main loop. It may mutate the session.
type SyncFunc func(ctx context.Context, s *session.Session) []entity.Action

// AsyncFunc runs on a worker. It may only communicate through the returned actions.
type AsyncFunc func(ctx context.Context, s *session.Snapshot) []entity.Action

// Task is a unit of work built by the router.
type Task struct {
	Kind   Kind
	Method string
	// ID is set when the task answers a request. A failing task answers it with an error.
	ID      *jsonrpc2.ID
	Actions []entity.Action
	Sync    SyncFunc
	Async   AsyncFunc
}

// Immediate creates a task that only produces the given actions.
func Immediate(method string, actions ...entity.Action) Task {
	return Task{Kind: KindImmediate, Method: method, Actions: actions}
}

// Sync creates a task that runs on the main loop.
func Sync(method string, id *jsonrpc2.ID, fn SyncFunc) Task {
	return Task{Kind: KindSync, Method: method, ID: id, Sync: fn}
}

// Async creates a task that runs on a worker.
func Async(method string, id *jsonrpc2.ID, fn AsyncFunc) Task {
	return Task{Kind: KindAsync, Method: method, ID: id, Async: fn}
}

// Scheduler dispatches tasks.
type Scheduler interface {
	// Dispatch returns the actions of immediate and sync tasks. Async tasks are queued and their
	// actions are later pushed to the event queue. Dispatch never blocks on async work.
	Dispatch(ctx context.Context, task Task, s *session.Session) []entity.Action
}

// Config is the scheduler configuration.
type Config struct {
	WorkerThreads int `yaml:"workerThreads"`
	QueueSize     int `yaml:"queueSize"`
}

// Params are the dependencies of the Scheduler.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Queue     eventqueue.Queue
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
}

type job struct {
	task     Task
	snapshot *session.Snapshot
}

type scheduler struct {
	cfg    Config
	jobs   chan job
	events eventqueue.Queue
	logger *zap.SugaredLogger
	stats  tally.Scope

	group   *errgroup.Group
	cancel  context.CancelFunc
	stopped sync.Once
}

// New creates a Scheduler whose workers are started and stopped with the application.
func New(p Params) (Scheduler, error) {
	var cfg Config
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	s := newScheduler(cfg, p.Queue, p.Logger, p.Stats)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.start()
			return nil
		},
		OnStop: func(context.Context) error {
			return s.stop()
		},
	})
	return s, nil
}

func newScheduler(cfg Config, events eventqueue.Queue, logger *zap.SugaredLogger, stats tally.Scope) *scheduler {
	if cfg.WorkerThreads <= 0 {
		cfg.WorkerThreads = _defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = _defaultQueueSize
	}
	return &scheduler{
		cfg:    cfg,
		jobs:   make(chan job, cfg.QueueSize),
		events: events,
		logger: logger,
		stats:  stats.SubScope("scheduler"),
	}
}

func (s *scheduler) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.WorkerThreads; i++ {
		s.group.Go(func() error {
			for j := range s.jobs {
				s.post(s.runAsync(ctx, j))
			}
			return nil
		})
	}
	s.stats.Gauge("workers").Update(float64(s.cfg.WorkerThreads))
	s.logger.Infow("scheduler started", "workers", s.cfg.WorkerThreads, "queueSize", s.cfg.QueueSize)
}

// stop lets the workers drain queued jobs and waits for them.
func (s *scheduler) stop() error {
	var err error
	s.stopped.Do(func() {
		close(s.jobs)
		if s.group != nil {
			err = s.group.Wait()
			s.cancel()
		}
	})
	return err
}

func (s *scheduler) Dispatch(ctx context.Context, task Task, sess *session.Session) []entity.Action {
	s.stats.Tagged(map[string]string{"kind": task.Kind.String()}).Counter("tasks").Inc(1)

	switch task.Kind {
	case KindImmediate:
		return task.Actions
	case KindSync:
		return s.runSync(ctx, task, sess)
	default:
		select {
		case s.jobs <- job{task: task, snapshot: sess.Snapshot()}:
			return nil
		default:
			s.stats.Counter("rejected").Inc(1)
			s.logger.Warnw("task rejected, worker queue is full", "method", task.Method, "queueSize", s.cfg.QueueSize)
			return failure(task, jsonrpc2.NewError(jsonrpc2.InternalError, _overloadedMessage))
		}
	}
}

func (s *scheduler) runSync(ctx context.Context, task Task, sess *session.Session) (actions []entity.Action) {
	defer func() {
		if r := recover(); r != nil {
			actions = s.recovered(task, r)
		}
	}()
	return task.Sync(ctx, sess)
}

func (s *scheduler) runAsync(ctx context.Context, j job) (actions []entity.Action) {
	defer func() {
		if r := recover(); r != nil {
			actions = s.recovered(j.task, r)
		}
	}()
	return j.task.Async(ctx, j.snapshot)
}

func (s *scheduler) recovered(task Task, r interface{}) []entity.Action {
	s.stats.Counter("panics").Inc(1)
	s.logger.Errorw("task panicked", "method", task.Method, "panic", r, "stack", string(debug.Stack()))
	return failure(task, jsonrpc2.NewError(jsonrpc2.InternalError, fmt.Sprintf("request handler panicked: %s", task.Method)))
}

func (s *scheduler) post(actions []entity.Action) {
	for _, action := range actions {
		s.events.Push(entity.ActionEvent{Action: action})
	}
}

// failure answers the request of a task with an error. Notifications produce nothing.
func failure(task Task, err *jsonrpc2.Error) []entity.Action {
	if task.ID == nil {
		return nil
	}
	resp, respErr := jsonrpc2.NewResponse(*task.ID, nil, err)
	if respErr != nil {
		return nil
	}
	return []entity.Action{entity.SendResponse{Response: resp}}
}
