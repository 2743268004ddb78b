package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest            = errors.New("test error")
	ErrConstructor     = errors.New("constructor error")
	ErrDisposal        = errors.New("disposal error")
	ErrAlreadyDisposed = errors.New("already disposed")
	ErrStop            = errors.New("stop")
)

// Counter counts constructor calls.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() int64 {
	return c.n.Add(1)
}

func (c *Counter) Load() int64 {
	return c.n.Load()
}

// EventLog records lifecycle events in order. Safe for concurrent use.
type EventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *EventLog) Add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *EventLog) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Engine is a leaf bean.
type Engine struct {
	ID        string
	Cylinders int
}

func NewEngine() *Engine {
	return &Engine{ID: uuid.NewString(), Cylinders: 4}
}

// Car needs an Engine.
type Car struct {
	ID     string
	Engine *Engine
}

func NewCar(engine *Engine) *Car {
	return &Car{ID: uuid.NewString(), Engine: engine}
}

// Wheel is typically a prototype dependency of Car-like beans.
type Wheel struct {
	ID       string
	Position int
}

// TestService is a basic test service
type TestService struct {
	ID        string
	CreatedAt time.Time
	Data      string
}

// NewTestService creates a new test service
func NewTestService() *TestService {
	return &TestService{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Data:      "test",
	}
}

// Greeter has several implementations to disambiguate between.
type Greeter interface {
	Greet(name string) string
}

type EnglishGreeter struct{}

func (EnglishGreeter) Greet(name string) string { return "Hello, " + name }

type SpanishGreeter struct{}

func (SpanishGreeter) Greet(name string) string { return "Hola, " + name }

type FrenchGreeter struct{}

func (*FrenchGreeter) Greet(name string) string { return "Bonjour, " + name }

// Datasource is iterated by each-style beans.
type Datasource struct {
	Name string
	URL  string
}

// Pool is built once per Datasource.
type Pool struct {
	Datasource *Datasource
}

// CircularA and CircularB depend on each other.
type CircularA struct {
	B *CircularB
}

type CircularB struct {
	A *CircularA
}

// TestDisposable implements Disposable.
type TestDisposable struct {
	ID       string
	disposed bool
	mu       sync.Mutex
}

func NewTestDisposable() *TestDisposable {
	return &TestDisposable{
		ID: uuid.NewString(),
	}
}

func (s *TestDisposable) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrAlreadyDisposed
	}

	s.disposed = true
	return nil
}

func (s *TestDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// TestContextDisposable implements DisposableWithContext.
type TestContextDisposable struct {
	ID       string
	disposed bool
	ctx      context.Context
	mu       sync.Mutex
}

func NewTestContextDisposable() *TestContextDisposable {
	return &TestContextDisposable{
		ID: uuid.NewString(),
	}
}

func (s *TestContextDisposable) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrAlreadyDisposed
	}

	s.ctx = ctx
	s.disposed = true
	return nil
}

func (s *TestContextDisposable) WasDisposedWithContext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx != nil
}

func (s *TestContextDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// TestLifecycle implements Lifecycle and records its calls.
type TestLifecycle struct {
	Log     *EventLog
	Name    string
	StopErr error
}

func (l *TestLifecycle) Start(context.Context) error {
	l.Log.Add("start %s", l.Name)
	return nil
}

func (l *TestLifecycle) Stop(context.Context) error {
	l.Log.Add("stop %s", l.Name)
	return l.StopErr
}
