// Package gamepad runs the gamepad side of a Wii U link. An Engine binds to
// the bridge, opens the channel sockets, turns console traffic into events on
// its queue and reports the local input state back to the console.
//
// Session operations (sync and connect) run on their own goroutine and only
// report back through the event queue. They stay alive after their terminal
// event until Interrupt is called, so a slow consumer can still read it.
package gamepad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/event"
	"github.com/vanilla-wiiu/govanilla/internal/log"
	"github.com/vanilla-wiiu/govanilla/interrupt"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

var (
	// ErrBusy is returned when a session is started while another one is
	// still running. Interrupt and Wait for it first.
	ErrBusy = errors.New("a session is already running")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("engine closed")
)

// State is the lifecycle state of the current session.
type State int32

const (
	StateIdle State = iota
	StateBinding
	StateChannelsOpening
	StateListening
	StateInterrupted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBinding:
		return "binding"
	case StateChannelsOpening:
		return "channels-opening"
	case StateListening:
		return "listening"
	case StateInterrupted:
		return "interrupted"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Config configures an Engine.
type Config struct {
	Socket        channel.Config `embed:"" prefix:"socket."`
	Pipe          pipe.Config    `embed:"" prefix:"pipe."`
	MaxEvents     int            `help:"Capacity of the event queue" default:"20" env:"VANILLA_MAX_EVENTS"`
	InputInterval time.Duration  `help:"Period of input reports sent to the console" default:"10ms" env:"VANILLA_INPUT_INTERVAL"`
}

// Stats is a snapshot of the engine counters.
type Stats struct {
	Session      string
	Address      string
	State        State
	Queue        event.Stats
	VideoPackets uint64
	VideoGaps    uint64
	AudioPackets uint64
	Messages     uint64
	Commands     uint64
	InputReports uint64
	Malformed    uint64
	PushFailures uint64
}

type counters struct {
	video, videoGaps, audio, messages, commands, inputReports, malformed, pushFailures atomic.Uint64
}

type session struct {
	id      uuid.UUID
	address channel.Address
	manager *channel.Manager
	pipe    *pipe.Client
	logger  *slog.Logger
	done    chan struct{}
}

// Engine owns the event queue, the interrupt signal and the shared input
// state, and runs at most one session at a time.
type Engine struct {
	cfg       Config
	logger    *slog.Logger
	rawLogger log.RawLogger
	queue     *event.Queue
	signal    *interrupt.Signal

	// Listen replaces the socket opener of sessions started afterwards.
	Listen channel.ListenFunc

	mu      sync.Mutex
	state   State
	closed  bool
	current *session

	inputMu  sync.Mutex
	input    InputState
	inputSeq uint16

	// inputDirty wakes the input listener after a state change; it holds at
	// most one pending wakeup.
	inputDirty chan struct{}

	msgSock   atomic.Pointer[channel.Socket]
	vibrating atomic.Bool

	counters counters
}

// New creates an idle engine.
func New(cfg Config, logger *slog.Logger, rawLogger log.RawLogger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = event.DefaultMaxEvents
	}
	if cfg.InputInterval <= 0 {
		cfg.InputInterval = 10 * time.Millisecond
	}
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		rawLogger:  rawLogger,
		queue:      event.NewQueue(cfg.MaxEvents, logger),
		signal:     interrupt.New(),
		input:      InputState{Battery: BatteryFull},
		inputDirty: make(chan struct{}, 1),
	}
}

// Queue returns the event queue of the engine.
func (e *Engine) Queue() *event.Queue { return e.queue }

// State returns the state of the current or last session.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Running reports whether a session worker is still alive.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runningLocked()
}

func (e *Engine) runningLocked() bool {
	if e.current == nil {
		return false
	}
	select {
	case <-e.current.done:
		return false
	default:
		return true
	}
}

// StartSync pairs with the console using the 4-digit code shown on the TV.
// The result arrives as a KindSync or KindError event.
func (e *Engine) StartSync(addr channel.Address, code uint16) error {
	if !addr.NeedsBridge() {
		return fmt.Errorf("%w: sync requires a bridge", pipe.StatusInvalidArgument)
	}
	return e.start(addr, "sync", func(ctx context.Context, s *session) {
		e.runSync(ctx, s, code)
	})
}

// StartConnect connects to the console with credentials from an earlier sync.
// Failures arrive as a KindError event.
func (e *Engine) StartConnect(addr channel.Address, creds pipe.Credentials) error {
	return e.start(addr, "connect", func(ctx context.Context, s *session) {
		e.runConnect(ctx, s, creds)
	})
}

func (e *Engine) start(addr channel.Address, op string, run func(ctx context.Context, s *session)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.runningLocked() {
		return ErrBusy
	}

	e.signal.Clear()
	id := uuid.New()
	logger := e.logger.With("session", id.String(), "op", op, "address", addr.String())
	manager := channel.NewManager(addr, e.cfg.Socket, logger, e.rawLogger)
	if e.Listen != nil {
		manager.Listen = e.Listen
	}
	s := &session{
		id:      id,
		address: addr,
		manager: manager,
		pipe:    pipe.NewClient(manager, e.cfg.Pipe, logger),
		logger:  logger,
		done:    make(chan struct{}),
	}
	e.current = s
	e.state = StateIdle
	logger.Info("session started")

	ctx, cancel := e.signal.Context(context.Background())
	go func() {
		defer close(s.done)
		defer cancel()
		run(ctx, s)
		logger.Info("session ended")
	}()
	return nil
}

func (e *Engine) setState(s *session, st State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != s || e.state == st {
		return
	}
	s.logger.Debug("session state", "from", e.state, "to", st)
	e.state = st
}

// Interrupt asks the running session to wind down. It does not wait.
func (e *Engine) Interrupt() { e.signal.Set() }

// Wait blocks until the session worker has exited.
func (e *Engine) Wait() {
	e.mu.Lock()
	s := e.current
	e.mu.Unlock()
	if s != nil {
		<-s.done
	}
}

// Close interrupts and joins the running session, then deactivates the queue
// so blocked consumers return.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.Interrupt()
	e.Wait()
	e.queue.Deactivate()

	e.mu.Lock()
	e.state = StateClosed
	e.mu.Unlock()
	return nil
}

// PullEvent takes the next event off the queue. See event.Queue.Pull.
func (e *Engine) PullEvent(blocking bool) (*event.Event, bool) {
	return e.queue.Pull(blocking)
}

// PullEventContext blocks for the next event until ctx is done.
func (e *Engine) PullEventContext(ctx context.Context) (*event.Event, bool) {
	return e.queue.PullContext(ctx)
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	st := Stats{State: e.state}
	if e.current != nil {
		st.Session = e.current.id.String()
		st.Address = e.current.address.String()
	}
	e.mu.Unlock()

	st.Queue = e.queue.Stats()
	st.VideoPackets = e.counters.video.Load()
	st.VideoGaps = e.counters.videoGaps.Load()
	st.AudioPackets = e.counters.audio.Load()
	st.Messages = e.counters.messages.Load()
	st.Commands = e.counters.commands.Load()
	st.InputReports = e.counters.inputReports.Load()
	st.Malformed = e.counters.malformed.Load()
	st.PushFailures = e.counters.pushFailures.Load()
	return st
}

func (e *Engine) push(s *session, kind event.Kind, data []byte) {
	if err := e.queue.Push(kind, data); err != nil {
		e.counters.pushFailures.Add(1)
		s.logger.Debug("event not queued", "kind", kind, "size", len(data), "error", err)
	}
}

// fail queues the single terminal Error event of a session and parks the
// worker until the session is interrupted.
func (e *Engine) fail(ctx context.Context, s *session, err error) {
	st := pipe.StatusOf(err)
	if st == pipe.StatusInterrupted {
		s.logger.Info("session interrupted", "error", err)
	} else {
		s.logger.Error("session failed", "status", st, "error", err)
	}
	e.push(s, event.KindError, st.Bytes())
	e.setState(s, StateClosed)
	<-ctx.Done()
}
