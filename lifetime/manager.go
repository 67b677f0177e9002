package lifetime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mimimalizam/scicom/errors"
)

const (
	DefaultPrefix  = "sc_"
	DefaultEntropy = 8
	minEntropy     = 4
)

// Namespace is the part of the engine the Manager writes to.
type Namespace interface {
	Bind(ctx context.Context, name string, v any) error
	Unbind(ctx context.Context, name string) error
}

// Bindable is a value that can be published under a generated name.
type Bindable interface {
	// BindingSlot returns the slot recording the value's current name.
	BindingSlot() *Slot
	// Publish returns what to bind into the namespace.
	Publish() (any, error)
}

type entry struct {
	slot *Slot
	name string
}

// Manager is the stack of temporary bindings for one engine.
type Manager struct {
	ns      Namespace
	logger  *zap.Logger
	rand    io.Reader
	prefix  string
	stack   []entry
	entropy int
	mu      sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithPrefix sets the prefix of generated names.
func WithPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" {
			m.prefix = prefix
		}
	}
}

// WithEntropy sets the number of random bytes in generated names.
func WithEntropy(n int) Option {
	return func(m *Manager) {
		if n >= minEntropy {
			m.entropy = n
		}
	}
}

// WithRandom replaces the random source used for names.
func WithRandom(r io.Reader) Option {
	return func(m *Manager) {
		if r != nil {
			m.rand = r
		}
	}
}

// WithLogger overrides the package logger for this Manager.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager writing into ns.
func NewManager(ns Namespace, opts ...Option) *Manager {
	m := &Manager{
		ns:      ns,
		logger:  Logger(),
		rand:    rand.Reader,
		prefix:  DefaultPrefix,
		entropy: DefaultEntropy,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewName returns a fresh name. It does not publish anything.
func (m *Manager) NewName() (string, error) {
	buf := make([]byte, m.entropy)
	if _, err := io.ReadFull(m.rand, buf); err != nil {
		return "", errors.Wrap(errors.PhaseLifetime, errors.KindInvalidData, err, "read random name")
	}
	return m.prefix + hex.EncodeToString(buf), nil
}

// Acquire returns the name b is published under, publishing it first if
// needed. Repeated calls return the same name until the next Drain.
func (m *Manager) Acquire(ctx context.Context, b Bindable) (string, error) {
	slot := b.BindingSlot()
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.name != "" {
		if slot.owner != m {
			return "", errors.InvalidInput(errors.PhaseLifetime, "value is bound in another engine")
		}
		return slot.name, nil
	}

	v, err := b.Publish()
	if err != nil {
		return "", err
	}

	name, err := m.NewName()
	if err != nil {
		return "", err
	}
	if err := m.ns.Bind(ctx, name, v); err != nil {
		return "", errors.New(errors.PhaseLifetime, errors.KindRejected).
			Path(name).
			Detail("bind temporary").
			Cause(err).
			Build()
	}

	slot.name = name
	slot.owner = m

	m.mu.Lock()
	m.stack = append(m.stack, entry{slot: slot, name: name})
	depth := len(m.stack)
	m.mu.Unlock()

	m.logger.Debug("bind temporary", zap.String("name", name), zap.Int("depth", depth))
	return name, nil
}

// Mark returns the current stack depth.
func (m *Manager) Mark() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stack)
}

// Drain unbinds every name pushed since mark, newest first, and clears the
// slots that held them. All names are attempted; failures are combined.
func (m *Manager) Drain(ctx context.Context, mark int) error {
	m.mu.Lock()
	if mark < 0 {
		mark = 0
	}
	if mark >= len(m.stack) {
		m.mu.Unlock()
		return nil
	}
	popped := append([]entry(nil), m.stack[mark:]...)
	clear(m.stack[mark:])
	m.stack = m.stack[:mark]
	m.mu.Unlock()

	var err error
	for i := len(popped) - 1; i >= 0; i-- {
		e := popped[i]
		if uerr := m.ns.Unbind(ctx, e.name); uerr != nil {
			m.logger.Warn("unbind temporary failed", zap.String("name", e.name), zap.Error(uerr))
			err = multierr.Append(err, errors.Leak(e.name, uerr))
		} else {
			m.logger.Debug("unbind temporary", zap.String("name", e.name))
		}
		e.slot.clear(e.name)
	}
	return err
}

// Len returns the number of live temporaries.
func (m *Manager) Len() int {
	return m.Mark()
}

// Pending returns the live temporary names, oldest first.
func (m *Manager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.stack))
	for i, e := range m.stack {
		names[i] = e.name
	}
	return names
}

// Frame scopes the temporaries of one top-level call.
type Frame struct {
	m    *Manager
	mark int
	once sync.Once
}

// Begin opens a frame at the current stack depth.
func (m *Manager) Begin() *Frame {
	return &Frame{m: m, mark: m.Mark()}
}

// End drains the frame. Only the first call has an effect.
func (f *Frame) End(ctx context.Context) error {
	var err error
	f.once.Do(func() {
		err = f.m.Drain(ctx, f.mark)
	})
	return err
}
