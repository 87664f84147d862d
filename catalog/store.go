package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const defaultQueueTimeout = 5 * time.Second

type action int

const (
	loadAction action = iota
	updateAction
	resetAction
	replaceAction
)

type command struct {
	ctx     context.Context
	action  action
	catalog *Catalog
	fn      func(*Catalog) error
	reply   chan result
}

type result struct {
	catalog *Catalog
	version uint64
	err     error
}

// Store serves every read and write of the catalog from one goroutine
type Store struct {
	backend      Backend
	template     *Catalog
	commands     chan command
	quit         chan struct{}
	done         chan struct{}
	version      *atomic.Uint64
	queueTimeout time.Duration
	logger       *zap.Logger
	clock        func() time.Time
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithQueueTimeout bounds how long a call waits for the store goroutine
func WithQueueTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.queueTimeout = d
	}
}

// WithLogger set store logger
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock set the time source used for last_updated
func WithClock(fn func() time.Time) StoreOption {
	return func(s *Store) {
		s.clock = fn
	}
}

// NewStore starts the store goroutine. template is cloned and never handed out.
func NewStore(backend Backend, template *Catalog, opts ...StoreOption) *Store {
	s := &Store{
		backend:      backend,
		commands:     make(chan command),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		version:      atomic.NewUint64(0),
		queueTimeout: defaultQueueTimeout,
		logger:       zap.NewNop(),
		clock:        time.Now,
	}
	if template != nil {
		s.template = template.Clone()
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

// Close stops the store goroutine
func (s *Store) Close() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	<-s.done
}

// Version returns the number of writes performed since start
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Load returns the persisted catalog, creating it from the template when absent
func (s *Store) Load(ctx context.Context) (*Catalog, error) {
	res, err := s.call(ctx, command{action: loadAction})
	return res.catalog, err
}

// Save overwrites the catalog, stamping last_updated
func (s *Store) Save(ctx context.Context, c *Catalog) error {
	return s.Replace(ctx, c)
}

// Replace validates c and overwrites the catalog. Invalid documents leave the store unchanged.
func (s *Store) Replace(ctx context.Context, c *Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.call(ctx, command{action: replaceAction, catalog: c.Clone()})
	return err
}

// Reset overwrites the catalog with a fresh copy of the template
func (s *Store) Reset(ctx context.Context) (*Catalog, error) {
	res, err := s.call(ctx, command{action: resetAction})
	return res.catalog, err
}

// Update loads the catalog, applies fn and saves the result as one step.
// When fn returns an error nothing is written.
func (s *Store) Update(ctx context.Context, fn func(*Catalog) error) (*Catalog, uint64, error) {
	res, err := s.call(ctx, command{action: updateAction, fn: fn})
	return res.catalog, res.version, err
}

// call hands cmd to the store goroutine. Once handed over the reply is always
// awaited, so the returned error matches what was persisted.
func (s *Store) call(ctx context.Context, cmd command) (result, error) {
	cmd.ctx = ctx
	cmd.reply = make(chan result, 1)
	timer := time.NewTimer(s.queueTimeout)
	defer timer.Stop()
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-s.quit:
		return result{}, ErrClosed
	case <-timer.C:
		return result{}, ErrBusy
	}
	res := <-cmd.reply
	return res, res.err
}

func (s *Store) loop() {
	defer close(s.done)
	for {
		select {
		case cmd := <-s.commands:
			cmd.reply <- s.handle(cmd)
		case <-s.quit:
			return
		}
	}
}

func (s *Store) handle(cmd command) result {
	ctx := context.Background()
	switch cmd.action {
	case loadAction:
		c, err := s.current(ctx)
		return result{catalog: c, version: s.Version(), err: err}
	case updateAction:
		c, err := s.current(ctx)
		if err != nil {
			return result{err: err}
		}
		if err := cmd.fn(c); err != nil {
			return result{err: err}
		}
		if err := c.Validate(); err != nil {
			return result{err: err}
		}
		if err := cmd.ctx.Err(); err != nil {
			return result{err: err}
		}
		version, err := s.write(ctx, c)
		return result{catalog: c.Clone(), version: version, err: err}
	case resetAction:
		c, err := s.fromTemplate()
		if err != nil {
			return result{err: err}
		}
		if err := cmd.ctx.Err(); err != nil {
			return result{err: err}
		}
		version, err := s.write(ctx, c)
		return result{catalog: c.Clone(), version: version, err: err}
	case replaceAction:
		if err := cmd.ctx.Err(); err != nil {
			return result{err: err}
		}
		version, err := s.write(ctx, cmd.catalog)
		return result{version: version, err: err}
	default:
		return result{err: errors.New("unknown catalog action")}
	}
}

// current reads the persisted document, seeding it from the template when missing
func (s *Store) current(ctx context.Context) (*Catalog, error) {
	bs, err := s.backend.Read(ctx)
	if errors.Is(err, os.ErrNotExist) {
		c, err := s.fromTemplate()
		if err != nil {
			return nil, err
		}
		s.logger.Info("grocery list created from template")
		if _, err := s.write(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return c, nil
}

func (s *Store) fromTemplate() (*Catalog, error) {
	if s.template == nil {
		return nil, fmt.Errorf("%w: no default template", ErrUnavailable)
	}
	return s.template.Clone(), nil
}

func (s *Store) write(ctx context.Context, c *Catalog) (uint64, error) {
	c.LastUpdated = s.clock().UTC().Format(time.RFC3339)
	bs, err := c.Marshal()
	if err != nil {
		return 0, fmt.Errorf("encode grocery list: %w", err)
	}
	if err := s.backend.Write(ctx, bs); err != nil {
		return 0, fmt.Errorf("write grocery list: %w", err)
	}
	version := s.version.Inc()
	s.logger.Debug("grocery list saved", zap.Uint64("version", version), zap.Int("items", c.Len()))
	return version, nil
}
