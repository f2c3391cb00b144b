package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrMissingDatabaseURL = errors.New("db: connection string is empty")
	ErrNotConnected       = errors.New("db: not connected")
	ErrRetriesExhausted   = errors.New("db: retry budget exhausted")
)

// DB is what the repositories query through. The gateway satisfies it by
// forwarding to whichever pool is current.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is the subset of *pgxpool.Pool the gateway depends on.
type Pool interface {
	DB
	Ping(ctx context.Context) error
	Close()
}

// Dialer opens a pool and proves it reachable.
type Dialer func(ctx context.Context, cfg *pgxpool.Config) (Pool, error)

// Hooks receives connection lifecycle signals, typically for metrics.
type Hooks interface {
	SetConnected(bool)
	IncRetry()
}

type noopHooks struct{}

func (noopHooks) SetConnected(bool) {}
func (noopHooks) IncRetry()         {}

type Options struct {
	URL                 string
	MaxPoolSize         int32
	ServerSelectTimeout time.Duration
	SocketTimeout       time.Duration
	MaxRetries          int
	RetryInterval       time.Duration
	HealthCheckInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxPoolSize <= 0 {
		o.MaxPoolSize = 10
	}
	if o.ServerSelectTimeout <= 0 {
		o.ServerSelectTimeout = 5 * time.Second
	}
	if o.SocketTimeout <= 0 {
		o.SocketTimeout = 45 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 5 * time.Second
	}
	if o.HealthCheckInterval <= 0 {
		o.HealthCheckInterval = 10 * time.Second
	}
	return o
}

type Option func(*Gateway)

func WithDialer(d Dialer) Option {
	return func(g *Gateway) { g.dial = d }
}

func WithHooks(h Hooks) Option {
	return func(g *Gateway) {
		if h != nil {
			g.hooks = h
		}
	}
}

// WithSleep replaces the wait between connection attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gateway) { g.sleep = sleep }
}

// WithFatal replaces what happens when a background reconnect gives up.
// The default logs and exits the process with status 1.
func WithFatal(fatal func(err error)) Option {
	return func(g *Gateway) { g.fatal = fatal }
}

type eventKind int

const (
	eventDisconnected eventKind = iota + 1
)

type event struct {
	kind eventKind
	gen  uint64
	err  error
}

// Gateway owns the database connection: the initial connect with bounded
// retries, the reconnect loop and shutdown. Lifecycle changes arrive as events
// and are applied by a single goroutine.
type Gateway struct {
	opts    Options
	poolCfg *pgxpool.Config
	dial    Dialer
	status  *ConnStatus
	hooks   Hooks
	log     *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	fatal   func(err error)

	mu   sync.RWMutex
	pool Pool
	gen  uint64

	events    chan event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once

	shutdownOnce sync.Once
	shutdownErr  error
}

func New(opts Options, log *slog.Logger, options ...Option) (*Gateway, error) {
	if opts.URL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if log == nil {
		log = slog.Default()
	}

	opts = opts.withDefaults()

	poolCfg, err := PoolConfig(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	g := &Gateway{
		opts:    opts,
		poolCfg: poolCfg,
		dial:    dialPool,
		status:  NewConnStatus(),
		hooks:   noopHooks{},
		log:     log,
		sleep:   sleepCtx,
		events:  make(chan event, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	g.fatal = func(err error) {
		g.log.Error("database unavailable, exiting", "err", err)
		os.Exit(1)
	}

	for _, o := range options {
		o(g)
	}

	return g, nil
}

// PoolConfig maps the gateway options onto a pgx pool configuration.
func PoolConfig(opts Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = opts.MaxPoolSize
	cfg.HealthCheckPeriod = opts.HealthCheckInterval
	cfg.ConnConfig.ConnectTimeout = opts.ServerSelectTimeout
	cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.SocketTimeout.Milliseconds(), 10)

	// IPv4 only
	dialer := &net.Dialer{Timeout: opts.ServerSelectTimeout, KeepAlive: 5 * time.Minute}
	cfg.ConnConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if network == "tcp" {
			network = "tcp4"
		}
		return dialer.DialContext(ctx, network, addr)
	}

	return cfg, nil
}

func dialPool(ctx context.Context, cfg *pgxpool.Config) (Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Connect performs the initial connection, retrying up to MaxRetries times,
// and then starts watching the connection. It returns ErrRetriesExhausted
// when every attempt failed.
func (g *Gateway) Connect(ctx context.Context) error {
	if err := g.connect(ctx); err != nil {
		return err
	}

	g.startOnce.Do(func() {
		go g.run()
		go g.monitor()
	})

	return nil
}

func (g *Gateway) connect(ctx context.Context) error {
	g.status.MarkConnecting()

	for {
		pool, err := g.dialOnce(ctx)
		if err == nil {
			g.setPool(pool)
			g.status.MarkConnected(g.poolCfg.ConnConfig.Host, g.poolCfg.ConnConfig.Database)
			g.hooks.SetConnected(true)
			g.log.Info("database connected",
				"host", g.poolCfg.ConnConfig.Host,
				"database", g.poolCfg.ConnConfig.Database,
			)
			return nil
		}

		if ctx.Err() != nil {
			g.status.MarkDisconnected()
			return ctx.Err()
		}

		g.log.Error("database connection failed", "err", err)

		attempt, ok := g.status.IncrementRetry(g.opts.MaxRetries)
		if !ok {
			g.status.MarkTerminated()
			g.hooks.SetConnected(false)
			return fmt.Errorf("%w after %d retries: %v", ErrRetriesExhausted, g.opts.MaxRetries, err)
		}

		g.hooks.IncRetry()
		g.log.Info("retrying database connection",
			"attempt", attempt,
			"max_retries", g.opts.MaxRetries,
			"interval", g.opts.RetryInterval.String(),
		)

		if err := g.sleep(ctx, g.opts.RetryInterval); err != nil {
			g.status.MarkDisconnected()
			return err
		}
	}
}

func (g *Gateway) dialOnce(ctx context.Context) (Pool, error) {
	dctx, cancel := context.WithTimeout(ctx, g.opts.ServerSelectTimeout)
	defer cancel()

	return g.dial(dctx, g.poolCfg)
}

func (g *Gateway) setPool(p Pool) {
	g.mu.Lock()
	g.pool = p
	g.gen++
	g.mu.Unlock()
}

func (g *Gateway) takePool() Pool {
	g.mu.Lock()
	p := g.pool
	g.pool = nil
	g.mu.Unlock()
	return p
}

func (g *Gateway) current() (Pool, uint64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.pool == nil {
		return nil, g.gen, ErrNotConnected
	}
	return g.pool, g.gen, nil
}

// monitor pings the current pool and posts a disconnect event on failure.
func (g *Gateway) monitor() {
	ticker := time.NewTicker(g.opts.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-ticker.C:
			pool, gen, err := g.current()
			if err != nil {
				continue
			}

			pctx, cancel := context.WithTimeout(g.ctx, g.opts.ServerSelectTimeout)
			err = pool.Ping(pctx)
			cancel()

			if err != nil && g.ctx.Err() == nil {
				g.post(event{kind: eventDisconnected, gen: gen, err: err})
			}
		}
	}
}

func (g *Gateway) post(ev event) {
	select {
	case g.events <- ev:
	default:
		// an event is already pending
	}
}

// run applies lifecycle events one at a time.
func (g *Gateway) run() {
	defer close(g.done)

	for {
		select {
		case <-g.ctx.Done():
			return
		case ev := <-g.events:
			g.handle(ev)
		}
	}
}

func (g *Gateway) handle(ev event) {
	switch ev.kind {
	case eventDisconnected:
		_, gen, _ := g.current()
		if ev.gen != gen {
			return
		}

		g.log.Warn("database disconnected", "err", ev.err)
		g.status.MarkDisconnected()
		g.hooks.SetConnected(false)

		if old := g.takePool(); old != nil {
			old.Close()
		}

		if err := g.connect(g.ctx); err != nil {
			if g.ctx.Err() != nil {
				return
			}
			g.fatal(err)
		}
	}
}

// Status returns a snapshot of the connection state.
func (g *Gateway) Status() Status {
	return g.status.Snapshot()
}

func (g *Gateway) Ping(ctx context.Context) error {
	pool, _, err := g.current()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (g *Gateway) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	pool, _, err := g.current()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pool.Exec(ctx, sql, args...)
}

func (g *Gateway) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	pool, _, err := g.current()
	if err != nil {
		return nil, err
	}
	return pool.Query(ctx, sql, args...)
}

func (g *Gateway) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	pool, _, err := g.current()
	if err != nil {
		return errRow{err: err}
	}
	return pool.QueryRow(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// Shutdown stops the reconnect loop and closes the pool. Only the first call
// does any work; later calls return the first call's result.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.shutdownOnce.Do(func() {
		g.cancel()

		// done is only closed by run when the loop was started
		g.startOnce.Do(func() { close(g.done) })
		select {
		case <-g.done:
		case <-ctx.Done():
		}

		g.status.MarkDisconnecting()

		pool := g.takePool()
		if pool != nil {
			closed := make(chan struct{})
			go func() {
				pool.Close()
				close(closed)
			}()

			select {
			case <-closed:
			case <-ctx.Done():
				g.shutdownErr = fmt.Errorf("close database pool: %w", ctx.Err())
			}
		}

		g.status.MarkDisconnected()
		g.hooks.SetConnected(false)

		if g.shutdownErr != nil {
			g.log.Error("database shutdown failed", "err", g.shutdownErr)
			return
		}
		g.log.Info("database connection closed")
	})

	return g.shutdownErr
}
