// Package committee is the backend of the Washington State Permanent
// Supportive Housing Advisory Committee site: a JSON API for blog posts,
// events, documents and contact submissions, with a token-gated admin area.
//
// Content lives in per-kind metadata stores persisted to an object store
// (a blob REST API, SQLite or Redis). When no object store is configured, or
// it cannot be reached, the stores keep serving from process memory.
package committee

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/wa-psh/committee/auth"
	"github.com/wa-psh/committee/blob"
	"github.com/wa-psh/committee/contact"
	"github.com/wa-psh/committee/content"
	"github.com/wa-psh/committee/limiter"
	"github.com/wa-psh/committee/metastore"
)

// Version is reported by /api/status and the version command.
var Version = "dev"

// App wires configuration, stores, auth and HTTP routes together.
type App struct {
	Config Config
	Echo   *echo.Echo

	Objects     blob.Store // nil when no object store is configured
	Blog        *metastore.Store[content.BlogPost]
	Events      *metastore.Store[content.Event]
	Documents   *metastore.Store[content.Document]
	Submissions *metastore.Store[content.Submission]

	Codec    *auth.Codec
	Verifier auth.Verifier
	Intake   *contact.Intake

	postCache     *ListCache[content.BlogPost]
	eventCache    *ListCache[content.Event]
	documentCache *ListCache[content.Document]

	loginLimiter *limiter.Limiter
	objectsSet   bool
	ownsObjects  bool
	now          func() time.Time
	customRoutes []func(*App)
	cancel       context.CancelFunc
}

// Option configures additional App behavior.
type Option func(*App)

// WithObjectStore uses s instead of opening the configured backend. A nil s
// runs every store memory-backed.
func WithObjectStore(s blob.Store) Option {
	return func(a *App) {
		a.Objects = s
		a.objectsSet = true
	}
}

// WithClock replaces time.Now for server-set timestamps and event filtering.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// New validates cfg, opens the object store and builds the routes. The
// returned App is ready to serve through Handler or Start.
func New(cfg Config, opts ...Option) (*App, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		now:    time.Now,
	}
	a.Echo.HideBanner = true
	a.Echo.Logger.SetLevel(log.INFO)
	for _, opt := range opts {
		opt(a)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.initAuth(); err != nil {
		cancel()
		return nil, err
	}
	if err := a.initStores(ctx); err != nil {
		cancel()
		return nil, err
	}

	a.loginLimiter = limiter.New(cfg.LoginLimit, cfg.LoginWindow)
	contactLimiter := limiter.New(cfg.ContactLimit, cfg.ContactWindow)
	a.Intake = contact.NewIntake(a.Submissions, contactLimiter, a.Echo.Logger)
	go a.loginLimiter.Run(ctx)
	go contactLimiter.Run(ctx)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return a, nil
}

func (a *App) initAuth() error {
	secret, dev := a.Config.secret()
	if dev {
		a.Echo.Logger.Warn("committee: JWT_SECRET not set, using development secret")
	}
	codec, err := auth.NewCodec(secret, a.Config.TokenTTL)
	if err != nil {
		return fmt.Errorf("committee: init tokens: %w", err)
	}
	a.Codec = codec.WithClock(a.now)
	a.Verifier = auth.Verifier{
		Username:     a.Config.AdminUsername,
		PasswordHash: a.Config.AdminPasswordHash,
	}
	if a.Verifier.PasswordHash == "" {
		a.Echo.Logger.Warn("committee: ADMIN_PASSWORD_HASH not set, admin login is disabled")
	}
	return nil
}

// pingObjects reports an unreachable backend at startup. The app still
// starts; the metadata stores fall back to memory on their first read.
func (a *App) pingObjects(ctx context.Context) {
	p, ok := a.Objects.(blob.Pinger)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, a.Config.BlobTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		a.Echo.Logger.Warnf("committee: object store unreachable, serving from memory until it recovers: %v", err)
	}
}

func (a *App) initStores(ctx context.Context) error {
	if !a.objectsSet {
		objects, err := blob.Open(ctx, a.Config.blobConfig())
		if err != nil {
			return fmt.Errorf("committee: open object store: %w", err)
		}
		a.Objects = objects
		a.ownsObjects = true
		a.pingObjects(ctx)
	}
	if a.Objects == nil {
		a.Echo.Logger.Warn("committee: object store not configured, content is kept in memory only")
	}

	var err error
	logger := a.Echo.Logger
	if a.Blog, err = metastore.New(content.BlogKind(), a.Objects,
		metastore.WithLogger[content.BlogPost](logger), metastore.WithClock[content.BlogPost](a.now)); err != nil {
		return err
	}
	if a.Events, err = metastore.New(content.EventKind(), a.Objects,
		metastore.WithLogger[content.Event](logger), metastore.WithClock[content.Event](a.now)); err != nil {
		return err
	}
	if a.Documents, err = metastore.New(content.DocumentKind(), a.Objects,
		metastore.WithLogger[content.Document](logger), metastore.WithClock[content.Document](a.now)); err != nil {
		return err
	}
	if a.Submissions, err = metastore.New(content.SubmissionKind(), a.Objects,
		metastore.WithLogger[content.Submission](logger), metastore.WithClock[content.Submission](a.now)); err != nil {
		return err
	}

	ttl := a.Config.CacheTTL
	a.postCache = NewListCache(a.Blog.All, ttl)
	a.eventCache = NewListCache(a.Events.All, ttl)
	a.documentCache = NewListCache(a.Documents.All, ttl)
	return nil
}

// Initialize loads every collection once, writing default datasets to an
// empty object store. Stores also initialize lazily on first use.
func (a *App) Initialize(ctx context.Context) {
	a.Echo.Logger.Infof("committee: blog store %s", a.Blog.Initialize(ctx))
	a.Echo.Logger.Infof("committee: events store %s", a.Events.Initialize(ctx))
	a.Echo.Logger.Infof("committee: documents store %s", a.Documents.Initialize(ctx))
	a.Echo.Logger.Infof("committee: submissions store %s", a.Submissions.Initialize(ctx))
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.Echo
}

// Start initializes the stores and serves until the server is shut down.
func (a *App) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*a.Config.BlobTimeout)
	a.Initialize(ctx)
	cancel()

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close stops background work and releases the object store.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.ownsObjects {
		return blob.Close(a.Objects)
	}
	return nil
}
