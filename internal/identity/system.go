package identity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sentinel/pkg/lifecycle"
)

// System establishes and holds the process session identity.
type System interface {
	Handler() *Handler

	// Establish runs the fallback chain once and returns the terminal session.
	// Later calls return the same session without further attempts.
	// It fails only when ctx is already done before establishment starts.
	Establish(ctx context.Context) (Session, error)
	// Session returns the established session, or false while not ready.
	Session() (Session, bool)
	// Ready reports whether a terminal session has been established.
	Ready() bool
	// Start establishes identity in a startup hook and tracks readiness.
	Start(lc *lifecycle.Coordinator) error
}

// Config carries the bootstrap inputs for a provider.
type Config struct {
	AppID   string
	Token   string
	Timeout time.Duration
}

type provider struct {
	cfg       Config
	verifier  TokenVerifier
	anonymous AnonymousAuthenticator
	logger    *slog.Logger

	// mu serializes establishment; session is read without it.
	mu      sync.Mutex
	session atomic.Pointer[Session]
}

// New creates an identity System. A nil verifier skips the token path and a
// nil authenticator skips the anonymous path.
func New(
	cfg Config,
	verifier TokenVerifier,
	anonymous AnonymousAuthenticator,
	logger *slog.Logger,
) System {
	return &provider{
		cfg:       cfg,
		verifier:  verifier,
		anonymous: anonymous,
		logger:    logger.With("system", "identity"),
	}
}

func (p *provider) Handler() *Handler {
	return NewHandler(p, p.logger)
}

func (p *provider) Establish(ctx context.Context) (Session, error) {
	if s := p.session.Load(); s != nil {
		return *s, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.session.Load(); s != nil {
		return *s, nil
	}

	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	s := p.establish(ctx)
	p.session.Store(&s)

	p.logger.Info("identity established", "id", s.ID, "method", s.Method)
	return s, nil
}

func (p *provider) establish(ctx context.Context) Session {
	id, err := p.tryToken(ctx)
	if err == nil {
		return p.terminal(id, MethodCustomToken)
	}
	p.logger.Warn("token sign-in unavailable", "error", err)

	if p.anonymous != nil {
		id, err := p.attempt(ctx, func(ctx context.Context) (string, error) {
			return p.anonymous.SignIn(ctx, p.cfg.AppID)
		})
		if err == nil {
			return p.terminal(id, MethodAnonymous)
		}
		p.logger.Warn("anonymous sign-in failed", "error", err)
	}

	return p.terminal(uuid.NewString(), MethodLocalFallback)
}

func (p *provider) tryToken(ctx context.Context) (string, error) {
	if p.cfg.Token == "" || p.verifier == nil {
		return "", ErrNoToken
	}
	return p.attempt(ctx, func(ctx context.Context) (string, error) {
		return p.verifier.Verify(ctx, p.cfg.Token)
	})
}

func (p *provider) attempt(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (p *provider) terminal(id string, method Method) Session {
	return Session{
		ID:            id,
		Method:        method,
		Ready:         true,
		EstablishedAt: time.Now().UTC(),
	}
}

func (p *provider) Session() (Session, bool) {
	s := p.session.Load()
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

func (p *provider) Ready() bool {
	_, ok := p.Session()
	return ok
}

func (p *provider) Start(lc *lifecycle.Coordinator) error {
	p.logger.Info(
		"starting identity provider",
		"app_id", p.cfg.AppID,
		"token", p.cfg.Token != "",
		"verifier", p.verifier != nil,
		"anonymous", p.anonymous != nil,
	)

	lc.Track("identity", p)
	lc.OnStartup(func() {
		if _, err := p.Establish(lc.Context()); err != nil {
			p.logger.Error("identity establishment aborted", "error", err)
		}
	})

	return nil
}
