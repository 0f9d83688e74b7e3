package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
)

// TokenVerifier validates a pre-issued session token and returns the
// identity it asserts.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// ServiceConfig is the service configuration blob supplied at bootstrap.
type ServiceConfig struct {
	Issuer   string `json:"issuer"`
	ClientID string `json:"client_id"`
}

// ParseServiceConfig decodes the JSON service configuration blob.
func ParseServiceConfig(raw string) (*ServiceConfig, error) {
	var cfg ServiceConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidServiceCfg, err)
	}
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: issuer and client_id are required", ErrInvalidServiceCfg)
	}
	return &cfg, nil
}

// OIDCVerifier verifies tokens as OpenID Connect ID tokens issued by the
// configured issuer for the configured client. The identity is the token subject.
type OIDCVerifier struct {
	cfg ServiceConfig

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier creates a verifier. Issuer discovery is deferred until
// the first Verify call.
func NewOIDCVerifier(cfg ServiceConfig) *OIDCVerifier {
	return &OIDCVerifier{cfg: cfg}
}

func (v *OIDCVerifier) Verify(ctx context.Context, token string) (string, error) {
	verifier, err := v.idVerifier(ctx)
	if err != nil {
		return "", err
	}

	idToken, err := verifier.Verify(ctx, token)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	return idToken.Subject, nil
}

func (v *OIDCVerifier) idVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.verifier != nil {
		return v.verifier, nil
	}

	provider, err := oidc.NewProvider(ctx, v.cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover issuer %s: %w", v.cfg.Issuer, err)
	}

	v.verifier = provider.Verifier(&oidc.Config{ClientID: v.cfg.ClientID})
	return v.verifier, nil
}
