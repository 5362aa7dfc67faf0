package service

import (
	config "github.com/maheshrc27/formpay/configs"
	"github.com/maheshrc27/formpay/internal/hooks"
)

const (
	KeyTypeSecret      = "secret"
	KeyTypePublishable = "publishable"
)

// SigningSecretArgs is the context handed to the webhook signing secret
// extension point.
type SigningSecretArgs struct {
	Secret string
	Mode   string
}

// KeysService resolves API credentials. Pure configuration lookup, no remote
// calls.
type KeysService interface {
	Resolve(keyType, mode, overrideKey string, privileged bool) string
	APIMode() string
	SigningSecret(mode string) string
}

type keysService struct {
	cfg   config.Config
	hooks *hooks.Registry
}

func NewKeysService(cfg config.Config, registry *hooks.Registry) KeysService {
	return &keysService{cfg: cfg, hooks: registry}
}

// Resolve returns the API key for the given type and mode. A non-empty
// override wins unconditionally when the caller is privileged; callers must
// only pass privileged=true for authenticated administrators.
func (s *keysService) Resolve(keyType, mode, overrideKey string, privileged bool) string {
	if overrideKey != "" && privileged {
		return overrideKey
	}

	if mode == "" {
		mode = s.APIMode()
	}

	switch mode + "_" + keyType {
	case "live_secret":
		return s.cfg.LiveSecretKey
	case "live_publishable":
		return s.cfg.LivePublishableKey
	case "test_secret":
		return s.cfg.TestSecretKey
	case "test_publishable":
		return s.cfg.TestPublishableKey
	}
	return ""
}

func (s *keysService) APIMode() string {
	return hooks.Apply(s.hooks, hooks.APIMode, s.cfg.APIMode)
}

func (s *keysService) SigningSecret(mode string) string {
	secret := s.cfg.TestSigningSecret
	if mode == "live" {
		secret = s.cfg.LiveSigningSecret
	}

	args := hooks.Apply(s.hooks, hooks.WebhookSigningSecret, &SigningSecretArgs{Secret: secret, Mode: mode})
	return args.Secret
}
