package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pointsbridge/ww-adapter/internal/ww"
	"github.com/pointsbridge/ww-adapter/pkg/config"
	"github.com/pointsbridge/ww-adapter/pkg/secrets"
	"github.com/pointsbridge/ww-adapter/pkg/utils"
)

// Resolver resolves the WW account credentials for this instance, either
// from an AWS Secrets Manager JSON secret or from environment configuration.
type Resolver struct {
	logger   *zap.Logger
	cfg      *config.Config
	provider secrets.Provider // nil when no secret is configured
}

// NewResolver builds a credentials resolver. provider may be nil when
// cfg.CredentialsSecret is empty.
func NewResolver(logger *zap.Logger, cfg *config.Config, provider secrets.Provider) *Resolver {
	return &Resolver{logger: logger, cfg: cfg, provider: provider}
}

// Resolve returns the account credentials. Secret format:
// {"username": "...", "password": "...", "region": "US"}; region falls back
// to the configured default when the secret omits it.
func (r *Resolver) Resolve(ctx context.Context) (ww.Credentials, error) {
	if r.cfg.CredentialsSecret != "" {
		if r.provider == nil {
			return ww.Credentials{}, fmt.Errorf("credentials secret %q configured but no secrets provider available", r.cfg.CredentialsSecret)
		}
		values, err := r.provider.GetSecret(ctx, r.cfg.CredentialsSecret)
		if err != nil {
			return ww.Credentials{}, fmt.Errorf("resolve WW credentials: %w", err)
		}
		creds := ww.Credentials{
			Region:   values["region"],
			Username: values["username"],
			Password: values["password"],
		}
		if creds.Region == "" {
			creds.Region = r.cfg.WWRegion
		}
		if creds.Username == "" || creds.Password == "" {
			return ww.Credentials{}, fmt.Errorf("secret %q is missing username or password", r.cfg.CredentialsSecret)
		}
		r.logger.Info("credentials resolved from secrets manager",
			zap.String("secret", r.cfg.CredentialsSecret),
			zap.String("account", utils.MaskEmail(creds.Username)))
		return creds, nil
	}

	if r.cfg.WWUsername == "" || r.cfg.WWPassword == "" {
		return ww.Credentials{}, fmt.Errorf("no credentials configured: set WW_USERNAME/WW_PASSWORD or WW_CREDENTIALS_SECRET")
	}
	return ww.Credentials{
		Region:   r.cfg.WWRegion,
		Username: r.cfg.WWUsername,
		Password: r.cfg.WWPassword,
	}, nil
}
