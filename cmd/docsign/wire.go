package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"docsign/internal/config"
	"docsign/internal/domain"
	"docsign/internal/infra/auth/password"
	"docsign/internal/infra/auth/rbac"
	"docsign/internal/infra/auth/tokens"
	"docsign/internal/infra/db"
	httpinfra "docsign/internal/infra/http"
	"docsign/internal/infra/memstore"
	"docsign/internal/infra/pdfstamp"
	"docsign/internal/infra/policyopa"
	"docsign/internal/infra/ratelimit"
	"docsign/internal/infra/storage"
	"docsign/internal/usecase"

	"go.uber.org/zap"
)

type repositories struct {
	users      usecase.UserRepository
	documents  usecase.DocumentRepository
	signatures usecase.SignatureRepository
	audit      usecase.AuditRepository
}

type app struct {
	server  *httpinfra.Server
	closers []func() error
	log     *zap.Logger
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close resource", zap.Error(err))
		}
	}
}

func build(ctx context.Context, cfg config.Config, zlog *zap.Logger) (*app, error) {
	a := &app{log: zlog}

	store, err := db.NewStore(ctx, cfg, zlog)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	repos := memoryRepositories()
	var ping func(context.Context) error
	if store.Enabled() {
		repos = repositories{
			users:      store.Users,
			documents:  store.Documents,
			signatures: store.Signatures,
			audit:      store.Audit,
		}
		ping = store.Ping
		a.closers = append(a.closers, store.Close)
	}

	objects, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	policy, err := policyopa.NewEngine(ctx, cfg.PolicyBundlePath)
	if err != nil {
		return nil, fmt.Errorf("init access policy: %w", err)
	}
	zlog.Info("access policy loaded", zap.String("source", policy.Source()), zap.String("hash", policy.Hash()))

	signer, err := pdfstamp.LoadSigner(cfg.SigningCertFile, cfg.SigningKeyFile, cfg.SigningName)
	if err != nil {
		return nil, fmt.Errorf("init pdf signer: %w", err)
	}
	if cfg.SigningCertFile == "" {
		zlog.Warn("SIGNING_CERT_FILE not set; using a generated self-signed certificate")
	}

	accessSecret, refreshSecret, err := jwtSecrets(cfg, zlog)
	if err != nil {
		return nil, err
	}
	tokenSvc, err := tokens.New(accessSecret, refreshSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init tokens: %w", err)
	}

	limiter, err := rateLimiter(ctx, cfg, zlog)
	if err != nil {
		return nil, err
	}
	if closer, ok := limiter.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	accounts := usecase.NewAccountService(repos.users, repos.documents, password.NewHasher(cfg.BcryptCost), tokenSvc)
	accounts.AllowAdminRegistration = cfg.RegistrationAllowAdmin
	trail := usecase.NewAuditTrail(repos.audit, repos.users, repos.documents, policy)
	documents := usecase.NewDocumentService(repos.documents, repos.signatures, objects, pdfstamp.NewInspector(), policy, trail, zlog)
	signatures := usecase.NewSignatureService(repos.signatures, repos.documents, repos.users, objects, policy, trail, zlog)
	compositor := pdfstamp.NewCompositor(signer)
	workflow := usecase.NewSigningWorkflow(signatures, documents, compositor)

	a.server = httpinfra.NewServer(cfg, httpinfra.ServerDeps{
		Log:           zlog,
		Accounts:      accounts,
		Documents:     documents,
		Signatures:    signatures,
		Workflow:      workflow,
		Audit:         trail,
		Authenticator: tokenSvc,
		Authorizer:    rbac.NewAuthorizer(),
		RateLimiter:   limiter,
		Ping:          ping,
	})
	return a, nil
}

func memoryRepositories() repositories {
	mem := memstore.New()
	return repositories{
		users:      mem.Users(),
		documents:  mem.Documents(),
		signatures: mem.Signatures(),
		audit:      mem.Audit(),
	}
}

// jwtSecrets generates per-process secrets outside production so a local
// server starts without configuration. Tokens do not survive a restart.
func jwtSecrets(cfg config.Config, zlog *zap.Logger) (string, string, error) {
	access, refresh := cfg.JWTAccessSecret, cfg.JWTRefreshSecret
	if access != "" && refresh != "" {
		return access, refresh, nil
	}
	if cfg.IsProduction() {
		return "", "", errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required in production")
	}
	zlog.Warn("JWT secrets not set; generating ephemeral secrets")
	var err error
	if access == "" {
		if access, err = randomSecret(); err != nil {
			return "", "", err
		}
	}
	if refresh == "" {
		if refresh, err = randomSecret(); err != nil {
			return "", "", err
		}
	}
	return access, refresh, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func rateLimiter(ctx context.Context, cfg config.Config, zlog *zap.Logger) (domain.RateLimiter, error) {
	if cfg.RateLimitRequests <= 0 {
		return nil, nil
	}
	if cfg.RedisAddr != "" {
		limiter, err := ratelimit.NewRedisLimiter(ctx, ratelimit.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			return limiter, nil
		}
		if cfg.RateLimitFailClosed {
			return nil, fmt.Errorf("init redis rate limiter: %w", err)
		}
		zlog.Warn("redis unavailable; using in-memory rate limiter", zap.Error(err))
	}
	return ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys}), nil
}
