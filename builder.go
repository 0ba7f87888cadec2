package authcore

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/24digi/authcore/delivery"
	"github.com/24digi/authcore/federated"
	"github.com/24digi/authcore/internal"
	"github.com/24digi/authcore/internal/rate"
	"github.com/24digi/authcore/internal/stores"
	"github.com/24digi/authcore/jwt"
)

// Builder defines a public type used by authcore APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	gateway   delivery.Gateway
	federated *federated.Provider
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithDeliveryGateway describes the withdeliverygateway operation and its observable behavior.
//
// WithDeliveryGateway may return an error when input validation, dependency calls, or security checks fail.
// WithDeliveryGateway does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithDeliveryGateway(g delivery.Gateway) *Builder {
	b.gateway = g
	return b
}

// WithFederatedProvider describes the withfederatedprovider operation and its observable behavior.
//
// WithFederatedProvider may return an error when input validation, dependency calls, or security checks fail.
// WithFederatedProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithFederatedProvider(p *federated.Provider) *Builder {
	b.federated = p
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		challenges: stores.NewChallengeStore(b.redis, cfg.Store.KeyPrefix, cfg.Store.ChallengeRetention),
		tokens:     stores.NewRefreshTokenStore(b.redis, cfg.Store.KeyPrefix),
		identities: stores.NewIdentityStore(b.redis, cfg.Store.KeyPrefix),
		federated:  b.federated,
		now:        time.Now,
	}

	if cfg.Limits.EnableDestinationThrottle || cfg.Limits.EnableIPThrottle {
		engine.startLimiter = rate.New(b.redis, cfg.Store.KeyPrefix, cfg.Limits.StartMaxPerWindow, cfg.Limits.StartWindow)
	}

	engine.gateway = b.gateway
	if engine.gateway == nil {
		engine.gateway = delivery.NoopGateway{}
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	if cfg.Bypass.Enabled {
		digest := internal.HashOTP(cfg.Bypass.Code, cfg.OTP.Salt)
		engine.bypassHash = hex.EncodeToString(digest[:])
	}

	jm, err := jwt.NewManager(jwt.Config{
		Secret:    cloneBytes(cfg.Token.Secret),
		AccessTTL: cfg.Token.AccessTTL,
		Issuer:    cfg.Token.Issuer,
		Audience:  cfg.Token.Audience,
		Leeway:    cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
