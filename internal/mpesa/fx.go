package mpesa

import (
	"context"

	"github.com/kanisahq/kanisa/internal/config"
	"github.com/kanisahq/kanisa/internal/mpesa/correlation"
	"github.com/kanisahq/kanisa/internal/mpesa/daraja"
	"github.com/kanisahq/kanisa/internal/mpesa/repository"
	"github.com/kanisahq/kanisa/internal/mpesa/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("mpesa.service",
	fx.Provide(repository.Provide),
	fx.Provide(newDarajaClient),
	fx.Provide(newCorrelationStore),
	fx.Provide(service.New),
)

func newDarajaClient(cfg config.Config) daraja.API {
	return daraja.New(daraja.Config{
		BaseURL:        cfg.Daraja.BaseURL,
		ConsumerKey:    cfg.Daraja.ConsumerKey,
		ConsumerSecret: cfg.Daraja.ConsumerSecret,
		ShortCode:      cfg.Daraja.ShortCode,
		Passkey:        cfg.Daraja.Passkey,
		CallbackURL:    cfg.Daraja.CallbackURL,
	})
}

// newCorrelationStore prefers redis so callbacks can be reconciled by any
// instance; the in-memory store is a single-instance fallback.
func newCorrelationStore(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) correlation.Store {
	if cfg.RedisAddr == "" {
		log.Named("mpesa").Info("using in-memory correlation store")
		return correlation.NewMemoryStore(correlation.DefaultTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	log.Named("mpesa").Info("using redis correlation store", zap.String("addr", cfg.RedisAddr))
	return correlation.NewRedisStore(client, correlation.DefaultTTL)
}
