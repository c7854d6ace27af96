package cmd

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/events"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/payment"
	"github.com/vibast-solutions/ms-go-checkout/app/repository"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/config"

	_ "github.com/go-sql-driver/mysql"
)

type tokenStore interface {
	Store(ctx context.Context, token *entity.RecurringToken) error
	Find(ctx context.Context, shopperReference string) (*entity.RecurringToken, error)
	Delete(ctx context.Context, shopperReference string) (bool, error)
	List(ctx context.Context) ([]*entity.RecurringToken, error)
}

type backend struct {
	cfg                 *config.Config
	subscriptionService *service.SubscriptionService
	webhookService      *service.WebhookService
	publisher           events.Publisher
	metrics             *metrics.ServerMetrics
	closers             []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logrus.WithError(err).Warn("Failed to close resource")
		}
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustCreateBackend(cfg *config.Config) *backend {
	return newBackend(cfg, prometheus.DefaultRegisterer)
}

// newBackend wires the services and feeds their observers into metrics
// registered on reg, so serve and renew report the same counters.
func newBackend(cfg *config.Config, reg prometheus.Registerer) *backend {
	b := &backend{cfg: cfg}

	tokens := b.mustCreateTokenStore()
	processor := newProcessor(cfg)
	b.publisher = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic)
	b.closers = append(b.closers, b.publisher.Close)

	b.subscriptionService = service.NewSubscriptionService(tokens, processor, cfg.Subscriptions)
	b.webhookService = service.NewWebhookService(tokens, b.publisher, cfg.Adyen.HMACKey)

	b.metrics = metrics.NewServerMetrics(cfg.App.ServiceName, reg)
	b.subscriptionService.WithRenewalObserver(b.metrics)
	b.webhookService.WithObserver(b.metrics)
	if cfg.Adyen.HMACKey == "" {
		logrus.Warn("ADYEN_HMAC_KEY not set, webhook signatures are not validated")
	}
	return b
}

func (b *backend) mustCreateTokenStore() tokenStore {
	cfg := b.cfg
	if cfg.MySQL.DSN == "" {
		logrus.Warn("MYSQL_DSN not set, recurring tokens are kept in memory")
		return repository.NewMemoryTokenRepository()
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	b.closers = append(b.closers, db.Close)

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		b.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	repo := repository.NewRecurringTokenRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		b.Close()
		logrus.WithError(err).Fatal("Failed to ensure recurring token schema")
	}
	return repo
}

func newProcessor(cfg *config.Config) payment.Processor {
	if cfg.Adyen.APIKey == "" {
		logrus.Warn("ADYEN_API_KEY not set, using the stub payment processor")
		return payment.NewStubProcessor()
	}
	return payment.NewAdyenProcessor(payment.AdyenConfig{
		APIKey:          cfg.Adyen.APIKey,
		MerchantAccount: cfg.Adyen.MerchantAccount,
		CheckoutURL:     cfg.Adyen.CheckoutURL,
		ReturnURL:       cfg.Adyen.ReturnURL,
		Currency:        cfg.Subscriptions.Currency,
	}, &http.Client{Timeout: 30 * time.Second})
}
