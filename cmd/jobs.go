package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
)

var renewWorker bool

var renewCmd = &cobra.Command{
	Use:   "renew",
	Short: "Charge every stored recurring token once",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := mustLoadConfig()
		b := mustCreateBackend(cfg)
		defer b.Close()

		fn := func(ctx context.Context) error {
			return runRenewals(ctx, b.subscriptionService)
		}

		if renewWorker {
			runWorker("renew", cfg.Jobs.RenewInterval, fn)
			return
		}
		runJob("renew", func() error { return fn(context.Background()) })
	},
}

func init() {
	rootCmd.AddCommand(renewCmd)
	renewCmd.Flags().BoolVar(&renewWorker, "worker", false, "Run continuously using configured interval")
}

func runRenewals(ctx context.Context, subscriptionService *service.SubscriptionService) error {
	report, err := subscriptionService.RunRenewalBatch(ctx)
	logrus.WithFields(logrus.Fields{
		"attempted":  report.Attempted,
		"authorised": report.Authorised,
		"refused":    report.Refused,
		"failed":     report.Failed,
	}).Info("renewal_report")
	return err
}

func runWorker(name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
