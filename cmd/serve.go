package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-checkout/app/controller"
	grpcserver "github.com/vibast-solutions/ms-go-checkout/app/grpc"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"github.com/vibast-solutions/ms-go-checkout/config"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start the HTTP (Echo) checkout server and, when internal auth is configured, the internal gRPC server.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type httpControllers struct {
	subscription *controller.SubscriptionController
	checkout     *controller.CheckoutController
	webhook      *controller.WebhookController
	internal     *controller.InternalController
}

func runServe(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()
	b := mustCreateBackend(cfg)
	defer b.Close()

	controllers := httpControllers{
		subscription: controller.NewSubscriptionController(b.subscriptionService),
		checkout:     controller.NewCheckoutController(b.subscriptionService, cfg.Adyen.ClientKey),
		webhook:      controller.NewWebhookController(b.webhookService),
		internal:     controller.NewInternalController(b.subscriptionService),
	}

	var (
		echoInternalAuth *authmiddleware.EchoInternalAuthMiddleware
		grpcSrv          *grpc.Server
		lis              net.Listener
	)
	if cfg.InternalEndpoints.AuthGRPCAddr != "" {
		authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
		}
		defer authGRPCClient.Close()
		internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
		echoInternalAuth = authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
		grpcInternalAuth := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

		grpcSrv, lis = setupGRPCServer(cfg, grpcserver.NewServer(b.subscriptionService), grpcInternalAuth, cfg.App.ServiceName)
	} else {
		logrus.Warn("AUTH_SERVICE_GRPC_ADDR not set, internal endpoints are disabled")
	}

	e := setupHTTPServer(controllers, b.metrics, echoInternalAuth, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	if grpcSrv != nil {
		go func() {
			logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
			if err := grpcSrv.Serve(lis); err != nil {
				logrus.WithError(err).Fatal("gRPC server error")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}

	logrus.Info("Server stopped")
}

// setupHTTPServer registers the public checkout routes. The internal group is
// only mounted when internalAuthMiddleware is not nil.
func setupHTTPServer(
	controllers httpControllers,
	serverMetrics *metrics.ServerMetrics,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string {
			return fmt.Sprintf("rest-%s", uuid.New().String())
		},
	}))
	e.Use(serverMetrics.Middleware())

	e.GET("/health", controllers.subscription.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	e.GET("/", controllers.checkout.Index)
	e.GET("/static/checkout.js", controllers.checkout.Script)
	e.POST("/paymentMethods", controllers.checkout.PaymentMethods)
	e.GET("/handleShopperRedirect", controllers.checkout.HandleShopperRedirect)
	e.POST("/handleShopperRedirect", controllers.checkout.HandleShopperRedirect)
	e.GET("/result/:type", controllers.checkout.Result)

	api := e.Group("/api")
	api.POST("/paymentMethods", controllers.checkout.PaymentMethods)
	api.POST("/payments/details", controllers.checkout.PaymentDetails)
	api.POST("/subscription-create", controllers.subscription.CreateSubscription)
	api.POST("/subscription-payment", controllers.subscription.ChargeSubscription)
	api.POST("/subscription-cancel", controllers.subscription.CancelSubscription)

	e.POST("/webhooks", controllers.webhook.Webhooks)

	if internalAuthMiddleware != nil {
		internal := e.Group("/internal", internalAuthMiddleware.RequireInternalAccess(appServiceName))
		internal.GET("/tokens", controllers.internal.ListTokens)
		internal.POST("/renewals", controllers.internal.RunRenewals)
	}

	return e
}

func setupGRPCServer(
	cfg *config.Config,
	subscriptionServer *grpcserver.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoveryInterceptor(),
			grpcserver.RequestIDInterceptor(),
			grpcserver.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	types.RegisterSubscriptionsServiceServer(grpcSrv, subscriptionServer)

	return grpcSrv, lis
}
