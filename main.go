package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/bizsuite/billing/api"
	"github.com/bizsuite/billing/cache"
	"github.com/bizsuite/billing/config"
	"github.com/bizsuite/billing/db"
	"github.com/bizsuite/billing/gateways"
	"github.com/bizsuite/billing/middleware"
	"github.com/bizsuite/billing/services"
	"github.com/bizsuite/billing/stores"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func printBanner() {
	fmt.Printf("%s%s", colorCyan, colorBold)
	fmt.Println("╔══════════════════════════════════════════════════════╗")
	fmt.Println("║                                                      ║")
	fmt.Println("║  BizSuite Billing Engine                             ║")
	fmt.Println("║                                                      ║")
	fmt.Println("║  Multi-tenant subscription billing and gateway       ║")
	fmt.Println("║  orchestration                                       ║")
	fmt.Println("║                                                      ║")
	fmt.Println("╚══════════════════════════════════════════════════════╝")
	fmt.Printf("%s", colorReset)
}

func printStep(step, message string) {
	fmt.Printf("%s[%s]%s %s%s%s\n", colorBlue, step, colorReset, colorBold, message, colorReset)
}

func printSuccess(message string) {
	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, message)
}

func printWarning(message string) {
	fmt.Printf("%s⚠%s %s\n", colorYellow, colorReset, message)
}

func printError(message string) {
	fmt.Printf("%s✗%s %s\n", colorRed, colorReset, message)
}

func printInfo(message string) {
	fmt.Printf("%sℹ%s %s\n", colorCyan, colorReset, message)
}

func main() {
	printBanner()
	fmt.Println()

	printStep("1/9", "Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}
	printSuccess("Configuration loaded")

	printStep("2/9", "Validating configuration...")
	if err := cfg.Validate(); err != nil {
		printError(fmt.Sprintf("Configuration validation failed: %v", err))
		os.Exit(1)
	}
	printSuccess("Configuration validation passed")

	printStep("3/9", "Connecting to database...")
	gormDB, err := db.Open(cfg)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect to database: %v", err))
		os.Exit(1)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		printError(fmt.Sprintf("Failed to get database instance: %v", err))
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(gormDB); err != nil {
		printError(fmt.Sprintf("Failed to run migrations: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Connected to PostgreSQL at %s:%d", cfg.Database.Host, cfg.Database.Port))

	printStep("4/9", "Connecting to Redis...")
	redisCache, err := cache.CreateRedisCache(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		printWarning(fmt.Sprintf("Failed to connect to Redis: %v (continuing without cache)", err))
		redisCache = nil
	} else {
		defer redisCache.Close()
		printSuccess(fmt.Sprintf("Connected to Redis at %s:%d", cfg.Redis.Host, cfg.Redis.Port))
	}

	printStep("5/9", "Initializing payment gateways...")
	registry := gateways.NewRegistry(
		gateways.NewStripeAdapter(cfg.Gateways.Stripe.Secret, cfg.Gateways.Stripe.WebhookSecret, cfg.Gateways.Stripe.Sandbox),
		gateways.NewXenditAdapter(cfg.Gateways.Xendit.Secret, cfg.Gateways.Xendit.CallbackToken),
		gateways.NewRazorpayAdapter(cfg.Gateways.Razorpay.KeyID, cfg.Gateways.Razorpay.KeySecret, cfg.Gateways.Razorpay.WebhookSecret),
		gateways.NewMockAdapter(cfg.Gateways.Mock.Enabled, cfg.Gateways.Mock.WebhookSecret),
	)
	for _, name := range registry.Names() {
		adapter, _ := registry.Get(name)
		if adapter.IsConfigured() {
			printInfo(fmt.Sprintf("  • %s: configured", name))
		} else {
			printInfo(fmt.Sprintf("  • %s: no credentials, routing around it", name))
		}
	}
	printSuccess("Payment gateways initialized")

	printStep("6/9", "Initializing stores...")
	tenantStore := stores.CreateTenantStore(gormDB)
	planStore := stores.CreatePlanStore(gormDB)
	countryStore := stores.CreateCountryStore(gormDB)
	invoiceStore := stores.CreateInvoiceStore(gormDB)
	paymentStore := stores.CreatePaymentStore(gormDB)
	webhookStore := stores.CreateWebhookLedgerStore(gormDB)
	subscriptionStore := stores.CreateSubscriptionStore(gormDB)
	printSuccess("Stores initialized")

	printStep("7/9", "Loading country gateway mappings...")
	ctx := context.Background()
	mappings, err := countryStore.LoadAll(ctx)
	if err != nil || len(mappings) == 0 {
		if err != nil {
			printWarning(fmt.Sprintf("Failed to load country mappings: %v (using built-in defaults)", err))
		}
		mappings = gateways.DefaultCountryMappings()
		for i := range mappings {
			if err := countryStore.Upsert(ctx, &mappings[i]); err != nil {
				printWarning(fmt.Sprintf("Failed to seed mapping for %s: %v", mappings[i].Country, err))
			}
		}
	}
	printSuccess(fmt.Sprintf("%d country mappings loaded", len(mappings)))

	printStep("8/9", "Initializing services...")
	selector := gateways.NewSelector(registry, mappings, cfg.Billing.DefaultProvider)

	orchestrator := services.NewOrchestrator(
		tenantStore, planStore, invoiceStore, paymentStore,
		webhookStore, subscriptionStore, invoiceStore, selector, registry,
		services.OrchestratorConfig{InvoiceDueDays: cfg.Billing.InvoiceDueDays},
	)

	var reportCache services.ReportCache
	if redisCache != nil {
		reportCache = redisCache
	}
	revenueService := services.NewRevenueService(paymentStore, subscriptionStore, invoiceStore, reportCache)

	sweep := services.NewSweep(invoiceStore, invoiceStore, orchestrator, invoiceStore, cfg.Billing.SweepInterval)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweep.Start(sweepCtx)
	printSuccess("Services initialized")
	printInfo(fmt.Sprintf("  • Overdue sweep every %s", cfg.Billing.SweepInterval))

	printStep("9/9", "Setting up HTTP server...")
	paymentHandler := api.CreatePaymentHandler(orchestrator, invoiceStore, paymentStore)
	webhookHandler := api.CreateWebhookHandler(orchestrator, registry)
	subscriptionHandler := api.CreateSubscriptionHandler(orchestrator)
	revenueHandler := api.CreateRevenueHandler(revenueService)
	healthHandler := api.CreateHealthHandler()

	router := mux.NewRouter()
	router.Use(middleware.CorrelationMiddleware)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.RecoveryMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.RateLimitMiddleware(cfg.Billing.RateLimitRPS, cfg.Billing.RateLimitBurst))

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")
	apiRouter.HandleFunc("/payments/subscription", paymentHandler.HandleCreatePayment).Methods("POST")
	apiRouter.HandleFunc("/invoices/{id}", paymentHandler.HandleGetInvoice).Methods("GET")
	apiRouter.HandleFunc("/subscriptions/{tenant_id}/cancel", subscriptionHandler.HandleCancelSubscription).Methods("POST")
	apiRouter.HandleFunc("/revenue/report", revenueHandler.HandleRevenueReport).Methods("GET")
	apiRouter.HandleFunc("/webhooks/{provider}", webhookHandler.HandleWebhook).Methods("POST")

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	printSuccess("HTTP server configured")

	fmt.Println()
	fmt.Printf("%s%sBilling engine is ready%s\n", colorGreen, colorBold, colorReset)
	fmt.Printf("  %s•%s Health:   %shttp://localhost:%s/api/v1/health%s\n", colorCyan, colorReset, colorYellow, cfg.Server.Port, colorReset)
	fmt.Printf("  %s•%s Payments: %shttp://localhost:%s/api/v1/payments/subscription%s\n", colorCyan, colorReset, colorYellow, cfg.Server.Port, colorReset)
	fmt.Printf("  %s•%s Revenue:  %shttp://localhost:%s/api/v1/revenue/report%s\n", colorCyan, colorReset, colorYellow, cfg.Server.Port, colorReset)
	fmt.Printf("  %s•%s Webhooks: %shttp://localhost:%s/api/v1/webhooks/{provider}%s\n", colorCyan, colorReset, colorYellow, cfg.Server.Port, colorReset)
	fmt.Println()
	fmt.Printf("%s%sEnvironment:%s %s\n", colorBold, colorCyan, colorReset, cfg.Environment)
	fmt.Println()

	go func() {
		printInfo(fmt.Sprintf("Starting HTTP server on port %s...", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			printError(fmt.Sprintf("Server failed to start: %v", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println()
	printWarning("Shutting down billing engine...")

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		printError(fmt.Sprintf("Server forced to shutdown: %v", err))
		os.Exit(1)
	}

	printSuccess("Billing engine stopped gracefully")
}
