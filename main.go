package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawsewa/config"
	authController "pawsewa/controllers/auth"
	careController "pawsewa/controllers/care"
	locationController "pawsewa/controllers/location"
	notificationController "pawsewa/controllers/notification"
	paymentController "pawsewa/controllers/payment"
	petController "pawsewa/controllers/pet"
	"pawsewa/controllers/realtime"
	"pawsewa/controllers/server"
	requestController "pawsewa/controllers/service_request"
	subscriptionController "pawsewa/controllers/subscription"
	userController "pawsewa/controllers/user"
	"pawsewa/database"
	"pawsewa/database/seeders"
	"pawsewa/httpServices/esewa"
	"pawsewa/httpServices/khalti"
	"pawsewa/logger"
	"pawsewa/metrics"
	"pawsewa/middleware"
	"pawsewa/routes"
	authService "pawsewa/services/auth"
	careService "pawsewa/services/care"
	chatService "pawsewa/services/chat"
	"pawsewa/services/events"
	locationService "pawsewa/services/location"
	notificationService "pawsewa/services/notification"
	paymentService "pawsewa/services/payment"
	petService "pawsewa/services/pet"
	prescriptionService "pawsewa/services/prescription"
	requestService "pawsewa/services/service_request"
	subscriptionService "pawsewa/services/subscription"
	"pawsewa/tracing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading configuration", err)
		os.Exit(1)
	}
	if err := logger.Setup(cfg.Log.Dir, cfg.Log.Level); err != nil {
		fmt.Println("Error setting up log files", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Env)
	if err != nil {
		logger.Error("Failed to start tracing", err)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return
	}
	if err := seeders.SeedAdmin(db, cfg.Seed.AdminName, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		logger.Error("Failed to seed admin account", err)
	}

	catalog, err := config.LoadPlans(cfg.PlansFile)
	if err != nil {
		logger.Error("Failed to load subscription plans", err)
		return
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("pawsewa", registry)

	// Broadcast goes to websocket clients inline. The broker sits behind a queue
	// so a slow broker never holds up a request.
	hub := events.NewHub(cfg.Realtime.ClientBuffer, m)
	sinks := []events.Sink{{Name: "websocket", Publisher: hub}}
	switch cfg.EventBus.Kind {
	case "rabbitmq":
		pub, err := events.NewAMQPPublisher(cfg.EventBus.RabbitURL, cfg.EventBus.RabbitExchange)
		if err != nil {
			logger.Error("RabbitMQ publisher unavailable, continuing without it", err)
			break
		}
		q := events.NewQueue("rabbitmq", pub, cfg.EventBus.QueueSize, m)
		go q.Run(ctx)
		defer func() {
			stop()
			<-q.Done()
			_ = pub.Close()
		}()
		sinks = append(sinks, events.Sink{Name: "rabbitmq", Publisher: q})
	case "kafka":
		pub, err := events.NewKafkaPublisher(cfg.EventBus.KafkaBrokers, cfg.EventBus.KafkaTopic)
		if err != nil {
			logger.Error("Kafka publisher unavailable, continuing without it", err)
			break
		}
		q := events.NewQueue("kafka", pub, cfg.EventBus.QueueSize, m)
		go q.Run(ctx)
		defer func() {
			stop()
			<-q.Done()
			_ = pub.Close()
		}()
		sinks = append(sinks, events.Sink{Name: "kafka", Publisher: q})
	}
	publisher := events.NewFanout(m, sinks...)

	loc := cfg.Location()
	tokens := authService.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpireHours)*time.Hour)
	auth := authService.NewAuthService(db, tokens)
	notifier := notificationService.NewNotificationService(db, publisher)
	requests := requestService.NewServiceRequestService(db, publisher, notifier, cfg.Geofence, loc, m)
	chat := chatService.NewChatService(db, publisher, cfg.Realtime.ChatReadOnlyAfter)
	locations := locationService.NewLocationService(db, publisher, cfg.Realtime.LocationTTL)
	care := careService.NewCareService(db, cfg.Geofence, loc)
	pets := petService.NewPetService(db)

	var gateways []paymentService.Gateway
	if cfg.Khalti.Configured() {
		client := khalti.NewClient(cfg.Khalti.BaseURL, cfg.Khalti.SecretKey, cfg.Payment.GatewayTimeout)
		gateways = append(gateways, paymentService.NewKhaltiGateway(cfg.Khalti, client))
	} else {
		logger.Warning("KHALTI_SECRET_KEY is not set, Khalti payments are disabled")
	}
	var esewaClient *esewa.Client
	if cfg.Esewa.Configured() {
		esewaClient = esewa.NewClient(esewa.Options{
			InitURL:     cfg.Esewa.InitURL,
			StatusURL:   cfg.Esewa.StatusURL,
			SecretKey:   cfg.Esewa.SecretKey,
			ProductCode: cfg.Esewa.ProductCode,
			SuccessURL:  cfg.Esewa.SuccessURL,
			FailureURL:  cfg.Esewa.FailureURL,
			Timeout:     cfg.Payment.GatewayTimeout,
		})
		gateways = append(gateways, paymentService.NewEsewaGateway(esewaClient))
	} else {
		logger.Warning("ESEWA_SECRET_KEY is not set, eSewa payments are disabled")
	}
	payments := paymentService.NewPaymentService(db, gateways, esewaClient, catalog, publisher, m, cfg.Payment.GatewayTimeout)
	subscriptions := subscriptionService.NewSubscriptionService(db, catalog, payments)

	var parser prescriptionService.Parser
	if gemini, err := prescriptionService.NewGeminiParser(ctx, cfg.Gemini); err != nil {
		logger.Warning("Prescription reader is disabled: " + err.Error())
	} else {
		parser = gemini
	}
	prescriptions := prescriptionService.NewPrescriptionService(db, parser, 30*time.Second)

	auditLog := logger.NewAsyncLogger(db, 500)
	go auditLog.ProcessLog(ctx)
	go subscriptions.RunSweeper(ctx, time.Hour)
	go locations.RunJanitor(ctx, 5*time.Minute)

	app := fiber.New(fiber.Config{
		AppName:         cfg.App.Name,
		ReadBufferSize:  32768, // 32KB read buffer
		WriteBufferSize: 32768, // 32KB write buffer
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		BodyLimit:       50 * 1024 * 1024, // 50MB body limit
		ErrorHandler:    middleware.ErrorHandler(cfg.IsProduction()),
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.FrontendURL != "*",
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Resolver:       auth,
		AuditLog:       auditLog,
		Metrics:        m,
		Gatherer:       registry,
		MetricsPath:    cfg.Metrics.Path,
		Health:         server.NewHealthController(db, cfg.App.Name),
		Auth:           authController.NewAuthController(auth, cfg.IsProduction()),
		User:           userController.NewUserController(auth),
		Pet:            petController.NewPetController(pets),
		ServiceRequest: requestController.NewServiceRequestController(requests, chat, locations, prescriptions),
		Payment:        paymentController.NewPaymentController(payments, cfg.Payment),
		Subscription:   subscriptionController.NewSubscriptionController(subscriptions),
		Notification:   notificationController.NewNotificationController(notifier),
		Care:           careController.NewCareController(care),
		Location:       locationController.NewLocationController(locations),
		Realtime:       realtime.NewRealtimeController(hub, chat, auth),
	})

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Server shutdown failed", err)
		}
	}()

	addr := cfg.App.Host + ":" + cfg.App.Port
	logger.Success("Server is running on " + addr +
		"\n\t\t\t\t\t\t******************************************************************************************\n")
	if err := app.Listen(addr); err != nil {
		logger.Error("Server stopped", err)
	}

	if shutdownTracing != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("Failed to flush traces", err)
		}
	}
}
