package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/empire-parts-api/internal/config"
	"github.com/empire-parts-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/empire-parts-api/internal/infrastructure/jwt"
	s3infra "github.com/empire-parts-api/internal/infrastructure/s3"
	"github.com/empire-parts-api/internal/infrastructure/smtp"
	"github.com/empire-parts-api/internal/infrastructure/sns"
	"github.com/empire-parts-api/internal/infrastructure/streams"
	"github.com/empire-parts-api/internal/realtime"
	transporthttp "github.com/empire-parts-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store for product images.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS push sender (optional — graceful fallback).
	var pushSender sns.PushSender
	if sender, err := sns.NewSender(cfg); err == nil {
		pushSender = sender
	} else {
		log.Printf("WARN: SNS push sender not available: %v", err)
	}

	// Realtime bridge: notifications change stream -> in-process hub -> SSE.
	hub := realtime.NewHub()
	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()
	poller := streams.NewPoller(
		dynamoClient,
		streams.NewClient(cfg),
		cfg.DynamoTables.Notifications,
		hub,
		cfg.StreamPollInterval,
	)
	go func() {
		if err := poller.Run(bridgeCtx); err != nil && bridgeCtx.Err() == nil {
			log.Printf("WARN: realtime bridge stopped: %v", err)
		}
	}()

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:      dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		CategoryRepo:     dynamo.NewCategoryRepo(dynamoClient, cfg.DynamoTables.Categories),
		ProductRepo:      dynamo.NewProductRepo(dynamoClient, cfg.DynamoTables.Products),
		OrderRepo:        dynamo.NewOrderRepo(dynamoClient, cfg.DynamoTables.Orders),
		InvoiceRepo:      dynamo.NewInvoiceRepo(dynamoClient, cfg.DynamoTables.Invoices),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		SubscriptionRepo: dynamo.NewSubscriptionRepo(dynamoClient, cfg.DynamoTables.Subscriptions),
		S3Store:          s3Store,
		Mailer:           mailer,
		PushSender:       pushSender,
		JWTProvider:      jwtProvider,
		Hub:              hub,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the notification stream endpoint holds its
		// connection open indefinitely.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopBridge()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
