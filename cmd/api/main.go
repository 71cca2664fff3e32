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

	"github.com/joho/godotenv"
	"github.com/smartprep/auth-api/internal/application/otp"
	"github.com/smartprep/auth-api/internal/application/sweeper"
	"github.com/smartprep/auth-api/internal/config"
	"github.com/smartprep/auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/smartprep/auth-api/internal/infrastructure/jwt"
	"github.com/smartprep/auth-api/internal/infrastructure/smtp"
	"github.com/smartprep/auth-api/internal/pkg/hashing"
	transporthttp "github.com/smartprep/auth-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	otpRepo := dynamo.NewOtpRepo(dynamoClient, cfg.DynamoTables.OtpCodes)

	deps := &transporthttp.Deps{
		UserRepo:    dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		OtpRepo:     otpRepo,
		Mailer:      smtp.NewMailer(cfg),
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// The sweeper gets its own OTP service instance; it only ever calls
	// SweepExpired, so the hasher is along for the ride.
	otpSvc := otp.NewService(otp.ServiceDeps{
		Store:       otpRepo,
		Hasher:      hashing.NewBcrypt(cfg.BcryptCost),
		TTL:         cfg.OtpTTL,
		MaxAttempts: cfg.OtpMaxAttempts,
	})
	sw := sweeper.New(otpSvc, cfg.SweepInterval)
	if err := sw.Start(context.Background()); err != nil {
		log.Fatalf("sweeper: %v", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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
	sw.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
