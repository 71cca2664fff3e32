package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/smartprep/auth-api/internal/application/auth"
	"github.com/smartprep/auth-api/internal/application/otp"
	"github.com/smartprep/auth-api/internal/config"
	"github.com/smartprep/auth-api/internal/pkg/hashing"
	"github.com/smartprep/auth-api/internal/transport/http/handler"
	appmiddleware "github.com/smartprep/auth-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	hasher := hashing.NewBcrypt(cfg.BcryptCost)
	otpSvc := otp.NewService(otp.ServiceDeps{
		Store:       deps.OtpRepo,
		Hasher:      hasher,
		TTL:         cfg.OtpTTL,
		MaxAttempts: cfg.OtpMaxAttempts,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:   deps.UserRepo,
		OtpManager: otpSvc,
		Mailer:     deps.Mailer,
		Tokens:     deps.JWTProvider,
		Hasher:     hasher,
		OtpTTL:     cfg.OtpTTL,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, cfg.OtpTTL)

	// 5 requests/second, burst of 10 — applied to the OTP and credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	r.Get("/health", healthH.Ping)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(sensitiveRL.Limit).Post("/send-otp", authH.SendOtp)
		r.With(sensitiveRL.Limit).Post("/verify-otp", authH.VerifyOtp)
		r.With(sensitiveRL.Limit).Post("/complete-registration", authH.CompleteRegistration)
		r.With(sensitiveRL.Limit).Post("/login", authH.Login)

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))
			r.Get("/profile", authH.Profile)
		})
	})

	return r
}
