package http

import (
	"github.com/smartprep/auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/smartprep/auth-api/internal/infrastructure/jwt"
	"github.com/smartprep/auth-api/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	OtpRepo     *dynamo.OtpRepo
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
}
