package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smartprep/auth-api/internal/application/otp"
	"github.com/smartprep/auth-api/internal/domain"
	"github.com/smartprep/auth-api/internal/pkg/hashing"
	"github.com/smartprep/auth-api/internal/pkg/id"
)

// Service sequences the registration and login flows: OTP issuance with the
// uniqueness gate, OTP confirmation, account creation and token issuance.
type Service interface {
	RequestOtp(ctx context.Context, req domain.SendOtpRequest) (expiresAt time.Time, err error)
	ConfirmOtp(ctx context.Context, req domain.VerifyOtpRequest) (fullname string, err error)
	CompleteRegistration(ctx context.Context, req domain.CompleteRegistrationRequest) (*domain.UserAccount, string, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.UserAccount, string, error)
	Profile(ctx context.Context, email string) (*domain.UserAccount, error)
}

type userStore interface {
	CreateIfAbsent(ctx context.Context, u *domain.UserAccount) error
	GetByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	SetVerified(ctx context.Context, email string, verified bool) error
}

type otpManager interface {
	Issue(ctx context.Context, email, fullname, purpose string) (string, time.Time, error)
	Verify(ctx context.Context, email, code, purpose string) (otp.Verification, error)
	PurgeByEmail(ctx context.Context, email string) error
}

type mailer interface {
	SendOtp(to, fullname, code string, expiryMinutes int) error
}

type tokenIssuer interface {
	Sign(userID, email string) (string, error)
}

type service struct {
	users  userStore
	otp    otpManager
	mailer mailer
	tokens tokenIssuer
	hasher hashing.Hasher
	otpTTL time.Duration
}

type ServiceDeps struct {
	UserRepo   userStore
	OtpManager otpManager
	Mailer     mailer
	Tokens     tokenIssuer
	Hasher     hashing.Hasher
	OtpTTL     time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:  deps.UserRepo,
		otp:    deps.OtpManager,
		mailer: deps.Mailer,
		tokens: deps.Tokens,
		hasher: deps.Hasher,
		otpTTL: deps.OtpTTL,
	}
}

// RequestOtp issues a code for the given purpose and mails it out-of-band.
// Registration requires the email to be free; login requires an account.
// Mail failure fails the whole request — a code nobody received must not
// stay issuable.
func (s *service) RequestOtp(ctx context.Context, req domain.SendOtpRequest) (time.Time, error) {
	email := strings.ToLower(req.Email)
	purpose := req.Purpose
	if purpose == "" {
		purpose = domain.PurposeRegistration
	}

	fullname := req.Fullname
	existing, err := s.users.GetByEmail(ctx, email)
	switch purpose {
	case domain.PurposeRegistration:
		if err == nil {
			return time.Time{}, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return time.Time{}, err
		}
	case domain.PurposeLogin:
		if err != nil {
			return time.Time{}, err
		}
		fullname = existing.Fullname
	default:
		return time.Time{}, fmt.Errorf("unknown purpose %q: %w", purpose, domain.ErrValidation)
	}

	code, expiresAt, err := s.otp.Issue(ctx, email, fullname, purpose)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.mailer.SendOtp(email, fullname, code, int(s.otpTTL.Minutes())); err != nil {
		slog.Error("otp mail delivery failed", "email", email, "err", err)
		return time.Time{}, fmt.Errorf("could not deliver OTP: %w", domain.ErrDependency)
	}
	slog.Info("otp sent", "email", email, "purpose", purpose)
	return expiresAt, nil
}

// ConfirmOtp validates and consumes the code. A login-purpose confirmation
// proves control of the mailbox, so it also marks the account verified.
func (s *service) ConfirmOtp(ctx context.Context, req domain.VerifyOtpRequest) (string, error) {
	email := strings.ToLower(req.Email)
	purpose := req.Purpose
	if purpose == "" {
		purpose = domain.PurposeRegistration
	}

	v, err := s.otp.Verify(ctx, email, req.Otp, purpose)
	if err != nil {
		return "", err
	}
	if !v.Valid {
		return "", fmt.Errorf("verification failed: %w", domain.ErrInvalidOrExpired)
	}

	if purpose == domain.PurposeLogin {
		if err := s.users.SetVerified(ctx, email, true); err != nil {
			slog.Warn("could not mark account verified", "email", email, "err", err)
		}
	}
	return v.Fullname, nil
}

// CompleteRegistration creates the account and hands back a session token.
// Uniqueness is settled by the store's conditional create: a lost race comes
// back as Conflict no matter what any earlier check saw.
func (s *service) CompleteRegistration(ctx context.Context, req domain.CompleteRegistrationRequest) (*domain.UserAccount, string, error) {
	if req.Password != req.ConfirmPassword {
		return nil, "", fmt.Errorf("passwords do not match: %w", domain.ErrValidation)
	}
	email := strings.ToLower(req.Email)

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	u := &domain.UserAccount{
		UserID:       id.New(),
		Fullname:     req.Fullname,
		Email:        email,
		PasswordHash: hash,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateIfAbsent(ctx, u); err != nil {
		return nil, "", err
	}

	// Registration is done; leftover codes for this email are dead weight.
	if err := s.otp.PurgeByEmail(ctx, email); err != nil {
		slog.Warn("could not purge otp codes", "email", email, "err", err)
	}

	token, err := s.tokens.Sign(u.UserID, u.Email)
	if err != nil {
		return nil, "", err
	}
	slog.Info("registration completed", "email", email)
	return u, token, nil
}

// Login checks the password and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.UserAccount, string, error) {
	email := strings.ToLower(req.Email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(u.UserID, u.Email)
	if err != nil {
		return nil, "", err
	}
	slog.Info("login successful", "email", email)
	return u, token, nil
}

func (s *service) Profile(ctx context.Context, email string) (*domain.UserAccount, error) {
	return s.users.GetByEmail(ctx, strings.ToLower(email))
}
