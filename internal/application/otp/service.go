package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/smartprep/auth-api/internal/domain"
	"github.com/smartprep/auth-api/internal/pkg/hashing"
	"github.com/smartprep/auth-api/internal/pkg/id"
)

// Verification is the outcome of a verify call. Invalid is not an error:
// wrong, consumed and expired codes all land here with Valid=false.
type Verification struct {
	Valid    bool
	Fullname string
}

type Service interface {
	// Issue generates a fresh code for (email, purpose), persists its hash and
	// returns the plaintext to the caller for out-of-band delivery. The
	// plaintext never re-enters storage.
	Issue(ctx context.Context, email, fullname, purpose string) (code string, expiresAt time.Time, err error)
	// Verify consumes the newest pending code for (email, purpose) when the
	// supplied code matches. A mismatch counts an attempt and leaves the
	// record unconsumed so the user can retry until expiry.
	Verify(ctx context.Context, email, code, purpose string) (Verification, error)
	// PurgeByEmail deletes every OTP record for an email once its flow completes.
	PurgeByEmail(ctx context.Context, email string) error
	// SweepExpired deletes all records past their expiry and reports the count.
	SweepExpired(ctx context.Context) (int, error)
}

type otpStore interface {
	Put(ctx context.Context, c *domain.OtpCode) error
	LatestPending(ctx context.Context, email, purpose string, now int64) (*domain.OtpCode, error)
	MarkUsed(ctx context.Context, email, otpID string) error
	IncrementAttempts(ctx context.Context, email, otpID string) error
	DeleteByEmail(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now int64) (int, error)
}

type service struct {
	store        otpStore
	hasher       hashing.Hasher
	ttl          time.Duration
	maxAttempts  int
	now          func() time.Time
	generateCode func() (string, error)
}

type ServiceDeps struct {
	Store       otpStore
	Hasher      hashing.Hasher
	TTL         time.Duration
	MaxAttempts int
	// Now and GenerateCode are overridable for deterministic tests.
	// Nil means wall clock and crypto/rand.
	Now          func() time.Time
	GenerateCode func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:        deps.Store,
		hasher:       deps.Hasher,
		ttl:          deps.TTL,
		maxAttempts:  deps.MaxAttempts,
		now:          deps.Now,
		generateCode: deps.GenerateCode,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generateCode == nil {
		s.generateCode = GenerateCode
	}
	return s
}

// GenerateCode draws a 6-digit code uniformly from [100000, 999999] using
// crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func (s *service) Issue(ctx context.Context, email, fullname, purpose string) (string, time.Time, error) {
	email = strings.ToLower(email)
	code, err := s.generateCode()
	if err != nil {
		return "", time.Time{}, err
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("hash otp: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	rec := &domain.OtpCode{
		Email:     email,
		OtpID:     id.New(),
		Fullname:  fullname,
		Purpose:   purpose,
		CodeHash:  hash,
		ExpiresAt: expiresAt.Unix(),
		IsUsed:    false,
		Attempts:  0,
		CreatedAt: now.Unix(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return "", time.Time{}, err
	}
	slog.Info("otp issued", "email", email, "purpose", purpose)
	return code, expiresAt, nil
}

func (s *service) Verify(ctx context.Context, email, code, purpose string) (Verification, error) {
	email = strings.ToLower(email)
	rec, err := s.store.LatestPending(ctx, email, purpose, s.now().Unix())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("otp verify: no pending code", "email", email, "purpose", purpose)
			return Verification{}, nil
		}
		return Verification{}, err
	}

	if s.maxAttempts > 0 && rec.Attempts >= s.maxAttempts {
		slog.Warn("otp verify: attempt limit reached", "email", email, "purpose", purpose)
		return Verification{}, nil
	}

	if !s.hasher.Verify(code, rec.CodeHash) {
		// The record stays unconsumed; only the counter moves.
		if err := s.store.IncrementAttempts(ctx, email, rec.OtpID); err != nil {
			slog.Warn("otp verify: could not count attempt", "email", email, "err", err)
		}
		return Verification{}, nil
	}

	// Atomic flip: when concurrent verifies race on the same code, the store
	// lets exactly one through.
	if err := s.store.MarkUsed(ctx, email, rec.OtpID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Verification{}, nil
		}
		return Verification{}, err
	}
	slog.Info("otp verified", "email", email, "purpose", purpose)
	return Verification{Valid: true, Fullname: rec.Fullname}, nil
}

func (s *service) PurgeByEmail(ctx context.Context, email string) error {
	return s.store.DeleteByEmail(ctx, strings.ToLower(email))
}

func (s *service) SweepExpired(ctx context.Context) (int, error) {
	return s.store.DeleteExpired(ctx, s.now().Unix())
}
