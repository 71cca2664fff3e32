package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartprep/auth-api/internal/application/otp"
	"github.com/smartprep/auth-api/internal/domain"
	"github.com/smartprep/auth-api/internal/pkg/hashing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) CreateIfAbsent(ctx context.Context, u *domain.UserAccount) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.UserAccount); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) SetVerified(ctx context.Context, email string, verified bool) error {
	return m.Called(ctx, email, verified).Error(0)
}

type mockOtpManager struct{ mock.Mock }

func (m *mockOtpManager) Issue(ctx context.Context, email, fullname, purpose string) (string, time.Time, error) {
	args := m.Called(ctx, email, fullname, purpose)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
func (m *mockOtpManager) Verify(ctx context.Context, email, code, purpose string) (otp.Verification, error) {
	args := m.Called(ctx, email, code, purpose)
	return args.Get(0).(otp.Verification), args.Error(1)
}
func (m *mockOtpManager) PurgeByEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendOtp(to, fullname, code string, expiryMinutes int) error {
	return m.Called(to, fullname, code, expiryMinutes).Error(0)
}

type mockTokenIssuer struct{ mock.Mock }

func (m *mockTokenIssuer) Sign(userID, email string) (string, error) {
	args := m.Called(userID, email)
	return args.String(0), args.Error(1)
}

// --- builder ---

func newService(us *mockUserStore, om *mockOtpManager, ml *mockMailer, tk *mockTokenIssuer) Service {
	return NewService(ServiceDeps{
		UserRepo:   us,
		OtpManager: om,
		Mailer:     ml,
		Tokens:     tk,
		Hasher:     hashing.NewBcrypt(bcrypt.MinCost),
		OtpTTL:     10 * time.Minute,
	})
}

var expiry = time.Date(2024, 5, 1, 12, 10, 0, 0, time.UTC)

// --- RequestOtp ---

func TestRequestOtp_Registration_EmailTaken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.UserAccount{Email: "a@b.com"}, nil)

	svc := newService(us, nil, nil, nil)
	_, err := svc.RequestOtp(context.Background(), domain.SendOtpRequest{
		Fullname: "Alice", Email: "a@b.com", Purpose: domain.PurposeRegistration,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRequestOtp_Registration_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOtpManager{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	om.On("Issue", mock.Anything, "a@b.com", "Alice", domain.PurposeRegistration).Return("123456", expiry, nil)
	ml.On("SendOtp", "a@b.com", "Alice", "123456", 10).Return(nil)

	svc := newService(us, om, ml, nil)
	expiresAt, err := svc.RequestOtp(context.Background(), domain.SendOtpRequest{
		Fullname: "Alice", Email: "A@B.com",
	})

	require.NoError(t, err)
	assert.Equal(t, expiry, expiresAt)
	us.AssertExpectations(t)
	om.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestRequestOtp_MailFailure_FailsClosed(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOtpManager{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	om.On("Issue", mock.Anything, "a@b.com", "Alice", domain.PurposeRegistration).Return("123456", expiry, nil)
	ml.On("SendOtp", "a@b.com", "Alice", "123456", 10).Return(errors.New("smtp down"))

	svc := newService(us, om, ml, nil)
	_, err := svc.RequestOtp(context.Background(), domain.SendOtpRequest{
		Fullname: "Alice", Email: "a@b.com",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDependency))
}

func TestRequestOtp_Login_UnknownAccount(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil)
	_, err := svc.RequestOtp(context.Background(), domain.SendOtpRequest{
		Fullname: "Alice", Email: "a@b.com", Purpose: domain.PurposeLogin,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRequestOtp_Login_UsesAccountFullname(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOtpManager{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.UserAccount{Email: "a@b.com", Fullname: "Alice Stored"}, nil)
	om.On("Issue", mock.Anything, "a@b.com", "Alice Stored", domain.PurposeLogin).Return("123456", expiry, nil)
	ml.On("SendOtp", "a@b.com", "Alice Stored", "123456", 10).Return(nil)

	svc := newService(us, om, ml, nil)
	_, err := svc.RequestOtp(context.Background(), domain.SendOtpRequest{
		Fullname: "Whoever", Email: "a@b.com", Purpose: domain.PurposeLogin,
	})

	require.NoError(t, err)
	om.AssertExpectations(t)
}

// --- ConfirmOtp ---

func TestConfirmOtp_Invalid(t *testing.T) {
	om := &mockOtpManager{}
	om.On("Verify", mock.Anything, "a@b.com", "123456", domain.PurposeRegistration).
		Return(otp.Verification{}, nil)

	svc := newService(nil, om, nil, nil)
	_, err := svc.ConfirmOtp(context.Background(), domain.VerifyOtpRequest{
		Email: "a@b.com", Otp: "123456",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidOrExpired))
}

func TestConfirmOtp_Valid(t *testing.T) {
	om := &mockOtpManager{}
	om.On("Verify", mock.Anything, "a@b.com", "123456", domain.PurposeRegistration).
		Return(otp.Verification{Valid: true, Fullname: "Alice"}, nil)

	svc := newService(nil, om, nil, nil)
	fullname, err := svc.ConfirmOtp(context.Background(), domain.VerifyOtpRequest{
		Email: "A@b.com", Otp: "123456",
	})

	require.NoError(t, err)
	assert.Equal(t, "Alice", fullname)
}

func TestConfirmOtp_LoginPurpose_MarksVerified(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOtpManager{}
	om.On("Verify", mock.Anything, "a@b.com", "123456", domain.PurposeLogin).
		Return(otp.Verification{Valid: true, Fullname: "Alice"}, nil)
	us.On("SetVerified", mock.Anything, "a@b.com", true).Return(nil)

	svc := newService(us, om, nil, nil)
	_, err := svc.ConfirmOtp(context.Background(), domain.VerifyOtpRequest{
		Email: "a@b.com", Otp: "123456", Purpose: domain.PurposeLogin,
	})

	require.NoError(t, err)
	us.AssertExpectations(t)
}

// --- CompleteRegistration ---

func TestCompleteRegistration_PasswordMismatch_NoWrites(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOtpManager{}

	svc := newService(us, om, nil, nil)
	_, _, err := svc.CompleteRegistration(context.Background(), domain.CompleteRegistrationRequest{
		Fullname: "Alice", Email: "a@b.com", Password: "secret123", ConfirmPassword: "secret124",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	us.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
	om.AssertNotCalled(t, "PurgeByEmail", mock.Anything, mock.Anything)
}

func TestCompleteRegistration_DuplicateEmail_Conflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("CreateIfAbsent", mock.Anything, mock.AnythingOfType("*domain.UserAccount")).
		Return(domain.ErrConflict)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.CompleteRegistration(context.Background(), domain.CompleteRegistrationRequest{
		Fullname: "Alice", Email: "a@b.com", Password: "secret123", ConfirmPassword: "secret123",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestCompleteRegistration_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOtpManager{}
	tk := &mockTokenIssuer{}

	var created *domain.UserAccount
	us.On("CreateIfAbsent", mock.Anything, mock.AnythingOfType("*domain.UserAccount")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.UserAccount) }).
		Return(nil)
	om.On("PurgeByEmail", mock.Anything, "alice@example.com").Return(nil)
	tk.On("Sign", mock.Anything, "alice@example.com").Return("session-token", nil)

	svc := newService(us, om, nil, tk)
	user, token, err := svc.CompleteRegistration(context.Background(), domain.CompleteRegistrationRequest{
		Fullname: "Alice", Email: "Alice@Example.com", Password: "secret123", ConfirmPassword: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, "session-token", token)
	require.NotNil(t, created)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.False(t, created.IsVerified)
	assert.NotEmpty(t, created.UserID)
	assert.NotEqual(t, "secret123", created.PasswordHash)
	assert.True(t, hashing.NewBcrypt(bcrypt.MinCost).Verify("secret123", created.PasswordHash))
	assert.Same(t, created, user)
	om.AssertExpectations(t)
}

// --- Login ---

func TestLogin_UnknownEmailAndWrongPassword_Indistinguishable(t *testing.T) {
	hasher := hashing.NewBcrypt(bcrypt.MinCost)
	hash, err := hasher.Hash("right-password")
	require.NoError(t, err)

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "missing@b.com").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "known@b.com").Return(&domain.UserAccount{
		UserID: "u1", Email: "known@b.com", PasswordHash: hash,
	}, nil)

	svc := newService(us, nil, nil, nil)

	_, _, errUnknown := svc.Login(context.Background(), domain.LoginRequest{Email: "missing@b.com", Password: "x"})
	_, _, errWrongPw := svc.Login(context.Background(), domain.LoginRequest{Email: "known@b.com", Password: "wrong"})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.True(t, errors.Is(errUnknown, domain.ErrInvalidCredentials))
	assert.True(t, errors.Is(errWrongPw, domain.ErrInvalidCredentials))
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
}

func TestLogin_HappyPath(t *testing.T) {
	hasher := hashing.NewBcrypt(bcrypt.MinCost)
	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)

	us := &mockUserStore{}
	tk := &mockTokenIssuer{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.UserAccount{
		UserID: "u1", Email: "a@b.com", PasswordHash: hash,
	}, nil)
	tk.On("Sign", "u1", "a@b.com").Return("session-token", nil)

	svc := newService(us, nil, nil, tk)
	user, token, err := svc.Login(context.Background(), domain.LoginRequest{Email: "A@B.com", Password: "secret123"})

	require.NoError(t, err)
	assert.Equal(t, "session-token", token)
	assert.Equal(t, "u1", user.UserID)
}

// --- Profile ---

func TestProfile_NotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil)
	_, err := svc.Profile(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
