package domain

import "time"

// UserAccount is a registered user. The email doubles as the storage key;
// UserID is a stable identifier that survives any future email change.
type UserAccount struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Fullname     string    `json:"fullname" dynamodbav:"fullname"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	IsVerified   bool      `json:"is_verified" dynamodbav:"is_verified"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

type SendOtpRequest struct {
	Fullname string `json:"fullname" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Purpose  string `json:"purpose" validate:"omitempty,oneof=registration login"`
}

type VerifyOtpRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Otp     string `json:"otp" validate:"required,len=6,numeric"`
	Purpose string `json:"purpose" validate:"omitempty,oneof=registration login"`
}

type CompleteRegistrationRequest struct {
	Fullname        string `json:"fullname" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
