package domain

// OTP purposes. A code issued for one flow never validates another.
const (
	PurposeRegistration = "registration"
	PurposeLogin        = "login"
)

// OtpCode is a single issued one-time passcode.
// PK: email, SK: otp_id (ULID — lexicographic order is creation order, so a
// descending query returns the newest record first).
// Only the bcrypt hash of the code is stored; the plaintext travels from the
// generator to the mailer and is never persisted.
// ExpiresAt is a Unix timestamp doubling as the DynamoDB TTL attribute, a
// backstop to the periodic sweeper.
type OtpCode struct {
	Email     string `json:"email" dynamodbav:"email"`
	OtpID     string `json:"otp_id" dynamodbav:"otp_id"`
	Fullname  string `json:"fullname" dynamodbav:"fullname"`
	Purpose   string `json:"purpose" dynamodbav:"purpose"`
	CodeHash  string `json:"-" dynamodbav:"code_hash"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
	IsUsed    bool   `json:"is_used" dynamodbav:"is_used"`
	Attempts  int    `json:"attempts" dynamodbav:"attempts"`
	CreatedAt int64  `json:"created_at" dynamodbav:"created_at"`
}
