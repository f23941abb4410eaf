package accounts

import "time"

// User represents an account holder
type User struct {
	UserID       string    `json:"user_id" dynamodbav:"user_id"` // Primary Key
	Username     string    `json:"username" dynamodbav:"username"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"` // bcrypt hash (never in JSON)
	Email        string    `json:"email" dynamodbav:"email"`
	FirstName    string    `json:"first_name,omitempty" dynamodbav:"first_name"`
	LastName     string    `json:"last_name,omitempty" dynamodbav:"last_name"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// RegisterInput carries a registration request. MinPasswordLength is set by
// the entry point: the page flow and the JSON API enforce different
// thresholds.
type RegisterInput struct {
	Username          string
	Email             string
	Password          string
	Confirm           string
	FirstName         string
	LastName          string
	MinPasswordLength int
}

// AuthResult is a successful authentication outcome
type AuthResult struct {
	User      *User
	Token     string
	ExpiresIn int // seconds
}
