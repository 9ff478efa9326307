package data

import (
	"errors"
	"time"

	"github.com/emzola/circulation/internal/validator"
	"golang.org/x/crypto/bcrypt"
)

var AnonymousUser = &User{}

// User defines a user model. Staff users may curate the catalog and
// record loans.
type User struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Password  password  `json:"-"`
	Staff     bool      `json:"is_staff"`
	Version   int32     `json:"-"`
}

// IsAnonymous checks if a user instance is the anonymous user.
func (u *User) IsAnonymous() bool {
	return u == AnonymousUser
}

func (u *User) IsStaff() bool {
	return !u.IsAnonymous() && u.Staff
}

// Identity returns the user ID, or 0 for the anonymous user.
func (u *User) Identity() int64 {
	if u.IsAnonymous() {
		return 0
	}
	return u.ID
}

// password holds the plaintext and hashed versions of a user's password.
// Plaintext is a pointer so that "not supplied" and "empty" differ.
type password struct {
	Plaintext *string
	Hash      []byte
}

// Set calculates the bcrypt hash of a plaintext password.
func (p *password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), 12)
	if err != nil {
		return err
	}
	p.Plaintext = &plaintextPassword
	p.Hash = hash
	return nil
}

// Matches checks whether plaintextPassword matches the stored hash.
func (p *password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(p.Hash, []byte(plaintextPassword))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}
	return true, nil
}

func ValidateUsername(v *validator.Validator, username string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(len(username) <= 150, "username", "must not be more than 150 bytes long")
	v.Check(validator.Matches(username, validator.UsernameRX), "username", "may contain only letters, digits and @/./+/-/_ characters")
}

func ValidateEmail(v *validator.Validator, email string) {
	v.Check(len(email) <= 254, "email", "must not be more than 254 bytes long")
	v.Check(validator.Matches(email, validator.EmailRX), "email", "must be a valid email address")
}

func ValidatePasswordPlaintext(v *validator.Validator, password string) {
	v.Check(password != "", "password", "must be provided")
	v.Check(len(password) >= 8, "password", "must be at least 8 bytes long")
	v.Check(len(password) <= 72, "password", "must not be more than 72 bytes long")
}

func ValidateUser(v *validator.Validator, user *User) {
	ValidateUsername(v, user.Username)
	if user.Email != "" {
		ValidateEmail(v, user.Email)
	}
	v.Check(len(user.FirstName) <= 150, "first_name", "must not be more than 150 bytes long")
	v.Check(len(user.LastName) <= 150, "last_name", "must not be more than 150 bytes long")
	if user.Password.Plaintext != nil {
		ValidatePasswordPlaintext(v, *user.Password.Plaintext)
	}
	if user.Password.Hash == nil {
		panic("missing password hash for user")
	}
}
