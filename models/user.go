package models

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/drivespace/drivespace/utils"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// roleHierarchy defines the order of roles from lowest to highest.
var roleHierarchy = []string{RoleUser, RoleAdmin}

var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrUserInactive   = errors.New("user is inactive")
)

// User represents the users table. Field rules are enforced by forms that
// expose these fields.
type User struct {
	ID        int64      `json:"id" form:"-"`
	Username  string     `json:"username" form:"username" validate:"required,max=150,username"`
	Email     string     `json:"email,omitempty" form:"email" validate:"omitempty,max=254,email"`
	Password  string     `json:"-" form:"password" validate:"required,max=128"`
	Role      string     `json:"role" form:"-" validate:"oneof=user admin"`
	Active    bool       `json:"active" form:"-"`
	CreatedAt time.Time  `json:"created_at" form:"-"`
	LastLogin *time.Time `json:"last_login,omitempty" form:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

const userColumns = `id, username, email, password, role, active, created_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var user User
	var createdAt int64
	var lastLogin sql.NullInt64
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Role, &user.Active, &createdAt, &lastLogin); err != nil {
		return nil, err
	}
	user.CreatedAt = time.Unix(createdAt, 0)
	user.LastLogin = timeFromNullable(lastLogin)
	return &user, nil
}

// CreateUser hashes the password and inserts a new user. The first user ever
// registered is promoted to admin.
func CreateUser(username, password, email string) (*User, error) {
	start := time.Now()
	defer utils.LogDuration("CreateUser", start, username)

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	exists, err := UsernameExists(username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username uniqueness: %w", err)
	}
	if exists {
		return nil, ErrUsernameExists
	}
	if email != "" {
		exists, err := EmailExists(email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if exists {
			return nil, ErrEmailExists
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		Username:  username,
		Email:     email,
		Password:  string(hashedPassword),
		Role:      RoleUser,
		Active:    true,
		CreatedAt: time.Unix(time.Now().Unix(), 0),
	}

	count, err := CountUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if count == 0 {
		log.Infof("No users have yet been registered, promoting '%s' to 'admin' role", user.Username)
		user.Role = RoleAdmin
	}

	result, err := db.Exec(`
	INSERT INTO users (username, email, password, role, active, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`, user.Username, user.Email, user.Password, user.Role, user.Active, user.CreatedAt.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindUserByUsername retrieves a user by their username. It returns nil, nil
// when no user matches.
func FindUserByUsername(username string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUsers retrieves all users ordered by registration date.
func GetUsers() ([]User, error) {
	rows, err := db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UsernameExists reports whether a username is taken, ignoring case.
func UsernameExists(username string) (bool, error) {
	return ExistsChecker(`SELECT 1 FROM users WHERE username = ? COLLATE NOCASE`, username)
}

// EmailExists reports whether an email address is already registered, ignoring case.
func EmailExists(email string) (bool, error) {
	return ExistsChecker(`SELECT 1 FROM users WHERE email = ? COLLATE NOCASE AND email != ''`, email)
}

// CountUsers returns the total number of users.
func CountUsers() (int64, error) {
	return CountRecords(`SELECT COUNT(*) FROM users`)
}

// Authenticate checks a username/password pair against the stored hash.
func Authenticate(username, password string) (*User, error) {
	user, err := FindUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Spend comparable time on unknown usernames.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z4Z5xXQk6k3Q6sJ1xWq6p2yC"), []byte(password))
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrUserNotFound
	}
	if !user.Active {
		return nil, ErrUserInactive
	}
	return user, nil
}

// RecordLogin stores the time of a successful sign-in.
func RecordLogin(username string) error {
	now := time.Now()
	_, err := db.Exec(`UPDATE users SET last_login = ? WHERE username = ?`, nullableUnix(&now), username)
	return err
}

// ResetUserPassword resets a user's password to a new hashed password.
func ResetUserPassword(username, newPassword string) error {
	if err := ValidatePassword(newPassword, username); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := db.Exec(`UPDATE users SET password = ? WHERE username = ?`, string(hashedPassword), username)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user '%s' not found", username)
	}

	// Existing sessions were issued for the old password.
	return DeleteAllUserSessions(username)
}

// UpdateUserRole updates the role of a user.
func UpdateUserRole(username, newRole string) error {
	if !slices.Contains(roleHierarchy, newRole) {
		return errors.New("invalid role")
	}

	result, err := db.Exec(`UPDATE users SET role = ? WHERE username = ?`, newRole, username)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user '%s' not found", username)
	}

	log.Infof("User '%s' now has role '%s'", username, newRole)
	return nil
}

// SetUserActive enables or disables sign-in for a user. Disabling a user
// also ends their sessions.
func SetUserActive(username string, active bool) error {
	result, err := db.Exec(`UPDATE users SET active = ? WHERE username = ?`, active, username)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user '%s' not found", username)
	}
	if !active {
		return DeleteAllUserSessions(username)
	}
	return nil
}

// commonPasswords is a short list of passwords rejected outright.
var commonPasswords = []string{
	"password", "password1", "password123", "12345678", "123456789", "1234567890",
	"qwerty123", "qwertyuiop", "iloveyou", "letmein1", "welcome1", "admin123",
	"abc12345", "football", "baseball", "sunshine", "princess", "trustno1",
}

// Password validation errors.
var (
	ErrPasswordTooShort   = errors.New("This password is too short. It must contain at least 8 characters.")
	ErrPasswordNumeric    = errors.New("This password is entirely numeric.")
	ErrPasswordCommon     = errors.New("This password is too common.")
	ErrPasswordSimilar    = errors.New("The password is too similar to the username.")
	ErrPasswordWhitespace = errors.New("The password cannot consist only of whitespace.")
	ErrPasswordTooLong    = fmt.Errorf("This password is too long. It must be at most %d bytes.", maxPasswordBytes)
)

// bcrypt rejects longer input.
const maxPasswordBytes = 72

// ValidatePassword applies the password policy: at least 8 characters, at
// most 72 bytes, not entirely numeric, not a common password, and not the username.
func ValidatePassword(password, username string) error {
	return errors.Join(passwordProblems(password, username)...)
}

// PasswordProblems returns every policy violation for password.
func PasswordProblems(password, username string) []error {
	return passwordProblems(password, username)
}

func passwordProblems(password, username string) []error {
	var problems []error

	if strings.TrimSpace(password) == "" {
		return []error{ErrPasswordWhitespace}
	}
	if len([]rune(password)) < 8 {
		problems = append(problems, ErrPasswordTooShort)
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, ErrPasswordTooLong)
	}

	numeric := true
	for _, ch := range password {
		if !unicode.IsDigit(ch) {
			numeric = false
			break
		}
	}
	if numeric {
		problems = append(problems, ErrPasswordNumeric)
	}

	if slices.Contains(commonPasswords, strings.ToLower(password)) {
		problems = append(problems, ErrPasswordCommon)
	}

	if username != "" && strings.EqualFold(password, username) {
		problems = append(problems, ErrPasswordSimilar)
	}

	return problems
}
