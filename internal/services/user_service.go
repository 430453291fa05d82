// Package services contains business logic for the learning platform.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	contextutils "eduplatform/internal/utils"
)

// UserServiceInterface defines the interface for user operations
type UserServiceInterface interface {
	CreateUser(ctx context.Context, username, email string) (*models.User, error)
	CreateUserWithPassword(ctx context.Context, username, email, password string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	UpdateUserProfile(ctx context.Context, userID int, email, firstName, lastName string) error
	UpdateUserPassword(ctx context.Context, userID int, newPassword string) error
	DeleteUser(ctx context.Context, userID int) error
	EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) error
	GetDB() *sql.DB
}

// UserService provides user management operations backed by PostgreSQL
type UserService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

// NewUserServiceWithLogger creates a new user service with the provided logger
func NewUserServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// userSelectFields is the canonical column list for scanning users
const userSelectFields = `id, username, email, first_name, last_name, password_hash, created_at, updated_at`

func (s *UserService) scanUserFromRow(row *sql.Row) (result0 *models.User, err error) {
	var user models.User
	err = row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FirstName,
		&user.LastName, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) scanUserFromRows(rows *sql.Rows) (result0 *models.User, err error) {
	var user models.User
	err = rows.Scan(
		&user.ID, &user.Username, &user.Email, &user.FirstName,
		&user.LastName, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// getUserByQuery is a helper method to get a user by a specific query.
// Returns (nil, nil) when no user matches.
func (s *UserService) getUserByQuery(ctx context.Context, query string, args ...interface{}) (result0 *models.User, err error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	user, err := s.scanUserFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, contextutils.WrapError(err, "failed to get user")
	}
	return user, nil
}

// CreateUser creates a new user without a password (external auth or import flows)
func (s *UserService) CreateUser(ctx context.Context, username, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	if username == "" {
		return nil, contextutils.ErrorWithContextf("username cannot be empty")
	}

	query := `
		INSERT INTO users (username, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	now := time.Now()
	var id int
	err = s.db.QueryRowContext(ctx, query, username, nullIfEmpty(email), now, now).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "user with username '%s' already exists", username)
		}
		return nil, contextutils.WrapError(err, "failed to create user")
	}

	return s.GetUserByID(ctx, id)
}

// CreateUserWithPassword creates a new user with a bcrypt-hashed password
func (s *UserService) CreateUserWithPassword(ctx context.Context, username, email, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user_with_password", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	if username == "" {
		return nil, contextutils.ErrorWithContextf("username cannot be empty")
	}
	if password == "" {
		return nil, contextutils.ErrorWithContextf("password cannot be empty")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	query := `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	now := time.Now()
	var id int
	err = s.db.QueryRowContext(ctx, query, username, nullIfEmpty(email), string(hashedPassword), now, now).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "user with username '%s' already exists", username)
		}
		return nil, contextutils.WrapError(err, "failed to create user with password")
	}

	s.logger.Info(ctx, "User created", map[string]interface{}{"user_id": id, "username": username})
	return s.GetUserByID(ctx, id)
}

// AuthenticateUser verifies a username/password pair.
// Returns (nil, nil) when the credentials do not match.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "authenticate_user", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to look up user for authentication")
	}
	if user == nil || !user.PasswordHash.Valid {
		return nil, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password))
	if err != nil {
		return nil, nil
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id", attribute.Int("user.id", id))
	defer observability.FinishSpan(span, &err)
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userSelectFields)
	return s.getUserByQuery(ctx, query, id)
}

// GetUserByUsername retrieves a user by their username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_username", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userSelectFields)
	return s.getUserByQuery(ctx, query, username)
}

// GetUserByEmail retrieves a user by their email address
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_email")
	defer observability.FinishSpan(span, &err)
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userSelectFields)
	return s.getUserByQuery(ctx, query, email)
}

// GetAllUsers returns all users ordered by username
func (s *UserService) GetAllUsers(ctx context.Context) (result0 []models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_all_users")
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM users ORDER BY username", userSelectFields)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query users")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var users []models.User
	for rows.Next() {
		user, err := s.scanUserFromRows(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan user row")
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating user rows")
	}
	return users, nil
}

// UpdateUserProfile updates a user's email and name fields
func (s *UserService) UpdateUserProfile(ctx context.Context, userID int, email, firstName, lastName string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_user_profile", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	if email != "" && !contextutils.IsValidEmail(email) {
		return contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid email address '%s'", email)
	}

	query := `UPDATE users SET email = $1, first_name = $2, last_name = $3, updated_at = $4 WHERE id = $5`
	var result sql.Result
	result, err = s.db.ExecContext(ctx, query, nullIfEmpty(email), nullIfEmpty(firstName), nullIfEmpty(lastName), time.Now(), userID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return contextutils.WrapErrorf(contextutils.ErrRecordExists, "email '%s' is already in use", email)
		}
		return contextutils.WrapError(err, "failed to update user profile")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user with ID %d not found", userID)
	}
	return nil
}

// UpdateUserPassword updates a user's password
func (s *UserService) UpdateUserPassword(ctx context.Context, userID int, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_user_password", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	if newPassword == "" {
		return contextutils.ErrorWithContextf("password cannot be empty")
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to check if user exists")
	}
	if user == nil {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}

	var hashedPassword []byte
	hashedPassword, err = bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash password")
	}

	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, string(hashedPassword), time.Now(), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update user password")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}

	s.logger.Info(ctx, "Password updated successfully", map[string]interface{}{"user_id": userID, "username": user.Username})
	return nil
}

// DeleteUser removes a user; responses and attempts cascade via foreign keys
func (s *UserService) DeleteUser(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "delete_user", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to check if user exists")
	}
	if user == nil {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete user")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}

	s.logger.Info(ctx, "User deleted", map[string]interface{}{"user_id": userID, "username": user.Username})
	return nil
}

// EnsureAdminUserExists creates the admin user if it doesn't exist,
// or resets its password when the configured one no longer matches.
func (s *UserService) EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ensure_admin_user_exists", attribute.String("admin.username", adminUsername))
	defer observability.FinishSpan(span, &err)

	if adminUsername == "" {
		return contextutils.ErrorWithContextf("admin username cannot be empty")
	}
	if adminPassword == "" {
		return contextutils.ErrorWithContextf("admin password cannot be empty")
	}

	var existingUser *models.User
	existingUser, err = s.GetUserByUsername(ctx, adminUsername)
	if err != nil {
		return contextutils.WrapError(err, "failed to check if admin user exists")
	}

	if existingUser != nil {
		if existingUser.PasswordHash.Valid {
			err = bcrypt.CompareHashAndPassword([]byte(existingUser.PasswordHash.String), []byte(adminPassword))
			if err == nil {
				s.logger.Info(ctx, "Admin user already exists with correct password", map[string]interface{}{"username": adminUsername})
				return nil
			}
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return contextutils.WrapError(err, "failed to hash admin password")
		}

		query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE username = $3`
		_, err = s.db.ExecContext(ctx, query, string(hashedPassword), time.Now(), adminUsername)
		if err != nil {
			return contextutils.WrapError(err, "failed to update admin user password")
		}

		s.logger.Info(ctx, "Updated password for admin user", map[string]interface{}{"username": adminUsername})
		return nil
	}

	_, err = s.CreateUserWithPassword(ctx, adminUsername, "", adminPassword)
	if err != nil {
		return contextutils.WrapError(err, "failed to create admin user")
	}

	s.logger.Info(ctx, "Created admin user", map[string]interface{}{"username": adminUsername})
	return nil
}

// ResetDatabase completely resets the database to an empty state.
// Intended for the reset-db utility only.
func (s *UserService) ResetDatabase(ctx context.Context) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "reset_database")
	defer observability.FinishSpan(span, &err)
	var tx *sql.Tx
	tx, err = s.db.Begin()
	if err != nil {
		return contextutils.WrapError(err, "failed to begin transaction for database reset")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			s.logger.Warn(ctx, "Warning: failed to rollback transaction", map[string]interface{}{"error": rollbackErr.Error()})
		}
	}()

	// Delete all data in the correct order (to respect foreign key constraints).
	// Join tables carry no sequence of their own.
	tables := []struct {
		name        string
		hasSequence bool
	}{
		{"user_response_answers", false},
		{"user_responses", true},
		{"task_attempts", true},
		{"completed_lessons", false},
		{"sent_notifications", true},
		{"answers", true},
		{"questions", true},
		{"tasks", true},
		{"lessons", true},
		{"themes", true},
		{"users", true},
	}

	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s", table.name)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return contextutils.WrapErrorf(err, "failed to delete from table %s during reset", table.name)
		}
		s.logger.Info(ctx, "Cleared table", map[string]interface{}{"table": table.name})

		if !table.hasSequence {
			continue
		}
		sequenceQuery := fmt.Sprintf("ALTER SEQUENCE %s_id_seq RESTART WITH 1", table.name)
		if _, err := tx.ExecContext(ctx, sequenceQuery); err != nil {
			return contextutils.WrapErrorf(err, "failed to reset sequence for table %s", table.name)
		}
	}

	err = tx.Commit()
	if err != nil {
		return contextutils.WrapError(err, "failed to commit database reset transaction")
	}

	s.logger.Info(ctx, "Database reset completed successfully")
	return nil
}

// GetDB returns the underlying database connection (used by the service container)
func (s *UserService) GetDB() *sql.DB {
	return s.db
}

// nullIfEmpty maps "" to NULL so optional columns stay unset
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// isDuplicateKeyError checks whether an error is a PostgreSQL unique violation
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	// PostgreSQL error code 23505 is for unique constraint violations
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" {
			return true
		}
	}

	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}
