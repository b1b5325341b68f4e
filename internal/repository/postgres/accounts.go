package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akorenev/credential-service/internal/core/domain"
	"github.com/akorenev/credential-service/internal/core/port"
	"github.com/akorenev/credential-service/internal/repository"
)

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    pgPool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(pool pgPool) *AccountRepository {
	return &AccountRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByUsername retrieves the joined user and credential row by username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(
			"users.user_id",
			"users.profile",
			"users.first_name",
			"users.last_name",
			"users.gender",
			"users.age",
			"authentication.username",
			"authentication.email",
			"authentication.mobile",
			"authentication.password",
			"authentication.token",
			"authentication.first_login",
			"authentication.is_logged_in",
		).
		From("authentication").
		Join("users ON users.user_id = authentication.usr_user_id").
		Where(squirrel.Eq{"authentication.username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		token   sql.NullString
		account domain.Account
	)

	if err := row.Scan(
		&account.User.ID,
		&account.User.Profile,
		&account.User.FirstName,
		&account.User.LastName,
		&account.User.Gender,
		&account.User.Age,
		&account.Credential.Username,
		&account.Credential.Email,
		&account.Credential.Mobile,
		&account.Credential.PasswordHash,
		&token,
		&account.Credential.FirstLogin,
		&account.Credential.LoggedIn,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.Credential.UserID = account.User.ID
	if token.Valid {
		val := token.String
		account.Credential.Token = &val
	}

	return &account, nil
}

// IdentityExists reports whether the username or email is already registered.
func (r *AccountRepository) IdentityExists(ctx context.Context, username, email string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		From("authentication").
		Where(squirrel.Or{
			squirrel.Eq{"username": username},
			squirrel.Eq{"email": email},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select identity sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("scan identity: %w", err)
	}

	return true, nil
}

// Create inserts the user row and its credential row inside one transaction.
// Both inserts commit together so a failure between them cannot orphan a
// user row.
func (r *AccountRepository) Create(ctx context.Context, user domain.User, credential domain.Credential) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	userStmt, userArgs, err := r.builder.
		Insert("users").
		Columns("profile", "first_name", "last_name", "gender", "age").
		Values(user.Profile, user.FirstName, user.LastName, user.Gender, user.Age).
		Suffix("RETURNING user_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert user sql: %w", err)
	}

	var userID int64
	if err := tx.QueryRow(ctx, userStmt, userArgs...).Scan(&userID); err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}

	credStmt, credArgs, err := r.builder.
		Insert("authentication").
		Columns("usr_user_id", "username", "password", "email", "mobile", "first_login", "is_logged_in").
		Values(userID, credential.Username, credential.PasswordHash, credential.Email, credential.Mobile, credential.FirstLogin, credential.LoggedIn).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert credential sql: %w", err)
	}

	if _, err := tx.Exec(ctx, credStmt, credArgs...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, repository.ErrDuplicate
		}
		return 0, fmt.Errorf("insert credential: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return userID, nil
}

// StoreToken overwrites the persisted session token for the user.
func (r *AccountRepository) StoreToken(ctx context.Context, userID int64, token string) error {
	stmt, args, err := r.builder.
		Update("authentication").
		Set("token", token).
		Where(squirrel.Eq{"usr_user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword overwrites the stored hash, clears first_login, and marks
// the user logged in.
func (r *AccountRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	stmt, args, err := r.builder.
		Update("authentication").
		Set("password", passwordHash).
		Set("first_login", false).
		Set("is_logged_in", true).
		Where(squirrel.Eq{"usr_user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
