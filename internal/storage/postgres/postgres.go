package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"user_auth/internal/config"
	"user_auth/internal/models"
	"user_auth/internal/storage"
	"user_auth/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const uniqueViolationCode = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	if err := runMigrations(ctx, dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

func (r *PostgresRepo) SaveUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (email, full_name, password_hash, verification_token_hash, verification_token_expires)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.FullName,
		string(user.PassHash),
		user.VerificationTokenHash,
		user.VerificationTokenExpires,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, email, full_name, password_hash, role, is_verified
		FROM users
		WHERE email = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	query := `
		SELECT id, email, full_name, password_hash, role, is_verified
		FROM users
		WHERE id = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// VerifyByTokenHash marks the matching user as verified and clears the
// token columns in a single conditional UPDATE, so a replayed or expired
// token can never match again.
func (r *PostgresRepo) VerifyByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	const op = "storage.postgres.VerifyByTokenHash"

	query := `
		UPDATE users
		SET is_verified = TRUE,
		    verification_token_hash = NULL,
		    verification_token_expires = NULL,
		    updated_at = NOW()
		WHERE verification_token_hash = $1
		  AND verification_token_expires > NOW()
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrVerificationTokenInvalid
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// UpdateVerificationToken replaces the pending token on an unverified user,
// invalidating any previously emailed link.
func (r *PostgresRepo) UpdateVerificationToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	const op = "storage.postgres.UpdateVerificationToken"

	query := `
		UPDATE users
		SET verification_token_hash = $1,
		    verification_token_expires = $2,
		    updated_at = NOW()
		WHERE id = $3 AND is_verified = FALSE;
	`

	tag, err := r.pool.Exec(ctx, query, tokenHash, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) AppendRefreshToken(ctx context.Context, userID int64, tokenHash string) error {
	const query = `
		INSERT INTO refresh_tokens (user_id, token_hash)
		VALUES ($1, $2);
	`

	_, err := r.pool.Exec(ctx, query, userID, tokenHash)
	return err
}

func (r *PostgresRepo) HasRefreshToken(ctx context.Context, userID int64, tokenHash string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM refresh_tokens
			WHERE user_id = $1 AND token_hash = $2
		);
	`

	var exists bool

	err := r.pool.QueryRow(ctx, query, userID, tokenHash).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// ClearRefreshTokens revokes every session of the user in one statement.
func (r *PostgresRepo) ClearRefreshTokens(ctx context.Context, userID int64) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1;`

	_, err := r.pool.Exec(ctx, query, userID)

	return err
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func (r *PostgresRepo) scanUser(row pgx.Row) (models.User, error) {
	var u models.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.PassHash,
		&u.Role,
		&u.IsVerified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
