// Package postgres implements store.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"TODOLIST_BACK-END/internal/config"
	"TODOLIST_BACK-END/internal/models"
	"TODOLIST_BACK-END/internal/store"
)

// schema is applied statement by statement on startup. Every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	username      VARCHAR(80)  NOT NULL CHECK (username <> ''),
	email         VARCHAR(120) NOT NULL CHECK (email <> ''),
	password_hash VARCHAR(256) NOT NULL CHECK (password_hash <> ''),
	created_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
	CONSTRAINT users_username_key UNIQUE (username),
	CONSTRAINT users_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS todos (
	id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name        VARCHAR(100) NOT NULL CHECK (name <> ''),
	comment     TEXT,
	"timestamp" TIMESTAMPTZ  NOT NULL DEFAULT now(),
	user_id     BIGINT       NOT NULL REFERENCES users (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS todos_user_id_idx ON todos (user_id)
`

// Postgres error codes
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeStringTooLong       = "22001"
)

// Store implements store.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool using the database section of cfg and pings it.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	// Simple protocol keeps us compatible with PgBouncer in transaction mode
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "todolist-backend"
	poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.Database.QueryTimeout.Milliseconds(), 10)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return store.Failure("migrate", err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash)
			 VALUES ($1, $2, $3)
			 RETURNING id, created_at`,
			u.Username, u.Email, u.PasswordHash,
		).Scan(&u.ID, &u.CreatedAt)
	})
	return mapError("create user", err)
}

const selectUser = `SELECT id, username, email, password_hash, created_at FROM users`

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "get user", selectUser+` WHERE id = $1`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "get user by username", selectUser+` WHERE username = $1`, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "get user by email", selectUser+` WHERE email = $1`, email)
}

func (s *Store) getUser(ctx context.Context, op, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// ON DELETE CASCADE covers this too; todos go first in the same transaction.
		if _, err := tx.Exec(ctx, `DELETE FROM todos WHERE user_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	return mapError("delete user", err)
}

func (s *Store) CreateTodo(ctx context.Context, t *models.Todo) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`INSERT INTO todos (name, comment, user_id)
			 VALUES ($1, $2, $3)
			 RETURNING id, "timestamp"`,
			t.Name, t.Comment, t.UserID,
		).Scan(&t.ID, &t.Timestamp)
	})
	return mapError("create todo", err)
}

func (s *Store) GetTodo(ctx context.Context, id int64) (*models.Todo, error) {
	var t models.Todo
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, comment, "timestamp", user_id FROM todos WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Comment, &t.Timestamp, &t.UserID)
	if err != nil {
		return nil, mapError("get todo", err)
	}
	return &t, nil
}

func (s *Store) ListTodosByUser(ctx context.Context, userID int64) ([]models.Todo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, comment, "timestamp", user_id FROM todos WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, mapError("list todos", err)
	}
	defer rows.Close()

	todos := make([]models.Todo, 0)
	for rows.Next() {
		var t models.Todo
		if err := rows.Scan(&t.ID, &t.Name, &t.Comment, &t.Timestamp, &t.UserID); err != nil {
			return nil, mapError("list todos", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list todos", err)
	}
	return todos, nil
}

func (s *Store) UpdateTodo(ctx context.Context, id int64, patch store.TodoPatch) (*models.Todo, error) {
	var t models.Todo
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`UPDATE todos
			    SET name = COALESCE($1::text, name),
			        comment = CASE WHEN $2::boolean THEN $3::text ELSE comment END
			  WHERE id = $4
			 RETURNING id, name, comment, "timestamp", user_id`,
			patch.Name, patch.SetComment, patch.Comment, id,
		).Scan(&t.ID, &t.Name, &t.Comment, &t.Timestamp, &t.UserID)
	})
	if err != nil {
		return nil, mapError("update todo", err)
	}
	return &t, nil
}

func (s *Store) DeleteTodo(ctx context.Context, id int64) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	return mapError("delete todo", err)
}

// mapError translates pgx errors into store errors.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			switch pgErr.ConstraintName {
			case "users_username_key":
				return store.ErrDuplicateUsername
			case "users_email_key":
				return store.ErrDuplicateEmail
			}
			return fmt.Errorf("%w: %s", store.ErrConstraintViolation, pgErr.ConstraintName)
		case codeForeignKeyViolation, codeCheckViolation, codeStringTooLong:
			return fmt.Errorf("%w: %s", store.ErrConstraintViolation, pgErr.Message)
		}
	}

	return store.Failure(op, err)
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
