package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore keeps carts, products and users as JSON rows and reactions
// as one relational table so counters stay a single aggregate query.
type PostgresStore struct {
	db *sql.DB
}

// ConnectPostgres opens and pings a PostgreSQL connection.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the storefront tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS carts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			data JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reactions (
			review_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (review_id, user_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetCart(ctx context.Context, cartID string) (*Cart, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM carts WHERE id = $1", cartID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, false, err
	}
	return &cart, true, nil
}

func (s *PostgresStore) PutCart(ctx context.Context, cart *Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO carts (id, user_id, data, updated_at) VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (id) DO UPDATE SET data = $3, updated_at = NOW()`,
		cart.ID, cart.UserID, data,
	)
	return err
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*Product, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM products WHERE id = $1", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (s *PostgresStore) PutProduct(ctx context.Context, p *Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO products (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = $2`,
		p.ID, data,
	)
	return err
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*User, bool, error) {
	return s.getUser(ctx, "SELECT data, password_hash FROM users WHERE id = $1", id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, bool, error) {
	return s.getUser(ctx, "SELECT data, password_hash FROM users WHERE email = $1", email)
}

func (s *PostgresStore) getUser(ctx context.Context, query, arg string) (*User, bool, error) {
	var data []byte
	var hash string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&data, &hash)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, false, err
	}
	u.PasswordHash = hash
	return &u, true, nil
}

func (s *PostgresStore) PutUser(ctx context.Context, u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, data) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET email = $2, password_hash = $3, data = $4`,
		u.ID, u.Email, u.PasswordHash, data,
	)
	return err
}

func (s *PostgresStore) GetReaction(ctx context.Context, reviewID, userID string) (string, bool, error) {
	var kind string
	err := s.db.QueryRowContext(ctx,
		"SELECT kind FROM reactions WHERE review_id = $1 AND user_id = $2",
		reviewID, userID,
	).Scan(&kind)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return kind, true, nil
}

func (s *PostgresStore) PutReaction(ctx context.Context, reviewID, userID, kind string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reactions (review_id, user_id, kind) VALUES ($1, $2, $3)
		 ON CONFLICT (review_id, user_id) DO UPDATE SET kind = $3, created_at = NOW()`,
		reviewID, userID, kind,
	)
	return err
}

func (s *PostgresStore) DeleteReaction(ctx context.Context, reviewID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM reactions WHERE review_id = $1 AND user_id = $2",
		reviewID, userID,
	)
	return err
}

func (s *PostgresStore) ReactionCounts(ctx context.Context, reviewID string) (int, int, error) {
	var likes, dislikes int
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE kind = 'like'),
			COUNT(*) FILTER (WHERE kind = 'dislike')
		 FROM reactions WHERE review_id = $1`,
		reviewID,
	).Scan(&likes, &dislikes)
	if err != nil {
		return 0, 0, err
	}
	return likes, dislikes, nil
}
