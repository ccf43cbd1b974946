package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "pricewatch/pkg/types"
)

const defaultPoolSize = 10

// pgUniqueViolation is the Postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
// Its methods need live Postgres and are covered by the integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// poolConfig parses the connection string and applies the pool size cap.
// Sizes below 1 fall back to defaultPoolSize.
func poolConfig(connString string, poolSize int) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if poolSize < 1 {
		poolSize = defaultPoolSize
	}
	cfg.MaxConns = int32(poolSize)
	return cfg, nil
}

// NewPostgresStore creates a new PostgresStore holding at most poolSize
// connections.
func NewPostgresStore(ctx context.Context, connString string, poolSize int) (*PostgresStore, error) {
	cfg, err := poolConfig(connString, poolSize)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// CreateItem inserts a new tracked item and assigns its ID.
func (s *PostgresStore) CreateItem(ctx context.Context, item *domain.Item) error {
	args, err := itemArgs(item)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx, queryCreateItem, args).Scan(
		&item.ID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating item: %w", err)
	}
	return nil
}

// SaveItem writes the full item document, including snapshots and
// subscriber state.
func (s *PostgresStore) SaveItem(ctx context.Context, item *domain.Item) error {
	args, err := itemArgs(item)
	if err != nil {
		return err
	}
	args["id"] = item.ID

	err = s.pool.QueryRow(ctx, querySaveItem, args).Scan(&item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("saving item %s: %w", item.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("saving item %s: %w", item.ID, err)
	}
	return nil
}

// GetItem retrieves a tracked item by ID.
func (s *PostgresStore) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item := &domain.Item{}
	err := scanItem(s.pool.QueryRow(ctx, queryGetItem, id), item)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	return item, nil
}

// GetItemsByURL returns all items tracking the given URL (empty if none).
func (s *PostgresStore) GetItemsByURL(ctx context.Context, url string) ([]domain.Item, error) {
	return s.queryItems(ctx, queryGetItemsByURL, url)
}

// ListItems returns every tracked item.
func (s *PostgresStore) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.queryItems(ctx, queryListItems)
}

// RemoveSubscriber deletes one subscriber entry from an item.
func (s *PostgresStore) RemoveSubscriber(ctx context.Context, itemID, userID string) error {
	tag, err := s.pool.Exec(ctx, queryRemoveSubscriber, itemID, userID)
	if err != nil {
		return fmt.Errorf("removing subscriber %s from item %s: %w", userID, itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	return nil
}

// CreateUser inserts a new user and assigns its ID.
func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) error {
	err := s.pool.QueryRow(ctx, queryCreateUser, u.Email, u.PasswordHash, u.Activated).Scan(
		&u.ID, &u.LastLogin, &u.LastPasswordChange, &u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("creating user %s: %w", u.Email, ErrDuplicateEmail)
	}
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// SaveUser updates an existing user record.
func (s *PostgresStore) SaveUser(ctx context.Context, u *domain.User) error {
	_, err := s.pool.Exec(ctx, querySaveUser,
		u.ID, u.Email, u.PasswordHash, u.Activated, u.LastLogin, u.LastPasswordChange,
	)
	if err != nil {
		return fmt.Errorf("saving user %s: %w", u.ID, err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email address.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u := &domain.User{}
	err := scanUser(s.pool.QueryRow(ctx, queryGetUserByEmail, email), u)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	err := scanUser(s.pool.QueryRow(ctx, queryGetUserByID, id), u)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUsersByIDs loads user records for all ids in one batched query.
// Unknown ids are silently absent from the result.
func (s *PostgresStore) GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, queryGetUsersByIDs, ids)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	return users, nil
}

func (s *PostgresStore) queryItems(
	ctx context.Context,
	sql string,
	args ...any,
) ([]domain.Item, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}

	return items, nil
}

// itemArgs builds named arguments for item writes, marshaling the JSONB
// document columns.
func itemArgs(item *domain.Item) (pgx.NamedArgs, error) {
	snapshots := item.Snapshots
	if snapshots == nil {
		snapshots = []domain.Snapshot{}
	}
	subscribers := item.Subscribers
	if subscribers == nil {
		subscribers = []domain.Subscriber{}
	}

	snapshotsJSON, err := json.Marshal(snapshots)
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshots: %w", err)
	}
	subscribersJSON, err := json.Marshal(subscribers)
	if err != nil {
		return nil, fmt.Errorf("marshaling subscribers: %w", err)
	}

	return pgx.NamedArgs{
		"url":         item.URL,
		"selector":    item.Selector,
		"snapshots":   snapshotsJSON,
		"subscribers": subscribersJSON,
	}, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner, item *domain.Item) error {
	var snapshotsJSON, subscribersJSON []byte

	err := row.Scan(
		&item.ID, &item.URL, &item.Selector,
		&snapshotsJSON, &subscribersJSON,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(snapshotsJSON, &item.Snapshots); err != nil {
		return fmt.Errorf("unmarshaling snapshots: %w", err)
	}
	if err := json.Unmarshal(subscribersJSON, &item.Subscribers); err != nil {
		return fmt.Errorf("unmarshaling subscribers: %w", err)
	}
	return nil
}

func scanUser(row rowScanner, u *domain.User) error {
	return row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Activated,
		&u.LastLogin, &u.LastPasswordChange, &u.CreatedAt,
	)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
