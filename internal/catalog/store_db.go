package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          BIGINT PRIMARY KEY,
	name        TEXT   NOT NULL,
	description TEXT   NOT NULL DEFAULT '',
	image       TEXT   NOT NULL DEFAULT '',
	price       BIGINT NOT NULL CHECK (price >= 0)
)`

type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens a pool through the pgx database/sql driver and verifies
// connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := withTimeout(ctx, pingTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the products table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	})
}

const insertProduct = `
	INSERT INTO products (id, name, description, image, price)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO `

// Upsert writes products in one transaction, replacing existing rows.
func (s *PostgresStore) Upsert(ctx context.Context, products ...Product) error {
	return s.insert(ctx, insertProduct+`UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    image = EXCLUDED.image,
		    price = EXCLUDED.price`, products)
}

// Seed inserts products whose ids are not taken yet and leaves existing
// rows alone.
func (s *PostgresStore) Seed(ctx context.Context, products ...Product) error {
	return s.insert(ctx, insertProduct+`NOTHING`, products)
}

func (s *PostgresStore) insert(ctx context.Context, query string, products []Product) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range products {
			if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Description, p.Image, p.Price); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.PingContext)
}

func (s *PostgresStore) ListSortedByID(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, description, image, price
			FROM products
			ORDER BY id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			var p Product
			if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Price); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT id, name, description, image, price
			FROM products
			WHERE id = $1
		`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Price)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
