package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS shops (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	address       TEXT NOT NULL,
	created       INTEGER NOT NULL,
	last_modified INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS products (
	id            TEXT PRIMARY KEY,
	shop_id       TEXT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	price         REAL NOT NULL,
	distributor   TEXT NOT NULL,
	created       INTEGER NOT NULL,
	last_modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS products_shop_idx ON products (shop_id);
`

// Repository persists shops and products in SQLite.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// An empty path or ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Repository, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	repo := NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewRepository wraps an open database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
	}
}

// Migrate creates the tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// ListShops returns one page of shops ordered by creation time, and the total count.
func (r *Repository) ListShops(ctx context.Context, page Page) ([]Shop, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shops`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shops: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, address, created, last_modified FROM shops ORDER BY created, id LIMIT ? OFFSET ?`,
		page.Size, page.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	shops := make([]Shop, 0)
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list shops: %w", err)
		}
		shops = append(shops, *s)
	}
	return shops, total, rows.Err()
}

// GetShop returns the shop with id, or ErrNotFound.
func (r *Repository) GetShop(ctx context.Context, id string) (*Shop, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, address, created, last_modified FROM shops WHERE id = ?`, id)
	s, err := scanShop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shop %s: %w", id, err)
	}
	return s, nil
}

// ShopExists reports whether a shop with id exists.
func (r *Repository) ShopExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM shops WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check shop %s: %w", id, err)
	}
	return true, nil
}

// CreateShop inserts a shop. An empty id gets a new UUID.
func (r *Repository) CreateShop(ctx context.Context, id string, in ShopInput) (*Shop, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := r.timestamp()
	s := &Shop{ID: id, Name: in.Name, Address: in.Address, Created: now, LastModified: now}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shops (id, name, address, created, last_modified) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Address, s.Created.UnixMilli(), s.LastModified.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("create shop: %w", err)
	}
	return s, nil
}

// UpdateShop replaces the fields of an existing shop, or returns ErrNotFound.
func (r *Repository) UpdateShop(ctx context.Context, id string, in ShopInput) (*Shop, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shops SET name = ?, address = ?, last_modified = ? WHERE id = ?`,
		in.Name, in.Address, r.timestamp().UnixMilli(), id)
	if err != nil {
		return nil, fmt.Errorf("update shop %s: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	return r.GetShop(ctx, id)
}

// DeleteShop removes a shop and its products, or returns ErrNotFound.
func (r *Repository) DeleteShop(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete shop %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE shop_id = ?`, id); err != nil {
		return fmt.Errorf("delete products of shop %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM shops WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shop %s: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// ListProducts returns one page of a shop's products ordered by creation time, and the total count.
func (r *Repository) ListProducts(ctx context.Context, shopID string, page Page) ([]Product, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE shop_id = ?`, shopID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, shop_id, name, description, price, distributor, created, last_modified
		FROM products WHERE shop_id = ? ORDER BY created, id LIMIT ? OFFSET ?`,
		shopID, page.Size, page.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list products: %w", err)
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

// GetProduct returns a product of a shop, or ErrNotFound.
func (r *Repository) GetProduct(ctx context.Context, shopID, id string) (*Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, shop_id, name, description, price, distributor, created, last_modified
		FROM products WHERE shop_id = ? AND id = ?`, shopID, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// CreateProduct inserts a product into a shop. An empty id gets a new UUID.
// It returns ErrConflict if id belongs to another shop's product.
func (r *Repository) CreateProduct(ctx context.Context, shopID, id string, in ProductInput) (*Product, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := r.timestamp()
	p := &Product{
		ID:           id,
		ShopID:       shopID,
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		Distributor:  in.Distributor,
		Created:      now,
		LastModified: now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, id).Scan(&one)
	switch {
	case err == nil:
		return nil, ErrConflict
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("create product: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO products (id, shop_id, name, description, price, distributor, created, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ShopID, p.Name, p.Description, p.Price, p.Distributor, p.Created.UnixMilli(), p.LastModified.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// UpdateProduct replaces the fields of an existing product, or returns ErrNotFound.
func (r *Repository) UpdateProduct(ctx context.Context, shopID, id string, in ProductInput) (*Product, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price = ?, distributor = ?, last_modified = ?
		WHERE shop_id = ? AND id = ?`,
		in.Name, in.Description, in.Price, in.Distributor, r.timestamp().UnixMilli(), shopID, id)
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	return r.GetProduct(ctx, shopID, id)
}

// DeleteProduct removes a product of a shop, or returns ErrNotFound.
func (r *Repository) DeleteProduct(ctx context.Context, shopID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE shop_id = ? AND id = ?`, shopID, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return expectOneRow(res)
}

// timestamp truncates to the stored precision so returned values match later reads.
func (r *Repository) timestamp() time.Time {
	return time.UnixMilli(r.now().UnixMilli()).UTC()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShop(row scanner) (*Shop, error) {
	var s Shop
	var created, modified int64
	if err := row.Scan(&s.ID, &s.Name, &s.Address, &created, &modified); err != nil {
		return nil, err
	}
	s.Created = time.UnixMilli(created).UTC()
	s.LastModified = time.UnixMilli(modified).UTC()
	return &s, nil
}

func scanProduct(row scanner) (*Product, error) {
	var p Product
	var created, modified int64
	if err := row.Scan(&p.ID, &p.ShopID, &p.Name, &p.Description, &p.Price, &p.Distributor, &created, &modified); err != nil {
		return nil, err
	}
	p.Created = time.UnixMilli(created).UTC()
	p.LastModified = time.UnixMilli(modified).UTC()
	return &p, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
