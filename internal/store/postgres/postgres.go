package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"hesapla/backend/internal/domain"
	"hesapla/backend/internal/store"
	"hesapla/backend/internal/xid"
)

//go:embed migrations/*.sql
var migrations embed.FS

const productColumns = `sku, name, barcode, category, purchase_price, sale_price, vat_rate_percent, active, updated_at`

type Store struct {
	pool   *pgxpool.Pool
	db     *sql.DB
	logger zerolog.Logger
}

// Open connects to databaseURL, retrying up to tries times while the
// database comes up, and applies pending migrations.
func Open(ctx context.Context, databaseURL string, tries int, logger zerolog.Logger) (*Store, error) {
	logger = logger.With().Str("component", "postgres").Logger()

	poolConf, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConf.MaxConns = 30
	poolConf.MaxConnLifetime = 30 * time.Minute

	if tries < 1 {
		tries = 1
	}
	var pool *pgxpool.Pool
	retry := retrier.New(retrier.ConstantBackoff(tries, 2*time.Second), nil)
	attempt := 0
	err = retry.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, poolConf)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			p.Close()
			logger.Warn().Err(err).Int("attempt", attempt).Msg("database not ready")
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool, db: stdlib.OpenDBFromPool(pool), logger: logger}
	if err := s.migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	err := s.db.Close()
	s.pool.Close()
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.SKU, &p.Name, &p.Barcode, &p.Category, &p.PurchasePrice, &p.SalePrice, &p.VATRatePercent, &p.Active, &p.UpdatedAt)
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true
		ORDER BY category, name, sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	product.Active = true
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO products (sku, name, barcode, category, purchase_price, sale_price, vat_rate_percent, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
		RETURNING `+productColumns,
		product.SKU, product.Name, product.Barcode, product.Category,
		product.PurchasePrice, product.SalePrice, product.VATRatePercent, product.Active)
	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateSKU
		}
		return nil, err
	}
	return &created, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	product, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE sku = $1
	`, sku))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	updated, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, barcode = $3, category = $4, purchase_price = $5, sale_price = $6,
			vat_rate_percent = $7, active = $8, version = version + 1, updated_at = now()
		WHERE sku = $1
		RETURNING `+productColumns,
		product.SKU, product.Name, product.Barcode, product.Category,
		product.PurchasePrice, product.SalePrice, product.VATRatePercent, product.Active))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

// RepriceProduct only writes while the row still carries the old price
// pair. A miss is told apart as not-found or stale by a follow-up read.
func (s *Store) RepriceProduct(ctx context.Context, change store.PriceChange) (*domain.Product, error) {
	if err := store.ValidatePriceChange(change); err != nil {
		return nil, err
	}
	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	updated, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET purchase_price = $4, sale_price = $5, version = version + 1, updated_at = $6
		WHERE sku = $1 AND purchase_price = $2 AND sale_price = $3
		RETURNING `+productColumns,
		change.SKU, change.OldPurchasePrice, change.OldSalePrice,
		change.NewPurchasePrice, change.NewSalePrice, at))
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if _, err := s.GetProductBySKU(ctx, change.SKU); err != nil {
		return nil, err
	}
	return nil, store.ErrStaleProduct
}

// CatalogRevision is derived from the row count and the sum of row
// versions; every insert or update moves at least one of them.
func (s *Store) CatalogRevision(ctx context.Context) (string, error) {
	var count, versions int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT count(*), coalesce(sum(version), 0)
		FROM products
	`).Scan(&count, &versions); err != nil {
		return "", err
	}
	return fmt.Sprintf("pg-%d-%d", count, versions), nil
}

func (s *Store) CreatePriceHistory(ctx context.Context, entry domain.ProductPriceHistory) error {
	if entry.ID == "" {
		entry.ID = xid.New("ph")
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_price_history (
			id, sku, old_purchase_price, new_purchase_price, old_sale_price, new_sale_price,
			applied_percent, reason, changed_by, changed_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, entry.ID, entry.SKU, entry.OldPurchasePrice, entry.NewPurchasePrice, entry.OldSalePrice, entry.NewSalePrice,
		entry.AppliedPercent, entry.Reason, entry.ChangedBy, entry.ChangedAt)
	return err
}

func (s *Store) ListPriceHistory(ctx context.Context, sku string, limit int) ([]domain.ProductPriceHistory, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, old_purchase_price, new_purchase_price, old_sale_price, new_sale_price,
			applied_percent, reason, changed_by, changed_at
		FROM product_price_history
		WHERE sku = $1
		ORDER BY changed_at DESC
		LIMIT $2
	`, sku, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.ProductPriceHistory, 0, limit)
	for rows.Next() {
		var entry domain.ProductPriceHistory
		if err := rows.Scan(&entry.ID, &entry.SKU, &entry.OldPurchasePrice, &entry.NewPurchasePrice,
			&entry.OldSalePrice, &entry.NewSalePrice, &entry.AppliedPercent, &entry.Reason,
			&entry.ChangedBy, &entry.ChangedAt); err != nil {
			return nil, err
		}
		entry.ChangedAt = entry.ChangedAt.UTC()
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.StoreID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE store_id = $1
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4
	`, storeID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.StoreID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidUser
	}
	if user.Role == "" {
		user.Role = "staff"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidUser
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidUser
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
