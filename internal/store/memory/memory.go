package memory

import (
	"cmp"
	"context"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"hesapla/backend/internal/domain"
	"hesapla/backend/internal/store"
	"hesapla/backend/internal/xid"
)

type Store struct {
	mu                sync.RWMutex
	products          map[string]domain.Product
	revision          uint64
	priceHistoryBySKU map[string][]domain.ProductPriceHistory
	auditLogs         []domain.AuditLog
	usersByUsername   map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD.
// If unset, dev defaults are used with a warning. The memory store is never
// used when DATABASE_URL is set.
func seedUsers(logger zerolog.Logger) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		logger.Warn().Msg("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal().Err(err).Str("username", u.username).Msg("failed to hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// New returns an empty store with no products and no users.
func New() *Store {
	return &Store{
		products:          make(map[string]domain.Product),
		priceHistoryBySKU: make(map[string][]domain.ProductPriceHistory),
		auditLogs:         make([]domain.AuditLog, 0, 128),
		usersByUsername:   make(map[string]domain.UserAccount),
	}
}

func NewSeeded(logger zerolog.Logger) *Store {
	logger = logger.With().Str("component", "memory-store").Logger()
	now := time.Now().UTC()
	products := []domain.Product{
		{SKU: "SKU-CAY-01", Name: "Siyah Cay 1kg", Barcode: "8690637000011", Category: "beverage", PurchasePrice: dec("92.50"), SalePrice: dec("149.90"), VATRatePercent: dec("10")},
		{SKU: "SKU-KAHVE-01", Name: "Turk Kahvesi 100g", Barcode: "8690637000028", Category: "beverage", PurchasePrice: dec("38"), SalePrice: dec("64.90"), VATRatePercent: dec("10")},
		{SKU: "SKU-SU-01", Name: "Dogal Kaynak Suyu 1.5L", Barcode: "8690637000035", Category: "beverage", PurchasePrice: dec("6.20"), SalePrice: dec("12.50"), VATRatePercent: dec("10")},
		{SKU: "SKU-SEKER-01", Name: "Kup Seker 1kg", Barcode: "8690637000042", Category: "grocery", PurchasePrice: dec("31.40"), SalePrice: dec("47.90"), VATRatePercent: dec("1")},
		{SKU: "SKU-MAKARNA-01", Name: "Spagetti Makarna 500g", Barcode: "8690637000059", Category: "grocery", PurchasePrice: dec("11.75"), SalePrice: dec("19.90"), VATRatePercent: dec("1")},
		{SKU: "SKU-PIRINC-01", Name: "Baldo Pirinc 2.5kg", Barcode: "8690637000066", Category: "grocery", PurchasePrice: dec("118"), SalePrice: dec("169.90"), VATRatePercent: dec("1")},
		{SKU: "SKU-ZEYTIN-01", Name: "Siyah Zeytin 400g", Barcode: "8690637000073", Category: "deli", PurchasePrice: dec("64"), SalePrice: dec("99.90"), VATRatePercent: dec("1")},
		{SKU: "SKU-PEYNIR-01", Name: "Beyaz Peynir 500g", Barcode: "8690637000080", Category: "deli", PurchasePrice: dec("105"), SalePrice: dec("159.90"), VATRatePercent: dec("1")},
		{SKU: "SKU-DETERJAN-01", Name: "Sivi Deterjan 2.5L", Barcode: "8690637000097", Category: "household", PurchasePrice: dec("142"), SalePrice: dec("229.90"), VATRatePercent: dec("20")},
		{SKU: "SKU-SABUN-01", Name: "Zeytinyagli Sabun", Barcode: "8690637000103", Category: "household", PurchasePrice: dec("18.30"), SalePrice: dec("34.90"), VATRatePercent: dec("20")},
		{SKU: "SKU-POSET-01", Name: "Alisveris Poseti", Barcode: "8690637000110", Category: "household", PurchasePrice: decimal.Zero, SalePrice: dec("0.25"), VATRatePercent: dec("20")},
		{SKU: "SKU-CIKOLATA-01", Name: "Sutlu Cikolata 80g", Barcode: "8690637000127", Category: "snack", PurchasePrice: dec("21.60"), SalePrice: dec("37.50"), VATRatePercent: dec("10")},
	}

	s := New()
	for _, p := range products {
		p.Active = true
		p.UpdatedAt = now
		s.products[p.SKU] = p
	}
	s.revision = 1
	s.usersByUsername = seedUsers(logger)
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.SKU, b.SKU))
		}
		return strings.Compare(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.SKU]; exists {
		return nil, store.ErrDuplicateSKU
	}

	product.Active = true
	product.UpdatedAt = time.Now().UTC()
	s.products[product.SKU] = product
	s.revision++
	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.SKU]; !exists {
		return nil, store.ErrNotFound
	}

	product.UpdatedAt = time.Now().UTC()
	s.products[product.SKU] = product
	s.revision++
	updated := product
	return &updated, nil
}

func (s *Store) RepriceProduct(_ context.Context, change store.PriceChange) (*domain.Product, error) {
	if err := store.ValidatePriceChange(change); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[change.SKU]
	if !exists {
		return nil, store.ErrNotFound
	}
	if !product.PurchasePrice.Equal(change.OldPurchasePrice) || !product.SalePrice.Equal(change.OldSalePrice) {
		return nil, store.ErrStaleProduct
	}

	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	product.PurchasePrice = change.NewPurchasePrice
	product.SalePrice = change.NewSalePrice
	product.UpdatedAt = at
	s.products[product.SKU] = product
	s.revision++
	updated := product
	return &updated, nil
}

func (s *Store) CatalogRevision(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return "mem-" + strconv.FormatUint(s.revision, 10), nil
}

func (s *Store) CreatePriceHistory(_ context.Context, entry domain.ProductPriceHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("ph")
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	s.priceHistoryBySKU[entry.SKU] = append(s.priceHistoryBySKU[entry.SKU], entry)
	return nil
}

func (s *Store) ListPriceHistory(_ context.Context, sku string, limit int) ([]domain.ProductPriceHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.priceHistoryBySKU[sku]
	if len(history) == 0 {
		return []domain.ProductPriceHistory{}, nil
	}

	result := slices.Clone(history)
	slices.SortStableFunc(result, func(a, b domain.ProductPriceHistory) int {
		return b.ChangedAt.Compare(a.ChangedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if storeID != "" && entry.StoreID != storeID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	// Newest first; entries written in the same instant keep reverse
	// insertion order.
	slices.Reverse(result)
	slices.SortStableFunc(result, func(a, b domain.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidUser
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidUser
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "staff"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrNotFound
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
