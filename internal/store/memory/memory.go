package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"dukkan/backend/internal/domain"
	"dukkan/backend/internal/store"
	"dukkan/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	stores          map[string]domain.Store
	customers       map[string]domain.Customer
	inventory       map[string]map[string]domain.InventoryItem
	salesByID       map[string]domain.Sale
	linesBySaleID   map[string][]domain.SaleLine
	paymentsBySale  map[string][]domain.Payment
	rates           []domain.ExchangeRate
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		stores:          make(map[string]domain.Store),
		customers:       make(map[string]domain.Customer),
		inventory:       make(map[string]map[string]domain.InventoryItem),
		salesByID:       make(map[string]domain.Sale),
		linesBySaleID:   make(map[string][]domain.SaleLine),
		paymentsBySale:  make(map[string][]domain.Payment),
		rates:           make([]domain.ExchangeRate, 0, 4),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
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

func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	for _, st := range []domain.Store{
		{ID: "store-1", Name: "Main Warehouse", Active: true},
		{ID: "store-2", Name: "Karrada Branch", Active: true},
		{ID: "store-3", Name: "Old Depot", Active: false},
	} {
		s.stores[st.ID] = st
	}

	now := time.Now().UTC()
	for _, c := range []domain.Customer{
		{ID: "cust-1", Name: "Ahmed Al-Saadi", Type: "retail", UpdatedAt: now},
		{ID: "cust-2", Name: "Baghdad Market Co.", Type: "wholesale", UpdatedAt: now},
		{ID: "cust-3", Name: "Zainab Hasan", Type: "retail", UpdatedAt: now},
	} {
		s.customers[c.ID] = c
	}

	items := []domain.InventoryItem{
		{StoreID: "store-1", ProductCode: "X001", ProductName: "Sugar 1kg", Quantity: dec("10"), Unit: "pc", SellPriceIQD: dec("1000"), SellPriceUSD: dec("0.68")},
		{StoreID: "store-1", ProductCode: "X002", ProductName: "Rice 5kg", Quantity: dec("40"), Unit: "pc", SellPriceIQD: dec("8000"), SellPriceUSD: dec("5.41")},
		{StoreID: "store-1", ProductCode: "X003", ProductName: "Sunflower Oil 1L", Quantity: dec("25"), Unit: "pc", SellPriceIQD: dec("3500"), SellPriceUSD: dec("2.37")},
		{StoreID: "store-1", ProductCode: "X004", ProductName: "Tea 500g", Quantity: dec("0"), Unit: "pc", SellPriceIQD: dec("4500"), SellPriceUSD: dec("3.04")},
		{StoreID: "store-2", ProductCode: "X001", ProductName: "Sugar 1kg", Quantity: dec("6"), Unit: "pc", SellPriceIQD: dec("1050"), SellPriceUSD: dec("0.71")},
	}
	for _, item := range items {
		item.ID = xid.New("inv")
		if s.inventory[item.StoreID] == nil {
			s.inventory[item.StoreID] = make(map[string]domain.InventoryItem)
		}
		s.inventory[item.StoreID][item.ProductCode] = item
	}

	s.rates = append(s.rates, domain.ExchangeRate{ID: xid.New("rate"), Rate: dec("1480"), CreatedAt: now})

	return s
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (s *Store) ListActiveStores(_ context.Context) ([]domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Store, 0, len(s.stores))
	for _, st := range s.stores {
		if !st.Active {
			continue
		}
		result = append(result, st)
	}

	slices.SortFunc(result, func(a, b domain.Store) int {
		return strings.Compare(a.Name, b.Name)
	})

	return result, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		result = append(result, c)
	}

	slices.SortFunc(result, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})

	return result, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) ListAvailableInventory(_ context.Context, storeID string) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0, len(s.inventory[storeID]))
	for _, item := range s.inventory[storeID] {
		if !item.Quantity.GreaterThan(decimal.Zero) {
			continue
		}
		items = append(items, item)
	}

	slices.SortFunc(items, func(a, b domain.InventoryItem) int {
		return strings.Compare(a.ProductName, b.ProductName)
	})

	return items, nil
}

func (s *Store) GetInventoryItem(_ context.Context, storeID string, productCode string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.inventory[storeID][productCode]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) GetCurrentExchangeRate(_ context.Context) (*domain.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rates) == 0 {
		return nil, store.ErrNotFound
	}

	latest := s.rates[0]
	for _, rate := range s.rates[1:] {
		if rate.CreatedAt.After(latest.CreatedAt) {
			latest = rate
		}
	}
	return &latest, nil
}

// SetExchangeRate records a new current rate. Used by seeding and tests.
func (s *Store) SetExchangeRate(rate decimal.Decimal, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = append(s.rates, domain.ExchangeRate{ID: xid.New("rate"), Rate: rate, CreatedAt: at})
}

func (s *Store) GetLastSaleNumber(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Sale
	for id := range s.salesByID {
		sale := s.salesByID[id]
		if latest == nil || sale.CreatedAt.After(latest.CreatedAt) {
			latest = &sale
		}
	}
	if latest == nil {
		return "", store.ErrNotFound
	}
	return latest.Number, nil
}

func (s *Store) CreateSale(_ context.Context, commit domain.SaleCommit) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale := commit.Sale
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.DateTime.IsZero() {
		sale.DateTime = sale.CreatedAt
	}

	if commit.BalanceDelta != nil {
		if _, exists := s.customers[commit.BalanceDelta.CustomerID]; !exists {
			return nil, fmt.Errorf("%w: customer %s", store.ErrNotFound, commit.BalanceDelta.CustomerID)
		}
	}

	// Re-check every line against current stock before touching anything so a
	// failed commit leaves no partial state behind.
	for _, line := range commit.Lines {
		item, exists := s.inventory[sale.StoreID][line.ProductCode]
		if !exists {
			return nil, fmt.Errorf("%w: product %s in store %s", store.ErrNotFound, line.ProductCode, sale.StoreID)
		}
		if item.Quantity.LessThan(line.Quantity) {
			return nil, fmt.Errorf("%w: %s has %s available, requested %s", store.ErrInsufficientStock, item.ProductName, item.Quantity, line.Quantity)
		}
	}

	for _, line := range commit.Lines {
		item := s.inventory[sale.StoreID][line.ProductCode]
		item.Quantity = item.Quantity.Sub(line.Quantity)
		s.inventory[sale.StoreID][line.ProductCode] = item
	}

	lines := make([]domain.SaleLine, 0, len(commit.Lines))
	for _, line := range commit.Lines {
		line.ID = xid.New("sln")
		line.SaleID = sale.ID
		line.StoreID = sale.StoreID
		lines = append(lines, line)
	}

	s.salesByID[sale.ID] = sale
	s.linesBySaleID[sale.ID] = lines

	if commit.BalanceDelta != nil {
		customer := s.customers[commit.BalanceDelta.CustomerID]
		customer.BalanceIQD = customer.BalanceIQD.Add(commit.BalanceDelta.DeltaIQD)
		customer.BalanceUSD = customer.BalanceUSD.Add(commit.BalanceDelta.DeltaUSD)
		customer.UpdatedAt = time.Now().UTC()
		s.customers[customer.ID] = customer
	}

	if commit.Payment != nil {
		payment := *commit.Payment
		if payment.ID == "" {
			payment.ID = xid.New("pay")
		}
		payment.SaleID = sale.ID
		if payment.PayDate.IsZero() {
			payment.PayDate = sale.CreatedAt
		}
		s.paymentsBySale[sale.ID] = append(s.paymentsBySale[sale.ID], payment)
	}

	created := sale
	return &created, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := sale
	return &copySale, nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		sales = append(sales, sale)
	}

	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.DateTime.Compare(a.DateTime)
	})

	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) ListSaleLines(_ context.Context, saleID string) ([]domain.SaleLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]domain.SaleLine, 0, len(s.linesBySaleID[saleID]))
	lines = append(lines, s.linesBySaleID[saleID]...)

	slices.SortFunc(lines, func(a, b domain.SaleLine) int {
		return strings.Compare(a.ProductName, b.ProductName)
	})

	return lines, nil
}

func (s *Store) ListSalePayments(_ context.Context, saleID string) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := make([]domain.Payment, 0, len(s.paymentsBySale[saleID]))
	payments = append(payments, s.paymentsBySale[saleID]...)
	return payments, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrInvalidSale
	}
	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("username already exists")
	}

	user.Username = username
	s.usersByUsername[username] = user
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
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}

	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
