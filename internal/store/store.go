package store

import (
	"context"
	"errors"

	"dukkan/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidSale       = errors.New("invalid sale")
)

type Repository interface {
	ListActiveStores(ctx context.Context) ([]domain.Store, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	ListAvailableInventory(ctx context.Context, storeID string) ([]domain.InventoryItem, error)
	GetInventoryItem(ctx context.Context, storeID string, productCode string) (*domain.InventoryItem, error)
	GetCurrentExchangeRate(ctx context.Context) (*domain.ExchangeRate, error)
	GetLastSaleNumber(ctx context.Context) (string, error)
	CreateSale(ctx context.Context, commit domain.SaleCommit) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	ListSaleLines(ctx context.Context, saleID string) ([]domain.SaleLine, error)
	ListSalePayments(ctx context.Context, saleID string) ([]domain.Payment, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
