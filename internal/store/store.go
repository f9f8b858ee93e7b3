package store

import (
	"context"
	"errors"
	"time"

	"dokankhata/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOverpayment       = errors.New("payment exceeds outstanding debt")
)

// Repository is the persistence boundary. Operations that touch more than
// one collection (CreateSale, DeleteSale, CreatePayment, RestoreBackup) are
// atomic: either every write lands or none do.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// CreateSale checks stock, snapshots current prices into the sale row,
	// decrements stock, appends one price history row and, when the sale is
	// on credit, adds the total to the customer's debt.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	// DeleteSale removes the sale and restores stock when the product still
	// exists. Debt and price history are left untouched.
	DeleteSale(ctx context.Context, id string) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error)
	ListSalesDueOn(ctx context.Context, day time.Time) ([]domain.Sale, error)

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	// CreatePayment decrements the customer's debt by exactly the payment
	// amount and stamps the customer's last payment date.
	CreatePayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	ListPayments(ctx context.Context, customerID string, limit int) ([]domain.Payment, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error)
	CreateInventoryExpense(ctx context.Context, expense domain.InventoryExpense) (*domain.InventoryExpense, error)
	ListInventoryExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.InventoryExpense, error)

	CreateStaff(ctx context.Context, staff domain.Staff) (*domain.Staff, error)
	ListStaff(ctx context.Context) ([]domain.Staff, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)

	ListPriceHistory(ctx context.Context, productID string, limit int) ([]domain.PriceHistory, error)
	// LastPurchasePrice returns the buy price of the newest price history row
	// for the product, or ErrNotFound when no sale was ever recorded for it.
	LastPurchasePrice(ctx context.Context, productID string) (int64, error)

	ReplaceMarketPrices(ctx context.Context, rows []domain.MarketPrice) error
	ListMarketPrices(ctx context.Context) ([]domain.MarketPrice, error)

	ExportBackup(ctx context.Context) (*domain.BackupDocument, error)
	// RestoreBackup replaces the six primary collections with the document's
	// contents in one transaction. Nothing is cleared until the document has
	// been validated.
	RestoreBackup(ctx context.Context, doc domain.BackupDocument) error

	// Markers is small persisted key/value state for the scheduler.
	GetMarker(ctx context.Context, key string) (string, error)
	SetMarker(ctx context.Context, key string, value string) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
