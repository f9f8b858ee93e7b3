package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dokankhata/backend/internal/domain"
	"dokankhata/backend/internal/store"
	"dokankhata/backend/internal/xid"
)

type Store struct {
	mu                sync.RWMutex
	products          map[string]domain.Product
	sales             map[string]domain.Sale
	customers         map[string]domain.Customer
	payments          []domain.Payment
	expenses          []domain.Expense
	inventoryExpenses []domain.InventoryExpense
	staffByID         map[string]domain.Staff
	suppliersByID     map[string]domain.Supplier
	priceHistory      map[string][]domain.PriceHistory
	marketPrices      []domain.MarketPrice
	markers           map[string]string
	usersByUsername   map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"owner", ownerPwd, "owner"},
		{"staff", staffPwd, "staff"},
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

func New() *Store {
	return &Store{
		products:          make(map[string]domain.Product),
		sales:             make(map[string]domain.Sale),
		customers:         make(map[string]domain.Customer),
		payments:          make([]domain.Payment, 0, 64),
		expenses:          make([]domain.Expense, 0, 64),
		inventoryExpenses: make([]domain.InventoryExpense, 0, 32),
		staffByID:         make(map[string]domain.Staff),
		suppliersByID:     make(map[string]domain.Supplier),
		priceHistory:      make(map[string][]domain.PriceHistory),
		marketPrices:      make([]domain.MarketPrice, 0, 32),
		markers:           make(map[string]string),
		usersByUsername:   seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: xid.New("prd"), Name: "Miniket Rice 5kg", Category: "grocery", Unit: "bag", BuyPriceCents: 34000, SellPriceCents: 38500, Stock: 40},
		{ID: xid.New("prd"), Name: "Soybean Oil 1L", Category: "grocery", Unit: "bottle", BuyPriceCents: 15500, SellPriceCents: 17800, Stock: 60},
		{ID: xid.New("prd"), Name: "Lentils 1kg", Category: "grocery", Unit: "kg", BuyPriceCents: 10500, SellPriceCents: 12500, Stock: 35},
		{ID: xid.New("prd"), Name: "Sugar 1kg", Category: "grocery", Unit: "kg", BuyPriceCents: 11800, SellPriceCents: 13000, Stock: 50},
		{ID: xid.New("prd"), Name: "Powdered Milk 500g", Category: "dairy", Unit: "pack", BuyPriceCents: 42000, SellPriceCents: 46500, Stock: 20},
		{ID: xid.New("prd"), Name: "Tea Leaves 400g", Category: "beverage", Unit: "pack", BuyPriceCents: 18500, SellPriceCents: 21000, Stock: 25},
		{ID: xid.New("prd"), Name: "Detergent 500g", Category: "household", Unit: "pack", BuyPriceCents: 8500, SellPriceCents: 10000, Stock: 30},
		{ID: xid.New("prd"), Name: "Bath Soap", Category: "household", Unit: "piece", BuyPriceCents: 4500, SellPriceCents: 5500, Stock: 8},
	}
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.BuyPriceCents < 1 || product.SellPriceCents < 1 {
		return nil, store.ErrValidation
	}
	if product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.UpdatedAt = product.CreatedAt

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.BuyPriceCents < 1 || product.SellPriceCents < 1 {
		return nil, store.ErrValidation
	}
	if product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}

	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

// DeleteProduct removes only the product row. Sales referencing it keep
// their own copies of name and prices.
func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ProductID == "" || sale.Quantity < 1 {
		return nil, store.ErrValidation
	}

	product, exists := s.products[sale.ProductID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if product.Stock < sale.Quantity {
		return nil, store.ErrInsufficientStock
	}

	var customer domain.Customer
	if sale.CustomerID != "" {
		customer, exists = s.customers[sale.CustomerID]
		if !exists {
			return nil, store.ErrNotFound
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}
	sale.ProductName = product.Name
	sale.BuyPriceCents = product.BuyPriceCents
	sale.SellPriceCents = product.SellPriceCents
	sale.TotalCents = product.SellPriceCents * int64(sale.Quantity)
	sale.ProfitCents = (product.SellPriceCents - product.BuyPriceCents) * int64(sale.Quantity)

	// All checks passed. Mutations from here on must all happen.
	product.Stock -= sale.Quantity
	product.UpdatedAt = sale.Date
	s.products[product.ID] = product

	s.sales[sale.ID] = sale
	s.priceHistory[product.ID] = append(s.priceHistory[product.ID], domain.PriceHistory{
		ID:             xid.New("ph"),
		ProductID:      product.ID,
		BuyPriceCents:  product.BuyPriceCents,
		SellPriceCents: product.SellPriceCents,
		Date:           sale.Date,
	})

	if sale.CustomerID != "" {
		customer.DebtCents += sale.TotalCents
		s.customers[customer.ID] = customer
	}

	created := cloneSale(sale)
	return &created, nil
}

// DeleteSale restores stock when the product still exists and skips restock
// otherwise. Customer debt and price history are not reversed.
func (s *Store) DeleteSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}

	if product, ok := s.products[sale.ProductID]; ok {
		product.Stock += sale.Quantity
		product.UpdatedAt = time.Now().UTC()
		s.products[product.ID] = product
	}

	delete(s.sales, id)
	removed := cloneSale(sale)
	return &removed, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := cloneSale(sale)
	return &copySale, nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if !from.IsZero() && sale.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.Date.Before(to) {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}

	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.Date.Before(b.Date) {
			return -1
		}
		if a.Date.After(b.Date) {
			return 1
		}
		return cmpString(a.ID, b.ID)
	})

	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) ListSalesDueOn(_ context.Context, day time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target := dateUTC(day)
	due := make([]domain.Sale, 0, 8)
	for _, sale := range s.sales {
		if sale.DueDate == nil {
			continue
		}
		if dateUTC(*sale.DueDate).Equal(target) {
			due = append(due, cloneSale(sale))
		}
	}

	slices.SortFunc(due, func(a, b domain.Sale) int {
		return cmpString(a.ID, b.ID)
	})
	return due, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, cloneCustomer(c))
	}

	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := cloneCustomer(customer)
	return &copyCustomer, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Name == "" {
		return nil, store.ErrValidation
	}
	if customer.DebtCents < 0 {
		return nil, store.ErrValidation
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	s.customers[customer.ID] = customer
	created := cloneCustomer(customer)
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" || customer.Name == "" || customer.DebtCents < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.customers[customer.ID]; !exists {
		return nil, store.ErrNotFound
	}

	s.customers[customer.ID] = customer
	updated := cloneCustomer(customer)
	return &updated, nil
}

func (s *Store) CreatePayment(_ context.Context, payment domain.Payment) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment.CustomerID == "" || payment.AmountCents < 1 {
		return nil, store.ErrValidation
	}

	customer, exists := s.customers[payment.CustomerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if customer.DebtCents-payment.AmountCents < 0 {
		return nil, store.ErrOverpayment
	}

	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.Date.IsZero() {
		payment.Date = time.Now().UTC()
	}

	customer.DebtCents -= payment.AmountCents
	paidAt := payment.Date
	customer.LastPaymentDate = &paidAt
	s.customers[customer.ID] = customer
	s.payments = append(s.payments, payment)

	created := payment
	return &created, nil
}

func (s *Store) ListPayments(_ context.Context, customerID string, limit int) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := make([]domain.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if customerID != "" && p.CustomerID != customerID {
			continue
		}
		payments = append(payments, p)
	}

	slices.SortFunc(payments, func(a, b domain.Payment) int {
		if a.Date.Before(b.Date) {
			return 1
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return cmpString(a.ID, b.ID)
	})

	if limit > 0 && len(payments) > limit {
		payments = payments[:limit]
	}
	return payments, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.Description == "" || expense.AmountCents < 1 {
		return nil, store.ErrValidation
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}

	s.expenses = append(s.expenses, expense)
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !e.Date.Before(to) {
			continue
		}
		expenses = append(expenses, e)
	}

	slices.SortFunc(expenses, func(a, b domain.Expense) int {
		if a.Date.Before(b.Date) {
			return -1
		}
		if a.Date.After(b.Date) {
			return 1
		}
		return cmpString(a.ID, b.ID)
	})

	if limit > 0 && len(expenses) > limit {
		expenses = expenses[:limit]
	}
	return expenses, nil
}

func (s *Store) CreateInventoryExpense(_ context.Context, expense domain.InventoryExpense) (*domain.InventoryExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.Description == "" || expense.AmountCents < 1 {
		return nil, store.ErrValidation
	}
	if expense.SupplierID != "" {
		if _, exists := s.suppliersByID[expense.SupplierID]; !exists {
			return nil, store.ErrNotFound
		}
	}
	if expense.ID == "" {
		expense.ID = xid.New("inv")
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}

	s.inventoryExpenses = append(s.inventoryExpenses, expense)
	created := expense
	return &created, nil
}

func (s *Store) ListInventoryExpenses(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.InventoryExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.InventoryExpense, 0, len(s.inventoryExpenses))
	for _, e := range s.inventoryExpenses {
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !e.Date.Before(to) {
			continue
		}
		expenses = append(expenses, e)
	}

	slices.SortFunc(expenses, func(a, b domain.InventoryExpense) int {
		if a.Date.Before(b.Date) {
			return -1
		}
		if a.Date.After(b.Date) {
			return 1
		}
		return cmpString(a.ID, b.ID)
	})

	if limit > 0 && len(expenses) > limit {
		expenses = expenses[:limit]
	}
	return expenses, nil
}

func (s *Store) CreateStaff(_ context.Context, staff domain.Staff) (*domain.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if staff.Name == "" {
		return nil, store.ErrValidation
	}
	if staff.ID == "" {
		staff.ID = xid.New("stf")
	}
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = time.Now().UTC()
	}
	staff.Active = true

	s.staffByID[staff.ID] = staff
	created := staff
	return &created, nil
}

func (s *Store) ListStaff(_ context.Context) ([]domain.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]domain.Staff, 0, len(s.staffByID))
	for _, m := range s.staffByID {
		members = append(members, m)
	}

	slices.SortFunc(members, func(a, b domain.Staff) int {
		return cmpString(a.Name, b.Name)
	})
	return members, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if supplier.Name == "" {
		return nil, store.ErrValidation
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}

	s.suppliersByID[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliersByID))
	for _, sup := range s.suppliersByID {
		suppliers = append(suppliers, sup)
	}

	slices.SortFunc(suppliers, func(a, b domain.Supplier) int {
		return cmpString(a.Name, b.Name)
	})
	return suppliers, nil
}

func (s *Store) ListPriceHistory(_ context.Context, productID string, limit int) ([]domain.PriceHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := slices.Clone(s.priceHistory[productID])
	slices.SortFunc(history, func(a, b domain.PriceHistory) int {
		if a.Date.Before(b.Date) {
			return 1
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return cmpString(a.ID, b.ID)
	})

	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (s *Store) LastPurchasePrice(_ context.Context, productID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.priceHistory[productID]
	if len(history) == 0 {
		return 0, store.ErrNotFound
	}

	newest := history[0]
	for _, entry := range history[1:] {
		if entry.Date.After(newest.Date) {
			newest = entry
		}
	}
	return newest.BuyPriceCents, nil
}

// ReplaceMarketPrices is a destructive reset of the reference feed. The old
// rows are dropped and the drop is logged.
func (s *Store) ReplaceMarketPrices(_ context.Context, rows []domain.MarketPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range rows {
		if rows[i].ItemName == "" {
			return store.ErrValidation
		}
		if rows[i].ID == "" {
			rows[i].ID = xid.New("mkt")
		}
		if rows[i].FetchedAt.IsZero() {
			rows[i].FetchedAt = time.Now().UTC()
		}
	}

	log.Printf("[memory-store] replacing market prices: dropping %d rows, inserting %d", len(s.marketPrices), len(rows))
	s.marketPrices = slices.Clone(rows)
	return nil
}

func (s *Store) ListMarketPrices(_ context.Context) ([]domain.MarketPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := slices.Clone(s.marketPrices)
	slices.SortFunc(rows, func(a, b domain.MarketPrice) int {
		return cmpString(a.ItemName, b.ItemName)
	})
	return rows, nil
}

func (s *Store) ExportBackup(ctx context.Context) (*domain.BackupDocument, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.ListSales(ctx, time.Time{}, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	expenses, err := s.ListExpenses(ctx, time.Time{}, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	customers, err := s.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	staff, err := s.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	invExpenses, err := s.ListInventoryExpenses(ctx, time.Time{}, time.Time{}, 0)
	if err != nil {
		return nil, err
	}

	return &domain.BackupDocument{
		ExportedAt:        time.Now().UTC(),
		Products:          products,
		Sales:             sales,
		Expenses:          expenses,
		Customers:         customers,
		Staff:             staff,
		InventoryExpenses: invExpenses,
	}, nil
}

func (s *Store) RestoreBackup(_ context.Context, doc domain.BackupDocument) error {
	if err := store.ValidateBackup(doc); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("[memory-store] restoring backup: %d products, %d sales, %d customers", len(doc.Products), len(doc.Sales), len(doc.Customers))

	s.products = make(map[string]domain.Product, len(doc.Products))
	for _, p := range doc.Products {
		s.products[p.ID] = p
	}
	s.sales = make(map[string]domain.Sale, len(doc.Sales))
	for _, sale := range doc.Sales {
		s.sales[sale.ID] = cloneSale(sale)
	}
	s.customers = make(map[string]domain.Customer, len(doc.Customers))
	for _, c := range doc.Customers {
		s.customers[c.ID] = cloneCustomer(c)
	}
	s.expenses = slices.Clone(doc.Expenses)
	s.inventoryExpenses = slices.Clone(doc.InventoryExpenses)
	s.staffByID = make(map[string]domain.Staff, len(doc.Staff))
	for _, m := range doc.Staff {
		s.staffByID[m.ID] = m
	}
	// Payments are not part of the document; old rows would reference debt
	// state that no longer exists, so the ledger starts fresh.
	s.payments = nil
	return nil
}

func (s *Store) GetMarker(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.markers[key]
	if !exists {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (s *Store) SetMarker(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		return store.ErrValidation
	}
	s.markers[key] = value
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || user.Password == "" || user.Role == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}

	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func dateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(src domain.Sale) domain.Sale {
	dup := src
	if src.DueDate != nil {
		due := src.DueDate.UTC()
		dup.DueDate = &due
	}
	return dup
}

func cloneCustomer(src domain.Customer) domain.Customer {
	dup := src
	if src.LastPaymentDate != nil {
		paid := src.LastPaymentDate.UTC()
		dup.LastPaymentDate = &paid
	}
	return dup
}
