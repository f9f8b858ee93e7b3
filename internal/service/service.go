package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dokankhata/backend/internal/domain"
	"dokankhata/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ChangeListener is told after every committed write so derived views can
// recompute.
type ChangeListener interface {
	StoreChanged(ctx context.Context)
}

type Service struct {
	repo     store.Repository
	listener ChangeListener
}

func New(repo store.Repository, listener ChangeListener) *Service {
	return &Service{
		repo:     repo,
		listener: listener,
	}
}

func (s *Service) notifyChanged(ctx context.Context) {
	if s.listener != nil {
		s.listener.StoreChanged(ctx)
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrValidation
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "owner" {
		return domain.Product{}, fmt.Errorf("owner role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Unit = strings.TrimSpace(req.Unit)

	if req.Name == "" {
		return domain.Product{}, store.ErrValidation
	}
	if req.BuyPriceCents < 1 || req.SellPriceCents < 1 || req.Stock < 0 {
		return domain.Product{}, store.ErrValidation
	}

	product := domain.Product{
		Name:           req.Name,
		Category:       req.Category,
		Unit:           req.Unit,
		BuyPriceCents:  req.BuyPriceCents,
		SellPriceCents: req.SellPriceCents,
		Stock:          req.Stock,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.notifyChanged(ctx)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "owner" {
		return domain.Product{}, fmt.Errorf("owner role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrValidation
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Unit != nil {
		updated.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.BuyPriceCents != nil {
		if *req.BuyPriceCents < 1 {
			return domain.Product{}, store.ErrValidation
		}
		updated.BuyPriceCents = *req.BuyPriceCents
	}
	if req.SellPriceCents != nil {
		if *req.SellPriceCents < 1 {
			return domain.Product{}, store.ErrValidation
		}
		updated.SellPriceCents = *req.SellPriceCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, store.ErrValidation
		}
		updated.Stock = *req.Stock
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.notifyChanged(ctx)
	return *saved, nil
}

// DeleteProduct removes the product row only. Historical sales keep their
// denormalized copies and are not cascaded.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "owner" {
		return fmt.Errorf("owner role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrValidation
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.notifyChanged(ctx)
	return nil
}

func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.StaffID = strings.TrimSpace(req.StaffID)

	if req.ProductID == "" || req.Quantity < 1 {
		return domain.Sale{}, store.ErrValidation
	}

	sale := domain.Sale{
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		CustomerID: req.CustomerID,
		StaffID:    req.StaffID,
		Date:       time.Now().UTC(),
	}
	if req.DueDate != "" {
		due, err := time.ParseInLocation("2006-01-02", req.DueDate, time.UTC)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("%w: due_date must be YYYY-MM-DD", store.ErrValidation)
		}
		sale.DueDate = &due
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.notifyChanged(ctx)
	return *created, nil
}

// ReverseSale deletes the sale and puts the quantity back in stock. Debt and
// price history stay as recorded.
func (s *Service) ReverseSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, store.ErrValidation
	}

	removed, err := s.repo.DeleteSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}

	s.notifyChanged(ctx)
	return *removed, nil
}

func (s *Service) ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, from, to, limit)
}

func (s *Service) RecordPayment(ctx context.Context, req domain.PaymentCreateRequest) (domain.Payment, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if req.CustomerID == "" || req.AmountCents < 1 {
		return domain.Payment{}, store.ErrValidation
	}

	payment := domain.Payment{
		CustomerID:  req.CustomerID,
		AmountCents: req.AmountCents,
		Date:        time.Now().UTC(),
	}

	created, err := s.repo.CreatePayment(ctx, payment)
	if err != nil {
		return domain.Payment{}, err
	}

	s.notifyChanged(ctx)
	return *created, nil
}

func (s *Service) ListPayments(ctx context.Context, customerID string, limit int) ([]domain.Payment, error) {
	return s.repo.ListPayments(ctx, strings.TrimSpace(customerID), limit)
}

func (s *Service) AddExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	if req.Description == "" || req.AmountCents < 1 {
		return domain.Expense{}, store.ErrValidation
	}

	expense := domain.Expense{
		Description: req.Description,
		Category:    req.Category,
		AmountCents: req.AmountCents,
		Date:        time.Now().UTC(),
	}

	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return domain.Expense{}, err
	}

	s.notifyChanged(ctx)
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx, from, to, limit)
}

func (s *Service) AddInventoryExpense(ctx context.Context, req domain.InventoryExpenseCreateRequest) (domain.InventoryExpense, error) {
	req.Description = strings.TrimSpace(req.Description)
	req.SupplierID = strings.TrimSpace(req.SupplierID)
	if req.Description == "" || req.AmountCents < 1 {
		return domain.InventoryExpense{}, store.ErrValidation
	}

	expense := domain.InventoryExpense{
		Description: req.Description,
		SupplierID:  req.SupplierID,
		AmountCents: req.AmountCents,
		Date:        time.Now().UTC(),
	}

	created, err := s.repo.CreateInventoryExpense(ctx, expense)
	if err != nil {
		return domain.InventoryExpense{}, err
	}

	s.notifyChanged(ctx)
	return *created, nil
}

func (s *Service) ListInventoryExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.InventoryExpense, error) {
	return s.repo.ListInventoryExpenses(ctx, from, to, limit)
}

func (s *Service) AddCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrValidation
	}

	customer := domain.Customer{
		Name:    req.Name,
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.notifyChanged(ctx)
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, store.ErrValidation
	}

	existing, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}

	s.notifyChanged(ctx)
	return *saved, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, store.ErrValidation
	}
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) AddStaff(ctx context.Context, req domain.StaffCreateRequest) (domain.Staff, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "owner" {
		return domain.Staff{}, fmt.Errorf("owner role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Staff{}, store.ErrValidation
	}
	if req.SalaryCents < 0 {
		return domain.Staff{}, store.ErrValidation
	}

	member := domain.Staff{
		Name:        req.Name,
		Phone:       strings.TrimSpace(req.Phone),
		Role:        strings.TrimSpace(req.Role),
		SalaryCents: req.SalaryCents,
	}

	created, err := s.repo.CreateStaff(ctx, member)
	if err != nil {
		return domain.Staff{}, err
	}

	s.notifyChanged(ctx)
	return *created, nil
}

func (s *Service) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	return s.repo.ListStaff(ctx)
}

func (s *Service) AddSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Supplier{}, store.ErrValidation
	}

	supplier := domain.Supplier{
		Name:    req.Name,
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	}

	created, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}

	s.notifyChanged(ctx)
	return *created, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) ListPriceHistory(ctx context.Context, productID string, limit int) ([]domain.PriceHistory, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, store.ErrValidation
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListPriceHistory(ctx, productID, limit)
}

func (s *Service) LastPurchasePrice(ctx context.Context, productID string) (int64, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return 0, store.ErrValidation
	}
	return s.repo.LastPurchasePrice(ctx, productID)
}

func (s *Service) ReplaceMarketPrices(ctx context.Context, rows []domain.MarketPrice) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "owner" {
		return fmt.Errorf("owner role required")
	}
	if err := s.repo.ReplaceMarketPrices(ctx, rows); err != nil {
		return err
	}

	s.notifyChanged(ctx)
	return nil
}

func (s *Service) ListMarketPrices(ctx context.Context) ([]domain.MarketPrice, error) {
	return s.repo.ListMarketPrices(ctx)
}

func (s *Service) ExportBackup(ctx context.Context) (domain.BackupDocument, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "owner" {
		return domain.BackupDocument{}, fmt.Errorf("owner role required")
	}

	doc, err := s.repo.ExportBackup(ctx)
	if err != nil {
		return domain.BackupDocument{}, err
	}
	return *doc, nil
}

func (s *Service) RestoreBackup(ctx context.Context, doc domain.BackupDocument) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "owner" {
		return fmt.Errorf("owner role required")
	}

	if err := s.repo.RestoreBackup(ctx, doc); err != nil {
		return err
	}

	s.notifyChanged(ctx)
	return nil
}
