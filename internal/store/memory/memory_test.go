package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"dokankhata/backend/internal/domain"
	"dokankhata/backend/internal/store"
)

func mustProduct(t *testing.T, s *Store, name string, stock int) domain.Product {
	t.Helper()
	created, err := s.CreateProduct(context.Background(), domain.Product{
		Name:           name,
		BuyPriceCents:  2000,
		SellPriceCents: 2600,
		Stock:          stock,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return *created
}

func TestMarkersRoundTrip(t *testing.T) {
	s := New()

	if _, err := s.GetMarker(context.Background(), "daily_report_last_date"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing marker err = %v, want ErrNotFound", err)
	}

	if err := s.SetMarker(context.Background(), "daily_report_last_date", "2026-08-30"); err != nil {
		t.Fatalf("set marker: %v", err)
	}
	value, err := s.GetMarker(context.Background(), "daily_report_last_date")
	if err != nil {
		t.Fatalf("get marker: %v", err)
	}
	if value != "2026-08-30" {
		t.Fatalf("marker = %q", value)
	}

	if err := s.SetMarker(context.Background(), "daily_report_last_date", "2026-08-31"); err != nil {
		t.Fatalf("overwrite marker: %v", err)
	}
	value, _ = s.GetMarker(context.Background(), "daily_report_last_date")
	if value != "2026-08-31" {
		t.Fatalf("marker after overwrite = %q", value)
	}
}

func TestListSalesDueOnMatchesCalendarDay(t *testing.T) {
	s := New()
	product := mustProduct(t, s, "Rice", 50)
	customer, err := s.CreateCustomer(context.Background(), domain.Customer{Name: "Karim"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	morning := time.Date(2026, 9, 5, 8, 30, 0, 0, time.UTC)
	nextDay := morning.AddDate(0, 0, 1)
	for _, due := range []time.Time{morning, nextDay} {
		d := due
		if _, err := s.CreateSale(context.Background(), domain.Sale{
			ProductID:  product.ID,
			Quantity:   1,
			CustomerID: customer.ID,
			DueDate:    &d,
		}); err != nil {
			t.Fatalf("create sale: %v", err)
		}
	}
	// cash sale without a due date never shows up
	if _, err := s.CreateSale(context.Background(), domain.Sale{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("create cash sale: %v", err)
	}

	evening := time.Date(2026, 9, 5, 22, 0, 0, 0, time.UTC)
	due, err := s.ListSalesDueOn(context.Background(), evening)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due sales = %d, want 1", len(due))
	}
	if due[0].DueDate == nil || !due[0].DueDate.Equal(morning) {
		t.Fatalf("wrong sale matched: %+v", due[0])
	}
}

func TestExportBackupCoversAllCollections(t *testing.T) {
	s := New()
	product := mustProduct(t, s, "Sugar", 30)
	customer, _ := s.CreateCustomer(context.Background(), domain.Customer{Name: "Fatema"})
	if _, err := s.CreateSale(context.Background(), domain.Sale{
		ProductID:  product.ID,
		Quantity:   2,
		CustomerID: customer.ID,
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := s.CreateExpense(context.Background(), domain.Expense{Description: "rent", AmountCents: 500000}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if _, err := s.CreateInventoryExpense(context.Background(), domain.InventoryExpense{Description: "restock", AmountCents: 120000}); err != nil {
		t.Fatalf("create inventory expense: %v", err)
	}
	if _, err := s.CreateStaff(context.Background(), domain.Staff{Name: "Rahim"}); err != nil {
		t.Fatalf("create staff: %v", err)
	}

	doc, err := s.ExportBackup(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.ExportedAt.IsZero() {
		t.Fatalf("exported_at not set")
	}
	if len(doc.Products) != 1 || len(doc.Sales) != 1 || len(doc.Customers) != 1 ||
		len(doc.Expenses) != 1 || len(doc.InventoryExpenses) != 1 || len(doc.Staff) != 1 {
		t.Fatalf("backup incomplete: %+v", doc)
	}
	if doc.Customers[0].DebtCents != 5200 {
		t.Fatalf("exported debt = %d, want 5200", doc.Customers[0].DebtCents)
	}
}

func TestRestoreBackupRejectsNegativeStock(t *testing.T) {
	s := New()
	mustProduct(t, s, "Salt", 10)

	err := s.RestoreBackup(context.Background(), domain.BackupDocument{
		Products: []domain.Product{{ID: "prd_x", Name: "Bad", Stock: -1}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	products, _ := s.ListProducts(context.Background())
	if len(products) != 1 {
		t.Fatalf("existing products cleared by rejected restore")
	}
}

func TestRestoreBackupClearsPaymentLedger(t *testing.T) {
	s := New()

	customer, err := s.CreateCustomer(context.Background(), domain.Customer{Name: "Karim", DebtCents: 4000})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if _, err := s.CreatePayment(context.Background(), domain.Payment{CustomerID: customer.ID, AmountCents: 1500}); err != nil {
		t.Fatalf("create payment: %v", err)
	}

	if err := s.RestoreBackup(context.Background(), domain.BackupDocument{
		Customers: []domain.Customer{{ID: customer.ID, Name: "Karim", DebtCents: 2500}},
	}); err != nil {
		t.Fatalf("restore: %v", err)
	}

	payments, err := s.ListPayments(context.Background(), customer.ID, 0)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 0 {
		t.Fatalf("payments after restore = %d, want 0", len(payments))
	}
}

func TestReplaceMarketPricesDropsOldRows(t *testing.T) {
	s := New()

	if err := s.ReplaceMarketPrices(context.Background(), []domain.MarketPrice{
		{ItemName: "Onion", PriceCents: 4800, Unit: "kg", Market: "Karwan Bazar"},
		{ItemName: "Potato", PriceCents: 3200, Unit: "kg", Market: "Karwan Bazar"},
	}); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	if err := s.ReplaceMarketPrices(context.Background(), []domain.MarketPrice{
		{ItemName: "Onion", PriceCents: 5100, Unit: "kg", Market: "Karwan Bazar"},
	}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	prices, err := s.ListMarketPrices(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("prices = %d, want 1", len(prices))
	}
	if prices[0].ID == "" || prices[0].FetchedAt.IsZero() {
		t.Fatalf("replace did not fill defaults: %+v", prices[0])
	}
	if prices[0].PriceCents != 5100 {
		t.Fatalf("price = %d, want 5100", prices[0].PriceCents)
	}
}

func TestCreatePaymentOverpaymentAndLastPaymentDate(t *testing.T) {
	s := New()
	customer, err := s.CreateCustomer(context.Background(), domain.Customer{Name: "Jashim", DebtCents: 4000})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	if _, err := s.CreatePayment(context.Background(), domain.Payment{
		CustomerID:  customer.ID,
		AmountCents: 4000,
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	got, _ := s.GetCustomerByID(context.Background(), customer.ID)
	if got.DebtCents != 0 {
		t.Fatalf("debt = %d, want 0", got.DebtCents)
	}
	if got.LastPaymentDate == nil {
		t.Fatalf("last payment date not set")
	}

	_, err = s.CreatePayment(context.Background(), domain.Payment{
		CustomerID:  customer.ID,
		AmountCents: 100,
	})
	if !errors.Is(err, store.ErrOverpayment) {
		t.Fatalf("err = %v, want ErrOverpayment", err)
	}
}

func TestSeededUsersExist(t *testing.T) {
	s := New()

	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	roles := map[string]string{}
	for _, u := range users {
		roles[u.Username] = u.Role
	}
	if roles["owner"] != "owner" || roles["staff"] != "staff" {
		t.Fatalf("seed accounts missing: %v", roles)
	}
}
