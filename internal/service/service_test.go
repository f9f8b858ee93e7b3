package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dokankhata/backend/internal/domain"
	"dokankhata/backend/internal/store"
	"dokankhata/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.New(), nil)
}

func ownerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "owner", Role: "owner"})
}

func staffCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "rahim", Role: "staff"})
}

func allSales(t *testing.T, svc *Service) []domain.Sale {
	t.Helper()
	sales, err := svc.ListSales(context.Background(), time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	return sales
}

func mustCreateProduct(t *testing.T, svc *Service, name string, buy, sell int64, stock int) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(ownerCtx(), domain.ProductCreateRequest{
		Name:           name,
		Category:       "grocery",
		Unit:           "kg",
		BuyPriceCents:  buy,
		SellPriceCents: sell,
		Stock:          stock,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func mustAddCustomer(t *testing.T, svc *Service, name string) domain.Customer {
	t.Helper()
	customer, err := svc.AddCustomer(context.Background(), domain.CustomerCreateRequest{Name: name})
	if err != nil {
		t.Fatalf("add customer: %v", err)
	}
	return customer
}

func TestRecordSaleComputesTotalsAndDecrementsStock(t *testing.T) {
	svc := newTestService()
	product := mustCreateProduct(t, svc, "Rice", 5000, 7000, 20)

	sale, err := svc.RecordSale(staffCtx(), domain.SaleCreateRequest{
		ProductID: product.ID,
		Quantity:  3,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if sale.TotalCents != 21000 {
		t.Fatalf("total = %d, want 21000", sale.TotalCents)
	}
	if sale.ProfitCents != 6000 {
		t.Fatalf("profit = %d, want 6000", sale.ProfitCents)
	}
	if sale.ProductName != "Rice" || sale.BuyPriceCents != 5000 || sale.SellPriceCents != 7000 {
		t.Fatalf("sale did not snapshot product fields: %+v", sale)
	}

	got, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 17 {
		t.Fatalf("stock = %d, want 17", got.Stock)
	}

	history, err := svc.ListPriceHistory(context.Background(), product.ID, 10)
	if err != nil {
		t.Fatalf("list price history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("price history rows = %d, want 1", len(history))
	}
}

func TestRecordSaleInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	svc := newTestService()
	product := mustCreateProduct(t, svc, "Lentils", 9000, 12000, 2)
	customer := mustAddCustomer(t, svc, "Karim")

	_, err := svc.RecordSale(staffCtx(), domain.SaleCreateRequest{
		ProductID:  product.ID,
		Quantity:   5,
		CustomerID: customer.ID,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	got, _ := svc.GetProduct(context.Background(), product.ID)
	if got.Stock != 2 {
		t.Fatalf("stock changed on failed sale: %d", got.Stock)
	}
	if sales := allSales(t, svc); len(sales) != 0 {
		t.Fatalf("sale was inserted despite stock failure")
	}
	gotCustomer, _ := svc.GetCustomer(context.Background(), customer.ID)
	if gotCustomer.DebtCents != 0 {
		t.Fatalf("debt changed on failed sale: %d", gotCustomer.DebtCents)
	}
	history, _ := svc.ListPriceHistory(context.Background(), product.ID, 10)
	if len(history) != 0 {
		t.Fatalf("price history written on failed sale")
	}
}

func TestRecordSaleSnapshotsAreImmuneToProductEdits(t *testing.T) {
	svc := newTestService()
	product := mustCreateProduct(t, svc, "Oil", 15000, 18000, 10)

	sale, err := svc.RecordSale(staffCtx(), domain.SaleCreateRequest{ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	newSell := int64(25000)
	if _, err := svc.UpdateProduct(ownerCtx(), product.ID, domain.ProductUpdateRequest{SellPriceCents: &newSell}); err != nil {
		t.Fatalf("update product: %v", err)
	}

	after := allSales(t, svc)
	if len(after) != 1 || after[0].ID != sale.ID {
		t.Fatalf("unexpected sales list: %+v", after)
	}
	if after[0].SellPriceCents != 18000 || after[0].ProfitCents != 3000 {
		t.Fatalf("sale snapshot drifted after price edit: %+v", after[0])
	}
}

func TestCreditSaleDebtAndPaymentFlow(t *testing.T) {
	svc := newTestService()
	product := mustCreateProduct(t, svc, "Sugar", 4000, 6000, 50)
	customer := mustAddCustomer(t, svc, "Fatema")

	sale, err := svc.RecordSale(staffCtx(), domain.SaleCreateRequest{
		ProductID:  product.ID,
		Quantity:   2,
		CustomerID: customer.ID,
		DueDate:    "2026-09-15",
	})
	if err != nil {
		t.Fatalf("record credit sale: %v", err)
	}
	if sale.DueDate == nil || sale.DueDate.Format("2006-01-02") != "2026-09-15" {
		t.Fatalf("due date not recorded: %+v", sale.DueDate)
	}

	got, _ := svc.GetCustomer(context.Background(), customer.ID)
	if got.DebtCents != 12000 {
		t.Fatalf("debt = %d, want 12000", got.DebtCents)
	}

	if _, err := svc.RecordPayment(staffCtx(), domain.PaymentCreateRequest{
		CustomerID:  customer.ID,
		AmountCents: 9000,
	}); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	got, _ = svc.GetCustomer(context.Background(), customer.ID)
	if got.DebtCents != 3000 {
		t.Fatalf("debt after payment = %d, want 3000", got.DebtCents)
	}
	if got.LastPaymentDate == nil {
		t.Fatalf("last payment date was not set")
	}

	_, err = svc.RecordPayment(staffCtx(), domain.PaymentCreateRequest{
		CustomerID:  customer.ID,
		AmountCents: 5000,
	})
	if !errors.Is(err, store.ErrOverpayment) {
		t.Fatalf("err = %v, want ErrOverpayment", err)
	}
	got, _ = svc.GetCustomer(context.Background(), customer.ID)
	if got.DebtCents != 3000 {
		t.Fatalf("debt changed on rejected overpayment: %d", got.DebtCents)
	}
}

func TestRecordSaleRejectsBadDueDate(t *testing.T) {
	svc := newTestService()
	product := mustCreateProduct(t, svc, "Salt", 1000, 1500, 10)

	_, err := svc.RecordSale(staffCtx(), domain.SaleCreateRequest{
		ProductID: product.ID,
		Quantity:  1,
		DueDate:   "15-09-2026",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestReverseSaleRestocksProduct(t *testing.T) {
	svc := newTestService()
	product := mustCreateProduct(t, svc, "Flour", 3000, 4000, 30)

	sale, err := svc.RecordSale(staffCtx(), domain.SaleCreateRequest{ProductID: product.ID, Quantity: 4})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if _, err := svc.ReverseSale(staffCtx(), sale.ID); err != nil {
		t.Fatalf("reverse sale: %v", err)
	}

	got, _ := svc.GetProduct(context.Background(), product.ID)
	if got.Stock != 30 {
		t.Fatalf("stock after reversal = %d, want 30", got.Stock)
	}
	if sales := allSales(t, svc); len(sales) != 0 {
		t.Fatalf("sale still listed after reversal")
	}
}

func TestReverseSaleSkipsRestockWhenProductDeleted(t *testing.T) {
	svc := newTestService()
	product := mustCreateProduct(t, svc, "Tea", 20000, 26000, 12)
	customer := mustAddCustomer(t, svc, "Jashim")

	sale, err := svc.RecordSale(staffCtx(), domain.SaleCreateRequest{
		ProductID:  product.ID,
		Quantity:   2,
		CustomerID: customer.ID,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if err := svc.DeleteProduct(ownerCtx(), product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	if _, err := svc.ReverseSale(staffCtx(), sale.ID); err != nil {
		t.Fatalf("reverse sale after product delete: %v", err)
	}

	if _, err := svc.GetProduct(context.Background(), product.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("product resurrected by reversal: %v", err)
	}

	// Debt and price history are deliberately not unwound.
	got, _ := svc.GetCustomer(context.Background(), customer.ID)
	if got.DebtCents != 52000 {
		t.Fatalf("debt unexpectedly changed by reversal: %d", got.DebtCents)
	}
	history, _ := svc.ListPriceHistory(context.Background(), product.ID, 10)
	if len(history) != 1 {
		t.Fatalf("price history rows = %d, want 1", len(history))
	}
}

func TestLastPurchasePriceWithoutHistory(t *testing.T) {
	svc := newTestService()
	product := mustCreateProduct(t, svc, "Eggs", 1100, 1300, 60)

	_, err := svc.LastPurchasePrice(context.Background(), product.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if _, err := svc.RecordSale(staffCtx(), domain.SaleCreateRequest{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	price, err := svc.LastPurchasePrice(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("last purchase price: %v", err)
	}
	if price != 1100 {
		t.Fatalf("price = %d, want 1100", price)
	}
}

func TestOwnerGateOnProductWrites(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(staffCtx(), domain.ProductCreateRequest{
		Name: "Soap", BuyPriceCents: 2000, SellPriceCents: 2500, Stock: 5,
	})
	if err == nil {
		t.Fatalf("expected staff product creation to be rejected")
	}

	if err := svc.DeleteProduct(context.Background(), "prd_whatever"); err == nil {
		t.Fatalf("expected anonymous product deletion to be rejected")
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	svc := newTestService()
	product := mustCreateProduct(t, svc, "Onion", 3500, 4500, 40)
	customer := mustAddCustomer(t, svc, "Shafiq")
	if _, err := svc.RecordSale(staffCtx(), domain.SaleCreateRequest{
		ProductID:  product.ID,
		Quantity:   3,
		CustomerID: customer.ID,
	}); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if _, err := svc.AddExpense(staffCtx(), domain.ExpenseCreateRequest{
		Description: "electricity", AmountCents: 80000,
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	doc, err := svc.ExportBackup(ownerCtx())
	if err != nil {
		t.Fatalf("export backup: %v", err)
	}
	if len(doc.Products) != 1 || len(doc.Sales) != 1 || len(doc.Customers) != 1 || len(doc.Expenses) != 1 {
		t.Fatalf("unexpected backup shape: %+v", doc)
	}

	fresh := newTestService()
	if err := fresh.RestoreBackup(ownerCtx(), doc); err != nil {
		t.Fatalf("restore backup: %v", err)
	}

	restored, err := fresh.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("restored product missing: %v", err)
	}
	if restored.Stock != 37 {
		t.Fatalf("restored stock = %d, want 37", restored.Stock)
	}
	restoredCustomer, err := fresh.GetCustomer(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("restored customer missing: %v", err)
	}
	if restoredCustomer.DebtCents != 13500 {
		t.Fatalf("restored debt = %d, want 13500", restoredCustomer.DebtCents)
	}
}

func TestRestoreRejectsInvalidDocumentWithoutClearing(t *testing.T) {
	svc := newTestService()
	product := mustCreateProduct(t, svc, "Potato", 2500, 3200, 25)

	bad := domain.BackupDocument{
		Products: []domain.Product{{ID: "prd_bad", Name: "Ghost", Stock: -4}},
	}
	err := svc.RestoreBackup(ownerCtx(), bad)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	got, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("existing data lost on rejected restore: %v", err)
	}
	if got.Stock != 25 {
		t.Fatalf("stock = %d, want 25", got.Stock)
	}
}
