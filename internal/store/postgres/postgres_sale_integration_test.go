package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"dokankhata/backend/internal/domain"
	"dokankhata/backend/internal/store"
)

func TestSaleTransactionAndReversal(t *testing.T) {
	databaseURL := os.Getenv("DOKANKHATA_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set DOKANKHATA_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prd_it_%d", stamp)
	customerID := fmt.Sprintf("cus_it_%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM price_history WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	now := time.Now().UTC()
	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:             productID,
		Name:           "IT Rice 5kg",
		Category:       "grocery",
		Unit:           "bag",
		BuyPriceCents:  34000,
		SellPriceCents: 38500,
		Stock:          10,
		CreatedAt:      now,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := s.CreateCustomer(ctx, domain.Customer{
		ID:        customerID,
		Name:      "IT Customer",
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("create customer: %v", err)
	}

	sale, err := s.CreateSale(ctx, domain.Sale{
		ProductID:  productID,
		Quantity:   2,
		CustomerID: customerID,
		Date:       now,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.TotalCents != 77000 || sale.ProfitCents != 9000 {
		t.Fatalf("sale totals wrong: %+v", sale)
	}

	product, err := s.GetProductByID(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 8 {
		t.Fatalf("stock after sale = %d, want 8", product.Stock)
	}

	customer, err := s.GetCustomerByID(ctx, customerID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.DebtCents != 77000 {
		t.Fatalf("debt after credit sale = %d, want 77000", customer.DebtCents)
	}

	history, err := s.ListPriceHistory(ctx, productID, 10)
	if err != nil {
		t.Fatalf("list price history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("price history rows = %d, want 1", len(history))
	}

	// Overselling the remaining stock must roll back completely.
	if _, err := s.CreateSale(ctx, domain.Sale{
		ProductID: productID,
		Quantity:  99,
		Date:      now,
	}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("oversell err = %v, want ErrInsufficientStock", err)
	}
	product, _ = s.GetProductByID(ctx, productID)
	if product.Stock != 8 {
		t.Fatalf("stock changed by failed sale: %d", product.Stock)
	}

	removed, err := s.DeleteSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("delete sale: %v", err)
	}
	if removed.ID != sale.ID {
		t.Fatalf("removed wrong sale: %+v", removed)
	}

	product, _ = s.GetProductByID(ctx, productID)
	if product.Stock != 10 {
		t.Fatalf("stock after reversal = %d, want 10", product.Stock)
	}

	// Debt and price history survive the reversal.
	customer, _ = s.GetCustomerByID(ctx, customerID)
	if customer.DebtCents != 77000 {
		t.Fatalf("debt changed by reversal: %d", customer.DebtCents)
	}
	history, _ = s.ListPriceHistory(ctx, productID, 10)
	if len(history) != 1 {
		t.Fatalf("price history changed by reversal: %d rows", len(history))
	}
}
