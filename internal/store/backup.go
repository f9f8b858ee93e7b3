package store

import (
	"fmt"

	"dokankhata/backend/internal/domain"
)

// ValidateBackup checks a backup document before any collection is cleared.
// A document that fails here must leave the store untouched.
func ValidateBackup(doc domain.BackupDocument) error {
	for i, p := range doc.Products {
		if p.ID == "" || p.Name == "" {
			return fmt.Errorf("%w: products[%d] missing id or name", ErrValidation, i)
		}
		if p.Stock < 0 {
			return fmt.Errorf("%w: products[%d] negative stock", ErrValidation, i)
		}
	}
	for i, s := range doc.Sales {
		if s.ID == "" || s.ProductID == "" {
			return fmt.Errorf("%w: sales[%d] missing id or product", ErrValidation, i)
		}
		if s.Quantity < 1 {
			return fmt.Errorf("%w: sales[%d] non-positive quantity", ErrValidation, i)
		}
	}
	for i, c := range doc.Customers {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("%w: customers[%d] missing id or name", ErrValidation, i)
		}
		if c.DebtCents < 0 {
			return fmt.Errorf("%w: customers[%d] negative debt", ErrValidation, i)
		}
	}
	for i, e := range doc.Expenses {
		if e.ID == "" {
			return fmt.Errorf("%w: expenses[%d] missing id", ErrValidation, i)
		}
	}
	for i, m := range doc.Staff {
		if m.ID == "" || m.Name == "" {
			return fmt.Errorf("%w: staff[%d] missing id or name", ErrValidation, i)
		}
	}
	for i, e := range doc.InventoryExpenses {
		if e.ID == "" {
			return fmt.Errorf("%w: inventory_expenses[%d] missing id", ErrValidation, i)
		}
	}
	return nil
}
