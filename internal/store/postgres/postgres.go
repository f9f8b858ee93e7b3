package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"dokankhata/backend/internal/domain"
	"dokankhata/backend/internal/store"
	"dokankhata/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, unit, buy_price_cents, sell_price_cents, stock, created_at, updated_at
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.BuyPriceCents, &p.SellPriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, unit, buy_price_cents, sell_price_cents, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.BuyPriceCents, &p.SellPriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.BuyPriceCents < 1 || product.SellPriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.UpdatedAt = product.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, unit, buy_price_cents, sell_price_cents, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, product.ID, product.Name, product.Category, product.Unit, product.BuyPriceCents, product.SellPriceCents, product.Stock, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.BuyPriceCents < 1 || product.SellPriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrValidation
	}

	product.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, unit = $4, buy_price_cents = $5, sell_price_cents = $6, stock = $7, updated_at = $8
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.Unit, product.BuyPriceCents, product.SellPriceCents, product.Stock, product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ProductID == "" || sale.Quantity < 1 {
		return nil, store.ErrValidation
	}
	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var product domain.Product
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, buy_price_cents, sell_price_cents, stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, sale.ProductID).Scan(&product.ID, &product.Name, &product.BuyPriceCents, &product.SellPriceCents, &product.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if product.Stock < sale.Quantity {
		return nil, store.ErrInsufficientStock
	}

	sale.ProductName = product.Name
	sale.BuyPriceCents = product.BuyPriceCents
	sale.SellPriceCents = product.SellPriceCents
	sale.TotalCents = product.SellPriceCents * int64(sale.Quantity)
	sale.ProfitCents = (product.SellPriceCents - product.BuyPriceCents) * int64(sale.Quantity)

	if sale.CustomerID != "" {
		var debt int64
		err = tx.QueryRowContext(ctx, `
			SELECT debt_cents
			FROM customers
			WHERE id = $1
			FOR UPDATE
		`, sale.CustomerID).Scan(&debt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE customers SET debt_cents = debt_cents + $2 WHERE id = $1
		`, sale.CustomerID, sale.TotalCents)
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = $3 WHERE id = $1
	`, sale.ProductID, sale.Quantity, sale.Date)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, product_id, product_name, buy_price_cents, sell_price_cents,
			quantity, total_cents, profit_cents, customer_id, staff_id, due_date, date
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, sale.ID, sale.ProductID, sale.ProductName, sale.BuyPriceCents, sale.SellPriceCents,
		sale.Quantity, sale.TotalCents, sale.ProfitCents, nullIfEmpty(sale.CustomerID), nullIfEmpty(sale.StaffID), nullDate(sale.DueDate), sale.Date)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO price_history (id, product_id, buy_price_cents, sell_price_cents, date)
		VALUES ($1,$2,$3,$4,$5)
	`, xid.New("ph"), sale.ProductID, product.BuyPriceCents, product.SellPriceCents, sale.Date)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := sale
	return &created, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale, err := scanSale(tx.QueryRowContext(ctx, `
		SELECT id, product_id, product_name, buy_price_cents, sell_price_cents,
			quantity, total_cents, profit_cents, customer_id, staff_id, due_date, date
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	// Restock only when the product row is still there.
	_, err = tx.ExecContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1
	`, sale.ProductID, sale.Quantity)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT id, product_id, product_name, buy_price_cents, sell_price_cents,
			quantity, total_cents, profit_cents, customer_id, staff_id, due_date, date
		FROM sales
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 1_000_000
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, buy_price_cents, sell_price_cents,
			quantity, total_cents, profit_cents, customer_id, staff_id, due_date, date
		FROM sales
		WHERE date >= $1 AND date < $2
		ORDER BY date ASC, id ASC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSaleRows(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) ListSalesDueOn(ctx context.Context, day time.Time) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, buy_price_cents, sell_price_cents,
			quantity, total_cents, profit_cents, customer_id, staff_id, due_date, date
		FROM sales
		WHERE due_date = $1
		ORDER BY id ASC
	`, dateUTC(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 16)
	for rows.Next() {
		sale, err := scanSaleRows(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, address, debt_cents, last_payment_date, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		var lastPayment sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.DebtCents, &lastPayment, &c.CreatedAt); err != nil {
			return nil, err
		}
		if lastPayment.Valid {
			paid := lastPayment.Time.UTC()
			c.LastPaymentDate = &paid
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	var lastPayment sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, address, debt_cents, last_payment_date, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.DebtCents, &lastPayment, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if lastPayment.Valid {
		paid := lastPayment.Time.UTC()
		c.LastPaymentDate = &paid
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" || customer.DebtCents < 0 {
		return nil, store.ErrValidation
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, address, debt_cents, last_payment_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, customer.ID, customer.Name, customer.Phone, customer.Address, customer.DebtCents, nullDate(customer.LastPaymentDate), customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.Name == "" || customer.DebtCents < 0 {
		return nil, store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, address = $4, debt_cents = $5, last_payment_date = $6
		WHERE id = $1
	`, customer.ID, customer.Name, customer.Phone, customer.Address, customer.DebtCents, nullDate(customer.LastPaymentDate))
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := customer
	return &updated, nil
}

func (s *Store) CreatePayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	if payment.CustomerID == "" || payment.AmountCents < 1 {
		return nil, store.ErrValidation
	}
	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.Date.IsZero() {
		payment.Date = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var debt int64
	err = tx.QueryRowContext(ctx, `
		SELECT debt_cents
		FROM customers
		WHERE id = $1
		FOR UPDATE
	`, payment.CustomerID).Scan(&debt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if debt-payment.AmountCents < 0 {
		return nil, store.ErrOverpayment
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE customers
		SET debt_cents = debt_cents - $2, last_payment_date = $3
		WHERE id = $1
	`, payment.CustomerID, payment.AmountCents, payment.Date)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, customer_id, amount_cents, date)
		VALUES ($1,$2,$3,$4)
	`, payment.ID, payment.CustomerID, payment.AmountCents, payment.Date)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := payment
	return &created, nil
}

func (s *Store) ListPayments(ctx context.Context, customerID string, limit int) ([]domain.Payment, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, amount_cents, date
		FROM payments
		WHERE ($1 = '' OR customer_id = $1)
		ORDER BY date DESC, id ASC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, limit)
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.AmountCents, &p.Date); err != nil {
			return nil, err
		}
		p.Date = p.Date.UTC()
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.Description == "" || expense.AmountCents < 1 {
		return nil, store.ErrValidation
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, description, category, amount_cents, date)
		VALUES ($1,$2,$3,$4,$5)
	`, expense.ID, expense.Description, expense.Category, expense.AmountCents, expense.Date)
	if err != nil {
		return nil, err
	}

	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	if limit < 1 {
		limit = 1_000_000
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, category, amount_cents, date
		FROM expenses
		WHERE date >= $1 AND date < $2
		ORDER BY date ASC, id ASC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Description, &e.Category, &e.AmountCents, &e.Date); err != nil {
			return nil, err
		}
		e.Date = e.Date.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) CreateInventoryExpense(ctx context.Context, expense domain.InventoryExpense) (*domain.InventoryExpense, error) {
	if expense.Description == "" || expense.AmountCents < 1 {
		return nil, store.ErrValidation
	}
	if expense.ID == "" {
		expense.ID = xid.New("inv")
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}

	if expense.SupplierID != "" {
		var exists bool
		err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, expense.SupplierID).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, store.ErrNotFound
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_expenses (id, description, supplier_id, amount_cents, date)
		VALUES ($1,$2,$3,$4,$5)
	`, expense.ID, expense.Description, nullIfEmpty(expense.SupplierID), expense.AmountCents, expense.Date)
	if err != nil {
		return nil, err
	}

	created := expense
	return &created, nil
}

func (s *Store) ListInventoryExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.InventoryExpense, error) {
	if limit < 1 {
		limit = 1_000_000
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, supplier_id, amount_cents, date
		FROM inventory_expenses
		WHERE date >= $1 AND date < $2
		ORDER BY date ASC, id ASC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.InventoryExpense, 0, 32)
	for rows.Next() {
		var e domain.InventoryExpense
		var supplierID sql.NullString
		if err := rows.Scan(&e.ID, &e.Description, &supplierID, &e.AmountCents, &e.Date); err != nil {
			return nil, err
		}
		e.SupplierID = supplierID.String
		e.Date = e.Date.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) CreateStaff(ctx context.Context, staff domain.Staff) (*domain.Staff, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (id, name, phone, role, salary_cents, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, staff.ID, staff.Name, staff.Phone, staff.Role, staff.SalaryCents, staff.Active, staff.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := staff
	return &created, nil
}

func (s *Store) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, role, salary_cents, active, created_at
		FROM staff
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.Staff, 0, 16)
	for rows.Next() {
		var m domain.Staff
		if err := rows.Scan(&m.ID, &m.Name, &m.Phone, &m.Role, &m.SalaryCents, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrValidation
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, phone, address, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, supplier.ID, supplier.Name, supplier.Phone, supplier.Address, supplier.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, address, created_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.Address, &sup.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *Store) ListPriceHistory(ctx context.Context, productID string, limit int) ([]domain.PriceHistory, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, buy_price_cents, sell_price_cents, date
		FROM price_history
		WHERE product_id = $1
		ORDER BY date DESC, id ASC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.PriceHistory, 0, limit)
	for rows.Next() {
		var entry domain.PriceHistory
		if err := rows.Scan(&entry.ID, &entry.ProductID, &entry.BuyPriceCents, &entry.SellPriceCents, &entry.Date); err != nil {
			return nil, err
		}
		entry.Date = entry.Date.UTC()
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Store) LastPurchasePrice(ctx context.Context, productID string) (int64, error) {
	var price int64
	err := s.db.QueryRowContext(ctx, `
		SELECT buy_price_cents
		FROM price_history
		WHERE product_id = $1
		ORDER BY date DESC
		LIMIT 1
	`, productID).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	return price, nil
}

func (s *Store) ReplaceMarketPrices(ctx context.Context, marketRows []domain.MarketPrice) error {
	for i := range marketRows {
		if marketRows[i].ItemName == "" {
			return store.ErrValidation
		}
		if marketRows[i].ID == "" {
			marketRows[i].ID = xid.New("mkt")
		}
		if marketRows[i].FetchedAt.IsZero() {
			marketRows[i].FetchedAt = time.Now().UTC()
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM market_prices`); err != nil {
		return err
	}
	for _, row := range marketRows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO market_prices (id, item_name, price_cents, unit, market, fetched_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, row.ID, row.ItemName, row.PriceCents, row.Unit, row.Market, row.FetchedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListMarketPrices(ctx context.Context) ([]domain.MarketPrice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_name, price_cents, unit, market, fetched_at
		FROM market_prices
		ORDER BY item_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make([]domain.MarketPrice, 0, 32)
	for rows.Next() {
		var row domain.MarketPrice
		if err := rows.Scan(&row.ID, &row.ItemName, &row.PriceCents, &row.Unit, &row.Market, &row.FetchedAt); err != nil {
			return nil, err
		}
		row.FetchedAt = row.FetchedAt.UTC()
		prices = append(prices, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prices, nil
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

func (s *Store) RestoreBackup(ctx context.Context, doc domain.BackupDocument) error {
	if err := store.ValidateBackup(doc); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"sales", "inventory_expenses", "expenses", "payments", "customers", "staff", "products"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}

	for _, p := range doc.Products {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, name, category, unit, buy_price_cents, sell_price_cents, stock, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, p.ID, p.Name, p.Category, p.Unit, p.BuyPriceCents, p.SellPriceCents, p.Stock, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return err
		}
	}
	for _, c := range doc.Customers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO customers (id, name, phone, address, debt_cents, last_payment_date, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, c.ID, c.Name, c.Phone, c.Address, c.DebtCents, nullDate(c.LastPaymentDate), c.CreatedAt)
		if err != nil {
			return err
		}
	}
	for _, sale := range doc.Sales {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sales (
				id, product_id, product_name, buy_price_cents, sell_price_cents,
				quantity, total_cents, profit_cents, customer_id, staff_id, due_date, date
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`, sale.ID, sale.ProductID, sale.ProductName, sale.BuyPriceCents, sale.SellPriceCents,
			sale.Quantity, sale.TotalCents, sale.ProfitCents, nullIfEmpty(sale.CustomerID), nullIfEmpty(sale.StaffID), nullDate(sale.DueDate), sale.Date)
		if err != nil {
			return err
		}
	}
	for _, e := range doc.Expenses {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expenses (id, description, category, amount_cents, date)
			VALUES ($1,$2,$3,$4,$5)
		`, e.ID, e.Description, e.Category, e.AmountCents, e.Date)
		if err != nil {
			return err
		}
	}
	for _, m := range doc.Staff {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO staff (id, name, phone, role, salary_cents, active, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, m.ID, m.Name, m.Phone, m.Role, m.SalaryCents, m.Active, m.CreatedAt)
		if err != nil {
			return err
		}
	}
	for _, e := range doc.InventoryExpenses {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_expenses (id, description, supplier_id, amount_cents, date)
			VALUES ($1,$2,$3,$4,$5)
		`, e.ID, e.Description, nullIfEmpty(e.SupplierID), e.AmountCents, e.Date)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) GetMarker(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM app_markers WHERE key = $1
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *Store) SetMarker(ctx context.Context, key string, value string) error {
	if key == "" {
		return store.ErrValidation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_markers (key, value, updated_at)
		VALUES ($1,$2,now())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || user.Password == "" || user.Role == "" {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrValidation
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var sale domain.Sale
	var customerID, staffID sql.NullString
	var dueDate sql.NullTime
	err := row.Scan(&sale.ID, &sale.ProductID, &sale.ProductName, &sale.BuyPriceCents, &sale.SellPriceCents,
		&sale.Quantity, &sale.TotalCents, &sale.ProfitCents, &customerID, &staffID, &dueDate, &sale.Date)
	if err != nil {
		return nil, err
	}
	sale.CustomerID = customerID.String
	sale.StaffID = staffID.String
	if dueDate.Valid {
		due := dueDate.Time.UTC()
		sale.DueDate = &due
	}
	sale.Date = sale.Date.UTC()
	return &sale, nil
}

func scanSaleRows(rows *sql.Rows) (*domain.Sale, error) {
	return scanSale(rows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullDate(val *time.Time) any {
	if val == nil {
		return nil
	}
	return val.UTC()
}

func dateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}
