package domain

import "time"

type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Unit           string    `json:"unit"`
	BuyPriceCents  int64     `json:"buy_price_cents"`
	SellPriceCents int64     `json:"sell_price_cents"`
	Stock          int       `json:"stock"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	Unit           string `json:"unit"`
	BuyPriceCents  int64  `json:"buy_price_cents"`
	SellPriceCents int64  `json:"sell_price_cents"`
	Stock          int    `json:"stock"`
}

type ProductUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	Category       *string `json:"category,omitempty"`
	Unit           *string `json:"unit,omitempty"`
	BuyPriceCents  *int64  `json:"buy_price_cents,omitempty"`
	SellPriceCents *int64  `json:"sell_price_cents,omitempty"`
	Stock          *int    `json:"stock,omitempty"`
}

// Sale carries its own copy of the product name and both prices so the row
// stays meaningful after the product is edited or deleted.
type Sale struct {
	ID             string     `json:"id"`
	ProductID      string     `json:"product_id"`
	ProductName    string     `json:"product_name"`
	BuyPriceCents  int64      `json:"buy_price_cents"`
	SellPriceCents int64      `json:"sell_price_cents"`
	Quantity       int        `json:"quantity"`
	TotalCents     int64      `json:"total_cents"`
	ProfitCents    int64      `json:"profit_cents"`
	CustomerID     string     `json:"customer_id,omitempty"`
	StaffID        string     `json:"staff_id,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Date           time.Time  `json:"date"`
}

type SaleCreateRequest struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	CustomerID string `json:"customer_id,omitempty"`
	StaffID    string `json:"staff_id,omitempty"`
	DueDate    string `json:"due_date,omitempty"`
}

type Customer struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address"`
	DebtCents       int64      `json:"debt_cents"`
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type CustomerUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type Payment struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
}

type PaymentCreateRequest struct {
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
}

type Expense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
}

type ExpenseCreateRequest struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
}

type InventoryExpense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	SupplierID  string    `json:"supplier_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
}

type InventoryExpenseCreateRequest struct {
	Description string `json:"description"`
	SupplierID  string `json:"supplier_id,omitempty"`
	AmountCents int64  `json:"amount_cents"`
}

type Staff struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Role        string    `json:"role"`
	SalaryCents int64     `json:"salary_cents"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type StaffCreateRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
	SalaryCents int64  `json:"salary_cents"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type SupplierCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// PriceHistory is append only. One row per recorded sale.
type PriceHistory struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	BuyPriceCents  int64     `json:"buy_price_cents"`
	SellPriceCents int64     `json:"sell_price_cents"`
	Date           time.Time `json:"date"`
}

type MarketPrice struct {
	ID         string    `json:"id"`
	ItemName   string    `json:"item_name"`
	PriceCents int64     `json:"price_cents"`
	Unit       string    `json:"unit"`
	Market     string    `json:"market"`
	FetchedAt  time.Time `json:"fetched_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type AccountCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// BackupDocument bundles the six primary collections for export. Restore
// requires all six keys to be present.
type BackupDocument struct {
	ExportedAt        time.Time          `json:"exported_at"`
	Products          []Product          `json:"products"`
	Sales             []Sale             `json:"sales"`
	Expenses          []Expense          `json:"expenses"`
	Customers         []Customer         `json:"customers"`
	Staff             []Staff            `json:"staff"`
	InventoryExpenses []InventoryExpense `json:"inventory_expenses"`
}

type DailyTotals struct {
	SalesCents   int64 `json:"sales_cents"`
	ProfitCents  int64 `json:"profit_cents"`
	ExpenseCents int64 `json:"expense_cents"`
	NetCents     int64 `json:"net_cents"`
}

type MonthlyTotals struct {
	SalesCents            int64 `json:"sales_cents"`
	ProfitCents           int64 `json:"profit_cents"`
	ExpenseCents          int64 `json:"expense_cents"`
	InventoryExpenseCents int64 `json:"inventory_expense_cents"`
	NetCents              int64 `json:"net_cents"`
}

type TrendPoint struct {
	Date        string `json:"date"`
	SalesCents  int64  `json:"sales_cents"`
	ProfitCents int64  `json:"profit_cents"`
}

type RunoutPrediction struct {
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Stock        int     `json:"stock"`
	DailyAverage float64 `json:"daily_average"`
	DaysLeft     int     `json:"days_left"`
	Severity     string  `json:"severity"`
}

type ProductPerformance struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	QuantitySold int    `json:"quantity_sold"`
	SalesCents   int64  `json:"sales_cents"`
	ProfitCents  int64  `json:"profit_cents"`
}

type DashboardSnapshot struct {
	GeneratedAt    time.Time            `json:"generated_at"`
	Today          DailyTotals          `json:"today"`
	Month          MonthlyTotals        `json:"month"`
	LowStockCount  int                  `json:"low_stock_count"`
	TotalDebtCents int64                `json:"total_debt_cents"`
	WeeklyTrend    []TrendPoint         `json:"weekly_trend"`
	RunoutWarnings []RunoutPrediction   `json:"runout_warnings"`
	TopProducts    []ProductPerformance `json:"top_products"`
	BottomProducts []ProductPerformance `json:"bottom_products"`
	SalesGrowthPct float64              `json:"sales_growth_pct"`
}

type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

const (
	RunoutSeverityCritical = "critical"
	RunoutSeverityWarning  = "warning"
	RunoutSeverityNormal   = "normal"
)

const (
	NotificationLowStock      = "low_stock"
	NotificationDuePayment    = "due_payment"
	NotificationDailyReport   = "daily_report"
	NotificationMonthlyReport = "monthly_report"
)

// LowStockThreshold marks a product as low stock below this quantity.
const LowStockThreshold = 10

// RunoutUnbounded is the DaysLeft value when recent sales velocity is zero.
const RunoutUnbounded = -1
