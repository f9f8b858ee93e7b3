// Package scheduler drives the recurring business rules on one timer: low
// stock alerts, credit due reminders, and the daily and monthly report
// summaries. Rule state survives restarts through the store's marker table.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dokankhata/backend/internal/domain"
	"dokankhata/backend/internal/store"
)

const (
	markerLowStockLastAlert  = "low_stock_last_alert"
	markerDailyReportDate    = "daily_report_last_date"
	markerMonthlyReportMonth = "monthly_report_last_month"

	lowStockSuppression = 30 * time.Minute
)

type NotifyFunc func(ctx context.Context, event domain.Notification) error

type Scheduler struct {
	repo     store.Repository
	notify   NotifyFunc
	interval time.Duration
	now      func() time.Time
}

func New(repo store.Repository, notify NotifyFunc, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		repo:     repo,
		notify:   notify,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the scheduler's notion of now. Test hook.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Run ticks until the context is cancelled. A failing rule is logged and
// never stops the timer.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[scheduler] started, interval=%s", s.interval)
	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[scheduler] stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates every rule once. Rules are independent: one failing does
// not short-circuit the rest.
func (s *Scheduler) Tick(ctx context.Context) {
	rules := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"low_stock", s.checkLowStock},
		{"due_payments", s.checkDuePayments},
		{"daily_report", s.emitDailyReport},
		{"monthly_report", s.emitMonthlyReport},
	}
	for _, rule := range rules {
		if err := rule.fn(ctx); err != nil {
			log.Printf("[scheduler] WARN: rule %s failed: %v", rule.name, err)
		}
	}
}

func (s *Scheduler) checkLowStock(ctx context.Context) error {
	now := s.now()

	last, err := s.getMarker(ctx, markerLowStockLastAlert)
	if err != nil {
		return err
	}
	if last != "" {
		lastAt, err := time.Parse(time.RFC3339, last)
		if err == nil && now.Sub(lastAt) < lowStockSuppression {
			return nil
		}
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return err
	}

	low := make([]domain.Product, 0, 8)
	lowest := domain.Product{Stock: -1}
	for _, p := range products {
		if p.Stock >= domain.LowStockThreshold {
			continue
		}
		low = append(low, p)
		if lowest.Stock < 0 || p.Stock < lowest.Stock {
			lowest = p
		}
	}
	if len(low) == 0 {
		return nil
	}

	event := domain.Notification{
		Type:  domain.NotificationLowStock,
		Title: fmt.Sprintf("%d products low on stock", len(low)),
		Body:  fmt.Sprintf("%s is lowest with %d left", lowest.Name, lowest.Stock),
		Payload: map[string]any{
			"count":        len(low),
			"lowest_id":    lowest.ID,
			"lowest_name":  lowest.Name,
			"lowest_stock": lowest.Stock,
			"threshold":    domain.LowStockThreshold,
		},
		CreatedAt: now,
	}
	if err := s.notify(ctx, event); err != nil {
		return err
	}
	// Marker only moves after the alert went out, so a failed emission
	// retries on the next tick.
	return s.repo.SetMarker(ctx, markerLowStockLastAlert, now.Format(time.RFC3339))
}

func (s *Scheduler) checkDuePayments(ctx context.Context) error {
	now := s.now()

	due, err := s.repo.ListSalesDueOn(ctx, now)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	// Only customers who still owe money get a reminder. Cash sales that
	// carry a due date and customers who already settled up are skipped.
	var totalDebtCents int64
	dueCustomers := make(map[string]bool)
	for _, sale := range due {
		if sale.CustomerID == "" || dueCustomers[sale.CustomerID] {
			continue
		}
		customer, err := s.repo.GetCustomerByID(ctx, sale.CustomerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}
		if customer.DebtCents <= 0 {
			continue
		}
		dueCustomers[sale.CustomerID] = true
		totalDebtCents += customer.DebtCents
	}
	if len(dueCustomers) == 0 {
		return nil
	}

	return s.notify(ctx, domain.Notification{
		Type:  domain.NotificationDuePayment,
		Title: fmt.Sprintf("%d customers have payments due today", len(dueCustomers)),
		Body:  fmt.Sprintf("outstanding debt %d", totalDebtCents),
		Payload: map[string]any{
			"count":       len(dueCustomers),
			"total_cents": totalDebtCents,
			"date":        now.Format("2006-01-02"),
		},
		CreatedAt: now,
	})
}

func (s *Scheduler) emitDailyReport(ctx context.Context) error {
	now := s.now()
	today := now.Format("2006-01-02")

	last, err := s.getMarker(ctx, markerDailyReportDate)
	if err != nil {
		return err
	}
	if last == today {
		return nil
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sales, err := s.repo.ListSales(ctx, dayStart, dayStart.AddDate(0, 0, 1), 0)
	if err != nil {
		return err
	}
	expenses, err := s.repo.ListExpenses(ctx, dayStart, dayStart.AddDate(0, 0, 1), 0)
	if err != nil {
		return err
	}

	var salesCents, profitCents, expenseCents int64
	for _, sale := range sales {
		salesCents += sale.TotalCents
		profitCents += sale.ProfitCents
	}
	for _, exp := range expenses {
		expenseCents += exp.AmountCents
	}

	event := domain.Notification{
		Type:  domain.NotificationDailyReport,
		Title: "Daily summary for " + today,
		Body:  fmt.Sprintf("%d sales, profit %d", len(sales), profitCents),
		Payload: map[string]any{
			"date":          today,
			"sales_count":   len(sales),
			"sales_cents":   salesCents,
			"profit_cents":  profitCents,
			"expense_cents": expenseCents,
		},
		CreatedAt: now,
	}
	if err := s.notify(ctx, event); err != nil {
		return err
	}
	return s.repo.SetMarker(ctx, markerDailyReportDate, today)
}

func (s *Scheduler) emitMonthlyReport(ctx context.Context) error {
	now := s.now()
	month := now.Format("2006-01")

	last, err := s.getMarker(ctx, markerMonthlyReportMonth)
	if err != nil {
		return err
	}
	if last == month {
		return nil
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)
	sales, err := s.repo.ListSales(ctx, monthStart, nextMonth, 0)
	if err != nil {
		return err
	}
	expenses, err := s.repo.ListExpenses(ctx, monthStart, nextMonth, 0)
	if err != nil {
		return err
	}
	invExpenses, err := s.repo.ListInventoryExpenses(ctx, monthStart, nextMonth, 0)
	if err != nil {
		return err
	}

	var salesCents, profitCents, expenseCents int64
	for _, sale := range sales {
		salesCents += sale.TotalCents
		profitCents += sale.ProfitCents
	}
	for _, exp := range expenses {
		expenseCents += exp.AmountCents
	}
	for _, exp := range invExpenses {
		expenseCents += exp.AmountCents
	}

	event := domain.Notification{
		Type:  domain.NotificationMonthlyReport,
		Title: "Monthly summary for " + month,
		Body:  fmt.Sprintf("%d sales, profit %d", len(sales), profitCents),
		Payload: map[string]any{
			"month":         month,
			"sales_count":   len(sales),
			"sales_cents":   salesCents,
			"profit_cents":  profitCents,
			"expense_cents": expenseCents,
		},
		CreatedAt: now,
	}
	if err := s.notify(ctx, event); err != nil {
		return err
	}
	return s.repo.SetMarker(ctx, markerMonthlyReportMonth, month)
}

func (s *Scheduler) getMarker(ctx context.Context, key string) (string, error) {
	value, err := s.repo.GetMarker(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}
