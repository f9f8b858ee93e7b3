package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"dokankhata/backend/internal/domain"
	"dokankhata/backend/internal/store/memory"
)

type captureSink struct {
	mu     sync.Mutex
	events []domain.Notification
}

func (c *captureSink) Notify(_ context.Context, event domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) byType(kind string) []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Notification, 0, len(c.events))
	for _, e := range c.events {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

func newTestScheduler(t *testing.T) (*Scheduler, *memory.Store, *captureSink, *time.Time) {
	t.Helper()

	repo := memory.New()
	sink := &captureSink{}
	sched := New(repo, sink.Notify, time.Minute)

	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	clock := &now
	sched.SetClock(func() time.Time { return *clock })
	return sched, repo, sink, clock
}

func addProduct(t *testing.T, repo *memory.Store, name string, stock int) domain.Product {
	t.Helper()
	created, err := repo.CreateProduct(context.Background(), domain.Product{
		Name:           name,
		BuyPriceCents:  1000,
		SellPriceCents: 1500,
		Stock:          stock,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return *created
}

func TestLowStockAlertSuppression(t *testing.T) {
	sched, repo, sink, clock := newTestScheduler(t)
	addProduct(t, repo, "Soap", 3)

	sched.Tick(context.Background())
	if got := len(sink.byType(domain.NotificationLowStock)); got != 1 {
		t.Fatalf("alerts after first tick = %d, want 1", got)
	}

	*clock = clock.Add(10 * time.Minute)
	sched.Tick(context.Background())
	if got := len(sink.byType(domain.NotificationLowStock)); got != 1 {
		t.Fatalf("alert re-fired inside suppression window: %d", got)
	}

	*clock = clock.Add(25 * time.Minute)
	sched.Tick(context.Background())
	if got := len(sink.byType(domain.NotificationLowStock)); got != 2 {
		t.Fatalf("alerts after suppression expiry = %d, want 2", got)
	}
}

func TestLowStockAlertSkipsHealthyStock(t *testing.T) {
	sched, repo, sink, _ := newTestScheduler(t)
	addProduct(t, repo, "Rice", 40)
	addProduct(t, repo, "Salt", domain.LowStockThreshold)

	sched.Tick(context.Background())
	if got := len(sink.byType(domain.NotificationLowStock)); got != 0 {
		t.Fatalf("unexpected low stock alert: %d", got)
	}
}

func TestLowStockAlertNamesLowestProduct(t *testing.T) {
	sched, repo, sink, _ := newTestScheduler(t)
	addProduct(t, repo, "Oil", 9)
	lowest := addProduct(t, repo, "Salt", 2)

	sched.Tick(context.Background())
	alerts := sink.byType(domain.NotificationLowStock)
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if alerts[0].Payload["lowest_id"] != lowest.ID {
		t.Fatalf("lowest_id = %v, want %s", alerts[0].Payload["lowest_id"], lowest.ID)
	}
	if alerts[0].Payload["count"] != 2 {
		t.Fatalf("count = %v, want 2", alerts[0].Payload["count"])
	}
}

func TestDuePaymentReminderKeysOffDueDate(t *testing.T) {
	sched, repo, sink, clock := newTestScheduler(t)
	product := addProduct(t, repo, "Sugar", 50)

	customer, err := repo.CreateCustomer(context.Background(), domain.Customer{Name: "Karim"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	due := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	notDue := due.AddDate(0, 0, 5)
	for _, d := range []time.Time{due, notDue} {
		dd := d
		if _, err := repo.CreateSale(context.Background(), domain.Sale{
			ProductID:  product.ID,
			Quantity:   1,
			CustomerID: customer.ID,
			DueDate:    &dd,
			Date:       clock.Add(-time.Hour),
		}); err != nil {
			t.Fatalf("create sale: %v", err)
		}
	}

	sched.Tick(context.Background())
	reminders := sink.byType(domain.NotificationDuePayment)
	if len(reminders) != 1 {
		t.Fatalf("reminders = %d, want 1", len(reminders))
	}
	if reminders[0].Payload["count"] != 1 {
		t.Fatalf("count = %v, want 1", reminders[0].Payload["count"])
	}
}

func TestDuePaymentReminderSkipsSettledAndCashSales(t *testing.T) {
	sched, repo, sink, _ := newTestScheduler(t)
	product := addProduct(t, repo, "Sugar", 50)

	customer, err := repo.CreateCustomer(context.Background(), domain.Customer{Name: "Karim"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	due := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	credit := due
	if _, err := repo.CreateSale(context.Background(), domain.Sale{
		ProductID:  product.ID,
		Quantity:   1,
		CustomerID: customer.ID,
		DueDate:    &credit,
		Date:       due,
	}); err != nil {
		t.Fatalf("create credit sale: %v", err)
	}
	if _, err := repo.CreatePayment(context.Background(), domain.Payment{
		CustomerID:  customer.ID,
		AmountCents: 1500,
		Date:        due,
	}); err != nil {
		t.Fatalf("repay debt: %v", err)
	}

	cash := due
	if _, err := repo.CreateSale(context.Background(), domain.Sale{
		ProductID: product.ID,
		Quantity:  1,
		DueDate:   &cash,
		Date:      due,
	}); err != nil {
		t.Fatalf("create cash sale: %v", err)
	}

	sched.Tick(context.Background())
	if got := len(sink.byType(domain.NotificationDuePayment)); got != 0 {
		t.Fatalf("reminders = %d, want 0", got)
	}
}

func TestDailyReportFiresOncePerDay(t *testing.T) {
	sched, repo, sink, clock := newTestScheduler(t)
	product := addProduct(t, repo, "Lentils", 30)
	if _, err := repo.CreateSale(context.Background(), domain.Sale{
		ProductID: product.ID,
		Quantity:  2,
		Date:      clock.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	sched.Tick(context.Background())
	sched.Tick(context.Background())
	reports := sink.byType(domain.NotificationDailyReport)
	if len(reports) != 1 {
		t.Fatalf("reports same day = %d, want 1", len(reports))
	}
	if reports[0].Payload["sales_count"] != 1 {
		t.Fatalf("sales_count = %v, want 1", reports[0].Payload["sales_count"])
	}
	if reports[0].Payload["profit_cents"] != int64(1000) {
		t.Fatalf("profit_cents = %v, want 1000", reports[0].Payload["profit_cents"])
	}

	*clock = clock.AddDate(0, 0, 1)
	sched.Tick(context.Background())
	if got := len(sink.byType(domain.NotificationDailyReport)); got != 2 {
		t.Fatalf("reports after day change = %d, want 2", got)
	}
}

func TestMonthlyReportFiresOncePerMonth(t *testing.T) {
	sched, _, sink, clock := newTestScheduler(t)

	sched.Tick(context.Background())
	*clock = clock.AddDate(0, 0, 1)
	sched.Tick(context.Background())
	if got := len(sink.byType(domain.NotificationMonthlyReport)); got != 1 {
		t.Fatalf("reports same month = %d, want 1", got)
	}

	*clock = clock.AddDate(0, 1, 0)
	sched.Tick(context.Background())
	if got := len(sink.byType(domain.NotificationMonthlyReport)); got != 2 {
		t.Fatalf("reports after month change = %d, want 2", got)
	}
}
