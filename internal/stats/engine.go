package stats

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"dokankhata/backend/internal/cache"
	"dokankhata/backend/internal/domain"
	"dokankhata/backend/internal/store"
)

const snapshotCacheKey = "dashboard:snapshot"

// Engine computes the dashboard snapshot from raw rows in the store and
// pushes a fresh copy to subscribers after every committed write.
type Engine struct {
	repo      store.Repository
	snapshots cache.SnapshotCache
	cacheTTL  time.Duration
	now       func() time.Time

	mu     sync.Mutex
	subs   map[int]chan domain.DashboardSnapshot
	nextID int
}

func New(repo store.Repository, snapshots cache.SnapshotCache, cacheTTL time.Duration) *Engine {
	if snapshots == nil {
		snapshots = cache.NoopSnapshotCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Engine{
		repo:      repo,
		snapshots: snapshots,
		cacheTTL:  cacheTTL,
		now:       func() time.Time { return time.Now().UTC() },
		subs:      make(map[int]chan domain.DashboardSnapshot),
	}
}

// SetClock overrides the engine's notion of now. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Subscribe returns a channel of recomputed snapshots and a cancel func.
// Slow subscribers miss intermediate snapshots instead of blocking writes.
func (e *Engine) Subscribe() (<-chan domain.DashboardSnapshot, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	ch := make(chan domain.DashboardSnapshot, 1)
	e.subs[id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// StoreChanged implements service.ChangeListener.
func (e *Engine) StoreChanged(ctx context.Context) {
	if err := e.snapshots.Delete(ctx, snapshotCacheKey); err != nil {
		log.Printf("[stats] WARN: failed to invalidate snapshot cache: %v", err)
	}

	snap, err := e.compute(ctx)
	if err != nil {
		log.Printf("[stats] WARN: failed to recompute snapshot: %v", err)
		return
	}

	if err := e.snapshots.Set(ctx, snapshotCacheKey, &snap, e.cacheTTL); err != nil {
		log.Printf("[stats] WARN: failed to cache snapshot: %v", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
			// drop the stale one so the latest always lands
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (e *Engine) Snapshot(ctx context.Context) (domain.DashboardSnapshot, error) {
	if cached, ok, err := e.snapshots.Get(ctx, snapshotCacheKey); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[stats] WARN: snapshot cache read failed: %v", err)
	}

	snap, err := e.compute(ctx)
	if err != nil {
		return domain.DashboardSnapshot{}, err
	}
	if err := e.snapshots.Set(ctx, snapshotCacheKey, &snap, e.cacheTTL); err != nil {
		log.Printf("[stats] WARN: failed to cache snapshot: %v", err)
	}
	return snap, nil
}

// compute reads each collection once and derives every figure from those
// reads, so the snapshot is internally consistent.
func (e *Engine) compute(ctx context.Context) (domain.DashboardSnapshot, error) {
	now := e.now()
	dayStart := dateUTC(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	weekStart := dayStart.AddDate(0, 0, -6)
	prevWeekStart := weekStart.AddDate(0, 0, -7)

	// One sales read covers today, the trend window and the growth windows.
	sales, err := e.repo.ListSales(ctx, minTime(monthStart, prevWeekStart), dayStart.AddDate(0, 0, 1), 0)
	if err != nil {
		return domain.DashboardSnapshot{}, err
	}
	allSales, err := e.repo.ListSales(ctx, time.Time{}, time.Time{}, 0)
	if err != nil {
		return domain.DashboardSnapshot{}, err
	}
	expenses, err := e.repo.ListExpenses(ctx, monthStart, dayStart.AddDate(0, 0, 1), 0)
	if err != nil {
		return domain.DashboardSnapshot{}, err
	}
	invExpenses, err := e.repo.ListInventoryExpenses(ctx, monthStart, dayStart.AddDate(0, 0, 1), 0)
	if err != nil {
		return domain.DashboardSnapshot{}, err
	}
	products, err := e.repo.ListProducts(ctx)
	if err != nil {
		return domain.DashboardSnapshot{}, err
	}
	customers, err := e.repo.ListCustomers(ctx)
	if err != nil {
		return domain.DashboardSnapshot{}, err
	}

	snap := domain.DashboardSnapshot{GeneratedAt: now}

	for _, sale := range sales {
		if !sale.Date.Before(dayStart) {
			snap.Today.SalesCents += sale.TotalCents
			snap.Today.ProfitCents += sale.ProfitCents
		}
		if !sale.Date.Before(monthStart) {
			snap.Month.SalesCents += sale.TotalCents
			snap.Month.ProfitCents += sale.ProfitCents
		}
	}
	for _, exp := range expenses {
		if !exp.Date.Before(dayStart) {
			snap.Today.ExpenseCents += exp.AmountCents
		}
		snap.Month.ExpenseCents += exp.AmountCents
	}
	for _, exp := range invExpenses {
		snap.Month.InventoryExpenseCents += exp.AmountCents
	}
	snap.Today.NetCents = snap.Today.ProfitCents - snap.Today.ExpenseCents
	snap.Month.NetCents = snap.Month.ProfitCents - snap.Month.ExpenseCents - snap.Month.InventoryExpenseCents

	for _, p := range products {
		if p.Stock < domain.LowStockThreshold {
			snap.LowStockCount++
		}
	}
	for _, c := range customers {
		snap.TotalDebtCents += c.DebtCents
	}

	snap.WeeklyTrend = weeklyTrend(sales, dayStart)
	snap.RunoutWarnings = runoutWarnings(sales, products, weekStart, dayStart)
	snap.TopProducts, snap.BottomProducts = performers(allSales)
	snap.SalesGrowthPct = growthPct(sales, prevWeekStart, weekStart, dayStart)

	return snap, nil
}

// weeklyTrend always yields exactly seven points, oldest first, ending with
// today. Days without sales carry zeros.
func weeklyTrend(sales []domain.Sale, dayStart time.Time) []domain.TrendPoint {
	points := make([]domain.TrendPoint, 7)
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		day := dayStart.AddDate(0, 0, i-6)
		key := day.Format("2006-01-02")
		points[i] = domain.TrendPoint{Date: key}
		index[key] = i
	}

	for _, sale := range sales {
		key := dateUTC(sale.Date).Format("2006-01-02")
		if i, ok := index[key]; ok {
			points[i].SalesCents += sale.TotalCents
			points[i].ProfitCents += sale.ProfitCents
		}
	}
	return points
}

func runoutWarnings(sales []domain.Sale, products []domain.Product, weekStart time.Time, dayStart time.Time) []domain.RunoutPrediction {
	soldQty := make(map[string]int, len(products))
	for _, sale := range sales {
		if sale.Date.Before(weekStart) || !sale.Date.Before(dayStart.AddDate(0, 0, 1)) {
			continue
		}
		soldQty[sale.ProductID] += sale.Quantity
	}

	warnings := make([]domain.RunoutPrediction, 0, 8)
	for _, p := range products {
		avg := float64(soldQty[p.ID]) / 7
		pred := domain.RunoutPrediction{
			ProductID:    p.ID,
			ProductName:  p.Name,
			Stock:        p.Stock,
			DailyAverage: avg,
		}
		if avg == 0 {
			pred.DaysLeft = domain.RunoutUnbounded
			pred.Severity = domain.RunoutSeverityNormal
			continue
		}
		pred.DaysLeft = int(float64(p.Stock) / avg)
		switch {
		case pred.DaysLeft <= 2:
			pred.Severity = domain.RunoutSeverityCritical
		case pred.DaysLeft <= 5:
			pred.Severity = domain.RunoutSeverityWarning
		default:
			pred.Severity = domain.RunoutSeverityNormal
			continue
		}
		warnings = append(warnings, pred)
	}

	slices.SortFunc(warnings, func(a, b domain.RunoutPrediction) int {
		if a.DaysLeft != b.DaysLeft {
			return a.DaysLeft - b.DaysLeft
		}
		return cmpString(a.ProductName, b.ProductName)
	})
	return warnings
}

func performers(sales []domain.Sale) ([]domain.ProductPerformance, []domain.ProductPerformance) {
	byProduct := make(map[string]*domain.ProductPerformance, 32)
	order := make([]string, 0, 32)
	for _, sale := range sales {
		perf, ok := byProduct[sale.ProductID]
		if !ok {
			perf = &domain.ProductPerformance{ProductID: sale.ProductID, ProductName: sale.ProductName}
			byProduct[sale.ProductID] = perf
			order = append(order, sale.ProductID)
		}
		perf.QuantitySold += sale.Quantity
		perf.SalesCents += sale.TotalCents
		perf.ProfitCents += sale.ProfitCents
	}

	ranked := make([]domain.ProductPerformance, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *byProduct[id])
	}
	slices.SortStableFunc(ranked, func(a, b domain.ProductPerformance) int {
		if a.ProfitCents > b.ProfitCents {
			return -1
		}
		if a.ProfitCents < b.ProfitCents {
			return 1
		}
		return 0
	})

	top := make([]domain.ProductPerformance, 0, 5)
	for i := 0; i < len(ranked) && i < 5; i++ {
		top = append(top, ranked[i])
	}
	bottom := make([]domain.ProductPerformance, 0, 5)
	for i := len(ranked) - 1; i >= 0 && len(bottom) < 5; i-- {
		bottom = append(bottom, ranked[i])
	}
	return top, bottom
}

func growthPct(sales []domain.Sale, prevWeekStart time.Time, weekStart time.Time, dayStart time.Time) float64 {
	var current, previous int64
	for _, sale := range sales {
		switch {
		case !sale.Date.Before(weekStart) && sale.Date.Before(dayStart.AddDate(0, 0, 1)):
			current += sale.TotalCents
		case !sale.Date.Before(prevWeekStart) && sale.Date.Before(weekStart):
			previous += sale.TotalCents
		}
	}
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

func dateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func minTime(a time.Time, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
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
