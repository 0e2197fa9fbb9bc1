package services

import (
	"context"
	"math"
	"time"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/cache"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	latestTransactionCount = 5

	keyCounts = "counts"
	keyWeek   = "week"
	keyMonths = "months"
	keyStatus = "status"
)

type Trend string

const (
	TrendPositive Trend = "positive"
	TrendNegative Trend = "negative"
	TrendNeutral  Trend = "neutral"
)

// PercentChange is a relative change rounded to two decimals.
type PercentChange struct {
	Value float64 `json:"value"`
	Trend Trend   `json:"trend"`
}

// PercentageIncrease is (current-previous)/previous*100. A zero baseline yields 0%
// when nothing changed and 100% otherwise.
func PercentageIncrease(previous, current int64) PercentChange {
	if previous == 0 {
		if current == 0 {
			return PercentChange{Value: 0, Trend: TrendNeutral}
		}
		return PercentChange{Value: 100, Trend: TrendPositive}
	}
	v := float64(current-previous) / float64(previous) * 100
	v = math.Round(v*100) / 100
	switch {
	case v > 0:
		return PercentChange{Value: v, Trend: TrendPositive}
	case v < 0:
		return PercentChange{Value: v, Trend: TrendNegative}
	}
	return PercentChange{Value: 0, Trend: TrendNeutral}
}

type MetricCount struct {
	Count  int64         `json:"count"`
	Change PercentChange `json:"change"`
}

type DashboardCounts struct {
	Users    MetricCount `json:"users"`
	Products MetricCount `json:"products"`
	Orders   MetricCount `json:"orders"`
}

// Histogram holds per-bucket order counts and revenue. Index meaning depends on the
// bucketing: weekday (0 = Sunday) or month (0 = January).
type Histogram struct {
	Orders  []int64   `json:"orders"`
	Revenue []float64 `json:"revenue"`
}

type Transaction struct {
	ID            string               `json:"_id"`
	OrderID       string               `json:"orderId"`
	Customer      string               `json:"customerName"`
	Total         float64              `json:"total"`
	Status        models.OrderStatus   `json:"status"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	CreatedAt     time.Time            `json:"createdAt"`
}

type StatusSlice struct {
	Status models.OrderStatus `json:"status"`
	Count  int64              `json:"count"`
}

// countsRevenue excludes orders that were canceled or returned.
func countsRevenue(s models.OrderStatus) bool {
	return s != models.OrderStatusCanceled && s != models.OrderStatusReturned
}

func bucket(points []models.OrderPoint, n int, loc *time.Location, index func(time.Time) int) Histogram {
	orders := make([]int64, n)
	revenue := make([]decimal.Decimal, n)
	for i := range revenue {
		revenue[i] = decimal.Zero
	}
	for _, p := range points {
		i := index(p.CreatedAt.In(loc))
		if i < 0 || i >= n {
			continue
		}
		orders[i]++
		if countsRevenue(p.Status) {
			revenue[i] = revenue[i].Add(decimal.NewFromFloat(p.Total))
		}
	}
	h := Histogram{Orders: orders, Revenue: make([]float64, n)}
	for i, r := range revenue {
		h.Revenue[i] = r.Round(2).InexactFloat64()
	}
	return h
}

func BucketByWeekday(points []models.OrderPoint, loc *time.Location) Histogram {
	return bucket(points, 7, loc, func(t time.Time) int { return int(t.Weekday()) })
}

func BucketByMonth(points []models.OrderPoint, loc *time.Location) Histogram {
	return bucket(points, 12, loc, func(t time.Time) int { return int(t.Month()) - 1 })
}

type DashboardService struct {
	orders   OrderStore
	users    UserStore
	products ProductStore
	cache    DashboardCache
	loc      *time.Location
	now      func() time.Time
}

func NewDashboardService(orders OrderStore, users UserStore, products ProductStore, c DashboardCache) *DashboardService {
	if c == nil {
		c = cache.Noop{}
	}
	return &DashboardService{orders: orders, users: users, products: products, cache: c, loc: time.UTC, now: time.Now}
}

// cached loads key into dest, computing and storing it on a miss. Cache failures
// degrade to a direct computation.
func cached[T any](ctx context.Context, c DashboardCache, key string, compute func() (T, error)) (T, error) {
	var out T
	if hit, err := c.Get(ctx, key, &out); err != nil {
		logger.Warn(ctx, "dashboard cache read failed", "key", key, "error", err)
	} else if hit {
		return out, nil
	}
	out, err := compute()
	if err != nil {
		return out, err
	}
	if err := c.Set(ctx, key, out); err != nil {
		logger.Warn(ctx, "dashboard cache write failed", "key", key, "error", err)
	}
	return out, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Counts compares each current total with the number created during the previous
// calendar month.
func (s *DashboardService) Counts(ctx context.Context) (*DashboardCounts, error) {
	return cached(ctx, s.cache, keyCounts, func() (*DashboardCounts, error) {
		thisMonth := monthStart(s.now().In(s.loc))
		lastMonth := thisMonth.AddDate(0, -1, 0)

		var (
			users, products, orders          int64
			prevUsers, prevProducts, prevOrd int64
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { users, err = s.users.Count(gctx); return })
		g.Go(func() (err error) { products, err = s.products.Count(gctx); return })
		g.Go(func() (err error) { orders, err = s.orders.Count(gctx); return })
		g.Go(func() (err error) {
			prevUsers, err = s.users.CountCreatedBetween(gctx, lastMonth, thisMonth)
			return
		})
		g.Go(func() (err error) {
			prevProducts, err = s.products.CountCreatedBetween(gctx, lastMonth, thisMonth)
			return
		})
		g.Go(func() (err error) {
			prevOrd, err = s.orders.CountCreatedBetween(gctx, lastMonth, thisMonth)
			return
		})
		if err := g.Wait(); err != nil {
			return nil, apperr.Internal(err, "Failed to load dashboard counts")
		}

		return &DashboardCounts{
			Users:    MetricCount{Count: users, Change: PercentageIncrease(prevUsers, users)},
			Products: MetricCount{Count: products, Change: PercentageIncrease(prevProducts, products)},
			Orders:   MetricCount{Count: orders, Change: PercentageIncrease(prevOrd, orders)},
		}, nil
	})
}

// Week covers the last seven days including today.
func (s *DashboardService) Week(ctx context.Context) (*Histogram, error) {
	return cached(ctx, s.cache, keyWeek, func() (*Histogram, error) {
		now := s.now().In(s.loc)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
		points, err := s.orders.PointsSince(ctx, today.AddDate(0, 0, -6))
		if err != nil {
			return nil, apperr.Internal(err, "Failed to load weekly orders")
		}
		h := BucketByWeekday(points, s.loc)
		return &h, nil
	})
}

// Months covers the current calendar year.
func (s *DashboardService) Months(ctx context.Context) (*Histogram, error) {
	return cached(ctx, s.cache, keyMonths, func() (*Histogram, error) {
		now := s.now().In(s.loc)
		points, err := s.orders.PointsSince(ctx, time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, s.loc))
		if err != nil {
			return nil, apperr.Internal(err, "Failed to load monthly orders")
		}
		h := BucketByMonth(points, s.loc)
		return &h, nil
	})
}

func (s *DashboardService) LatestTransactions(ctx context.Context) ([]Transaction, error) {
	orders, err := s.orders.Latest(ctx, latestTransactionCount)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load latest transactions")
	}
	out := make([]Transaction, len(orders))
	for i, o := range orders {
		out[i] = Transaction{
			ID:            o.ID.Hex(),
			OrderID:       o.OrderID,
			Customer:      o.CustomerName,
			Total:         o.Total,
			Status:        o.Status,
			PaymentMethod: o.PaymentMethod,
			CreatedAt:     o.CreatedAt,
		}
	}
	return out, nil
}

// StatusBreakdown lists every status, including those with no orders.
func (s *DashboardService) StatusBreakdown(ctx context.Context) ([]StatusSlice, error) {
	return cached(ctx, s.cache, keyStatus, func() ([]StatusSlice, error) {
		counts, err := s.orders.StatusCounts(ctx)
		if err != nil {
			return nil, apperr.Internal(err, "Failed to load order statuses")
		}
		all := models.AllOrderStatuses()
		out := make([]StatusSlice, len(all))
		for i, st := range all {
			out[i] = StatusSlice{Status: st, Count: counts[st]}
		}
		return out, nil
	})
}

func (s *DashboardService) Orders(ctx context.Context, page, limit int) (*models.Page[models.Order], error) {
	skip, err := pageWindow(page, limit)
	if err != nil {
		return nil, err
	}
	orders, total, err := s.orders.List(ctx, skip, int64(limit))
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load orders")
	}
	return newPage(orders, total, page, limit), nil
}
