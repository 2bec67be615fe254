package calculator

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unitprice/internal/common"
	"github.com/noah-isme/unitprice/internal/obs"
	"github.com/noah-isme/unitprice/internal/pricing"
	"github.com/noah-isme/unitprice/internal/render"
	"github.com/noah-isme/unitprice/internal/resilience"
	"github.com/noah-isme/unitprice/internal/units"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl), mr
}

func TestServiceCalculatePrice(t *testing.T) {
	svc := NewService(ServiceConfig{Logger: zerolog.Nop()})
	calc, err := svc.Calculate(context.Background(), pricing.Input{
		BaseQuantity: 1, BaseUnit: units.Kilogram, BasePrice: 42, DesiredValue: 50, DesiredUnit: units.Gram,
	}, render.FormatText)
	require.NoError(t, err)
	require.NotEmpty(t, calc.ID)
	require.False(t, calc.Cached)
	require.Equal(t, pricing.KindPrice, calc.Result.Kind)
	require.Equal(t, 2.1, calc.Result.Price.Amount)
	require.Equal(t, "50 g ka daam: ₹ 2.1\nBase: 1 kg = ₹ 42. (₹ 0.042 per g)", calc.Rendered.Body)
}

func TestServiceCalculateErrorIsUnprocessable(t *testing.T) {
	svc := NewService(ServiceConfig{Logger: zerolog.Nop()})
	_, err := svc.Calculate(context.Background(), pricing.Input{
		BaseQuantity: 500, BaseUnit: units.Gram, BasePrice: 30, DesiredValue: 3, DesiredUnit: units.Piece,
	}, render.FormatHTML)
	require.Error(t, err)
	require.ErrorIs(t, err, pricing.ErrIncompatibleCategories)

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.Equal(t, pricing.CodeIncompatibleCategories, appErr.Code)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	out, ok := details["rendered"].(render.Output)
	require.True(t, ok)
	require.Equal(t, render.LevelWarning, out.Level)
	require.Contains(t, out.Body, `class="text-warning"`)
}

func TestServiceCachesResults(t *testing.T) {
	obs.MustRegisterDomainMetrics("calculator_test", prometheus.NewRegistry())
	cache, mr := newRedisCache(t, time.Minute)
	svc := NewService(ServiceConfig{Cache: cache, Logger: zerolog.Nop()})
	in := pricing.Input{BaseQuantity: 12, BaseUnit: units.Dozen, BasePrice: 60, DesiredValue: 20, DesiredUnit: units.Currency}

	hits := testutil.ToFloat64(obs.CalculationCacheTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(obs.CalculationCacheTotal.WithLabelValues("miss"))

	first, err := svc.Calculate(context.Background(), in, render.FormatText)
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Len(t, mr.Keys(), 1)
	require.Equal(t, time.Minute, mr.TTL(mr.Keys()[0]))

	second, err := svc.Calculate(context.Background(), in, render.FormatJSON)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, first.Exact, second.Exact)
	require.Equal(t, 48.0, second.Result.Quantity.CanonicalAmount)
	require.Equal(t, render.FormatJSON, second.Rendered.Format)

	require.Equal(t, misses+1, testutil.ToFloat64(obs.CalculationCacheTotal.WithLabelValues("miss")))
	require.Equal(t, hits+1, testutil.ToFloat64(obs.CalculationCacheTotal.WithLabelValues("hit")))
}

func TestServiceDoesNotCacheErrors(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)
	svc := NewService(ServiceConfig{Cache: cache, Logger: zerolog.Nop()})
	_, err := svc.Calculate(context.Background(), pricing.Input{
		BaseQuantity: 0, BaseUnit: units.Kilogram, BasePrice: 42, DesiredValue: 50, DesiredUnit: units.Gram,
	}, render.FormatText)
	require.ErrorIs(t, err, pricing.ErrInvalidBaseInput)
	require.Empty(t, mr.Keys())
}

func TestServiceSurvivesCacheOutage(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)
	mr.Close()
	svc := NewService(ServiceConfig{Cache: cache, Logger: zerolog.Nop()})
	calc, err := svc.Calculate(context.Background(), pricing.Input{
		BaseQuantity: 1, BaseUnit: units.Kilogram, BasePrice: 42, DesiredValue: 10, DesiredUnit: units.Currency,
	}, render.FormatText)
	require.NoError(t, err)
	require.False(t, calc.Cached)
	require.Equal(t, 238.1, calc.Result.Quantity.CanonicalAmount)
}

func TestServiceBypassesCacheWhileBreakerOpen(t *testing.T) {
	obs.MustRegisterDomainMetrics("calculator_test", prometheus.NewRegistry())
	cache, mr := newRedisCache(t, time.Minute)
	breaker := resilience.NewBreaker(resilience.Settings{Target: "calc_cache_test", MinRequests: 1, OpenFor: time.Hour, Logger: zerolog.Nop()})
	cache.WithBreaker(breaker)
	mr.Close()

	svc := NewService(ServiceConfig{Cache: cache, Logger: zerolog.Nop()})
	in := pricing.Input{BaseQuantity: 1, BaseUnit: units.Kilogram, BasePrice: 42, DesiredValue: 50, DesiredUnit: units.Gram}

	_, err := svc.Calculate(context.Background(), in, render.FormatText)
	require.NoError(t, err)
	require.Equal(t, resilience.Open, breaker.State())

	bypass := testutil.ToFloat64(obs.CalculationCacheTotal.WithLabelValues("bypass"))
	calc, err := svc.Calculate(context.Background(), in, render.FormatText)
	require.NoError(t, err)
	require.Equal(t, 2.1, calc.Result.Price.Amount)
	require.Equal(t, bypass+1, testutil.ToFloat64(obs.CalculationCacheTotal.WithLabelValues("bypass")))
}

func TestCacheDisabledWithoutClient(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	require.False(t, cache.Enabled())
	var dst pricing.Result
	found, err := cache.Get(context.Background(), "k", &dst)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, cache.Set(context.Background(), "k", dst))
}

func TestCacheRoundTripsResult(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)
	res, err := pricing.Calculate(pricing.Input{BaseQuantity: 1, BaseUnit: units.Kilogram, BasePrice: 42, DesiredValue: 10, DesiredUnit: units.Currency})
	require.NoError(t, err)

	require.NoError(t, cache.Set(context.Background(), "k", res))
	require.True(t, mr.Exists("calc:k"))

	var got pricing.Result
	found, err := cache.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, res, got)
}

func TestServiceRecomputesOnCorruptEntry(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)
	svc := NewService(ServiceConfig{Cache: cache, Logger: zerolog.Nop()})
	in := pricing.Input{BaseQuantity: 1, BaseUnit: units.Kilogram, BasePrice: 42, DesiredValue: 50, DesiredUnit: units.Gram}

	first, err := svc.Calculate(context.Background(), in, render.FormatText)
	require.NoError(t, err)
	keys := mr.Keys()
	require.Len(t, keys, 1)
	require.NoError(t, mr.Set(keys[0], "\xc1"))

	second, err := svc.Calculate(context.Background(), in, render.FormatText)
	require.NoError(t, err)
	require.False(t, second.Cached)
	require.Equal(t, first.Exact, second.Exact)
}
