package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal      metric.Int64Counter
	HTTPRequestDuration    metric.Float64Histogram
	AuthRequestsTotal      metric.Int64Counter
	RoutesCreatedTotal     metric.Int64Counter
	RatingsTotal           metric.Int64Counter
	FavoritesToggledTotal  metric.Int64Counter
	UploadsTotal           metric.Int64Counter
	PlaceSearchesTotal     metric.Int64Counter
	PlaceSearchFallbacks   metric.Int64Counter
	DBQueryErrorsTotal     metric.Int64Counter
	CatalogRefreshDuration metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	initErr    error
	once       sync.Once
)

// InitAppMetrics creates the instruments from the global MeterProvider. It
// runs once; later calls return the first result.
func InitAppMetrics() error {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("gurume")
		m := &AppMetrics{}
		var errs []error
		counter := func(name, desc, unit string) metric.Int64Counter {
			c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
			errs = append(errs, err)
			return c
		}
		histogram := func(name, desc string) metric.Float64Histogram {
			h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
			errs = append(errs, err)
			return h
		}

		m.HTTPRequestsTotal = counter("http_requests_total", "Total number of HTTP requests completed", "{request}")
		m.HTTPRequestDuration = histogram("http_request_duration_seconds", "Duration of HTTP requests in seconds")
		m.AuthRequestsTotal = counter("auth_requests_total", "Total number of authentication requests", "{request}")
		m.RoutesCreatedTotal = counter("routes_created_total", "Routes created, by visibility", "{route}")
		m.RatingsTotal = counter("ratings_total", "Rating submissions, by outcome", "{rating}")
		m.FavoritesToggledTotal = counter("favorites_toggled_total", "Favorite toggles, by direction", "{toggle}")
		m.UploadsTotal = counter("uploads_total", "Image uploads, by bucket", "{upload}")
		m.PlaceSearchesTotal = counter("place_searches_total", "Place searches, by cache hit", "{search}")
		m.PlaceSearchFallbacks = counter("place_search_fallbacks_total", "Place searches answered with placeholders", "{search}")
		m.DBQueryErrorsTotal = counter("db_query_errors_total", "Total number of database query errors", "{error}")
		m.CatalogRefreshDuration = histogram("catalog_refresh_duration_seconds", "Duration of catalog reloads in seconds")

		appMetrics = m
		initErr = errors.Join(errs...)
	})
	return initErr
}

// Get returns the application instruments, creating them on first use.
// Before the SDK provider is installed they record nothing.
func Get() *AppMetrics {
	_ = InitAppMetrics()
	return appMetrics
}

// Inc adds one to counter with the given attributes.
func Inc(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Observe records d in histogram as seconds.
func Observe(ctx context.Context, histogram metric.Float64Histogram, d time.Duration, attrs ...attribute.KeyValue) {
	if histogram == nil {
		return
	}
	histogram.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}
