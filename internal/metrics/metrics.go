package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProductsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_products_created_total",
			Help: "Total number of products registered through the catalog service.",
		},
	)

	StyleCodeConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_style_code_conflicts_total",
			Help: "Total number of style-code allocation races that triggered a retry.",
		},
	)

	PriceUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_price_updates_total",
			Help: "Total number of variant selling-price updates.",
		},
		[]string{"reason"},
	)

	DepletionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_depletion_events_total",
			Help: "Total number of option depletion signals by outcome.",
		},
		[]string{"outcome"},
	)

	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_import_candidates_total",
			Help: "Total number of bulk-import candidates by result.",
		},
		[]string{"result"},
	)
)

// Depletion outcomes.
const (
	DepletionOutcomeOption  = "option_sold_out"
	DepletionOutcomeProduct = "product_sold_out"
	DepletionOutcomeNoop    = "noop"
)

// Import results.
const (
	ImportResultCommitted = "committed"
	ImportResultSkipped   = "skipped"
	ImportResultFailed    = "failed"
)

func init() {
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		slog.Debug("ProcessCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}

	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		slog.Debug("GoCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}
}

// http.Handler for the Prometheus /metrics endpoint
func Handler() http.Handler {

	return promhttp.Handler()
}
