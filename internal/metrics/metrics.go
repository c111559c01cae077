package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ProviderRequests counts outbound metadata calls by endpoint and outcome.
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_importer_provider_requests_total",
			Help: "Total number of metadata provider requests",
		},
		[]string{"endpoint", "outcome"},
	)

	// Imports counts import attempts by outcome ("imported", "canceled" or a failure kind).
	Imports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_importer_imports_total",
			Help: "Total number of import attempts",
		},
		[]string{"outcome"},
	)

	// RelationsSkipped counts related entities that could not be resolved.
	RelationsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_importer_relations_skipped_total",
			Help: "Total number of relations skipped during reconciliation",
		},
		[]string{"category"},
	)

	// SearchFallbacks counts searches answered from the fallback language.
	SearchFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "movie_importer_search_fallbacks_total",
			Help: "Total number of searches served by the fallback language",
		},
	)
)

// Registry holds every collector the service exposes.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(ProviderRequests, Imports, RelationsSkipped, SearchFallbacks)
}
