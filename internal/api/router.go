package api

import (
	"context"
	"net/http"
	"time"
	"train-allocation-service/internal/api/handlers"
	"train-allocation-service/internal/services"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the HTTP layer is composed from.
type Deps struct {
	Allocator       *services.Allocator
	Reporter        *services.Reporter
	AllocateTimeout time.Duration
	// Ping, when set, backs /health with a storage check.
	Ping func(ctx context.Context) error
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)

	allocHandler := &handlers.AllocationHandler{Allocator: d.Allocator, Timeout: d.AllocateTimeout}
	reportHandler := &handlers.ReportHandler{Reporter: d.Reporter}
	healthHandler := &handlers.HealthHandler{Ping: d.Ping}

	r.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/orders/{order_id:[0-9]+}/allocate-train", allocHandler.Allocate).Methods(http.MethodPost)
	r.HandleFunc("/orders/{order_id:[0-9]+}/release-train", allocHandler.Release).Methods(http.MethodPost)

	r.HandleFunc("/train-trips", reportHandler.Trips).Methods(http.MethodGet)
	r.HandleFunc("/train-trips/low-capacity", reportHandler.LowCapacity).Methods(http.MethodGet)
	r.HandleFunc("/train-trips/{trip_id:[0-9]+}", reportHandler.Trip).Methods(http.MethodGet)
	r.HandleFunc("/train-trips/{trip_id:[0-9]+}/allocations", reportHandler.TripAllocations).Methods(http.MethodGet)
	r.HandleFunc("/train-trips/{trip_id:[0-9]+}/complete", allocHandler.CompleteTrip).Methods(http.MethodPost)

	r.HandleFunc("/reports/train-utilization", reportHandler.Utilization).Methods(http.MethodGet)

	// Wrap the whole router so 404 and 405 answers are tagged and logged as well.
	return requestIDMiddleware(loggingMiddleware(r))
}
