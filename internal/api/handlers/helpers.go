package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
	"train-allocation-service/internal/api/dto"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/obs"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: req_id=%s method=%s path=%s err=%v", obs.RequestID(r.Context()), r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// MethodNotAllowed answers requests whose path matched but method did not.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "not found")
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// tripKey reads {trip_id} from the path and the RFC 3339 departure query parameter.
func tripKey(r *http.Request) (domain.TripKey, error) {
	id, err := pathID(r, "trip_id")
	if err != nil {
		return domain.TripKey{}, err
	}

	raw := r.URL.Query().Get("departure")
	if raw == "" {
		return domain.TripKey{}, fmt.Errorf("departure is required")
	}
	departAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return domain.TripKey{}, fmt.Errorf("departure must be RFC3339: %q", raw)
	}

	return domain.NewTripKey(id, departAt), nil
}

// number renders a decimal as a bare JSON number without going through float64.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func toTripResponse(t domain.TrainTrip) dto.TripResponse {
	return dto.TripResponse{
		TrainTripID:       t.Key.TripID,
		DepartureCity:     t.DepartureCity,
		ArrivalCity:       t.ArrivalCity,
		DepartureDateTime: t.Key.DepartAt,
		ArrivalDateTime:   t.ArriveAt,
		TotalCapacity:     number(t.TotalCapacity),
		AvailableCapacity: number(t.AvailableCapacity),
		UsedCapacity:      number(t.UsedCapacity()),
	}
}

func toTripResponses(trips []domain.TrainTrip) dto.ListTripsResponse {
	res := dto.ListTripsResponse{Trips: make([]dto.TripResponse, 0, len(trips))}
	for _, t := range trips {
		res.Trips = append(res.Trips, toTripResponse(t))
	}
	return res
}
