package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"train-allocation-service/internal/api/dto"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/obs"
	"train-allocation-service/internal/services"

	"github.com/shopspring/decimal"
)

const defaultLowCapacityThreshold = "100"

// ReportHandler exposes read-only trip and utilization projections.
type ReportHandler struct {
	Reporter *services.Reporter
}

func (h *ReportHandler) Trips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.Reporter.Trips(r.Context())
	if err != nil {
		log.Printf("list trips failed: req_id=%s err=%v", obs.RequestID(r.Context()), err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, toTripResponses(trips))
}

// Trip reports one trip instance's capacity.
func (h *ReportHandler) Trip(w http.ResponseWriter, r *http.Request) {
	key, err := tripKey(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	trip, err := h.Reporter.Trip(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrTripNotFound) {
			writeError(w, r, http.StatusNotFound, fmt.Sprintf("train trip %s not found", key))
			return
		}
		log.Printf("get trip failed: req_id=%s trip=%s err=%v", obs.RequestID(r.Context()), key, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, toTripResponse(trip))
}

func (h *ReportHandler) TripAllocations(w http.ResponseWriter, r *http.Request) {
	key, err := tripKey(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	allocs, err := h.Reporter.TripAllocations(r.Context(), key)
	if err != nil {
		log.Printf("trip allocations failed: req_id=%s trip=%s err=%v", obs.RequestID(r.Context()), key, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListAllocationsResponse{Allocations: make([]dto.AllocationResponse, 0, len(allocs))}
	for _, a := range allocs {
		res.Allocations = append(res.Allocations, dto.AllocationResponse{
			TrainTripID:       a.Trip.TripID,
			DepartureDateTime: a.Trip.DepartAt,
			OrderID:           a.OrderID,
			AllocatedSpace:    number(a.AllocatedSpace),
			Status:            string(a.Status),
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *ReportHandler) LowCapacity(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		raw = defaultLowCapacityThreshold
	}
	threshold, err := decimal.NewFromString(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "threshold must be a number")
		return
	}

	trips, err := h.Reporter.LowCapacityTrips(r.Context(), threshold)
	if err != nil {
		if errors.Is(err, services.ErrInvalidThreshold) {
			writeError(w, r, http.StatusBadRequest, "threshold out of range")
			return
		}
		log.Printf("low capacity trips failed: req_id=%s err=%v", obs.RequestID(r.Context()), err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, toTripResponses(trips))
}

func (h *ReportHandler) Utilization(w http.ResponseWriter, r *http.Request) {
	v, err := h.Reporter.Utilization(r.Context())
	if err != nil {
		log.Printf("utilization failed: req_id=%s err=%v", obs.RequestID(r.Context()), err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.UtilizationResponse{Utilization: number(v)})
}
