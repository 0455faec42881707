package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
	"train-allocation-service/internal/api/dto"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/obs"
	"train-allocation-service/internal/services"
)

const noCapacityMessage = "No available train could accommodate this order"

// AllocationHandler exposes the allocation transaction to order management.
type AllocationHandler struct {
	Allocator *services.Allocator
	// Timeout bounds one allocate request, including all candidate attempts.
	Timeout time.Duration
}

func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "order_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	out, err := h.Allocator.Allocate(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, r, http.StatusNotFound, fmt.Sprintf("order %d not found", orderID))
			return
		}
		log.Printf("allocate failed: req_id=%s order_id=%d err=%v", obs.RequestID(ctx), orderID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	switch {
	case out.Allocated:
		writeJSON(w, r, http.StatusOK, dto.AllocateResponse{
			Success: true,
			Message: fmt.Sprintf("Order allocated to train %d", out.Allocation.Trip.TripID),
		})
	case out.Reason == services.ReasonAlreadyAllocated:
		writeJSON(w, r, http.StatusOK, dto.AllocateResponse{
			Message: fmt.Sprintf("Order %d is already allocated to a train", orderID),
		})
	case out.Reason == services.ReasonBadOrder:
		log.Printf("allocate rejected: req_id=%s order_id=%d err=%v", obs.RequestID(ctx), orderID, out.Detail)
		writeJSON(w, r, http.StatusUnprocessableEntity, dto.AllocateResponse{
			Message: fmt.Sprintf("Order %d cannot be allocated: %s", orderID, badOrderReason(out.Detail)),
		})
	default:
		writeJSON(w, r, http.StatusOK, dto.AllocateResponse{Message: noCapacityMessage})
	}
}

func (h *AllocationHandler) Release(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "order_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	released, err := h.Allocator.Release(r.Context(), orderID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAllocationNotFound), errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("order %d has no active train allocation", orderID))
		return
	case errors.Is(err, domain.ErrAllocationClosed):
		writeError(w, r, http.StatusConflict, fmt.Sprintf("order %d allocation can no longer be released", orderID))
		return
	default:
		log.Printf("release failed: req_id=%s order_id=%d err=%v", obs.RequestID(r.Context()), orderID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.AllocateResponse{
		Success: true,
		Message: fmt.Sprintf("Order %d released from train %d", orderID, released.Trip.TripID),
	})
}

func (h *AllocationHandler) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	key, err := tripKey(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.Allocator.CompleteTrip(r.Context(), key)
	if err != nil {
		log.Printf("complete trip failed: req_id=%s trip=%s err=%v", obs.RequestID(r.Context()), key, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.CompleteTripResponse{Completed: n})
}

func badOrderReason(err error) string {
	var oe *domain.OrderError
	if errors.As(err, &oe) {
		return oe.Reason
	}
	return "order is invalid"
}
