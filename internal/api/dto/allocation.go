package dto

import (
	"encoding/json"
	"time"
)

// AllocateResponse is shared by allocate-train and release-train.
type AllocateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type AllocationResponse struct {
	TrainTripID       int64       `json:"train_trip_id"`
	DepartureDateTime time.Time   `json:"departure_date_time"`
	OrderID           int64       `json:"order_id"`
	AllocatedSpace    json.Number `json:"allocated_space"`
	Status            string      `json:"status"`
}

type ListAllocationsResponse struct {
	Allocations []AllocationResponse `json:"allocations"`
}

type CompleteTripResponse struct {
	Completed int `json:"completed"`
}
