package dto

import (
	"encoding/json"
	"time"
)

type TripResponse struct {
	TrainTripID       int64       `json:"train_trip_id"`
	DepartureCity     string      `json:"departure_city"`
	ArrivalCity       string      `json:"arrival_city"`
	DepartureDateTime time.Time   `json:"departure_date_time"`
	ArrivalDateTime   time.Time   `json:"arrival_date_time"`
	TotalCapacity     json.Number `json:"total_capacity"`
	AvailableCapacity json.Number `json:"available_capacity"`
	UsedCapacity      json.Number `json:"used_capacity"`
}

type ListTripsResponse struct {
	Trips []TripResponse `json:"trips"`
}

type UtilizationResponse struct {
	Utilization json.Number `json:"utilization"`
}
