package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderScheduled OrderStatus = "Scheduled"
	OrderInTransit OrderStatus = "In Transit"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

// OrderItem is a single order line.
type OrderItem struct {
	ProductID int64
	Quantity  int
}

// Order is the allocation engine's read view of a customer order.
// Destination is the customer's city; Origin is the dispatching city.
type Order struct {
	OrderID      int64
	CustomerID   int64
	Origin       string
	Destination  string
	ScheduleDate time.Time
	Items        []OrderItem
	Status       OrderStatus
}

// ProductIDs returns the distinct product ids referenced by the order, in line order.
func (o *Order) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(o.Items))
	ids := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}
