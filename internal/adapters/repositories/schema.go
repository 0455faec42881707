package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"train-allocation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// InitSchema creates the allocation tables if they do not exist.
func InitSchema(db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := "TIMESTAMPTZ"
	if dialect == SQLite {
		ts = "TIMESTAMP"
	}

	createTrainTripQuery := `
	CREATE TABLE IF NOT EXISTS train_trip (
		train_trip_id BIGINT NOT NULL,
		departure_city TEXT NOT NULL,
		arrival_city TEXT NOT NULL,
		departure_date_time ` + ts + ` NOT NULL,
		arrival_date_time ` + ts + ` NOT NULL,
		total_capacity NUMERIC(12,2) NOT NULL CHECK (total_capacity >= 0),
		available_capacity NUMERIC(12,2) NOT NULL CHECK (available_capacity >= 0),
		PRIMARY KEY (train_trip_id, departure_date_time),
		CHECK (available_capacity <= total_capacity)
	);
	`

	createProductQuery := `
	CREATE TABLE IF NOT EXISTS product (
		product_id BIGINT PRIMARY KEY,
		product_name TEXT NOT NULL,
		unit_weight NUMERIC(10,2) NOT NULL,
		train_space_per_unit NUMERIC(10,2) NOT NULL CHECK (train_space_per_unit >= 0)
	);
	`

	createCustomerQuery := `
	CREATE TABLE IF NOT EXISTS customer (
		customer_id BIGINT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		city TEXT NOT NULL
	);
	`

	createOrderQuery := `
	CREATE TABLE IF NOT EXISTS "order" (
		order_id BIGINT PRIMARY KEY,
		customer_id BIGINT NOT NULL REFERENCES customer(customer_id),
		schedule_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending'
	);
	`

	createOrderItemQuery := `
	CREATE TABLE IF NOT EXISTS order_item (
		order_id BIGINT NOT NULL REFERENCES "order"(order_id),
		product_id BIGINT NOT NULL REFERENCES product(product_id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (order_id, product_id)
	);
	`

	createTrainScheduleQuery := `
	CREATE TABLE IF NOT EXISTS train_schedule (
		train_trip_id BIGINT NOT NULL,
		train_departure_date_time ` + ts + ` NOT NULL,
		order_id BIGINT NOT NULL REFERENCES "order"(order_id),
		allocated_space NUMERIC(12,2) NOT NULL CHECK (allocated_space > 0),
		status TEXT NOT NULL DEFAULT 'Allocated'
			CHECK (status IN ('Allocated', 'Completed', 'Cancelled')),
		PRIMARY KEY (train_trip_id, train_departure_date_time, order_id),
		FOREIGN KEY (train_trip_id, train_departure_date_time)
			REFERENCES train_trip(train_trip_id, departure_date_time)
	);
	`

	createActiveOrderIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS ux_train_schedule_active_order
	ON train_schedule(order_id) WHERE status <> 'Cancelled';
	`

	createTripRouteIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_train_trip_route_departure
	ON train_trip(departure_city, arrival_city, departure_date_time);
	`

	statements := []string{
		createTrainTripQuery,
		createProductQuery,
		createCustomerQuery,
		createOrderQuery,
		createOrderItemQuery,
		createTrainScheduleQuery,
		createActiveOrderIndexQuery,
		createTripRouteIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type CustomerSeed struct {
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"customer_name"`
	City       string `json:"city"`
}

type ProductSeed struct {
	ProductID         int64           `json:"product_id"`
	Name              string          `json:"product_name"`
	UnitWeight        decimal.Decimal `json:"unit_weight"`
	TrainSpacePerUnit decimal.Decimal `json:"train_space_per_unit"`
}

type TrainTripSeed struct {
	TripID        int64           `json:"train_trip_id"`
	DepartureCity string          `json:"departure_city"`
	ArrivalCity   string          `json:"arrival_city"`
	DepartAt      time.Time       `json:"departure_date_time"`
	ArriveAt      time.Time       `json:"arrival_date_time"`
	TotalCapacity decimal.Decimal `json:"total_capacity"`
	// AvailableCapacity defaults to TotalCapacity when omitted.
	AvailableCapacity *decimal.Decimal `json:"available_capacity,omitempty"`
}

type OrderItemSeed struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderSeed struct {
	OrderID      int64           `json:"order_id"`
	CustomerID   int64           `json:"customer_id"`
	ScheduleDate string          `json:"schedule_date"`
	Status       string          `json:"status,omitempty"`
	Items        []OrderItemSeed `json:"items"`
}

type Seed struct {
	Customers  []CustomerSeed  `json:"customers"`
	Products   []ProductSeed   `json:"products"`
	TrainTrips []TrainTripSeed `json:"train_trips"`
	Orders     []OrderSeed     `json:"orders"`
}

type seedInsert struct {
	table string
	query string
	args  []any
}

// SeedFromJSON loads customers, products, trips and orders from a JSON file.
// Rows that already exist are left untouched.
func SeedFromJSON(db *sql.DB, dialect Dialect, jsonPath string) error {
	if db == nil {
		return errors.New("seed: DB is nil")
	}

	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	inserts, err := data.inserts()
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := map[string]*sql.Stmt{}
	defer func() {
		for _, st := range stmts {
			_ = st.Close()
		}
	}()

	for _, in := range inserts {
		stmt, ok := stmts[in.query]
		if !ok {
			stmt, err = tx.Prepare(rebind(dialect, in.query))
			if err != nil {
				return fmt.Errorf("seed: prepare insert into %s: %w", in.table, err)
			}
			stmts[in.query] = stmt
		}
		if _, err := stmt.Exec(in.args...); err != nil {
			return fmt.Errorf("seed: insert into %s %v: %w", in.table, in.args[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

// inserts validates the seed and returns its rows in foreign key order.
func (d Seed) inserts() ([]seedInsert, error) {
	var out []seedInsert

	for i, c := range d.Customers {
		city := strings.TrimSpace(c.City)
		if c.CustomerID <= 0 {
			return nil, fmt.Errorf("invalid customer_id at index %d: %d", i+1, c.CustomerID)
		}
		if city == "" {
			return nil, fmt.Errorf("customer %d: city cannot be empty", c.CustomerID)
		}
		out = append(out, seedInsert{
			table: "customer",
			query: `INSERT INTO customer (customer_id, customer_name, city) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING;`,
			args:  []any{c.CustomerID, strings.TrimSpace(c.Name), city},
		})
	}

	for i, p := range d.Products {
		if p.ProductID <= 0 {
			return nil, fmt.Errorf("invalid product_id at index %d: %d", i+1, p.ProductID)
		}
		if p.TrainSpacePerUnit.IsNegative() || p.UnitWeight.IsNegative() {
			return nil, fmt.Errorf("product %d: weight and space per unit must not be negative", p.ProductID)
		}
		out = append(out, seedInsert{
			table: "product",
			query: `INSERT INTO product (product_id, product_name, unit_weight, train_space_per_unit) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING;`,
			args:  []any{p.ProductID, strings.TrimSpace(p.Name), p.UnitWeight, p.TrainSpacePerUnit},
		})
	}

	for i, t := range d.TrainTrips {
		if t.TripID <= 0 {
			return nil, fmt.Errorf("invalid train_trip_id at index %d: %d", i+1, t.TripID)
		}
		trip := domain.TrainTrip{
			Key:               domain.NewTripKey(t.TripID, t.DepartAt),
			DepartureCity:     strings.TrimSpace(t.DepartureCity),
			ArrivalCity:       strings.TrimSpace(t.ArrivalCity),
			ArriveAt:          t.ArriveAt.UTC(),
			TotalCapacity:     t.TotalCapacity,
			AvailableCapacity: t.TotalCapacity,
		}
		if t.AvailableCapacity != nil {
			trip.AvailableCapacity = *t.AvailableCapacity
		}
		if trip.DepartureCity == "" || trip.ArrivalCity == "" {
			return nil, fmt.Errorf("trip %s: cities cannot be empty", trip.Key)
		}
		if err := trip.Validate(); err != nil {
			return nil, err
		}
		out = append(out, seedInsert{
			table: "train_trip",
			query: `INSERT INTO train_trip (train_trip_id, departure_city, arrival_city, departure_date_time, arrival_date_time, total_capacity, available_capacity)
			VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT DO NOTHING;`,
			args: []any{trip.Key.TripID, trip.DepartureCity, trip.ArrivalCity, trip.Key.DepartAt, trip.ArriveAt, trip.TotalCapacity, trip.AvailableCapacity},
		})
	}

	for i, o := range d.Orders {
		if o.OrderID <= 0 {
			return nil, fmt.Errorf("invalid order_id at index %d: %d", i+1, o.OrderID)
		}
		date, err := time.Parse(time.DateOnly, strings.TrimSpace(o.ScheduleDate))
		if err != nil {
			return nil, fmt.Errorf("order %d: schedule_date: %w", o.OrderID, err)
		}
		status := domain.OrderStatus(strings.TrimSpace(o.Status))
		if status == "" {
			status = domain.OrderPending
		}
		out = append(out, seedInsert{
			table: "order",
			query: `INSERT INTO "order" (order_id, customer_id, schedule_date, status) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING;`,
			args:  []any{o.OrderID, o.CustomerID, date, string(status)},
		})
		for _, it := range o.Items {
			if it.Quantity <= 0 {
				return nil, fmt.Errorf("order %d: product %d: quantity must be positive, got %d", o.OrderID, it.ProductID, it.Quantity)
			}
			out = append(out, seedInsert{
				table: "order_item",
				query: `INSERT INTO order_item (order_id, product_id, quantity) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING;`,
				args:  []any{o.OrderID, it.ProductID, it.Quantity},
			})
		}
	}

	return out, nil
}
