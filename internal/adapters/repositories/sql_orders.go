package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"
	"train-allocation-service/internal/domain"

	"github.com/georgysavva/scany/sqlscan"
	"github.com/shopspring/decimal"
)

type orderRow struct {
	OrderID      int64     `db:"order_id"`
	CustomerID   int64     `db:"customer_id"`
	City         string    `db:"city"`
	ScheduleDate time.Time `db:"schedule_date"`
	Status       string    `db:"status"`
}

type orderItemRow struct {
	ProductID int64 `db:"product_id"`
	Quantity  int   `db:"quantity"`
}

// GetOrder implements ports.OrderRepository. The destination is the
// customer's city; the origin is the store's dispatching city.
func (s *SQLStore) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	orderQuery := `
	SELECT
		o.order_id,
		o.customer_id,
		c.city,
		o.schedule_date,
		o.status
	FROM "order" o
	JOIN customer c ON c.customer_id = o.customer_id
	WHERE o.order_id = $1;
	`
	var row orderRow
	if err := sqlscan.Get(ctx, db, &row, s.q(orderQuery), orderID); err != nil {
		if sqlscan.NotFound(err) {
			return nil, fmt.Errorf("get order %d: %w", orderID, domain.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("get order %d: query order table: %w", orderID, err)
	}

	itemsQuery := `
	SELECT product_id, quantity
	FROM order_item
	WHERE order_id = $1
	ORDER BY product_id;
	`
	var items []orderItemRow
	if err := sqlscan.Select(ctx, db, &items, s.q(itemsQuery), orderID); err != nil {
		return nil, fmt.Errorf("get order %d: query order_item table: %w", orderID, err)
	}

	order := &domain.Order{
		OrderID:      row.OrderID,
		CustomerID:   row.CustomerID,
		Origin:       s.Origin,
		Destination:  strings.TrimSpace(row.City),
		ScheduleDate: row.ScheduleDate.UTC(),
		Status:       domain.OrderStatus(row.Status),
		Items:        make([]domain.OrderItem, 0, len(items)),
	}
	for _, it := range items {
		order.Items = append(order.Items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	return order, nil
}

// UpdateOrderStatus implements ports.OrderRepository.
func (s *SQLStore) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, s.q(`UPDATE "order" SET status = $2 WHERE order_id = $1;`), orderID, string(status))
	if err != nil {
		return fmt.Errorf("update order %d status: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order %d status: rows affected: %w", orderID, err)
	}
	if n == 0 {
		return fmt.Errorf("update order %d status: %w", orderID, domain.ErrOrderNotFound)
	}
	return nil
}

type productRow struct {
	ProductID         int64  `db:"product_id"`
	ProductName       string `db:"product_name"`
	UnitWeight        string `db:"unit_weight"`
	TrainSpacePerUnit string `db:"train_space_per_unit"`
}

// Products implements ports.ProductCatalog.
func (s *SQLStore) Products(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	if len(ids) == 0 {
		return map[int64]domain.Product{}, nil
	}

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var (
		query string
		args  []any
	)
	if s.Dialect == Postgres {
		query = `
		SELECT product_id, product_name, unit_weight, train_space_per_unit
		FROM product
		WHERE product_id = ANY($1::bigint[]);
		`
		args = []any{ids}
	} else {
		// SQLite does not bind slices; only the placeholder list is interpolated.
		ph := make([]string, 0, len(ids))
		args = make([]any, 0, len(ids))
		for i, id := range ids {
			ph = append(ph, fmt.Sprintf("?%d", i+1))
			args = append(args, id)
		}
		query = fmt.Sprintf(`
		SELECT product_id, product_name, unit_weight, train_space_per_unit
		FROM product
		WHERE product_id IN (%s);
		`, strings.Join(ph, ","))
	}

	var rows []productRow
	if err := sqlscan.Select(ctx, db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load products: query product table: %w", err)
	}

	out := make(map[int64]domain.Product, len(rows))
	for _, r := range rows {
		weight, err := decimal.NewFromString(r.UnitWeight)
		if err != nil {
			return nil, fmt.Errorf("load products: product %d unit_weight %q: %w", r.ProductID, r.UnitWeight, err)
		}
		space, err := decimal.NewFromString(r.TrainSpacePerUnit)
		if err != nil {
			return nil, fmt.Errorf("load products: product %d train_space_per_unit %q: %w", r.ProductID, r.TrainSpacePerUnit, err)
		}
		out[r.ProductID] = domain.Product{
			ProductID:         r.ProductID,
			Name:              r.ProductName,
			UnitWeight:        weight,
			TrainSpacePerUnit: space,
		}
	}

	return out, nil
}
