package services

import (
	"context"
	"errors"
	"testing"
	"train-allocation-service/internal/domain"
)

func TestSizerFootprint(t *testing.T) {
	s := newTestStore(t)
	sizer := NewSizer(s)

	order := &domain.Order{OrderID: 1, Items: []domain.OrderItem{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 5},
		{ProductID: 1, Quantity: 2},
	}}

	fp, err := sizer.Footprint(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 5 x 1.0 + 5 x 0.5
	if !fp.Space.Equal(dec("7.5")) {
		t.Fatalf("space = %s, want 7.5", fp.Space)
	}
	// 5 x 2 + 5 x 25
	if !fp.Weight.Equal(dec("135")) {
		t.Fatalf("weight = %s, want 135", fp.Weight)
	}
}

func TestSizerFootprintErrors(t *testing.T) {
	sizer := NewSizer(newTestStore(t))

	tests := []struct {
		name   string
		items  []domain.OrderItem
		want   error
		reason string
	}{
		{name: "no items", items: nil, want: domain.ErrInvalidOrder, reason: "order has no items"},
		{name: "zero quantity", items: []domain.OrderItem{{ProductID: 1, Quantity: 0}}, want: domain.ErrInvalidOrder, reason: "line 1 has quantity 0"},
		{name: "negative quantity", items: []domain.OrderItem{{ProductID: 1, Quantity: -2}}, want: domain.ErrInvalidOrder, reason: "line 1 has quantity -2"},
		{name: "unknown product", items: []domain.OrderItem{{ProductID: 1, Quantity: 1}, {ProductID: 404, Quantity: 1}}, want: domain.ErrUnknownProduct, reason: "unknown product 404"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sizer.Footprint(context.Background(), &domain.Order{OrderID: 7, Items: tc.items})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			var oe *domain.OrderError
			if !errors.As(err, &oe) || oe.Reason != tc.reason || oe.OrderID != 7 {
				t.Fatalf("order error = %+v, want reason %q", oe, tc.reason)
			}
		})
	}
}

func TestSizerZeroSpaceProduct(t *testing.T) {
	sizer := NewSizer(newTestStore(t))

	fp, err := sizer.Footprint(context.Background(), &domain.Order{OrderID: 1, Items: []domain.OrderItem{{ProductID: 9, Quantity: 10}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fp.Space.IsZero() {
		t.Fatalf("space = %s, want 0", fp.Space)
	}
}
