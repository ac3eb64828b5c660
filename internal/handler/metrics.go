package handler

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/instasupply/internal/domain/order"
)

type metrics struct {
	placed   metric.Int64Counter
	rejected metric.Int64Counter
	amount   metric.Float64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	placed, err := meter.Int64Counter("insta.orders.placed",
		metric.WithDescription("Orders placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "placed counter")
	}
	rejected, err := meter.Int64Counter("insta.orders.rejected",
		metric.WithDescription("Order placements rejected, by reason"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "rejected counter")
	}
	amount, err := meter.Float64Counter("insta.orders.amount",
		metric.WithDescription("Total value of placed orders"),
		metric.WithUnit("{USD}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "amount counter")
	}
	return &metrics{placed: placed, rejected: rejected, amount: amount}, nil
}

func (m *metrics) orderPlaced(ctx context.Context, o *order.Order) {
	m.placed.Add(ctx, 1)
	m.amount.Add(ctx, o.TotalAmount.InexactFloat64())
}

func (m *metrics) orderRejected(ctx context.Context, err error) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(err))))
}

func rejectReason(err error) string {
	var (
		noStock   *order.InsufficientStockError
		noProduct *order.ProductNotFoundError
	)
	switch {
	case errors.As(err, &noStock):
		return "insufficient_stock"
	case errors.As(err, &noProduct):
		return "product_not_found"
	case isClientError(err):
		return "invalid"
	}
	return "error"
}

func isClientError(err error) bool {
	code, _ := classify(err)
	return code != 0
}
