package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/galleria-shop/internal/domain/ledger"
)

type checkoutRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
}

func (h *Handler) checkout(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "shop.Checkout")
	defer span.End()

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "name and address are required")
		return
	}

	crt := loadCart(c)
	o, err := h.ledger.Checkout(ctx, crt, ledger.Customer{Name: req.Name, Address: req.Address})
	h.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", checkoutResult(err))))
	if err != nil {
		span.RecordError(err)
		var missing *ledger.ProductMissingError
		if errors.As(err, &missing) {
			// The cart refers to a product deleted since it was added.
			abort(c, http.StatusUnprocessableEntity, missing.Error())
			return
		}
		fail(c, err)
		return
	}
	span.SetAttributes(attribute.Int64("order.id", o.ID))

	if err := saveCart(c, crt); err != nil {
		// The order is already committed.
		zctx.From(ctx).Warn("Clear cart after checkout", zap.Error(err))
	}

	zctx.From(ctx).Info("Order placed",
		zap.Int64("order_id", o.ID),
		zap.String("total", o.Total.String()),
	)
	c.JSON(http.StatusCreated, checkoutResponse{
		Order:        orderToResponse(o),
		MessengerURL: h.messenger.URL(o),
	})
}

func checkoutResult(err error) string {
	var stockErr *ledger.InsufficientStockError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.Is(err, ledger.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ledger.ErrPersistenceConflict):
		return "conflict"
	}
	return "error"
}

func (h *Handler) listOrders(c *gin.Context) {
	ctx := c.Request.Context()
	orders, err := h.orders.List(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	revenue, err := h.orders.Revenue(ctx)
	if err != nil {
		fail(c, err)
		return
	}

	resp := ordersResponse{
		Orders:  make([]orderResponse, len(orders)),
		Revenue: revenue.StringFixed(2),
	}
	for i := range orders {
		resp.Orders[i] = orderToResponse(&orders[i])
	}
	c.JSON(http.StatusOK, resp)
}
