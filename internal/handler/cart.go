package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/xenking/galleria-shop/internal/domain/cart"
)

type addToCartRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
	// Quantity defaults to 1 when omitted.
	Quantity *int `json:"quantity"`
}

func (h *Handler) getCart(c *gin.Context) {
	h.respondCart(c, loadCart(c))
}

func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "productId is required")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	crt := loadCart(c)
	if _, err := h.ledger.Add(c.Request.Context(), crt, req.ProductID, qty); err != nil {
		fail(c, err)
		return
	}
	if err := saveCart(c, crt); err != nil {
		fail(c, errors.Wrap(err, "save session"))
		return
	}
	h.respondCart(c, crt)
}

func (h *Handler) removeFromCart(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid product id")
		return
	}

	crt := loadCart(c)
	h.ledger.Remove(crt, id)
	if err := saveCart(c, crt); err != nil {
		fail(c, errors.Wrap(err, "save session"))
		return
	}
	h.respondCart(c, crt)
}

func (h *Handler) respondCart(c *gin.Context, crt cart.Cart) {
	priced, err := h.ledger.Price(c.Request.Context(), crt)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(priced))
}
