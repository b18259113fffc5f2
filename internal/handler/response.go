package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/galleria-shop/internal/domain/catalog"
	"github.com/xenking/galleria-shop/internal/domain/ledger"
	"github.com/xenking/galleria-shop/internal/domain/money"
	"github.com/xenking/galleria-shop/internal/domain/order"
	"github.com/xenking/galleria-shop/internal/domain/product"
	"github.com/xenking/galleria-shop/internal/media"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type productResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	PriceCents   int64  `json:"priceCents"`
	PriceDisplay string `json:"priceDisplay"`
	Image        string `json:"image"`
	Stock        int    `json:"stock"`
	InStock      bool   `json:"inStock"`
}

type cartItemResponse struct {
	Product  productResponse `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal string          `json:"subtotal"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
	Total string             `json:"total"`
	Count int                `json:"count"`
}

type orderLineResponse struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Subtotal  string `json:"subtotal"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	CreatedAt       time.Time           `json:"createdAt"`
	CustomerName    string              `json:"customerName"`
	CustomerAddress string              `json:"customerAddress"`
	Items           string              `json:"items"`
	Lines           []orderLineResponse `json:"lines,omitempty"`
	Total           string              `json:"total"`
}

type checkoutResponse struct {
	Order        orderResponse `json:"order"`
	MessengerURL string        `json:"messengerUrl"`
}

type ordersResponse struct {
	Orders  []orderResponse `json:"orders"`
	Revenue string          `json:"revenue"`
}

type productSavedResponse struct {
	Product    productResponse `json:"product"`
	ImageError string          `json:"imageError,omitempty"`
}

func (h *Handler) productResponse(p *product.Product) productResponse {
	image := "/_placeholder.png"
	if p.Image != "" {
		image = "/uploads/" + p.Image
	}
	return productResponse{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		Price:        p.Price.String(),
		PriceCents:   int64(p.Price),
		PriceDisplay: p.Price.Format(h.currency),
		Image:        image,
		Stock:        p.Stock,
		InStock:      p.InStock(),
	}
}

func (h *Handler) cartResponse(priced *ledger.Priced) cartResponse {
	resp := cartResponse{
		Items: make([]cartItemResponse, len(priced.Lines)),
		Total: priced.Total.String(),
		Count: priced.Count(),
	}
	for i, l := range priced.Lines {
		resp.Items[i] = cartItemResponse{
			Product:  h.productResponse(&l.Product),
			Quantity: l.Quantity,
			Subtotal: l.Subtotal.String(),
		}
	}
	return resp
}

func orderToResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		CreatedAt:       o.CreatedAt,
		CustomerName:    o.CustomerName,
		CustomerAddress: o.CustomerAddress,
		Items:           o.Summary,
		Total:           o.Total.String(),
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.String(),
			Subtotal:  l.Subtotal().String(),
		})
	}
	return resp
}

// fail writes the error response for err. Unknown errors are logged and
// reported as 500 without details.
func fail(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		zctx.From(c.Request.Context()).Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: status, Message: msg})
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: status, Message: msg})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) (int, string) {
	var (
		stockErr    *ledger.InsufficientStockError
		missingErr  *ledger.ProductMissingError
		qtyErr      *ledger.InvalidQuantityError
		validateErr *catalog.ValidationError
	)
	switch {
	case errors.As(err, &stockErr):
		return http.StatusConflict, stockErr.Error()
	case errors.As(err, &missingErr):
		return http.StatusNotFound, missingErr.Error()
	case errors.As(err, &qtyErr):
		return http.StatusUnprocessableEntity, qtyErr.Error()
	case errors.As(err, &validateErr):
		return http.StatusUnprocessableEntity, validateErr.Error()
	case errors.Is(err, ledger.ErrEmptyCart):
		return http.StatusBadRequest, ledger.ErrEmptyCart.Error()
	case errors.Is(err, ledger.ErrCustomerRequired):
		return http.StatusBadRequest, ledger.ErrCustomerRequired.Error()
	case errors.Is(err, ledger.ErrPersistenceConflict):
		return http.StatusConflict, ledger.ErrPersistenceConflict.Error()
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, product.ErrNotFound.Error()
	case errors.Is(err, product.ErrSlugTaken):
		return http.StatusConflict, product.ErrSlugTaken.Error()
	case errors.Is(err, money.ErrOverflow):
		return http.StatusUnprocessableEntity, "order amount too large"
	case errors.Is(err, media.ErrInvalidImageFormat), errors.Is(err, media.ErrImageTooLarge):
		return http.StatusUnprocessableEntity, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}
