package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/xenking/galleria-shop/internal/domain/catalog"
)

// limitBody caps the request body at the configured upload size.
func (h *Handler) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	c.Next()
}

func (h *Handler) adminListProducts(c *gin.Context) {
	h.listProducts(c)
}

func (h *Handler) createProduct(c *gin.Context) {
	upload, cleanup, ok := h.formImage(c)
	if !ok {
		return
	}
	defer cleanup()

	res, err := h.catalog.Create(c.Request.Context(), catalog.CreateRequest{
		Name:        c.PostForm("name"),
		Slug:        c.PostForm("slug"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
		Stock:       c.PostForm("stock"),
		Image:       upload,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.savedResponse(res))
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid product id")
		return
	}
	upload, cleanup, ok := h.formImage(c)
	if !ok {
		return
	}
	defer cleanup()

	res, err := h.catalog.Update(c.Request.Context(), id, catalog.UpdateRequest{
		Price: c.PostForm("price"),
		Stock: c.PostForm("stock"),
		Image: upload,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.savedResponse(res))
}

func (h *Handler) savedResponse(res *catalog.Result) productSavedResponse {
	resp := productSavedResponse{Product: h.productResponse(res.Product)}
	if res.ImageErr != nil {
		resp.ImageError = res.ImageErr.Error()
	}
	return resp
}

// formImage parses the multipart form and opens the optional "image" file.
// It writes the error response itself and returns ok=false on failure.
func (h *Handler) formImage(c *gin.Context) (_ *catalog.Upload, cleanup func(), ok bool) {
	cleanup = func() {}
	fh, err := c.FormFile("image")
	switch {
	case err == nil:
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// The edit form may be sent url-encoded when no picture is attached.
		return nil, cleanup, true
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return nil, cleanup, false
		}
		abort(c, http.StatusBadRequest, "invalid form")
		return nil, cleanup, false
	}
	if fh.Filename == "" {
		return nil, cleanup, true
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, errors.Wrap(err, "open upload"))
		return nil, cleanup, false
	}
	return &catalog.Upload{Filename: fh.Filename, Body: f}, closer(f), true
}

func closer(f multipart.File) func() {
	return func() { _ = f.Close() }
}
