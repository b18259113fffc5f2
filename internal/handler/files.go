package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/galleria-shop/internal/storage/files"
)

func (h *Handler) serveUpload(c *gin.Context) {
	name := c.Param("name")
	rc, err := h.files.Open(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) || errors.Is(err, files.ErrInvalidName) {
			abort(c, http.StatusNotFound, "image not found")
			return
		}
		fail(c, err)
		return
	}
	defer func() { _ = rc.Close() }()

	c.Header("Content-Type", files.ContentType(name))
	// Stored names are random and never reused.
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		zctx.From(c.Request.Context()).Debug("Write image", zap.String("image", name), zap.Error(err))
	}
}

func (h *Handler) servePlaceholder(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", h.placeholder)
}
