package handler

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// checkPassword compares SHA-256 digests in constant time so the response
// time does not depend on how much of the password matched.
func (h *Handler) checkPassword(password string) bool {
	if h.adminHash == nil {
		return false
	}
	sum := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare(sum[:], h.adminHash) == 1
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "password is required")
		return
	}
	if !h.checkPassword(req.Password) {
		zctx.From(c.Request.Context()).Warn("Admin login rejected", zap.String("client_ip", c.ClientIP()))
		abort(c, http.StatusUnauthorized, "wrong password")
		return
	}

	s := sessions.Default(c)
	s.Set(sessionAdmin, true)
	if err := s.Save(); err != nil {
		fail(c, errors.Wrap(err, "save session"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) logout(c *gin.Context) {
	s := sessions.Default(c)
	s.Delete(sessionAdmin)
	if err := s.Save(); err != nil {
		fail(c, errors.Wrap(err, "save session"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) requireAdmin(c *gin.Context) {
	if !isAdmin(c) {
		abort(c, http.StatusUnauthorized, "admin login required")
		return
	}
	c.Next()
}
