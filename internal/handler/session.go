package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/galleria-shop/internal/domain/cart"
)

const (
	// SessionName is the cookie holding the signed session.
	SessionName = "galleria"

	sessionCart  = "cart"
	sessionAdmin = "admin"
)

// SessionConfig configures the cookie session store.
type SessionConfig struct {
	Secret []byte
	// Secure restricts the cookie to HTTPS.
	Secure bool
	MaxAge int
}

// Sessions returns the middleware that loads and signs the client session.
// The cart and the admin flag live entirely in the cookie.
func Sessions(cfg SessionConfig) gin.HandlerFunc {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7 * 24 * 60 * 60
	}
	store := cookie.NewStore(cfg.Secret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(SessionName, store)
}

// loadCart returns the session cart. A corrupt value yields an empty cart.
func loadCart(c *gin.Context) cart.Cart {
	raw, ok := sessions.Default(c).Get(sessionCart).(string)
	if !ok || raw == "" {
		return cart.New()
	}
	decoded, err := cart.Decode([]byte(raw))
	if err != nil {
		zctx.From(c.Request.Context()).Warn("Discarding unreadable cart", zap.Error(err))
		return cart.New()
	}
	return decoded
}

func saveCart(c *gin.Context, crt cart.Cart) error {
	s := sessions.Default(c)
	if crt.Empty() {
		s.Delete(sessionCart)
	} else {
		s.Set(sessionCart, string(crt.Bytes()))
	}
	return s.Save()
}

func isAdmin(c *gin.Context) bool {
	v, _ := sessions.Default(c).Get(sessionAdmin).(bool)
	return v
}
