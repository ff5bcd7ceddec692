package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/indielance/cra/internal/identity"
)

// HeaderUser carries the authenticated user id, set by the auth proxy in
// front of this service. Credential checks are out of scope here.
const HeaderUser = "X-User-ID"

// ActorRequired resolves the acting user from the request and threads it
// through the request context as an explicit actor value.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity.ParseActorID(c.GetHeader(HeaderUser))
		if !ok {
			abortUnauthorized(c)
			return
		}

		ctx := identity.WithActor(c.Request.Context(), identity.Actor{ID: id})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// actor returns the actor placed on the context by ActorRequired.
func actor(c *gin.Context) identity.Actor {
	a, _ := identity.ActorFromContext(c.Request.Context())
	return a
}

// WriteRateLimit throttles mutating calls per actor. Reads pass through,
// and redis outages fail open so the limiter never takes the API down.
func (s *Server) WriteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() || c.Request.Method == "GET" {
			c.Next()
			return
		}

		a := actor(c)
		ok, err := s.limiter.AllowWrite(c.Request.Context(), a.ID)
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"code": "rate_limited", "message": "too many requests"},
			})
			return
		}
		c.Next()
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
