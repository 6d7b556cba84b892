package middleware

import (
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"protocolo/internal/core/apperror"
	appctx "protocolo/internal/core/context"
)

// HeaderActorID carries the caller-supplied actor identity.
// Authentication is external to this service: the gateway in front of it is
// expected to resolve the user and forward a stable identifier here.
const HeaderActorID = "X-Actor-Id"

// MaxActorIDLen matches the column the actor is persisted into. Oversized
// headers are rejected here so they surface as a 400 instead of a storage
// error deep inside a transaction.
const MaxActorIDLen = 100

// Actor middleware places the caller-supplied actor on the request context.
// Mutating handlers reject requests without one; read-only handlers ignore it.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorID := c.GetHeader(HeaderActorID); actorID != "" {
			if utf8.RuneCountInString(actorID) > MaxActorIDLen {
				_ = c.Error(apperror.NewValidation("actor id must be at most 100 characters").
					WithDetail("header", HeaderActorID))
				c.Abort()
				return
			}
			ctx := appctx.WithActor(c.Request.Context(), &appctx.Actor{ID: actorID})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
