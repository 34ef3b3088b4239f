package session

import (
	"procurement/bizerror"
	"procurement/domain"

	"github.com/gin-gonic/gin"
)

const KeyIdentity = "SessionIdentity"

// Sessions exposes the signed in identity of the instance.
type Sessions interface {
	Current() *domain.Identity
	IsPrivileged() bool
}

func FindIdentity(ctx *gin.Context) *domain.Identity {
	value, found := ctx.Get(KeyIdentity)
	if !found {
		return nil
	}
	identity, ok := value.(*domain.Identity)
	if !ok || identity == nil {
		return nil
	}
	return identity
}

func SaveIdentity(ctx *gin.Context, identity *domain.Identity) {
	if identity != nil {
		ctx.Set(KeyIdentity, identity)
	}
}

func RequireSession(s Sessions) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity := s.Current()
		if identity == nil {
			panic(bizerror.ErrUnauthenticated)
		}
		SaveIdentity(ctx, identity)
		ctx.Next()
	}
}

func RequirePrivileged(s Sessions) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity := s.Current()
		if identity == nil {
			panic(bizerror.ErrUnauthenticated)
		}
		if !s.IsPrivileged() {
			panic(bizerror.ErrForbidden)
		}
		SaveIdentity(ctx, identity)
		ctx.Next()
	}
}
