package httpx

import (
	"context"

	"github.com/google/uuid"
)

// callID returns the ID carried by ctx, or a fresh random one.
func callID(ctx context.Context) string {
	if id, ok := CallIDFrom(ctx); ok {
		return id
	}
	return uuid.NewString()
}
