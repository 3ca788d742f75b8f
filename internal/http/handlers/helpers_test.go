package handlers

import (
	"context"

	"github.com/nawabsahab16/ancestral-ai/internal/middleware"
)

func contextWithUser(ctx context.Context, userID string) context.Context {
	return middleware.ContextWithUserID(ctx, userID)
}
