package email

import (
	"context"
	"time"
)

func newEmailContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	// Sends outlive the request that triggered them.
	parent = context.WithoutCancel(parent)
	return context.WithTimeout(parent, timeout)
}
