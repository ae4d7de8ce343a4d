package output

import (
	"context"
	"time"

	"github.com/anyaat/Atlas/internal/domain/lifecycle"
)

// Notifier delivers lifecycle notices to managers.
type Notifier interface {
	Notify(ctx context.Context, n lifecycle.Notice) error
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}
