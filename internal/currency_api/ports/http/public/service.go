package public

import (
	"context"

	"github.com/langowen/azn-rates/internal/entities"
)

type RateStore interface {
	Current() entities.RateTable
}

type Refresher interface {
	RefreshNow(ctx context.Context) error
}
