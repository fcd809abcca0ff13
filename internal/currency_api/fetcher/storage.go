package fetcher

import (
	"context"

	"github.com/langowen/azn-rates/internal/entities"
)

type RateStore interface {
	Current() entities.RateTable
	Replace(rates entities.RateTable)
	Save(ctx context.Context, rates entities.RateTable) error
}
