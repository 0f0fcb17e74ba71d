package report

import (
	"context"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
)

type CityAggregator interface {
	AggregateByCity(ctx context.Context) ([]user.CityStat, error)
}

type Engine struct {
	store CityAggregator
}

func NewEngine(store CityAggregator) *Engine {
	return &Engine{store: store}
}

// CityReport is recomputed from the store on every call.
func (e *Engine) CityReport(ctx context.Context) ([]user.CityStat, error) {
	groups, err := e.store.AggregateByCity(ctx)

	if err != nil {
		return nil, err
	}

	if groups == nil {
		groups = []user.CityStat{}
	}

	for i := range groups {
		if groups[i].Users == nil {
			groups[i].Users = []user.UserSummary{}
		}
	}

	// adapters sort too; this pins the tie-break regardless of backend collation
	SortGroups(groups)

	return groups, nil
}
