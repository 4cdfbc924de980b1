package http

import (
	"context"

	"stocktake/internal/dataprocessing"
	"stocktake/pkg/contracts/domain"
)

// StocktakeRunner runs the stock take pipeline over uploaded workbooks.
// *dataprocessing.Processor satisfies it.
type StocktakeRunner interface {
	Run(ctx context.Context, sources []dataprocessing.Source) (*domain.Result, error)
}
