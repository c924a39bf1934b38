package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/hydro-index-service/internal/domain"
)

// ObservationTransformer implements Transformer using the domain parser.
type ObservationTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates an ObservationTransformer.
func NewTransformer(logger *slog.Logger) *ObservationTransformer {
	return &ObservationTransformer{logger: logger}
}

func (t *ObservationTransformer) Transform(_ context.Context, raw domain.RawObservation) (domain.GroupedObservation, error) {
	return domain.ParseRawObservation(raw)
}
