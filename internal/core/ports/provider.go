package ports

import (
	"context"

	"github.com/light-merlin-dark/aia/pkg/schema"
)

// AIProvider defines the contract that all AI backends must implement.
type AIProvider interface {
	Name() string

	// Models returns the model names this provider reports as available.
	Models(ctx context.Context) []string

	// Execute runs a single prompt against one of the provider's models.
	Execute(ctx context.Context, req *schema.ExecutionRequest) (*schema.ExecutionResponse, error)
}

// ModelSelfReporter is implemented by providers with open-ended catalogs
// (e.g. aggregators) that can vouch for models outside any configured list.
type ModelSelfReporter interface {
	SupportsModel(model string) bool
}
