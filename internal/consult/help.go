package consult

import (
	"fmt"
	"strings"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/modeldata"
)

// buildModelHelp turns a failed provider lookup into an actionable
// message: the configured model list for the named service when one
// exists, well-known examples for the model family otherwise, and
// always a pointer at the services configuration.
func buildModelHelp(cfg *domain.Config, reference string, cause error) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("no provider available for %q: %v.", reference, cause))

	service := reference
	if idx := strings.Index(reference, "/"); idx > 0 {
		service = reference[:idx]
	}

	if cfg != nil {
		if svc, ok := cfg.Service(service); ok && len(svc.Models) > 0 {
			sb.WriteString(fmt.Sprintf(
				" Configured models for %q: %s.", service, strings.Join(svc.Models, ", ")))
			sb.WriteString(" Check your services configuration.")
			return sb.String()
		}
	}

	if examples := modeldata.ExamplesFor(reference); len(examples) > 0 {
		sb.WriteString(fmt.Sprintf(
			" Known models in this family include: %s.", strings.Join(examples, ", ")))
	}

	sb.WriteString(" Check your services configuration.")
	return sb.String()
}
