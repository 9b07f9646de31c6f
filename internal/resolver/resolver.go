package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"go.uber.org/zap"
)

// Resolver is the strict model-reference disambiguator used before
// dispatch when hierarchy matters. Unlike the registry's lenient lookup,
// ambiguity here is a hard error, never a guess.
type Resolver struct {
	cfg    *domain.Config
	logger *zap.Logger
}

func New(cfg *domain.Config, logger *zap.Logger) *Resolver {
	return &Resolver{cfg: cfg, logger: logger}
}

// Resolve turns a bare or qualified model reference into exactly one
// (service, model) pair.
//
// A qualified reference splits on the first slash only, so multi-segment
// model names such as "openrouter/google/gemini-2.5-pro" stay intact. A
// slash-prefixed reference whose prefix is not a configured service falls
// through to bare resolution, since the whole string may be a model name
// that contains a slash.
func (r *Resolver) Resolve(reference string) (schema.ResolvedModel, error) {
	if idx := strings.Index(reference, "/"); idx > 0 {
		service, model := reference[:idx], reference[idx+1:]
		if svc, ok := r.cfg.Service(service); ok {
			if svc.HasModel(model) {
				return resolved(service, model), nil
			}
			return schema.ResolvedModel{}, domain.NotFoundError(fmt.Sprintf(
				"model %q is not configured for service %q (configured: %s)",
				model, service, strings.Join(svc.Models, ", ")))
		}
	}

	return r.resolveBare(reference)
}

func (r *Resolver) resolveBare(model string) (schema.ResolvedModel, error) {
	// Default service wins outright when it carries the model.
	if r.cfg.DefaultService != "" {
		if svc, ok := r.cfg.Service(r.cfg.DefaultService); ok && svc.HasModel(model) {
			return resolved(r.cfg.DefaultService, model), nil
		}
	}

	var matches []string
	for _, service := range r.serviceNames() {
		if service == domain.DefaultServiceKey {
			continue
		}
		if r.cfg.Services[service].HasModel(model) {
			matches = append(matches, service)
		}
	}

	switch len(matches) {
	case 0:
		return schema.ResolvedModel{}, domain.NotFoundError(fmt.Sprintf(
			"model %q not found in any configured service; available: %s",
			model, strings.Join(r.allQualifiedModels(), ", ")))
	case 1:
		return resolved(matches[0], model), nil
	default:
		return schema.ResolvedModel{}, domain.AmbiguousModelError(fmt.Sprintf(
			"model %q is ambiguous, found in services {%s}; qualify the reference as service/model or set a default service",
			model, strings.Join(matches, ", ")))
	}
}

// ResolveModels resolves each entry independently, returning resolved
// entries and per-entry errors separately. Callers decide whether
// partial resolution is acceptable.
func (r *Resolver) ResolveModels(references []string) ([]schema.ResolvedModel, []error) {
	var out []schema.ResolvedModel
	var errs []error

	for _, ref := range references {
		rm, err := r.Resolve(ref)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ref, err))
			continue
		}
		out = append(out, rm)
	}
	return out, errs
}

// DefaultModels determines the caller's effective default model set as
// fully-qualified names. Priority: explicit single default, explicit
// default list, then the default service's first configured model.
// Entries that cannot be qualified are dropped with a warning.
func (r *Resolver) DefaultModels() []string {
	if r.cfg.DefaultModel != "" {
		if rm, err := r.Resolve(r.cfg.DefaultModel); err == nil {
			return []string{rm.FullName}
		}
		r.logger.Warn("default model could not be qualified",
			zap.String("model", r.cfg.DefaultModel))
	}

	if len(r.cfg.DefaultModels) > 0 {
		var out []string
		for _, ref := range r.cfg.DefaultModels {
			// List entries must already be qualified, or live on the
			// default service.
			if strings.Contains(ref, "/") {
				rm, err := r.Resolve(ref)
				if err != nil {
					r.logger.Warn("dropping unresolvable default model",
						zap.String("model", ref),
						zap.Error(err))
					continue
				}
				out = append(out, rm.FullName)
				continue
			}
			if svc, ok := r.cfg.Service(r.cfg.DefaultService); ok && svc.HasModel(ref) {
				out = append(out, r.cfg.DefaultService+"/"+ref)
				continue
			}
			r.logger.Warn("dropping unqualifiable default model", zap.String("model", ref))
		}
		return out
	}

	if r.cfg.DefaultService != "" {
		if svc, ok := r.cfg.Service(r.cfg.DefaultService); ok && len(svc.Models) > 0 {
			return []string{r.cfg.DefaultService + "/" + svc.Models[0]}
		}
	}

	return nil
}

func (r *Resolver) serviceNames() []string {
	names := make([]string, 0, len(r.cfg.Services))
	for name := range r.cfg.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Resolver) allQualifiedModels() []string {
	var out []string
	for _, service := range r.serviceNames() {
		if service == domain.DefaultServiceKey {
			continue
		}
		for _, m := range r.cfg.Services[service].Models {
			out = append(out, service+"/"+m)
		}
	}
	return out
}

func resolved(service, model string) schema.ResolvedModel {
	return schema.ResolvedModel{
		Service:  service,
		Model:    model,
		FullName: service + "/" + model,
	}
}
