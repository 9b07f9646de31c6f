package attach

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/light-merlin-dark/aia/internal/core/ports"
	"go.uber.org/zap"
)

// MaxFileBytes bounds how much of a single file is folded into a prompt.
const MaxFileBytes = 256 * 1024

// Resolver expands glob patterns and reads file contents for prompt
// embedding. Unreadable files yield a per-file error rather than failing
// the whole resolution.
type Resolver struct {
	logger *zap.Logger
}

func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger}
}

var _ ports.AttachmentResolver = (*Resolver)(nil)

func (r *Resolver) Resolve(ctx context.Context, patterns []string) ([]ports.Attachment, error) {
	var out []ports.Attachment

	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			out = append(out, ports.Attachment{
				Path: pattern,
				Err:  fmt.Errorf("no files matched %q", pattern),
			})
			continue
		}

		for _, path := range matches {
			out = append(out, r.read(path))
		}
	}

	return out, nil
}

func (r *Resolver) read(path string) ports.Attachment {
	info, err := os.Stat(path)
	if err != nil {
		return ports.Attachment{Path: path, Err: err}
	}
	if info.IsDir() {
		return ports.Attachment{Path: path, Err: fmt.Errorf("%s is a directory", path)}
	}
	if info.Size() > MaxFileBytes {
		return ports.Attachment{Path: path, Err: fmt.Errorf("%s exceeds %d bytes", path, MaxFileBytes)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ports.Attachment{Path: path, Err: err}
	}

	r.logger.Debug("resolved attachment",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)

	return ports.Attachment{Path: path, Content: string(data)}
}
