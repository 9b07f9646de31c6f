package ports

import "context"

// Attachment is one resolved file: original path, text content, and a
// per-file error when the path could not be read.
type Attachment struct {
	Path    string
	Content string
	Err     error
}

// AttachmentResolver turns file paths or glob patterns into text to be
// folded into a prompt. The consult engine never reads files itself.
type AttachmentResolver interface {
	Resolve(ctx context.Context, patterns []string) ([]Attachment, error)
}
