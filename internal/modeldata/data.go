package modeldata

import "strings"

// ExampleModels lists a few well-known model names per backend family.
// Used to build help text when a requested model cannot be resolved and
// the service has no configured model list to show instead.
var ExampleModels = map[string][]string{
	"openai": {
		"gpt-4o",
		"gpt-4-turbo",
		"gpt-3.5-turbo",
	},
	"anthropic": {
		"claude-3-5-sonnet-20240620",
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
	},
	"google": {
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	},
	"openrouter": {
		"google/gemini-2.5-pro",
		"anthropic/claude-3.5-sonnet",
		"meta-llama/llama-3.1-70b-instruct",
	},
	"ollama": {
		"llama3.1",
		"mistral",
		"qwen2.5",
	},
}

// ExamplesFor returns example models for the backend family named by a
// reference's service prefix (e.g. "openai/gpt-9"), or by the whole
// reference when it has no prefix.
func ExamplesFor(reference string) []string {
	family := reference
	if idx := strings.Index(reference, "/"); idx > 0 {
		family = reference[:idx]
	}
	return ExampleModels[family]
}
