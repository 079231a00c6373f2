// Package generator wraps the generative models that write and adapt code.
package generator

import (
	"context"
	"fmt"
	"strings"
)

// Generator produces code text. Implementations never fail: errors are
// logged and an empty string is returned.
type Generator interface {
	Generate(ctx context.Context, prompt, seed string) string
}

// BuildPrompt renders the instruction sent to the model. The wording matches
// the prompts used for fine-tuning.
func BuildPrompt(prompt, seed string) string {
	if seed == "" {
		return fmt.Sprintf("Generate code for: %s", prompt)
	}
	return fmt.Sprintf("Generate code for: %s\nStart from this example:\n%s", prompt, seed)
}

// ExtractCode strips a surrounding markdown fence from model output.
func ExtractCode(output string) string {
	output = strings.TrimSpace(output)
	if !strings.HasPrefix(output, "```") {
		return output
	}

	body := strings.TrimPrefix(output, "```")
	// drop the language hint on the opening fence
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
