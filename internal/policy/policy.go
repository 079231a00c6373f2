// Package policy decides how the assistant answers a message.
package policy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/executor"
	"github.com/xaenox/lisa-bot/internal/generator"
	"github.com/xaenox/lisa-bot/internal/models"
	"github.com/xaenox/lisa-bot/internal/ranker"
)

// Placeholder is returned when nothing matches and no code was asked for.
const Placeholder = "I'm still learning! Could you provide a code example or more info?"

// CodeFence marks code blocks in responses.
const CodeFence = "```"

// ActionVerbs signal that the user wants new code written.
var ActionVerbs = []string{"write", "create", "generate"}

type Outcome string

const (
	OutcomeReuse       Outcome = "reuse"
	OutcomeGenerate    Outcome = "generate"
	OutcomePlaceholder Outcome = "placeholder"
)

type Response struct {
	Text      string
	ExampleID *int64
	Outcome   Outcome
}

type Policy struct {
	ranker    *ranker.Ranker
	executor  executor.Executor
	generator generator.Generator
	logger    *zap.Logger
}

func New(r *ranker.Ranker, exec executor.Executor, gen generator.Generator, logger *zap.Logger) *Policy {
	if exec == nil {
		exec = executor.Noop{}
	}
	return &Policy{
		ranker:    r,
		executor:  exec,
		generator: gen,
		logger:    logger.Named("policy"),
	}
}

// Respond picks one of three answers: reuse the best matching example,
// generate new code when the message asks for it, or the placeholder.
// Only store failures are returned as errors.
func (p *Policy) Respond(ctx context.Context, message string, tokens []string) (Response, error) {
	example, found, err := p.ranker.Best(ctx, tokens)
	if err != nil {
		return Response{}, err
	}

	if found {
		return p.reuse(ctx, message, example), nil
	}

	if HasIntent(message) {
		code := p.generator.Generate(ctx, message, "")
		if code != "" {
			return Response{
				Text:    "Generated code:\n" + fence(code),
				Outcome: OutcomeGenerate,
			}, nil
		}
		p.logger.Warn("Generation returned nothing, answering with placeholder")
	}

	return Response{Text: Placeholder, Outcome: OutcomePlaceholder}, nil
}

func (p *Policy) reuse(ctx context.Context, message string, example *models.Example) Response {
	result, executed := p.executor.Execute(ctx, example.Code, example.Language)
	modified := p.generator.Generate(ctx, message, example.Code)

	var b strings.Builder
	fmt.Fprintf(&b, "I found a relevant %s example:\n%s", example.Language, fence(example.Code))
	if modified != "" {
		fmt.Fprintf(&b, "\nModified:\n%s", fence(modified))
	}
	if executed && result != "" {
		fmt.Fprintf(&b, "\nExecution Result: %s", result)
	}

	p.logger.Debug("Reusing example",
		zap.Int64("example_id", example.ID),
		zap.Bool("executed", executed),
		zap.Bool("adapted", modified != ""))

	return Response{
		Text:      b.String(),
		ExampleID: models.Int64Ptr(example.ID),
		Outcome:   OutcomeReuse,
	}
}

// HasIntent reports whether message contains an action verb. The check is a
// plain substring match on the lowercased message, so "rewrite" counts.
func HasIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, verb := range ActionVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

func fence(code string) string {
	return CodeFence + "\n" + code + "\n" + CodeFence
}
