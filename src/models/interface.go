package models

import "context"

// Model is a single LLM backend bound to a concrete model ID. Generate runs
// one completion: system carries the task instructions, user carries the
// content to work on.
type Model interface {
	Name() string
	Generate(ctx context.Context, system, user string) (string, error)
}
