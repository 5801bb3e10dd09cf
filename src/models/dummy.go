package models

import (
	"context"
	"fmt"
	"strings"
)

// DummyLLM is a lightweight model implementation useful for local testing
// without API calls. It answers with a prefix plus a short digest of the
// input instead of a real completion.
type DummyLLM struct {
	Prefix string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy summary:"
	}
	return &DummyLLM{Prefix: prefix}
}

func (d *DummyLLM) Name() string { return "dummy" }

func (d *DummyLLM) Generate(_ context.Context, _ string, user string) (string, error) {
	fields := strings.Fields(user)
	if len(fields) > 12 {
		fields = fields[:12]
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("empty prompt")
	}
	return fmt.Sprintf("%s %s", d.Prefix, strings.Join(fields, " ")), nil
}

var _ Model = (*DummyLLM)(nil)
