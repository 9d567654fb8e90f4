// Package ai defines the optional natural language elaboration of findings.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/ats-scorer/internal/report"
)

// ErrElaborationMismatch is returned when the elaborations do not line up
// one to one with the findings.
var ErrElaborationMismatch = errors.New("elaboration count does not match findings")

// Elaborator explains findings in prose. The result must have exactly one
// entry per finding, in the same order.
type Elaborator interface {
	Elaborate(ctx context.Context, findings []report.Finding) ([]string, error)
}

// ElaboratorFunc adapts a function to Elaborator.
type ElaboratorFunc func(ctx context.Context, findings []report.Finding) ([]string, error)

func (f ElaboratorFunc) Elaborate(ctx context.Context, findings []report.Finding) ([]string, error) {
	return f(ctx, findings)
}

// CheckCount verifies that texts map 1:1 to findings.
func CheckCount(texts []string, findings []report.Finding) error {
	if len(texts) != len(findings) {
		return fmt.Errorf("%w: got %d for %d findings", ErrElaborationMismatch, len(texts), len(findings))
	}
	return nil
}
