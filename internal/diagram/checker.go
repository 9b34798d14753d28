// Package diagram checks Mermaid diagram sources.
//
// Checker.ValidateSyntax runs the full grammar inside the sandbox pool and
// falls back to ValidateBasic when the sandbox itself fails. ScanAntiPatterns
// finds constructs that parse but break the renderer.
package diagram

import (
	"context"
	"strings"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/logging"
)

// Validator runs the full diagram grammar. *sandbox.Pool implements it.
type Validator interface {
	Validate(ctx context.Context, content string) error
}

// Checker validates diagram syntax through a Validator.
type Checker struct {
	validator Validator
	logger    logging.Logger
}

// NewChecker creates a syntax checker backed by validator.
func NewChecker(validator Validator, logger logging.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Checker{
		validator: validator,
		logger:    logger.WithComponent("diagram"),
	}
}

// ValidateSyntax returns nil when content is a valid diagram and a syntax
// error otherwise. Infrastructure failures of the validator are logged and
// answered with ValidateBasic instead.
func (c *Checker) ValidateSyntax(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return emptyDiagram()
	}

	err := c.validator.Validate(ctx, content)
	if err == nil || !errors.IsInfrastructure(err) {
		return err
	}

	c.logger.Warn(ctx, err, "Diagram validator unavailable, using basic checks",
		"code", errors.Code(err))
	return ValidateBasic(content)
}
