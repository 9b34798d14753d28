package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocsmithError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *DocsmithError
		want string
	}{
		{
			name: "code and message",
			err:  NewSyntaxError(ErrCodeEmptyDiagram, "Empty diagram"),
			want: "[ERR_EMPTY_DIAGRAM] Empty diagram",
		},
		{
			name: "with line and component",
			err:  NewSyntaxError(ErrCodeParse, "unexpected token").WithLine(3).WithComponent("mermaid"),
			want: "[ERR_PARSE] component:mermaid line:3 unexpected token",
		},
		{
			name: "with cause",
			err:  NewInfrastructureError(ErrCodeWorkerCrashed, "worker crashed", fmt.Errorf("exit status 2")),
			want: "[ERR_WORKER_CRASHED] worker crashed: exit status 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestClassification(t *testing.T) {
	syntax := NewSyntaxError(ErrCodeParse, "bad arrow")
	infra := NewInfrastructureError(ErrCodeWorkerTimeout, "timed out", nil)
	wrapped := fmt.Errorf("validate: %w", infra)

	assert.True(t, IsSyntax(syntax))
	assert.False(t, IsInfrastructure(syntax))
	assert.True(t, IsInfrastructure(infra))
	assert.True(t, IsInfrastructure(wrapped), "classification must see through fmt wrapping")
	assert.False(t, IsSyntax(errors.New("plain")))
	assert.False(t, IsInfrastructure(nil))
}

func TestSentinelComparison(t *testing.T) {
	err := NewInfrastructureError(ErrCodePoolShutdown, "worker pool is shutting down", nil)

	assert.True(t, errors.Is(err, ErrPoolShutdown))
	assert.False(t, errors.Is(err, ErrQueueFull))
	assert.True(t, errors.Is(fmt.Errorf("ctx: %w", err), ErrPoolShutdown))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, ErrCodeFileNotFound, "missing"))

	base := errors.New("no such file")
	de := WrapIO(base, ErrCodeFileNotFound, "cannot read docs/index.md")
	require.NotNil(t, de)
	assert.Equal(t, ErrorTypeIO, de.Type)
	assert.False(t, de.Recoverable)
	assert.ErrorIs(t, de, base)

	outer := Wrap(NewSyntaxError(ErrCodeParse, "x").WithLine(4), ErrorTypeInternal, ErrCodeInternalError, "outer")
	assert.Equal(t, 4, outer.Line, "wrapping keeps the location of the inner error")
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "Empty diagram", Message(NewSyntaxError(ErrCodeEmptyDiagram, "Empty diagram")))
	assert.Equal(t, "Parse error on line 2: Expecting node",
		Message(NewSyntaxError(ErrCodeParse, "Expecting node").WithLine(2)))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, ErrCodeQueueFull, Code(fmt.Errorf("w: %w", ErrQueueFull)))
}

func TestGetErrorContext(t *testing.T) {
	ctx := GetErrorContext(NewSyntaxError(ErrCodeParse, "x").WithLine(7).WithContext("diagram", "flowchart"))
	assert.Equal(t, 7, ctx["line"])
	assert.Equal(t, "flowchart", ctx["diagram"])
	assert.Equal(t, "syntax", ctx["type"])

	plain := GetErrorContext(errors.New("boom"))
	assert.Equal(t, "unknown", plain["type"])
}
