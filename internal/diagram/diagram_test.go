package diagram

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/logging"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/sandbox"
)

type stubValidator struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (s *stubValidator) Validate(ctx context.Context, content string) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.err
}

func TestValidateBasic(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{"empty", "", errors.ErrCodeEmptyDiagram},
		{"blank", "   ", errors.ErrCodeEmptyDiagram},
		{"valid flowchart", "flowchart TD\nA --> B", ""},
		{"comment before header", "%% generated\n\ngraph LR\nA --> B", ""},
		{"unknown type", "notadiagram\nA --> B", errors.ErrCodeDiagramType},
		{"keyword not first", "A --> B\nflowchart TD", errors.ErrCodeDiagramType},
		{"unmatched brackets", "flowchart TD\nA[Start --> B", errors.ErrCodeUnmatchedBrackets},
		{"unordered brackets still balance", "flowchart TD\nA]Start[ --> B", ""},
		{"odd single quotes", "flowchart TD\nA[Don't] --> B", errors.ErrCodeUnmatchedSingleQuote},
		{"odd double quotes", "flowchart TD\nA[\"Start] --> B", errors.ErrCodeUnmatchedDoubleQuote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBasic(tt.content)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsSyntax(err))
			assert.Equal(t, tt.code, errors.Code(err))
		})
	}

	assert.Equal(t, "Empty diagram", errors.Message(ValidateBasic("")))
	assert.Contains(t, errors.Message(ValidateBasic("notadiagram\nA --> B")), "Invalid or missing diagram type")
}

func TestValidateSyntaxEmptySkipsValidator(t *testing.T) {
	v := &stubValidator{}
	c := NewChecker(v, nil)

	for _, content := range []string{"", " \n\t"} {
		err := c.ValidateSyntax(context.Background(), content)
		assert.Equal(t, "Empty diagram", errors.Message(err))
	}
	assert.Zero(t, v.calls)
}

func TestValidateSyntaxRethrowsSyntaxErrors(t *testing.T) {
	syntax := errors.NewSyntaxError(errors.ErrCodeParse, "Expecting 'SEMI'").WithLine(3)
	c := NewChecker(&stubValidator{err: syntax}, nil)

	err := c.ValidateSyntax(context.Background(), "flowchart TD\nA-->B")
	assert.Same(t, syntax, err)
}

func TestValidateSyntaxFallsBackOnInfrastructureErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelWarn, Format: "text", Output: &buf})

	infra := errors.NewInfrastructureError(errors.ErrCodeWorkerTimeout, "timed out", nil)
	c := NewChecker(&stubValidator{err: infra}, logger)

	assert.NoError(t, c.ValidateSyntax(context.Background(), "flowchart TD\nA --> B"))
	assert.Contains(t, buf.String(), "using basic checks")
	assert.Contains(t, buf.String(), "component=diagram")

	err := c.ValidateSyntax(context.Background(), "flowchart TD\nA[x --> B")
	assert.Equal(t, errors.ErrCodeUnmatchedBrackets, errors.Code(err))

	c = NewChecker(&stubValidator{err: errors.ErrPoolShutdown}, nil)
	assert.NoError(t, c.ValidateSyntax(context.Background(), "pie\n\"a\" : 1"))
}

func TestValidateSyntaxConcurrent(t *testing.T) {
	pool := sandbox.NewPool(sandbox.Config{Size: 3}, sandbox.GoroutineFactory(sandbox.MermaidValidator), nil)
	defer pool.Shutdown(context.Background())
	c := NewChecker(pool, nil)

	var diagrams []string
	for i := 0; i < 10; i++ {
		diagrams = append(diagrams, fmt.Sprintf("flowchart LR\n  N%d --> M%d", i, i))
	}
	diagrams = append([]string{"flowchart LR\n  A[broken --> B"}, diagrams...)
	diagrams = append(diagrams, "sequenceDiagram\n  Alice->>Bob hello")

	errs := make([]error, len(diagrams))
	var wg sync.WaitGroup
	for i, d := range diagrams {
		wg.Add(1)
		go func(i int, d string) {
			defer wg.Done()
			errs[i] = c.ValidateSyntax(context.Background(), d)
		}(i, d)
	}
	wg.Wait()

	fulfilled, rejected := 0, 0
	for _, err := range errs {
		if err != nil {
			rejected++
			assert.True(t, errors.IsSyntax(err))
			continue
		}
		fulfilled++
	}
	assert.Equal(t, 10, fulfilled)
	assert.Equal(t, 2, rejected)
	assert.Error(t, errs[0])
	assert.Error(t, errs[len(errs)-1])
}

func TestScanAntiPatterns(t *testing.T) {
	tests := []struct {
		name    string
		content string
		rules   []string
		lines   []int
	}{
		{
			name:    "clean",
			content: "flowchart TD\n  A[\"Start: here\"] -->|next| B[Done]",
		},
		{
			name:    "backticks in quoted label",
			content: "flowchart TD\n  A[\"run `make`\"] --> B",
			rules:   []string{"backtick-in-label"},
			lines:   []int{2},
		},
		{
			name:    "numbered pipe edge label",
			content: "flowchart TD\n  A -->|1. Request| B\n  B -->|2. Reply| A",
			rules:   []string{"numbered-edge-label", "numbered-edge-label"},
			lines:   []int{2, 3},
		},
		{
			name:    "numbered text edge label",
			content: "flowchart TD\n  A -- 2) Send --> B",
			rules:   []string{"numbered-edge-label"},
			lines:   []int{2},
		},
		{
			name:    "unquoted punctuation",
			content: "flowchart TD\n  A[Step: load] --> B[Save, exit]\n  C[(Database)] --> D[Plain]",
			rules:   []string{"unquoted-label-punctuation", "unquoted-label-punctuation"},
			lines:   []int{2, 2},
		},
		{
			name:    "scans are independent",
			content: "flowchart TD\n  A[e.g. start] -->|1. go| B[\"`x`\"]",
			rules:   []string{"backtick-in-label", "numbered-edge-label", "unquoted-label-punctuation"},
			lines:   []int{2, 2, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := ScanAntiPatterns(tt.content)
			var rules []string
			var lines []int
			for _, f := range findings {
				rules = append(rules, f.Rule)
				lines = append(lines, f.Line)
				assert.NotEmpty(t, f.Message)
			}
			assert.Equal(t, tt.rules, rules)
			assert.Equal(t, tt.lines, lines)
		})
	}
}
