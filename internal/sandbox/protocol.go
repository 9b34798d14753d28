package sandbox

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
)

// Reply kinds on the wire.
const (
	KindSyntax         = "syntax"
	KindInfrastructure = "infrastructure"
)

// maxMessageSize bounds one protocol line.
const maxMessageSize = 8 << 20

// Message is a request line sent to a process unit.
type Message struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Reply is a response line written by a process unit. Exactly one of Result
// or Error is set.
type Reply struct {
	ID     string `json:"id"`
	Result bool   `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Line   int    `json:"line,omitempty"`
}

// newReply encodes the outcome of validating one message.
func newReply(id string, err error) Reply {
	if err == nil {
		return Reply{ID: id, Result: true}
	}

	r := Reply{ID: id, Error: err.Error(), Kind: KindInfrastructure}
	var de *errors.DocsmithError
	if errors.As(err, &de) {
		r.Error = de.Message
		if de.Type == errors.ErrorTypeSyntax {
			r.Kind = KindSyntax
			r.Line = de.Line
		}
	}
	return r
}

// Err converts a reply back into the error the validator returned.
func (r Reply) Err() error {
	if r.Error == "" {
		return nil
	}
	if r.Kind == KindSyntax {
		err := errors.NewSyntaxError(errors.ErrCodeParse, r.Error)
		if r.Line > 0 {
			err = err.WithLine(r.Line)
		}
		return err
	}
	return errors.NewInfrastructureError(errors.ErrCodeRuntime, r.Error, nil)
}

// Serve is the unit side of the protocol. It reads one Message per line from
// r, validates it and writes one Reply per line to w until r is exhausted or
// ctx is done.
func Serve(ctx context.Context, r io.Reader, w io.Writer, validate ValidateFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var msg Message
		reply := Reply{}
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			reply = Reply{Error: "malformed request: " + err.Error(), Kind: KindInfrastructure}
		} else {
			reply = newReply(msg.ID, validate(msg.Content))
		}

		if err := enc.Encode(reply); err != nil {
			return errors.WrapIO(err, errors.ErrCodeRuntime, "failed to write reply")
		}
	}

	return scanner.Err()
}
