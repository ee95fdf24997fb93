package consumer

import (
	"fmt"
	"io"
	"os"
)

var _ Consumer = &StdoutConsumer{}

// StdoutConsumer ignores destPath and writes to Out, or os.Stdout when Out is nil.
type StdoutConsumer struct {
	Out io.Writer
}

func (s *StdoutConsumer) Consume(reader io.Reader, destPath string, expectedBytes int64) error {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	written, err := io.Copy(out, reader)
	if err != nil {
		return fmt.Errorf("error writing to stdout: %w", err)
	}
	return checkSize(expectedBytes, written)
}

func (s *StdoutConsumer) EnableOverwrite() {
	// no op
}
