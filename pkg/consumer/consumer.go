// Package consumer writes a loaded payload to its destination.
package consumer

import (
	"fmt"
	"io"
)

type Consumer interface {
	// Consume copies reader to destPath. expectedBytes is checked when it is not negative.
	Consume(reader io.Reader, destPath string, expectedBytes int64) error
	// EnableOverwrite sets the overwrite flag for the consumer, allowing it to overwrite files if necessary/supported
	EnableOverwrite()
}

const (
	NameFile   = "file"
	NameStdout = "stdout"
	NameNull   = "null"
)

// ByName returns the consumer registered under name.
func ByName(name string) (Consumer, error) {
	switch name {
	case "", NameFile:
		return &FileWriter{}, nil
	case NameStdout:
		return &StdoutConsumer{}, nil
	case NameNull:
		return &NullWriter{}, nil
	}
	return nil, fmt.Errorf("unknown output consumer: %s", name)
}

func checkSize(expectedBytes, written int64) error {
	if expectedBytes >= 0 && written != expectedBytes {
		return fmt.Errorf("expected %d bytes, wrote %d", expectedBytes, written)
	}
	return nil
}
