package notify

import (
	"fmt"
	"io"
	"os"
)

// Sink targets understood by OpenSink besides a file path.
const (
	SinkStdout = "stdout"
	SinkStderr = "stderr"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// OpenSink resolves where reset messages go. Anything other than "stdout" or
// "stderr" is a file path, opened for append and readable by the owner only.
// An empty target means stderr.
func OpenSink(target string) (io.WriteCloser, error) {
	switch target {
	case "", SinkStderr:
		return nopCloser{os.Stderr}, nil
	case SinkStdout:
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open reset mail sink: %w", err)
	}
	return f, nil
}
