// Package transport establishes and owns the control input stream: the raw
// stream handed to the process, a spawned child's stdout, or a TCP connection
// accepted from a peer that was told which port to dial.
package transport

import (
	"bufio"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Transport is a line-readable control stream together with the OS resources
// backing it. It is owned by the control session and released on Close or
// when the peer disconnects.
type Transport struct {
	r *bufio.Reader

	mu     sync.Mutex
	stream io.Closer      // underlying stream, nil when the reader is not closable
	stdin  io.WriteCloser // child stdin pipe, kept open while the child runs
	child  *exec.Cmd
	closed bool
}

// NewStream wraps a raw byte stream, typically the process's stdin.
func NewStream(r io.Reader) *Transport {
	t := &Transport{r: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		t.stream = c
	}
	return t
}

func newChildTransport(child *exec.Cmd, stdout io.ReadCloser, stdin io.WriteCloser) *Transport {
	return &Transport{
		r:      bufio.NewReader(stdout),
		stream: stdout,
		stdin:  stdin,
		child:  child,
	}
}

func newConnTransport(conn io.ReadWriteCloser, child *exec.Cmd, stdin io.WriteCloser) *Transport {
	return &Transport{
		r:      bufio.NewReader(conn),
		stream: conn,
		stdin:  stdin,
		child:  child,
	}
}

// ReadLine blocks until the next newline-delimited line and returns it with
// the line terminator stripped. io.EOF signals that the peer is gone; a
// closed transport also reads as io.EOF.
func (t *Transport) ReadLine() (string, error) {
	line, err := t.r.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil {
		if line != "" {
			// Deliver the final unterminated line; the next read reports EOF.
			return line, nil
		}
		if err != io.EOF && t.isClosed() {
			err = io.EOF
		}
		return "", err
	}
	return line, nil
}

// HasChild reports whether this transport owns a spawned child process.
func (t *Transport) HasChild() bool {
	return t.child != nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close releases the underlying stream and reaps any child process. Safe to
// call from a goroutine other than the reader; a blocked ReadLine unblocks
// with io.EOF.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	var err error
	if t.stream != nil {
		err = t.stream.Close()
	}
	if t.stdin != nil {
		t.stdin.Close()
	}
	if t.child != nil && t.child.Process != nil {
		t.child.Process.Kill()
		t.child.Wait()
	}
	return err
}
