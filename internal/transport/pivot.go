package transport

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/okjarvi/guishell/internal/protocol"
)

const (
	// childAcceptRetries is how many short accepts are attempted while a
	// freshly spawned child may still be starting up.
	childAcceptRetries = 60
	// childAcceptInterval is the deadline for each of those attempts.
	childAcceptInterval = 1 * time.Second
	// acceptTimeout is the single-accept deadline when no child was spawned.
	acceptTimeout = 60 * time.Second
)

// Pivoter resolves the pivot handshake directives into a new Transport. The
// listener always binds to loopback on an ephemeral port.
type Pivoter struct {
	logger *slog.Logger

	// Tunable in tests.
	acceptRetries  int
	acceptInterval time.Duration
	acceptTimeout  time.Duration
	httpClient     *http.Client

	// startChild spawns the pivot command through the system shell
	// (overridable in tests). When capture is true the child's stdout
	// becomes the stream; otherwise it is discarded.
	startChild func(command string, capture bool) (*exec.Cmd, io.ReadCloser, io.WriteCloser, error)
}

// NewPivoter creates a pivoter with the protocol-mandated timeouts.
func NewPivoter(logger *slog.Logger) *Pivoter {
	return &Pivoter{
		logger:         logger,
		acceptRetries:  childAcceptRetries,
		acceptInterval: childAcceptInterval,
		acceptTimeout:  acceptTimeout,
		httpClient:     &http.Client{Timeout: acceptTimeout},
		startChild:     startShellChild,
	}
}

// Pivot resolves a pivot directive into the transport subsequent commands
// will be read from. DirectiveGo and DirectiveListen do not pivot and yield
// a nil transport.
func (p *Pivoter) Pivot(d protocol.Directive) (*Transport, error) {
	switch d.Kind {
	case protocol.DirectiveListenTo:
		return p.pivotChild(d.Template)
	case protocol.DirectiveListenTCP:
		return p.pivotTCP(d.Template)
	case protocol.DirectiveListenHTTP:
		return p.pivotHTTP(d.Template)
	default:
		return nil, nil
	}
}

// pivotChild spawns the command and reads commands from its stdout.
func (p *Pivoter) pivotChild(command string) (*Transport, error) {
	child, stdout, stdin, err := p.startChild(command, true)
	if err != nil {
		return nil, &Error{Op: OpSpawn, Err: err}
	}
	p.logger.Info("pivoted to child process", "pid", childPid(child))
	return newChildTransport(child, stdout, stdin), nil
}

// pivotTCP opens an ephemeral loopback listener, substitutes the chosen port
// into the command template, spawns the command and accepts the one
// connection it is expected to dial back.
func (p *Pivoter) pivotTCP(template string) (*Transport, error) {
	ln, port, err := listenLoopback()
	if err != nil {
		return nil, &Error{Op: OpListen, Err: err}
	}
	defer ln.Close()

	command := protocol.SubstitutePort(template, port)
	child, _, stdin, err := p.startChild(command, false)
	if err != nil {
		return nil, &Error{Op: OpSpawn, Err: err}
	}
	p.logger.Info("listening for pivot connection", "port", port, "pid", childPid(child))

	conn, err := p.accept(ln, true)
	if err != nil {
		if stdin != nil {
			stdin.Close()
		}
		if child.Process != nil {
			child.Process.Kill()
			child.Wait()
		}
		return nil, err
	}
	return newConnTransport(conn, child, stdin), nil
}

// pivotHTTP opens the same ephemeral listener, triggers the remote peer with
// an HTTP GET (response body ignored) and accepts the connect-back.
func (p *Pivoter) pivotHTTP(urlTemplate string) (*Transport, error) {
	ln, port, err := listenLoopback()
	if err != nil {
		return nil, &Error{Op: OpListen, Err: err}
	}
	defer ln.Close()

	url := protocol.SubstitutePort(urlTemplate, port)
	p.logger.Info("triggering pivot connection", "url", url, "port", port)
	resp, err := p.httpClient.Get(url)
	if err != nil {
		return nil, &Error{Op: OpTrigger, Err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	conn, err := p.accept(ln, false)
	if err != nil {
		return nil, err
	}
	return newConnTransport(conn, nil, nil), nil
}

// accept waits for exactly one connection. While a spawned child may still
// be starting, acceptance is retried on a short deadline instead of holding
// one long one.
func (p *Pivoter) accept(ln *net.TCPListener, childStarting bool) (net.Conn, error) {
	if childStarting {
		var lastErr error
		for range p.acceptRetries {
			ln.SetDeadline(time.Now().Add(p.acceptInterval))
			conn, err := ln.Accept()
			if err == nil {
				return conn, nil
			}
			lastErr = err
			if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
				return nil, &Error{Op: OpAccept, Err: err}
			}
		}
		return nil, &Error{Op: OpAccept, Err: fmt.Errorf("no connection after %d attempts: %w", p.acceptRetries, lastErr)}
	}

	ln.SetDeadline(time.Now().Add(p.acceptTimeout))
	conn, err := ln.Accept()
	if err != nil {
		return nil, &Error{Op: OpAccept, Err: err}
	}
	return conn, nil
}

func childPid(cmd *exec.Cmd) int {
	if cmd != nil && cmd.Process != nil {
		return cmd.Process.Pid
	}
	return 0
}

func listenLoopback() (*net.TCPListener, int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, err
	}
	tcpLn := ln.(*net.TCPListener)
	return tcpLn, tcpLn.Addr().(*net.TCPAddr).Port, nil
}

// startShellChild runs the command through the system shell, mirroring how
// controllers quote their pivot commands.
func startShellChild(command string, capture bool) (*exec.Cmd, io.ReadCloser, io.WriteCloser, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", command)
	} else {
		cmd = exec.Command("/bin/sh", "-c", command)
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, err
	}

	var stdout io.ReadCloser
	if capture {
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return nil, nil, nil, err
		}
	} else {
		cmd.Stdout = io.Discard
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}
	return cmd, stdout, stdin, nil
}
