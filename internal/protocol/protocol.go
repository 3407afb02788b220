// Package protocol defines the line-oriented control protocol: the handshake
// directives that select a transport, the pre-handshake configuration document,
// and the post-handshake command lines.
package protocol

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Handshake line forms. Matching is case-sensitive and exact-prefix.
const (
	TokenGo          = "OK GO"
	TokenListen      = "OK LISTEN"
	PrefixListenTo   = "OK LISTEN TO:"
	PrefixListenTCP  = "OK LISTEN TCP:"
	PrefixListenHTTP = "OK LISTEN HTTP:"
)

// PortToken is the only substitution token recognized in pivot command and
// URL templates.
const PortToken = "%PORT%"

// DirectiveKind identifies which handshake form a line matched.
type DirectiveKind int

const (
	// DirectiveGo proceeds on the current stream without a command reader.
	DirectiveGo DirectiveKind = iota
	// DirectiveListen proceeds and keeps reading commands from the same stream.
	DirectiveListen
	// DirectiveListenTo pivots to a spawned child process's stdout.
	DirectiveListenTo
	// DirectiveListenTCP pivots to a connection accepted from a spawned child.
	DirectiveListenTCP
	// DirectiveListenHTTP pivots to a connection triggered by an HTTP GET.
	DirectiveListenHTTP
)

// String returns the wire token for the directive kind.
func (k DirectiveKind) String() string {
	switch k {
	case DirectiveGo:
		return TokenGo
	case DirectiveListen:
		return TokenListen
	case DirectiveListenTo:
		return PrefixListenTo
	case DirectiveListenTCP:
		return PrefixListenTCP
	case DirectiveListenHTTP:
		return PrefixListenHTTP
	default:
		return "unknown"
	}
}

// Directive is a parsed handshake line. Template holds the trimmed command or
// URL payload for the pivot forms and is empty otherwise.
type Directive struct {
	Kind     DirectiveKind
	Template string
}

// ParseDirective classifies a single input line. It returns false when the
// line is not a handshake line and belongs to the configuration document.
// All forms match against the untrimmed line, so an indented line stays in
// the configuration document.
func ParseDirective(line string) (Directive, bool) {
	switch {
	case line == TokenGo:
		return Directive{Kind: DirectiveGo}, true
	case line == TokenListen:
		return Directive{Kind: DirectiveListen}, true
	case strings.HasPrefix(line, PrefixListenTo):
		return Directive{
			Kind:     DirectiveListenTo,
			Template: strings.TrimSpace(line[len(PrefixListenTo):]),
		}, true
	case strings.HasPrefix(line, PrefixListenTCP):
		return Directive{
			Kind:     DirectiveListenTCP,
			Template: strings.TrimSpace(line[len(PrefixListenTCP):]),
		}, true
	case strings.HasPrefix(line, PrefixListenHTTP):
		return Directive{
			Kind:     DirectiveListenHTTP,
			Template: strings.TrimSpace(line[len(PrefixListenHTTP):]),
		}, true
	default:
		return Directive{}, false
	}
}

// SubstitutePort replaces every occurrence of PortToken in template with the
// decimal port number. The replacement is purely textual.
func SubstitutePort(template string, port int) string {
	return strings.ReplaceAll(template, PortToken, strconv.Itoa(port))
}

// Command is one post-handshake command line: a verb and its JSON-decoded
// argument object.
type Command struct {
	Verb string
	Args map[string]any
}

// ParseCommand splits a command line on the first space into a verb and a
// JSON argument object. The argument object is mandatory; a missing separator
// or malformed JSON yields a *CommandError.
func ParseCommand(line string) (*Command, error) {
	line = strings.TrimSpace(line)
	verb, rest, found := strings.Cut(line, " ")
	if !found || verb == "" {
		return nil, &CommandError{Line: line, Reason: "missing argument separator"}
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(rest), &args); err != nil {
		return nil, &CommandError{Line: line, Reason: "malformed argument object", Err: err}
	}
	return &Command{Verb: verb, Args: args}, nil
}

// ParseConfig joins the accumulated pre-handshake lines and decodes them as a
// single JSON document. Returns a *ConfigError if the joined text is not
// valid JSON.
func ParseConfig(lines []string) (map[string]any, error) {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(strings.TrimSpace(line))
	}

	doc := map[string]any{}
	if sb.Len() == 0 {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(sb.String()), &doc); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return doc, nil
}
