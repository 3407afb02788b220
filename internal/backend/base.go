package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// IconTheme selects the %(theme)s variant of configured images.
const IconTheme = "light"

// themeImage resolves an image reference from the configuration: an
// "image:<name>" indirection through the images map, theme substitution, and
// the protocol's absolute-path requirement.
func (b *Backend) themeImage(ref string) (string, error) {
	path := ref
	if name, ok := strings.CutPrefix(ref, "image:"); ok {
		path, ok = b.cfg.Images()[name]
		if !ok {
			return "", fmt.Errorf("unknown image %q", name)
		}
	}
	path = strings.ReplaceAll(path, "%(theme)s", IconTheme)
	// Relative paths break silently when the controller and the GUI run
	// from different working directories; fail early instead.
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("image path is not absolute: %s", path)
	}
	return path, nil
}

func (b *Backend) doShowURL(args map[string]any) error {
	target, _, err := popURL(args, false)
	if err != nil {
		return err
	}
	return b.openURL(target)
}

// fetchURL implements get_url and post_url: a cookie-carrying request whose
// JSON "message" response, if any, is surfaced as a notification.
func (b *Backend) fetchURL(method string, args map[string]any) error {
	target, rest, err := popURL(args, true)
	if err != nil {
		return err
	}

	var req *http.Request
	if method == http.MethodPost {
		form := url.Values{}
		for k, v := range rest {
			form.Set(k, fmt.Sprint(v))
		}
		req, err = http.NewRequest(method, target, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequest(method, target, nil)
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	for name, value := range b.cookies(baseURL(target)) {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var doc map[string]any
		if json.Unmarshal(body, &doc) == nil {
			if message, ok := doc["message"].(string); ok && message != "" {
				return b.Dispatch("notify_user", map[string]any{"message": message})
			}
		}
	}
	return nil
}

func (b *Backend) doSetHTTPCookie(args map[string]any) error {
	var opts struct {
		Domain string `json:"domain"`
		Key    string `json:"key"`
		Value  string `json:"value"`
		Remove bool   `json:"remove"`
	}
	if err := decodeArgs(args, &opts); err != nil {
		return err
	}
	b.cookieMu.Lock()
	b.cfg.SetCookie(opts.Domain, opts.Key, opts.Value, opts.Remove)
	b.cookieMu.Unlock()
	return nil
}

// cookies snapshots the cookie set for a base URL under the cookie lock, so
// a fetch in flight never observes a set_http_cookie mid-write.
func (b *Backend) cookies(base string) map[string]string {
	b.cookieMu.Lock()
	defer b.cookieMu.Unlock()
	return b.cfg.Cookies(base)
}

// doShell runs the configured commands sequentially, stopping at the first
// failure.
func (b *Backend) doShell(args map[string]any) error {
	var opts struct {
		Args []string `json:"args"`
	}
	if err := decodeArgs(args, &opts); err != nil {
		return err
	}
	for _, command := range opts.Args {
		if err := b.runShell(command); err != nil {
			return fmt.Errorf("shell %q: %w", command, err)
		}
	}
	return nil
}

// doTerminal opens a terminal emulator running the given command.
func (b *Backend) doTerminal(args map[string]any) error {
	var opts struct {
		Command string `json:"command"`
		Title   string `json:"title"`
		Icon    string `json:"icon"`
	}
	if err := decodeArgs(args, &opts); err != nil {
		return err
	}
	if opts.Command == "" {
		opts.Command = "/bin/bash"
	}
	title := opts.Title
	if title == "" {
		title = b.cfg.AppName()
	}

	argv := []string{"xterm", "-T", title, "-e", opts.Command}
	if opts.Icon != "" {
		icon, err := b.themeImage(opts.Icon)
		if err != nil {
			return err
		}
		argv = append(argv, "-n", icon)
	}
	return exec.Command(argv[0], argv[1:]...).Start()
}

// popURL extracts the target URL from the "_url" or "url" argument,
// optionally removing it so the remaining arguments can become the request
// payload.
func popURL(args map[string]any, remove bool) (string, map[string]any, error) {
	for _, key := range []string{"_url", "url"} {
		if target, ok := args[key].(string); ok && target != "" {
			if remove {
				delete(args, key)
			}
			return target, args, nil
		}
	}
	return "", nil, fmt.Errorf("missing url argument")
}

// baseURL truncates a URL to scheme://host for cookie lookup.
func baseURL(target string) string {
	parts := strings.SplitN(target, "/", 4)
	if len(parts) < 3 {
		return target
	}
	return strings.Join(parts[:3], "/")
}

func openURL(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}

func runShellCommand(command string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", command)
	} else {
		cmd = exec.Command("/bin/sh", "-c", command)
	}
	return cmd.Run()
}
