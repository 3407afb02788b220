package backend

import (
	"encoding/json"
	"fmt"
)

// Config is the opaque configuration document accumulated before the
// handshake. It is parsed exactly once and handed to the backend for the
// lifetime of the session. Typed accessors decode the well-known sections;
// everything else stays opaque to the control core.
type Config map[string]any

// AppName returns the configured application name.
func (c Config) AppName() string {
	if name, ok := c["app_name"].(string); ok && name != "" {
		return name
	}
	return "guishell"
}

// Images returns the configured image map (name → absolute path).
func (c Config) Images() map[string]string {
	images := map[string]string{}
	raw, ok := c["images"].(map[string]any)
	if !ok {
		return images
	}
	for name, v := range raw {
		if path, ok := v.(string); ok {
			images[name] = path
		}
	}
	return images
}

// MenuItem is one entry of the indicator menu, declared in the configuration
// document under indicator.menu_items.
type MenuItem struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	Sensitive bool           `json:"sensitive"`
	Op        string         `json:"op"`
	Args      map[string]any `json:"args"`
}

// MenuItems returns the configured indicator menu, in declaration order.
func (c Config) MenuItems() []MenuItem {
	indicator, ok := c["indicator"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := indicator["menu_items"]
	if !ok {
		return nil
	}
	var items []MenuItem
	if err := reencode(raw, &items); err != nil {
		return nil
	}
	return items
}

// Cookies returns a copy of the cookie set for a base URL (scheme://host),
// from the http_cookies section.
func (c Config) Cookies(baseURL string) map[string]string {
	all, ok := c["http_cookies"].(map[string]any)
	if !ok {
		return nil
	}
	domain, ok := all[baseURL].(map[string]any)
	if !ok {
		return nil
	}
	cookies := map[string]string{}
	for k, v := range domain {
		if s, ok := v.(string); ok {
			cookies[k] = s
		}
	}
	return cookies
}

// SetCookie adds or removes a cookie for a base URL, creating the section on
// first use. Not safe for concurrent use; the backend serializes cookie
// access through its cookie lock.
func (c Config) SetCookie(baseURL, key, value string, remove bool) {
	all, ok := c["http_cookies"].(map[string]any)
	if !ok {
		all = map[string]any{}
		c["http_cookies"] = all
	}
	domain, ok := all[baseURL].(map[string]any)
	if !ok {
		domain = map[string]any{}
		all[baseURL] = domain
	}
	if remove {
		delete(domain, key)
		return
	}
	domain[key] = value
}

// StatusOptions are the recognized options of set_status.
type StatusOptions struct {
	Status string `json:"status"`
	Badge  string `json:"badge"`
}

// StatusDisplayOptions are the recognized options of set_status_display.
// An omitted id is assigned a generated one.
type StatusDisplayOptions struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Details string `json:"details"`
	Icon    string `json:"icon"`
	Color   string `json:"color"`
}

// ItemOptions are the recognized options of set_item, addressing a menu item
// declared in the configuration.
type ItemOptions struct {
	Item      string `json:"item"`
	Label     string `json:"label"`
	Sensitive *bool  `json:"sensitive"`
}

// NotifyOptions are the recognized options of notify_user.
type NotifyOptions struct {
	Message string     `json:"message"`
	Popup   bool       `json:"popup"`
	Alert   bool       `json:"alert"`
	Actions []MenuItem `json:"actions"`
}

// SplashOptions are the recognized options of show_splash_screen. Message
// position defaults to the center when omitted.
type SplashOptions struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	ProgressBar bool     `json:"progress_bar"`
	Image       string   `json:"image"`
	Message     string   `json:"message"`
	MessageX    *float64 `json:"message_x"`
	MessageY    *float64 `json:"message_y"`
}

// SplashUpdateOptions are the recognized options of update_splash_screen.
// Nil fields leave the current value untouched.
type SplashUpdateOptions struct {
	Message  *string  `json:"message"`
	Progress *float64 `json:"progress"`
}

// decodeArgs maps a command's argument object onto a typed options struct.
// Unrecognized keys are ignored, matching the protocol's tolerance for
// extra options.
func decodeArgs(args map[string]any, into any) error {
	if err := reencode(args, into); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func reencode(from any, into any) error {
	raw, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}

// FloatOr returns *p, or def when p is nil. Used by UIs for defaulted
// position and progress options.
func FloatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
