// Package command implements the built-in command table: an explicit
// ordered list of rules evaluated in fixed priority order, first match
// wins. A rule that fires is terminal even when its outcome is an error
// message.
package command

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"crux/internal/config"

	"github.com/sirupsen/logrus"
)

// Actions abstracts the OS side effects behind the command table so the
// routing policy is testable without touching the host.
type Actions interface {
	Launch(app, launch string) error
	OpenURL(url string) error

	VolumeAvailable() bool
	VolumeUp(step int) error
	VolumeDown(step int) error

	BrightnessAvailable() bool
	BrightnessUp(step int) error
	BrightnessDown(step int) error

	Shutdown() error
	Restart() error

	PlayMusic(path string) error
}

type rule struct {
	name   string
	match  func(text string) bool
	handle func(text string) string
}

// Registry routes one lowercased, trimmed utterance through the rules.
type Registry struct {
	cfg     *config.Config
	actions Actions
	logger  *logrus.Logger
	rules   []rule
}

// NewRegistry builds the rule list. Order is load-bearing.
func NewRegistry(cfg *config.Config, actions Actions, logger *logrus.Logger) *Registry {
	r := &Registry{cfg: cfg, actions: actions, logger: logger}
	r.rules = []rule{
		{name: "open", match: hasPrefix("open "), handle: r.openApp},
		{name: "search", match: hasPrefix("search "), handle: r.webSearch},
		{name: "volume", match: r.matchVolume, handle: r.volume},
		{name: "brightness", match: r.matchBrightness, handle: r.brightness},
		{name: "power", match: containsAny("shutdown", "restart"), handle: r.power},
		{name: "music", match: contains("play music"), handle: r.music},
		{name: "write", match: r.matchWrite, handle: r.write},
	}
	return r
}

// Handle tries the rules in priority order. It returns the response and
// whether any built-in rule fired.
func (r *Registry) Handle(text string) (string, bool) {
	for _, rl := range r.rules {
		if rl.match(text) {
			r.logger.Debugf("command rule %q matched: %q", rl.name, text)
			return rl.handle(text), true
		}
	}
	return "", false
}

func (r *Registry) openApp(text string) string {
	app := strings.TrimSpace(strings.TrimPrefix(text, "open "))
	launch, ok := r.cfg.Apps[strings.ToLower(app)]
	if !ok {
		return fmt.Sprintf("App %s not found in config.", app)
	}
	if err := r.actions.Launch(app, launch); err != nil {
		r.logger.Errorf("launch %s: %v", app, err)
	}
	return fmt.Sprintf("Opening %s.", app)
}

func (r *Registry) webSearch(text string) string {
	query := strings.TrimPrefix(text, "search ")
	u := "https://www.google.com/search?q=" + url.QueryEscape(query)
	if err := r.actions.OpenURL(u); err != nil {
		r.logger.Errorf("open search url: %v", err)
	}
	return fmt.Sprintf("Searching the web for %s.", query)
}

// A bare "volume" with neither direction falls through to later rules.
func (r *Registry) matchVolume(text string) bool {
	return strings.Contains(text, "volume") &&
		r.actions.VolumeAvailable() &&
		(strings.Contains(text, "up") || strings.Contains(text, "down"))
}

func (r *Registry) volume(text string) string {
	step := r.cfg.Commands.VolumeStep
	if strings.Contains(text, "up") {
		if err := r.actions.VolumeUp(step); err != nil {
			return fmt.Sprintf("Volume control error: %v", err)
		}
		return "Volume increased."
	}
	if err := r.actions.VolumeDown(step); err != nil {
		return fmt.Sprintf("Volume control error: %v", err)
	}
	return "Volume decreased."
}

func (r *Registry) matchBrightness(text string) bool {
	return strings.Contains(text, "brightness") &&
		r.actions.BrightnessAvailable() &&
		(strings.Contains(text, "up") || strings.Contains(text, "down"))
}

func (r *Registry) brightness(text string) string {
	step := r.cfg.Commands.BrightnessStep
	if strings.Contains(text, "up") {
		if err := r.actions.BrightnessUp(step); err != nil {
			return fmt.Sprintf("Brightness control error: %v", err)
		}
		return "Brightness increased."
	}
	if err := r.actions.BrightnessDown(step); err != nil {
		return fmt.Sprintf("Brightness control error: %v", err)
	}
	return "Brightness decreased."
}

// power requires the action word and "confirm" in one utterance; no state
// is carried between a prompt and a later confirmation.
func (r *Registry) power(text string) string {
	if !r.cfg.Commands.AllowShutdown {
		return "Shutdown and restart are disabled in config."
	}
	if !strings.Contains(text, "confirm") {
		return "Say 'confirm shutdown' or 'confirm restart' to proceed."
	}
	if strings.Contains(text, "shutdown") {
		if err := r.actions.Shutdown(); err != nil {
			r.logger.Errorf("shutdown: %v", err)
		}
		return "Shutting down system..."
	}
	if err := r.actions.Restart(); err != nil {
		r.logger.Errorf("restart: %v", err)
	}
	return "Restarting system..."
}

func (r *Registry) music(string) string {
	path := r.cfg.Commands.MusicPath
	if path == "" {
		return "Music path not configured."
	}
	if _, err := os.Stat(path); err != nil {
		return "Music path not configured."
	}
	if err := r.actions.PlayMusic(path); err != nil {
		r.logger.Errorf("play music: %v", err)
	}
	return "Playing music."
}

func (r *Registry) matchWrite(text string) bool {
	return strings.HasPrefix(text, "crux write") && snippetFor(text) != ""
}

func (r *Registry) write(text string) string {
	return snippetFor(text)
}

func hasPrefix(p string) func(string) bool {
	return func(text string) bool { return strings.HasPrefix(text, p) }
}

func contains(sub string) func(string) bool {
	return func(text string) bool { return strings.Contains(text, sub) }
}

func containsAny(subs ...string) func(string) bool {
	return func(text string) bool {
		for _, s := range subs {
			if strings.Contains(text, s) {
				return true
			}
		}
		return false
	}
}
