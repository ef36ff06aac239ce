package command

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/google/shlex"
	"github.com/itchyny/volume-go"
	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
)

// osActions is the host-backed Actions implementation.
type osActions struct {
	logger *logrus.Logger
}

// NewOSActions returns Actions wired to the host OS.
func NewOSActions(logger *logrus.Logger) Actions {
	return &osActions{logger: logger}
}

// Launch starts the configured command line detached; the process is not
// waited on.
func (o *osActions) Launch(app, launch string) error {
	argv, err := shlex.Split(launch)
	if err != nil {
		return fmt.Errorf("parse launch string for %s: %w", app, err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("empty launch string for %s", app)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", app, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func (o *osActions) OpenURL(url string) error {
	return browser.OpenURL(url)
}

func (o *osActions) VolumeAvailable() bool {
	_, err := volume.GetVolume()
	return err == nil
}

func (o *osActions) VolumeUp(step int) error {
	cur, err := volume.GetVolume()
	if err != nil {
		return err
	}
	return volume.SetVolume(min(cur+step, 100))
}

func (o *osActions) VolumeDown(step int) error {
	cur, err := volume.GetVolume()
	if err != nil {
		return err
	}
	return volume.SetVolume(max(cur-step, 0))
}

func (o *osActions) BrightnessAvailable() bool {
	_, err := exec.LookPath("brightnessctl")
	return err == nil
}

func (o *osActions) BrightnessUp(step int) error {
	return exec.Command("brightnessctl", "set", fmt.Sprintf("+%d%%", step)).Run()
}

func (o *osActions) BrightnessDown(step int) error {
	return exec.Command("brightnessctl", "set", fmt.Sprintf("%d%%-", step)).Run()
}

func (o *osActions) Shutdown() error {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("shutdown", "/s", "/t", "1").Start()
	case "darwin":
		return exec.Command("shutdown", "-h", "now").Start()
	default:
		return exec.Command("systemctl", "poweroff").Start()
	}
}

func (o *osActions) Restart() error {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("shutdown", "/r", "/t", "1").Start()
	case "darwin":
		return exec.Command("shutdown", "-r", "now").Start()
	default:
		return exec.Command("systemctl", "reboot").Start()
	}
}

// PlayMusic hands the path to the desktop opener so the user's default
// player takes over.
func (o *osActions) PlayMusic(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("play %s: %w", path, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
