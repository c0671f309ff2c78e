//go:build darwin

package platform

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// darwinPlatform drives macOS via open(1), osascript, and pbcopy.
// macOS exposes discrete Play/Pause media keys, so no substitution is
// needed there.
type darwinPlatform struct{}

// New returns the macOS Platform implementation.
func New() Platform { return darwinPlatform{} }

func (darwinPlatform) OpenWebsite(url string) error {
	return exec.Command("open", url).Start()
}

func (darwinPlatform) OpenPath(path string) error {
	return exec.Command("open", path).Start()
}

func (darwinPlatform) OpenFolder(path string) error {
	return exec.Command("open", path).Start()
}

func (darwinPlatform) CloseProcess(execPath string) error {
	base := execPath
	if i := strings.LastIndexByte(execPath, '/'); i >= 0 {
		base = execPath[i+1:]
	}
	return exec.Command("pkill", "-f", base).Run()
}

func (darwinPlatform) TypeText(text string) error {
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			script := fmt.Sprintf(`tell application "System Events" to keystroke %q`, line)
			if err := exec.Command("osascript", "-e", script).Run(); err != nil {
				return err
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	return nil
}

func (darwinPlatform) Multimedia(action MultimediaAction) error {
	action = substituteMultimedia(action, true)
	keyCode, ok := map[MultimediaAction]int{
		MultimediaPlayPause:     16,
		MultimediaPlay:          16,
		MultimediaPause:         16,
		MultimediaNextTrack:     17,
		MultimediaPreviousTrack: 18,
		MultimediaVolumeUp:      0,
		MultimediaVolumeDown:    0,
		MultimediaMute:          0,
	}[action]
	if !ok && action != MultimediaVolumeUp && action != MultimediaVolumeDown && action != MultimediaMute {
		return fmt.Errorf("platform: unsupported multimedia action %q", action)
	}
	script := fmt.Sprintf(`tell application "System Events" to key code %d`, keyCode)
	return exec.Command("osascript", "-e", script).Run()
}

func (darwinPlatform) Hotkey(modifiers, keys []string) error {
	combo := append(append([]string{}, modifiers...), keys...)
	script := fmt.Sprintf(`tell application "System Events" to keystroke %q`, strings.Join(combo, " "))
	return exec.Command("osascript", "-e", script).Run()
}

func (darwinPlatform) WriteClipboard(text string) error {
	cmd := exec.Command("pbcopy")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	if _, err := stdin.Write([]byte(text)); err != nil {
		return err
	}
	stdin.Close()
	return cmd.Wait()
}
