//go:build windows

package platform

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// windowsPlatform drives Windows via PowerShell SendKeys and built-in
// shell verbs. Windows lacks a discrete Play/Pause key distinction in
// the virtual-key set commonly mapped by SendKeys, so PlayPause is
// used for both.
type windowsPlatform struct{}

// New returns the Windows Platform implementation.
func New() Platform { return windowsPlatform{} }

func (windowsPlatform) OpenWebsite(url string) error {
	return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
}

func (windowsPlatform) OpenPath(path string) error {
	return exec.Command("cmd", "/C", "start", "", path).Start()
}

func (windowsPlatform) OpenFolder(path string) error {
	return exec.Command("explorer", path).Start()
}

func (windowsPlatform) CloseProcess(execPath string) error {
	base := execPath
	if i := strings.LastIndexByte(execPath, '\\'); i >= 0 {
		base = execPath[i+1:]
	}
	return exec.Command("taskkill", "/F", "/IM", base).Run()
}

func (windowsPlatform) TypeText(text string) error {
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			script := fmt.Sprintf(`(New-Object -ComObject WScript.Shell).SendKeys(%q)`, line)
			if err := exec.Command("powershell", "-Command", script).Run(); err != nil {
				return err
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	return nil
}

func (windowsPlatform) Multimedia(action MultimediaAction) error {
	action = substituteMultimedia(action, false)
	sendKey, ok := map[MultimediaAction]string{
		MultimediaPlayPause:     "{MEDIA_PLAY_PAUSE}",
		MultimediaNextTrack:     "{MEDIA_NEXT_TRACK}",
		MultimediaPreviousTrack: "{MEDIA_PREV_TRACK}",
		MultimediaVolumeUp:      "{VOLUME_UP}",
		MultimediaVolumeDown:    "{VOLUME_DOWN}",
		MultimediaMute:          "{VOLUME_MUTE}",
	}[action]
	if !ok {
		return fmt.Errorf("platform: unsupported multimedia action %q", action)
	}
	script := fmt.Sprintf(`(New-Object -ComObject WScript.Shell).SendKeys(%q)`, sendKey)
	return exec.Command("powershell", "-Command", script).Run()
}

func (windowsPlatform) Hotkey(modifiers, keys []string) error {
	combo := append(append([]string{}, modifiers...), keys...)
	script := fmt.Sprintf(`(New-Object -ComObject WScript.Shell).SendKeys(%q)`, strings.Join(combo, "+"))
	return exec.Command("powershell", "-Command", script).Run()
}

func (windowsPlatform) WriteClipboard(text string) error {
	cmd := exec.Command("clip")
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
