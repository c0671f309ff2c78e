// Package platform is the small per-OS layer behind internal system
// actions: keyboard/media-key/clipboard synthesis, process control,
// and shell open operations. Grounded on
// original_source/src-tauri/src/plugin/internal/system/actions.rs's
// substitution rules (the enigo/arboard call sites this replaces); no
// input-synthesis library appears anywhere in the example pack, so
// each OS implementation shells out to the platform's own utilities
// rather than introducing an ungrounded dependency.
package platform

// MultimediaAction is one of the device protocol's system.multimedia
// actions.
type MultimediaAction string

const (
	MultimediaPlayPause     MultimediaAction = "PlayPause"
	MultimediaPlay          MultimediaAction = "Play"
	MultimediaPause         MultimediaAction = "Pause"
	MultimediaNextTrack     MultimediaAction = "NextTrack"
	MultimediaPreviousTrack MultimediaAction = "PreviousTrack"
	MultimediaVolumeUp      MultimediaAction = "VolumeUp"
	MultimediaVolumeDown    MultimediaAction = "VolumeDown"
	MultimediaMute          MultimediaAction = "Mute"
)

// Platform is the fire-and-forget library surface the internal action
// table invokes; implementations never return partial-failure detail
// beyond an error to log, per §9.
type Platform interface {
	OpenWebsite(url string) error
	OpenPath(path string) error
	OpenFolder(path string) error
	CloseProcess(execPath string) error
	TypeText(text string) error
	Multimedia(action MultimediaAction) error
	Hotkey(modifiers, keys []string) error
	WriteClipboard(text string) error
}

// substituteMultimedia applies the cross-platform fallback rule:
// platforms lacking discrete Play/Pause keys collapse them to
// PlayPause, mirroring the #[cfg(...)] branches in system/actions.rs.
func substituteMultimedia(action MultimediaAction, hasDiscretePlayPause bool) MultimediaAction {
	if !hasDiscretePlayPause && (action == MultimediaPlay || action == MultimediaPause) {
		return MultimediaPlayPause
	}
	return action
}
