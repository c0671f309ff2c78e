package action

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/tilepad/hub/internal/hub/model"
	"github.com/tilepad/hub/internal/hub/platform"
)

type websiteProps struct {
	URL string `json:"url"`
}

type pathProps struct {
	Path string `json:"path"`
}

type textProps struct {
	Text string `json:"text"`
}

type multimediaProps struct {
	Action platform.MultimediaAction `json:"action"`
}

type hotkeyProps struct {
	Modifiers []string `json:"modifiers"`
	Keys      []string `json:"keys"`
}

type clipboardProps struct {
	Text string `json:"text"`
}

// dispatchSystem implements the com.tilepad.system.* internal actions,
// all fire-and-forget calls into the platform layer.
func (d *Dispatcher) dispatchSystem(ctx context.Context, tile model.Tile) error {
	switch tile.ActionID {
	case "website":
		var p websiteProps
		if !unmarshalProps(tile, &p) || p.URL == "" {
			return nil
		}
		logErr("website", d.platform.OpenWebsite(p.URL))

	case "open":
		var p pathProps
		if !unmarshalProps(tile, &p) || p.Path == "" {
			return nil
		}
		logErr("open", d.platform.OpenPath(p.Path))

	case "open_folder":
		var p pathProps
		if !unmarshalProps(tile, &p) || p.Path == "" {
			return nil
		}
		logErr("open_folder", d.platform.OpenFolder(p.Path))

	case "close":
		var p pathProps
		if !unmarshalProps(tile, &p) || p.Path == "" {
			return nil
		}
		logErr("close", d.platform.CloseProcess(p.Path))

	case "text":
		var p textProps
		if !unmarshalProps(tile, &p) {
			return nil
		}
		logErr("text", typeBatched(d.platform, p.Text))

	case "multimedia":
		var p multimediaProps
		if !unmarshalProps(tile, &p) || p.Action == "" {
			return nil
		}
		logErr("multimedia", d.platform.Multimedia(p.Action))

	case "hotkey":
		var p hotkeyProps
		if !unmarshalProps(tile, &p) {
			return nil
		}
		logErr("hotkey", d.platform.Hotkey(p.Modifiers, p.Keys))

	case "clipboard":
		var p clipboardProps
		if !unmarshalProps(tile, &p) {
			return nil
		}
		logErr("clipboard", d.platform.WriteClipboard(p.Text))

	default:
		slog.Warn("[Action] unknown system action, dropped", "action_id", tile.ActionID)
	}
	return nil
}

func unmarshalProps(tile model.Tile, v any) bool {
	if err := json.Unmarshal(tile.Properties, v); err != nil {
		slog.Warn("[Action] malformed action properties, dropped", "tile_id", tile.ID, "action_id", tile.ActionID, "error", err)
		return false
	}
	return true
}

func logErr(action string, err error) {
	if err != nil {
		slog.Warn("[Action] system action failed", "action", action, "error", err)
	}
}

// typeBatched sends text as runs split at '\n', flushing Enter between
// each run with a 2ms pause separating sends.
func typeBatched(p platform.Platform, text string) error {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			if err := p.TypeText(line); err != nil {
				return err
			}
			time.Sleep(2 * time.Millisecond)
		}
		if i < len(lines)-1 {
			if err := p.Hotkey(nil, []string{"Enter"}); err != nil {
				return err
			}
			time.Sleep(2 * time.Millisecond)
		}
	}
	return nil
}
