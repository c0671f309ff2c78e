package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tilepad/hub/internal/hub/model"
	"github.com/tilepad/hub/internal/hub/protocol"
	"github.com/tilepad/hub/internal/hub/transport"
)

// handleSetTileIcon applies a plugin-authored (Program-kind) icon
// update, subject to the sticky user_flags.icon bit.
func (s *Server) handleSetTileIcon(ctx context.Context, sess *transport.Session, pluginID string, raw json.RawMessage) {
	var body protocol.SetTileIcon
	if err := json.Unmarshal(raw, &body); err != nil {
		slog.Warn("[HTTPAPI] malformed SetTileIcon, dropped", "session_id", sess.ID)
		return
	}
	var icon model.TileIcon
	if err := json.Unmarshal(body.Icon, &icon); err != nil {
		slog.Warn("[HTTPAPI] malformed SetTileIcon icon body, dropped", "tile_id", body.TileID)
		return
	}
	if err := s.tiles.UpdateIcon(ctx, body.TileID, pluginID, icon, model.UpdateKindProgram); err != nil {
		slog.Warn("[HTTPAPI] SetTileIcon failed", "tile_id", body.TileID, "error", err)
	}
}

// handleSetTileLabel applies a plugin-authored (Program-kind) label
// update, subject to the sticky user_flags.label bit.
func (s *Server) handleSetTileLabel(ctx context.Context, sess *transport.Session, pluginID string, raw json.RawMessage) {
	var body protocol.SetTileLabel
	if err := json.Unmarshal(raw, &body); err != nil {
		slog.Warn("[HTTPAPI] malformed SetTileLabel, dropped", "session_id", sess.ID)
		return
	}
	label := model.TileLabel{Enabled: body.Label != "", Label: body.Label}
	if err := s.tiles.UpdateLabel(ctx, body.TileID, pluginID, label, model.UpdateKindProgram); err != nil {
		slog.Warn("[HTTPAPI] SetTileLabel failed", "tile_id", body.TileID, "error", err)
	}
}
