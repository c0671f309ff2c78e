package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tilepad/hub/internal/hub/deeplink"
	"github.com/tilepad/hub/internal/hub/protocol"
	"github.com/tilepad/hub/internal/hub/transport"
)

// handlePluginWS upgrades to a plugin session. Loopback only per §6 —
// plugin processes run on the same host as the hub.
func (s *Server) handlePluginWS(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[HTTPAPI] plugin ws upgrade failed", "error", err)
		return
	}

	sess := transport.New(conn)
	s.plugins.AddSession(sess)
	sess.OnClose(func(reason transport.CloseReason) {
		s.plugins.RemoveSession(sess.ID)
	})

	go s.pluginLoop(sess)
}

func (s *Server) pluginLoop(sess *transport.Session) {
	ctx := context.Background()
	for raw := range sess.Inbound() {
		msgType, err := protocol.DecodeType(raw)
		if err != nil {
			slog.Warn("[HTTPAPI] plugin frame missing type, dropped", "session_id", sess.ID)
			continue
		}

		pluginID, registered := s.plugins.PluginIDForSession(sess.ID)

		switch msgType {
		case protocol.PluginInRegisterPlugin:
			if registered {
				slog.Warn("[HTTPAPI] RegisterPlugin from already-registered session, dropped", "session_id", sess.ID, "plugin_id", pluginID)
				continue
			}
			var body protocol.RegisterPlugin
			if err := json.Unmarshal(raw, &body); err != nil {
				slog.Warn("[HTTPAPI] malformed RegisterPlugin, dropped", "session_id", sess.ID)
				continue
			}
			s.plugins.Register(sess.ID, body.PluginID)

		case protocol.PluginInGetProperties:
			if !registered {
				slog.Warn("[HTTPAPI] GetProperties from unregistered session, dropped", "session_id", sess.ID)
				continue
			}
			props, err := s.plugins.GetProperties(ctx, pluginID)
			if err != nil {
				slog.Error("[HTTPAPI] GetProperties failed", "plugin_id", pluginID, "error", err)
				continue
			}
			sess.Send(protocol.Frame(protocol.PluginOutProperties, protocol.Properties{Properties: props}))

		case protocol.PluginInSetProperties:
			if !registered {
				slog.Warn("[HTTPAPI] SetProperties from unregistered session, dropped", "session_id", sess.ID)
				continue
			}
			var body protocol.SetProperties
			if err := json.Unmarshal(raw, &body); err != nil {
				slog.Warn("[HTTPAPI] malformed SetProperties, dropped", "session_id", sess.ID)
				continue
			}
			if err := s.plugins.SetProperties(ctx, pluginID, body.Properties, body.Partial); err != nil {
				slog.Error("[HTTPAPI] SetProperties failed", "plugin_id", pluginID, "error", err)
			}

		case protocol.PluginInSendToInspector:
			if !registered {
				slog.Warn("[HTTPAPI] SendToInspector from unregistered session, dropped", "session_id", sess.ID)
				continue
			}
			var body protocol.SendToInspector
			if err := json.Unmarshal(raw, &body); err != nil {
				slog.Warn("[HTTPAPI] malformed SendToInspector, dropped", "session_id", sess.ID)
				continue
			}
			s.inspector.RecvFromPlugin(body.Ctx, body.Message)
			deviceID := body.Ctx.DeviceID
			if deviceID != "" {
				frame := protocol.Frame(protocol.DeviceOutRecvFromPlugin, protocol.RecvFromPlugin{Ctx: body.Ctx, Message: body.Message})
				s.devices.SendToDevice(deviceID, frame)
			}

		case protocol.PluginInOpenUrl:
			if !registered {
				slog.Warn("[HTTPAPI] OpenUrl from unregistered session, dropped", "session_id", sess.ID)
				continue
			}
			var body protocol.OpenUrl
			if err := json.Unmarshal(raw, &body); err != nil {
				slog.Warn("[HTTPAPI] malformed OpenUrl, dropped", "session_id", sess.ID)
				continue
			}
			deeplink.Dispatch(s.plugins, body.URL)

		case protocol.PluginInGetTileProperties:
			if !registered {
				slog.Warn("[HTTPAPI] GetTileProperties from unregistered session, dropped", "session_id", sess.ID)
				continue
			}
			var body protocol.GetTileProperties
			if err := json.Unmarshal(raw, &body); err != nil {
				slog.Warn("[HTTPAPI] malformed GetTileProperties, dropped", "session_id", sess.ID)
				continue
			}
			props, err := s.tiles.GetProperties(ctx, body.TileID, pluginID)
			if err != nil {
				slog.Warn("[HTTPAPI] GetTileProperties failed", "tile_id", body.TileID, "error", err)
				continue
			}
			sess.Send(protocol.Frame(protocol.PluginOutTileProperties, protocol.TileProperties{TileID: body.TileID, Properties: props}))

		case protocol.PluginInSetTileProperties:
			if !registered {
				slog.Warn("[HTTPAPI] SetTileProperties from unregistered session, dropped", "session_id", sess.ID)
				continue
			}
			var body protocol.SetTileProperties
			if err := json.Unmarshal(raw, &body); err != nil {
				slog.Warn("[HTTPAPI] malformed SetTileProperties, dropped", "session_id", sess.ID)
				continue
			}
			if err := s.tiles.UpdateProperties(ctx, body.TileID, pluginID, body.Properties, body.Partial); err != nil {
				slog.Warn("[HTTPAPI] SetTileProperties failed", "tile_id", body.TileID, "error", err)
			}

		case protocol.PluginInSetTileIcon:
			if !registered {
				slog.Warn("[HTTPAPI] SetTileIcon from unregistered session, dropped", "session_id", sess.ID)
				continue
			}
			s.handleSetTileIcon(ctx, sess, pluginID, raw)

		case protocol.PluginInSetTileLabel:
			if !registered {
				slog.Warn("[HTTPAPI] SetTileLabel from unregistered session, dropped", "session_id", sess.ID)
				continue
			}
			s.handleSetTileLabel(ctx, sess, pluginID, raw)

		case protocol.PluginInGetVisibleTiles:
			if !registered {
				slog.Warn("[HTTPAPI] GetVisibleTiles from unregistered session, dropped", "session_id", sess.ID)
				continue
			}
			views, err := s.tiles.VisibleTilesForPlugin(ctx, pluginID)
			if err != nil {
				slog.Error("[HTTPAPI] GetVisibleTiles failed", "plugin_id", pluginID, "error", err)
				continue
			}
			sess.Send(protocol.Frame(protocol.PluginOutVisibleTiles, protocol.VisibleTiles{Tiles: views}))

		default:
			slog.Warn("[HTTPAPI] unknown plugin message type, dropped", "type", msgType)
		}
	}
}
