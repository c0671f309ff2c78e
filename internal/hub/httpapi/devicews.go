package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tilepad/hub/internal/hub/protocol"
	"github.com/tilepad/hub/internal/hub/transport"
)

// handleDeviceWS upgrades to a device session and runs its dispatch
// loop until the connection closes. Open to any host per §6.
func (s *Server) handleDeviceWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[HTTPAPI] device ws upgrade failed", "error", err)
		return
	}

	sess := transport.New(conn)
	s.devices.AddSession(sess)
	sess.OnClose(func(reason transport.CloseReason) {
		s.devices.RemoveSession(sess.ID)
	})

	go s.deviceLoop(sess)
}

func (s *Server) deviceLoop(sess *transport.Session) {
	ctx := context.Background()
	for raw := range sess.Inbound() {
		msgType, err := protocol.DecodeType(raw)
		if err != nil {
			slog.Warn("[HTTPAPI] device frame missing type, dropped", "session_id", sess.ID)
			continue
		}

		switch msgType {
		case protocol.DeviceInRequestApproval:
			var body protocol.RequestApproval
			if err := json.Unmarshal(raw, &body); err != nil {
				slog.Warn("[HTTPAPI] malformed RequestApproval, dropped", "session_id", sess.ID)
				continue
			}
			s.devices.RequestApproval(sess.ID, body.Name)

		case protocol.DeviceInAuthenticate:
			var body protocol.Authenticate
			if err := json.Unmarshal(raw, &body); err != nil {
				slog.Warn("[HTTPAPI] malformed Authenticate, dropped", "session_id", sess.ID)
				continue
			}
			if err := s.devices.Authenticate(ctx, sess.ID, body.AccessToken); err != nil {
				slog.Error("[HTTPAPI] authenticate failed", "session_id", sess.ID, "error", err)
			}

		case protocol.DeviceInRequestTiles:
			deviceID, ok := s.devices.DeviceIDForSession(sess.ID)
			if !ok {
				slog.Warn("[HTTPAPI] RequestTiles from unauthenticated session, dropped", "session_id", sess.ID)
				continue
			}
			device, err := s.store.GetDevice(ctx, deviceID)
			if err != nil {
				slog.Error("[HTTPAPI] RequestTiles: device lookup failed", "device_id", deviceID, "error", err)
				continue
			}
			views, err := s.tiles.VisibleTiles(ctx, device.FolderID)
			if err != nil {
				slog.Error("[HTTPAPI] RequestTiles: tile lookup failed", "folder_id", device.FolderID, "error", err)
				continue
			}
			sess.Send(protocol.Frame(protocol.DeviceOutTiles, protocol.Tiles{Folder: device.FolderID, Tiles: views}))

		case protocol.DeviceInTileClicked:
			var body protocol.TileClicked
			if err := json.Unmarshal(raw, &body); err != nil {
				slog.Warn("[HTTPAPI] malformed TileClicked, dropped", "session_id", sess.ID)
				continue
			}
			deviceID, ok := s.devices.DeviceIDForSession(sess.ID)
			if !ok {
				slog.Warn("[HTTPAPI] TileClicked from unauthenticated session, dropped", "session_id", sess.ID)
				continue
			}
			if err := s.action.HandleTilePressed(ctx, deviceID, body.TileID); err != nil {
				slog.Warn("[HTTPAPI] tile press handling failed", "device_id", deviceID, "error", err)
			}

		case protocol.DeviceInRecvFromDisplay:
			var body protocol.RecvFromDisplay
			if err := json.Unmarshal(raw, &body); err != nil {
				slog.Warn("[HTTPAPI] malformed RecvFromDisplay, dropped", "session_id", sess.ID)
				continue
			}
			s.inspector.SendToPlugin(body.Ctx, body.Message)

		default:
			slog.Warn("[HTTPAPI] unknown device message type, dropped", "type", msgType)
		}
	}
}
