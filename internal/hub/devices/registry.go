// Package devices implements the device registry: live session
// tracking, pending approval requests, and device identity lifecycle.
// Grounded on original_source/src-tauri/src/device/mod.rs (Devices)
// and device/session.rs (per-session message dispatch).
package devices

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tilepad/hub/internal/hub/eventbus"
	"github.com/tilepad/hub/internal/hub/model"
	"github.com/tilepad/hub/internal/hub/protocol"
	"github.com/tilepad/hub/internal/hub/store"
	"github.com/tilepad/hub/internal/hub/transport"
)

var (
	ErrUnknownRequest = errors.New("devices: unknown request")
	ErrSessionGone    = errors.New("devices: session gone")
	ErrForbidden      = errors.New("devices: forbidden")
)

// TileLister resolves the tiles currently visible in a folder, in
// (row, column) order. Implemented by the tiles service; declared here
// to avoid a store-level import cycle (devices -> tiles -> devices).
type TileLister interface {
	VisibleTiles(ctx context.Context, folderID string) ([]protocol.TileView, error)
}

// Registry tracks live device sessions and pending approval requests.
// The Devices, Plugins, Tiles, Icons and bus are constructed once at
// startup and passed explicitly (§9 "Global handles") — Registry never
// reaches for an ambient global.
type Registry struct {
	mu               sync.Mutex
	sessions         map[string]*transport.Session // session_id -> session
	sessionDeviceID  map[string]string             // session_id -> device_id, once authenticated
	deviceToSession  map[string]string             // device_id -> session_id
	pending          map[string]model.DeviceRequest // request_id -> request
	pendingBySession map[string]string              // session_id -> request_id, at most one

	store *store.Store
	bus   eventbus.Emitter
	tiles TileLister

	refreshing *store.TTLMap[string, struct{}]
}

// New constructs a device registry bound to a store, event bus, and
// tile lister.
func New(st *store.Store, bus eventbus.Emitter, tiles TileLister) *Registry {
	r := &Registry{
		sessions:         make(map[string]*transport.Session),
		sessionDeviceID:  make(map[string]string),
		deviceToSession:  make(map[string]string),
		pending:          make(map[string]model.DeviceRequest),
		pendingBySession: make(map[string]string),
		store:            st,
		bus:              bus,
		tiles:            tiles,
	}
	r.refreshing = store.NewTTLMap[string, struct{}](time.Second, nil)
	return r
}

// AddSession registers a newly connected, unauthenticated device session.
func (r *Registry) AddSession(s *transport.Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
}

// RemoveSession drops a session from every index and clears any
// pending request it owned.
func (r *Registry) RemoveSession(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	if deviceID, ok := r.sessionDeviceID[sessionID]; ok {
		delete(r.sessionDeviceID, sessionID)
		if r.deviceToSession[deviceID] == sessionID {
			delete(r.deviceToSession, deviceID)
		}
	}
	var removedReq string
	if reqID, ok := r.pendingBySession[sessionID]; ok {
		removedReq = reqID
		delete(r.pending, reqID)
		delete(r.pendingBySession, sessionID)
	}
	r.mu.Unlock()

	if removedReq != "" {
		r.bus.Emit(eventbus.TopicDeviceRequestRemoved, removedReq)
	}
}

// RequestApproval registers a pending approval request for an
// unauthenticated session. At most one pending request per session:
// a second request from the same session replaces the first.
func (r *Registry) RequestApproval(sessionID, name string) model.DeviceRequest {
	req := model.DeviceRequest{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		DeviceName: name,
	}
	if s, ok := r.sessionAddr(sessionID); ok {
		req.SocketAddr = s
	}

	r.mu.Lock()
	if oldReqID, ok := r.pendingBySession[sessionID]; ok {
		delete(r.pending, oldReqID)
	}
	r.pending[req.ID] = req
	r.pendingBySession[sessionID] = req.ID
	r.mu.Unlock()

	r.bus.Emit(eventbus.TopicDeviceRequestAdded, req)
	return req
}

func (r *Registry) sessionAddr(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return "", false
	}
	return s.RemoteAddr(), true
}

// Approve mints a device row, replies to the requesting session, and
// removes the request. The Store write happens before the terminal
// reply so a client that reconnects immediately observes the new
// device.
func (r *Registry) Approve(ctx context.Context, requestID, profileID, folderID string) (model.Device, error) {
	r.mu.Lock()
	req, ok := r.pending[requestID]
	if ok {
		delete(r.pending, requestID)
		delete(r.pendingBySession, req.SessionID)
	}
	r.mu.Unlock()
	if !ok {
		return model.Device{}, ErrUnknownRequest
	}

	sess, ok := r.sessionByID(req.SessionID)
	if !ok {
		return model.Device{}, ErrSessionGone
	}

	token, err := newAccessToken()
	if err != nil {
		return model.Device{}, fmt.Errorf("devices: mint access token: %w", err)
	}

	device := model.Device{
		ID:          uuid.NewString(),
		Name:        req.DeviceName,
		AccessToken: token,
		ProfileID:   profileID,
		FolderID:    folderID,
		CreatedAt:   time.Now().Unix(),
	}
	if err := r.store.CreateDevice(ctx, device); err != nil {
		return model.Device{}, fmt.Errorf("devices: create device: %w", err)
	}

	sess.Send(protocol.Frame(protocol.DeviceOutApproved, protocol.Approved{
		DeviceID: device.ID, AccessToken: device.AccessToken,
	}))
	r.bus.Emit(eventbus.TopicDeviceRequestAccepted, device.ID)
	return device, nil
}

// Decline replies Declined to the requesting session (best-effort) and
// removes the request.
func (r *Registry) Decline(requestID string) error {
	r.mu.Lock()
	req, ok := r.pending[requestID]
	if ok {
		delete(r.pending, requestID)
		delete(r.pendingBySession, req.SessionID)
	}
	r.mu.Unlock()
	if !ok {
		return ErrUnknownRequest
	}

	if sess, ok := r.sessionByID(req.SessionID); ok {
		sess.Send(protocol.Frame(protocol.DeviceOutDeclined, struct{}{}))
	}
	r.bus.Emit(eventbus.TopicDeviceRequestDeclined, requestID)
	return nil
}

// Authenticate looks up a device by access token and binds it to the
// session. Resolves the "session eviction race" open question by
// running evict-then-bind under the registry's single mutex, so a
// concurrent Authenticate for the same device cannot interleave with
// that step. The last_connected_at touch runs after the mutex is
// released, so concurrent touches for one device are last-writer-wins.
func (r *Registry) Authenticate(ctx context.Context, sessionID, accessToken string) error {
	device, err := r.store.GetDeviceByToken(ctx, accessToken)
	if err != nil {
		if sess, ok := r.sessionByID(sessionID); ok {
			sess.Send(protocol.Frame(protocol.DeviceOutInvalidAccessToken, struct{}{}))
		}
		return nil //nolint: this is a negative reply, not a caller-visible error
	}

	r.mu.Lock()
	if oldSessionID, ok := r.deviceToSession[device.ID]; ok && oldSessionID != sessionID {
		if oldSess, ok := r.sessions[oldSessionID]; ok {
			oldSess.Send(protocol.Frame(protocol.DeviceOutRevoked, struct{}{}))
			delete(r.sessionDeviceID, oldSessionID)
		}
	}
	r.deviceToSession[device.ID] = sessionID
	r.sessionDeviceID[sessionID] = device.ID
	sess, sessOK := r.sessions[sessionID]
	r.mu.Unlock()

	if err := r.store.TouchLastConnected(ctx, device.ID); err != nil {
		slog.Error("[Devices] failed to touch last_connected_at", "device_id", device.ID, "error", err)
	}

	if sessOK {
		sess.Send(protocol.Frame(protocol.DeviceOutAuthenticated, protocol.Authenticated{DeviceID: device.ID}))
	}
	r.bus.Emit(eventbus.TopicDeviceAuthenticated, device.ID)
	return nil
}

// Revoke deletes the device row and, if a live session holds that
// device, sends Revoked and terminates it.
func (r *Registry) Revoke(ctx context.Context, deviceID string) error {
	if err := r.store.DeleteDevice(ctx, deviceID); err != nil {
		return fmt.Errorf("devices: revoke: %w", err)
	}

	r.mu.Lock()
	sessionID, ok := r.deviceToSession[deviceID]
	if ok {
		delete(r.deviceToSession, deviceID)
		delete(r.sessionDeviceID, sessionID)
	}
	var sess *transport.Session
	if ok {
		sess = r.sessions[sessionID]
	}
	r.mu.Unlock()

	r.bus.Emit(eventbus.TopicDeviceRevoked, deviceID)

	if sess != nil {
		sess.Send(protocol.Frame(protocol.DeviceOutRevoked, struct{}{}))
		sess.Close()
	}
	return nil
}

// SessionByDevice returns the live session bound to a device, if any.
func (r *Registry) SessionByDevice(deviceID string) (*transport.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessionID, ok := r.deviceToSession[deviceID]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[sessionID]
	return s, ok
}

// SendToDevice delivers frame to the live session bound to a device,
// if any. Returns false (dropped, not an error) if the device has no
// live session.
func (r *Registry) SendToDevice(deviceID string, frame any) bool {
	sess, ok := r.SessionByDevice(deviceID)
	if !ok {
		return false
	}
	sess.Send(frame)
	return true
}

// DeviceIDForSession returns the authenticated device id bound to a
// session, if authenticated.
func (r *Registry) DeviceIDForSession(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.sessionDeviceID[sessionID]
	return id, ok
}

func (r *Registry) sessionByID(sessionID string) (*transport.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// BackgroundUpdateFolder pushes a Tiles{} refresh to every device
// session currently viewing folderID. Refreshes are coalesced: a
// refresh already in flight for the same folder absorbs concurrent
// callers rather than running twice.
func (r *Registry) BackgroundUpdateFolder(ctx context.Context, folderID string) {
	if !r.refreshing.SetIfAbsent(folderID, struct{}{}, 2*time.Second) {
		return
	}
	go func() {
		defer r.refreshing.Delete(folderID)
		r.refreshFolder(ctx, folderID)
	}()
}

func (r *Registry) refreshFolder(ctx context.Context, folderID string) {
	tileViews, err := r.tiles.VisibleTiles(ctx, folderID)
	if err != nil {
		slog.Error("[Devices] failed to load tiles for folder refresh", "folder_id", folderID, "error", err)
		return
	}
	devicesInFolder, err := r.store.DevicesInFolder(ctx, folderID)
	if err != nil {
		slog.Error("[Devices] failed to list devices for folder refresh", "folder_id", folderID, "error", err)
		return
	}

	msg := protocol.Frame(protocol.DeviceOutTiles, protocol.Tiles{Folder: folderID, Tiles: tileViews})
	for _, d := range devicesInFolder {
		if sess, ok := r.SessionByDevice(d.ID); ok {
			sess.Send(msg)
		}
	}
}


func newAccessToken() (string, error) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, 40)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}
