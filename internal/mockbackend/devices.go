package mockbackend

import (
	"cmp"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"

	"github.com/devilmonastery/infohunter/internal/api"
)

func (s *Server) registerDevice(w http.ResponseWriter, r *http.Request) {
	var req api.DeviceRegistration
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Platform.Valid() {
		writeValidation(w, "platform", "platform must be ios or android")
		return
	}
	if strings.TrimSpace(req.PushToken) == "" {
		writeValidation(w, "push_token", "push_token must not be empty")
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = api.DefaultDeviceID(req.Platform, req.PushToken)
	}
	uid := currentUser(r)

	s.mu.Lock()
	if s.devices[uid] == nil {
		s.devices[uid] = make(map[string]*device)
	}
	s.devices[uid][req.DeviceID] = &device{
		Device: api.Device{
			DeviceID:  req.DeviceID,
			Platform:  string(req.Platform),
			PushToken: req.PushToken,
		},
		AppVersion: req.AppVersion,
	}
	s.mu.Unlock()

	s.logger.Info("device registered", "user_id", uid, "device_id", req.DeviceID, "platform", req.Platform)
	writeJSON(w, http.StatusOK, api.DeviceRegistered{Status: "registered", DeviceID: req.DeviceID})
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	uid := currentUser(r)

	s.mu.Lock()
	out := make([]api.Device, 0, len(s.devices[uid]))
	for _, d := range s.devices[uid] {
		out = append(out, d.Device)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b api.Device) int {
		return cmp.Compare(a.DeviceID, b.DeviceID)
	})
	writeJSON(w, http.StatusOK, api.DeviceList{Devices: out, Total: len(out)})
}

func (s *Server) unregisterDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	uid := currentUser(r)

	s.mu.Lock()
	_, ok := s.devices[uid][id]
	delete(s.devices[uid], id)
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Device not found")
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Status: "unregistered"})
}

// pushTest pretends to send a notification to each of the caller's devices
func (s *Server) pushTest(w http.ResponseWriter, r *http.Request) {
	var req api.PushTestRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	uid := currentUser(r)

	s.mu.Lock()
	sent := len(s.devices[uid])
	s.mu.Unlock()

	s.logger.Debug("test push", "user_id", uid, "devices", sent, "title", req.Title)
	writeJSON(w, http.StatusOK, api.PushTestResponse{Status: "ok", Sent: sent})
}
