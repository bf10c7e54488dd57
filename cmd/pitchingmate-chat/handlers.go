package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/chat"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/globals"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/ws"
	"github.com/samber/lo"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type server struct {
	coordinator *chat.Coordinator
	hub         *ws.Hub
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/chat").Subrouter()
	api.HandleFunc("/{variant}/posts/{postId}", s.handleCreateOrJoin).Methods(http.MethodPost)
	api.HandleFunc("/rooms", s.handleListMyRooms).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{roomId}/join", s.handleJoin).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{roomId}/members/me", s.handleLeave).Methods(http.MethodDelete)
	api.HandleFunc("/rooms/{roomId}/messages", s.handleSend).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{roomId}/messages", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/ws/chat/{variant}/{roomId}", s.handleSubscribe).Methods(http.MethodGet)
	return r
}

// memberID trusts the upstream gateway: authentication has already been
// resolved into this header before the request reaches the engine.
func memberID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.Header.Get("X-Member-Id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func pathID(r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			globals.AppLogger.Error("could not encode response", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case chat.IsNotFound(err):
		status = http.StatusNotFound
	case chat.IsForbidden(err):
		status = http.StatusForbidden
	case chat.IsCapacity(err), chat.IsInvalidState(err):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		globals.AppLogger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *server) handleCreateOrJoin(w http.ResponseWriter, r *http.Request) {
	caller, ok := memberID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing member identity"})
		return
	}
	variant, err := types.ParseVariant(mux.Vars(r)["variant"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	postID, ok := pathID(r, "postId")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad post id"})
		return
	}
	view, err := s.coordinator.CreateOrJoin(r.Context(), variant, postID, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleJoin(w http.ResponseWriter, r *http.Request) {
	caller, ok := memberID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing member identity"})
		return
	}
	roomID, ok := pathID(r, "roomId")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad room id"})
		return
	}
	view, err := s.coordinator.JoinExisting(r.Context(), roomID, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleLeave(w http.ResponseWriter, r *http.Request) {
	caller, ok := memberID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing member identity"})
		return
	}
	roomID, ok := pathID(r, "roomId")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad room id"})
		return
	}
	if err := s.coordinator.Leave(r.Context(), roomID, caller); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *server) handleSend(w http.ResponseWriter, r *http.Request) {
	caller, ok := memberID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing member identity"})
		return
	}
	roomID, ok := pathID(r, "roomId")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad room id"})
		return
	}
	body := struct {
		Content string `json:"content"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing message content"})
		return
	}
	if err := s.coordinator.Send(r.Context(), roomID, caller, body.Content); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := memberID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing member identity"})
		return
	}
	roomID, ok := pathID(r, "roomId")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad room id"})
		return
	}
	var cursor time.Time
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad cursor"})
			return
		}
		cursor = parsed
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := s.coordinator.FetchHistory(r.Context(), roomID, caller, cursor, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	wire := lo.Map(messages, func(msg *types.Message, _ int) types.WireMessage {
		snap := types.SenderSnapshot{}
		_ = json.Unmarshal(msg.SenderInfo, &snap)
		return types.NewWireMessage(msg, snap)
	})
	writeJSON(w, http.StatusOK, wire)
}

func (s *server) handleListMyRooms(w http.ResponseWriter, r *http.Request) {
	caller, ok := memberID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing member identity"})
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	summaries, err := s.coordinator.ListMyRooms(r.Context(), caller, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	caller, ok := memberID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing member identity"})
		return
	}
	variant, err := types.ParseVariant(mux.Vars(r)["variant"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	roomID, ok := pathID(r, "roomId")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad room id"})
		return
	}
	active, err := s.coordinator.IsActiveParticipant(roomID, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	if !active {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a participant"})
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		globals.AppLogger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(s.hub, conn, s.coordinator, variant.Topic(roomID), roomID, caller)
	s.hub.Register <- client
	go client.WriteLoop()
	go client.ReadLoop(r.Context())
}
