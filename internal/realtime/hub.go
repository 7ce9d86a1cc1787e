package realtime

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type subjectState struct {
	connections map[*websocket.Conn]struct{}
	retained    []byte
}

// Hub fans change events out to subscribers. WebSocket clients follow
// individual subjects; TCP clients get the whole firehose. The last
// event per subject is retained and replayed to new subscribers so
// they never start blind.
type Hub struct {
	mu        sync.Mutex
	subjects  map[string]*subjectState
	tcpConns  map[net.Conn]struct{}
	wsSubject map[*websocket.Conn]map[string]struct{}
	log       zerolog.Logger
}

type Stats struct {
	Subjects   int `json:"subjects"`
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subjects:  make(map[string]*subjectState),
		tcpConns:  make(map[net.Conn]struct{}),
		wsSubject: make(map[*websocket.Conn]map[string]struct{}),
		log:       logger,
	}
}

// Publish pushes a subject's current document to every subscriber and
// retains it for late joiners.
func (h *Hub) Publish(subject string, doc any) {
	data, err := json.Marshal(doc)
	if err != nil {
		h.log.Error().Err(err).Str("subject", subject).Msg("hub: marshal doc")
		return
	}
	h.send(ChangeEvent{
		Type:    TypeChange,
		Subject: subject,
		Found:   true,
		Doc:     data,
		At:      time.Now().UTC(),
	})
}

// Retract announces that a subject's document no longer exists.
// Subscribers fall back to their defaults.
func (h *Hub) Retract(subject string) {
	h.send(ChangeEvent{
		Type:    TypeChange,
		Subject: subject,
		Found:   false,
		At:      time.Now().UTC(),
	})
}

func (h *Hub) send(ev ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	line := append(payload, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.subjectLocked(ev.Subject)
	s.retained = payload

	for ws := range s.connections {
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.dropLocked(ws)
		}
	}

	for c := range h.tcpConns {
		_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		w := bufio.NewWriter(c)
		if _, err := w.Write(line); err != nil {
			_ = c.Close()
			delete(h.tcpConns, c)
			continue
		}
		if err := w.Flush(); err != nil {
			_ = c.Close()
			delete(h.tcpConns, c)
		}
	}
}

// Subscribe attaches a websocket to a subject and replays the retained
// event, if any.
func (h *Hub) Subscribe(subject string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.subjectLocked(subject)
	s.connections[ws] = struct{}{}

	subs, ok := h.wsSubject[ws]
	if !ok {
		subs = make(map[string]struct{})
		h.wsSubject[ws] = subs
	}
	subs[subject] = struct{}{}

	if s.retained != nil {
		if err := ws.WriteMessage(websocket.TextMessage, s.retained); err != nil {
			h.dropLocked(ws)
		}
	}
}

// Unsubscribe detaches a websocket from one subject.
func (h *Hub) Unsubscribe(subject string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.subjects[subject]; ok {
		delete(s.connections, ws)
		h.maybeDropSubjectLocked(subject, s)
	}
	if subs, ok := h.wsSubject[ws]; ok {
		delete(subs, subject)
	}
}

// Drop detaches a websocket from every subject and closes it.
func (h *Hub) Drop(ws *websocket.Conn) {
	h.mu.Lock()
	h.dropLocked(ws)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(ws *websocket.Conn) {
	for subject := range h.wsSubject[ws] {
		if s, ok := h.subjects[subject]; ok {
			delete(s.connections, ws)
			h.maybeDropSubjectLocked(subject, s)
		}
	}
	delete(h.wsSubject, ws)
	_ = ws.Close()
}

// Subjects with no subscribers and no retained event are garbage.
func (h *Hub) maybeDropSubjectLocked(subject string, s *subjectState) {
	if len(s.connections) == 0 && s.retained == nil {
		delete(h.subjects, subject)
	}
}

func (h *Hub) subjectLocked(subject string) *subjectState {
	s, ok := h.subjects[subject]
	if !ok {
		s = &subjectState{connections: make(map[*websocket.Conn]struct{})}
		h.subjects[subject] = s
	}
	return s
}

// Retained returns the last event published for a subject.
func (h *Hub) Retained(subject string) (ChangeEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.subjects[subject]
	if !ok || s.retained == nil {
		return ChangeEvent{}, false
	}
	var ev ChangeEvent
	if err := json.Unmarshal(s.retained, &ev); err != nil {
		return ChangeEvent{}, false
	}
	return ev, true
}

func (h *Hub) AddTCP(conn net.Conn) {
	h.mu.Lock()
	h.tcpConns[conn] = struct{}{}
	n := len(h.tcpConns)
	h.mu.Unlock()

	welcome, _ := json.Marshal(map[string]any{"type": TypeWelcome, "transport": "tcp", "clients": n})
	_, _ = conn.Write(append(welcome, '\n'))
}

func (h *Hub) RemoveTCP(conn net.Conn) {
	h.mu.Lock()
	delete(h.tcpConns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	ws := len(h.wsSubject)
	return Stats{
		Subjects:   len(h.subjects),
		TCPClients: len(h.tcpConns),
		WSClients:  ws,
	}
}
