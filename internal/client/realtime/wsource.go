package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"screenlog/internal/realtime"
)

// WSSource subscribes to the server's realtime hub over a websocket.
// It reconnects with a short backoff and replays its subscriptions on
// every new connection, so projections survive a server restart.
type WSSource struct {
	url string
	log zerolog.Logger

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	handlers map[string]map[uint64]Handler
	nextID   uint64
	done     chan struct{}
	closed   bool
}

func NewWSSource(url string, logger zerolog.Logger) *WSSource {
	s := &WSSource{
		url:      url,
		log:      logger,
		handlers: make(map[string]map[uint64]Handler),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *WSSource) run() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		if err := s.connectAndRead(); err != nil {
			s.log.Debug().Err(err).Msg("realtime: disconnected")
		}

		select {
		case <-s.done:
			return
		case <-time.After(time.Second): // auto reconnect
		}
	}
}

func (s *WSSource) connectAndRead() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return conn.Close()
	}
	s.conn = conn
	subjects := make([]string, 0, len(s.handlers))
	for subject := range s.handlers {
		subjects = append(subjects, subject)
	}
	s.mu.Unlock()

	s.log.Debug().Str("url", s.url).Msg("realtime: connected")

	// Replay live subscriptions on the fresh connection.
	for _, subject := range subjects {
		s.send(realtime.ClientFrame{Type: realtime.TypeSubscribe, Subject: subject})
	}

	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var ev realtime.ChangeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		if ev.Type != realtime.TypeChange {
			continue
		}
		s.dispatch(ev)
	}
}

func (s *WSSource) dispatch(ev realtime.ChangeEvent) {
	s.mu.Lock()
	fns := make([]Handler, 0, len(s.handlers[ev.Subject]))
	for _, fn := range s.handlers[ev.Subject] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	doc := Document{Found: ev.Found, Data: ev.Doc}
	for _, fn := range fns {
		fn(doc)
	}
}

func (s *WSSource) send(frame realtime.ClientFrame) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return // replayed on the next connect
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteJSON(frame); err != nil {
		s.log.Debug().Err(err).Str("subject", frame.Subject).Msg("realtime: frame write failed")
	}
}

// Subscribe attaches fn to a subject's change stream.
func (s *WSSource) Subscribe(subject string, fn Handler) (Subscription, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	first := len(s.handlers[subject]) == 0
	if s.handlers[subject] == nil {
		s.handlers[subject] = make(map[uint64]Handler)
	}
	s.handlers[subject][id] = fn
	s.mu.Unlock()

	if first {
		s.send(realtime.ClientFrame{Type: realtime.TypeSubscribe, Subject: subject})
	}

	return &wsSubscription{source: s, subject: subject, id: id}, nil
}

// Close tears the source down; all subscriptions go dead.
func (s *WSSource) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	close(s.done)
	if conn != nil {
		_ = conn.Close()
	}
}

type wsSubscription struct {
	once    sync.Once
	source  *WSSource
	subject string
	id      uint64
}

func (ws *wsSubscription) Unsubscribe() {
	ws.once.Do(func() {
		s := ws.source
		s.mu.Lock()
		delete(s.handlers[ws.subject], ws.id)
		last := len(s.handlers[ws.subject]) == 0
		if last {
			delete(s.handlers, ws.subject)
		}
		s.mu.Unlock()

		if last {
			s.send(realtime.ClientFrame{Type: realtime.TypeUnsubscribe, Subject: ws.subject})
		}
	})
}
