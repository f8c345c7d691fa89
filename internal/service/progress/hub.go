package progress

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"AleoRisk/internal/domain/models"
	"AleoRisk/internal/domain/repository"
	svcmetrics "AleoRisk/internal/service/metrics"
	applogger "AleoRisk/pkg/logger"

	"github.com/gorilla/websocket"
)

var _ repository.ProgressSink = (*Hub)(nil)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 30 * time.Second
	sendBuffer  = 64
	replayLimit = 32
	maxTopics   = 1024
)

type subscriber struct {
	ch chan models.ProgressEvent
}

// Hub fans progress events out to subscribers of one analysis ID and keeps a
// short replay per analysis so late subscribers see earlier steps.
type Hub struct {
	mu       sync.Mutex
	subs     map[string]map[*subscriber]struct{}
	replay   map[string][]models.ProgressEvent
	order    []string
	closed   bool
	upgrader websocket.Upgrader
	l        *applogger.Logger
}

// NewHub creates an empty hub.
func NewHub(l *applogger.Logger) *Hub {
	if l == nil {
		l = applogger.Nop()
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		replay: make(map[string][]models.ProgressEvent),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		l: l.With(applogger.String("component", "progress_hub")),
	}
}

// SetCheckOrigin restricts which origins may open a stream.
func (h *Hub) SetCheckOrigin(fn func(r *http.Request) bool) {
	if fn != nil {
		h.upgrader.CheckOrigin = fn
	}
}

// Publish records ev and delivers it to current subscribers without blocking.
// A Done event closes the analysis' subscriptions.
func (h *Hub) Publish(ev models.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	h.remember(ev)
	for s := range h.subs[ev.AnalysisID] {
		select {
		case s.ch <- ev:
		default:
			h.l.Warn("progress subscriber slow, event dropped",
				applogger.String("analysis_id", ev.AnalysisID),
				applogger.Int("progress", ev.Progress),
			)
		}
		if ev.Done {
			close(s.ch)
		}
	}
	if ev.Done {
		svcmetrics.ProgressSubscribers.Sub(float64(len(h.subs[ev.AnalysisID])))
		delete(h.subs, ev.AnalysisID)
	}
}

// Subscribe returns a channel that first replays recorded events for id and
// then receives new ones. It is closed after the Done event or on cancel.
func (h *Hub) Subscribe(id string) (<-chan models.ProgressEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	past := h.replay[id]
	s := &subscriber{ch: make(chan models.ProgressEvent, max(sendBuffer, len(past)))}
	done := false
	for _, ev := range past {
		s.ch <- ev
		done = done || ev.Done
	}
	if done || h.closed {
		close(s.ch)
		return s.ch, func() {}
	}

	if h.subs[id] == nil {
		h.subs[id] = make(map[*subscriber]struct{})
	}
	h.subs[id][s] = struct{}{}
	svcmetrics.ProgressSubscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[id][s]; ok {
				delete(h.subs[id], s)
				if len(h.subs[id]) == 0 {
					delete(h.subs, id)
				}
				close(s.ch)
				svcmetrics.ProgressSubscribers.Dec()
			}
		})
	}
	return s.ch, cancel
}

// Subscribers returns the number of open subscriptions for id.
func (h *Hub) Subscribers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// ServeWS upgrades the request and streams events for id as JSON text frames.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, id string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	events, cancel := h.Subscribe(id)
	defer cancel()

	gone := make(chan struct{})
	go readPump(conn, gone)
	writePump(conn, events, gone)
	return nil
}

// readPump discards client frames and signals when the peer goes away.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, events <-chan models.ProgressEvent, gone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, set := range h.subs {
		for s := range set {
			close(s.ch)
			svcmetrics.ProgressSubscribers.Dec()
		}
		delete(h.subs, id)
	}
}

// remember appends ev to its analysis' replay, evicting the oldest analysis
// once maxTopics are tracked. Caller holds h.mu.
func (h *Hub) remember(ev models.ProgressEvent) {
	past, ok := h.replay[ev.AnalysisID]
	if !ok {
		h.order = append(h.order, ev.AnalysisID)
		if len(h.order) > maxTopics {
			oldest := h.order[0]
			h.order = h.order[1:]
			delete(h.replay, oldest)
		}
	}
	past = append(past, ev)
	if len(past) > replayLimit {
		past = past[len(past)-replayLimit:]
	}
	h.replay[ev.AnalysisID] = past
}
