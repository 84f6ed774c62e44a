package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"teamline/internal/domain"
	"teamline/internal/metrics"
	"teamline/internal/service"
)

// Server-to-client event types.
const (
	EventMessageCreated   = "message.created"
	EventMessageUpdated   = "message.updated"
	EventMessageDeleted   = "message.deleted"
	EventTyping           = "typing"
	EventHistory          = "channel.history"
	EventSubscriptionLost = "subscription_lost"
	EventError            = "error"
)

// Event is the wire envelope pushed to subscribers.
type Event struct {
	Type      string `json:"type"`
	ChannelID int64  `json:"channel_id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// TypingPayload announces a typing state change.
type TypingPayload struct {
	User     *domain.User `json:"user"`
	IsTyping bool         `json:"is_typing"`
}

// Sink consumes events for one subscription, in order.
type Sink func(Event)

// subscriptionBuffer bounds how far a consumer may fall behind before it
// is dropped and told to reconcile.
const subscriptionBuffer = 64

// Subscription is a handle to one channel-scoped event stream. Events
// flow through a buffered queue and a dedicated pump goroutine, so
// broadcasts never block on a slow socket while per-channel order is
// preserved.
type Subscription struct {
	channelID int64
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	sink      Sink
	lost      func()
}

func (sub *Subscription) pump() {
	for {
		select {
		case ev := <-sub.events:
			sub.sink(ev)
		case <-sub.done:
			return
		}
	}
}

func (sub *Subscription) close() {
	sub.closeOnce.Do(func() { close(sub.done) })
}

// Hub is the fan-out registry: subscriptions keyed by channel id. It
// implements service.Broadcaster so stores changes reach every client
// viewing the channel without polling.
type Hub struct {
	mu   sync.RWMutex
	subs map[int64]map[*Subscription]struct{}
	log  zerolog.Logger
}

var _ service.Broadcaster = (*Hub)(nil)

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subs: make(map[int64]map[*Subscription]struct{}),
		log:  log.With().Str("component", "hub").Logger(),
	}
}

// Subscribe registers a sink for the channel's events. The lost callback
// fires if the subscription is dropped for falling behind; the consumer
// then re-subscribes and reconciles with a fresh message window, since
// the hub buffers nothing across that gap.
func (h *Hub) Subscribe(channelID int64, sink Sink, lost func()) *Subscription {
	sub := &Subscription{
		channelID: channelID,
		events:    make(chan Event, subscriptionBuffer),
		done:      make(chan struct{}),
		sink:      sink,
		lost:      lost,
	}

	h.mu.Lock()
	if h.subs[channelID] == nil {
		h.subs[channelID] = make(map[*Subscription]struct{})
	}
	h.subs[channelID][sub] = struct{}{}
	h.mu.Unlock()

	metrics.FanoutSubscriptions.Inc()
	go sub.pump()
	return sub
}

// Unsubscribe tears down the subscription. Safe to call more than once
// and with nil.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	if conns, ok := h.subs[sub.channelID]; ok {
		if _, present := conns[sub]; present {
			delete(conns, sub)
			if len(conns) == 0 {
				delete(h.subs, sub.channelID)
			}
			metrics.FanoutSubscriptions.Dec()
		}
	}
	h.mu.Unlock()
	sub.close()
}

func (h *Hub) broadcast(channelID int64, ev Event) {
	h.mu.RLock()
	var dropped []*Subscription
	for sub := range h.subs[channelID] {
		select {
		case sub.events <- ev:
		default:
			dropped = append(dropped, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range dropped {
		h.log.Warn().Int64("channel_id", channelID).Msg("dropping slow subscriber")
		h.Unsubscribe(sub)
		metrics.FanoutDropped.Inc()
		if sub.lost != nil {
			go sub.lost()
		}
	}
}

func (h *Hub) MessageCreated(m *domain.Message) {
	h.broadcast(m.ChannelID, Event{Type: EventMessageCreated, ChannelID: m.ChannelID, Payload: m})
}

func (h *Hub) MessageUpdated(m *domain.Message) {
	h.broadcast(m.ChannelID, Event{Type: EventMessageUpdated, ChannelID: m.ChannelID, Payload: m})
}

func (h *Hub) MessageDeleted(channelID, messageID int64) {
	h.broadcast(channelID, Event{
		Type:      EventMessageDeleted,
		ChannelID: channelID,
		Payload:   map[string]int64{"message_id": messageID},
	})
}

func (h *Hub) Typing(channelID int64, user *domain.User, isTyping bool) {
	h.broadcast(channelID, Event{
		Type:      EventTyping,
		ChannelID: channelID,
		Payload:   TypingPayload{User: user, IsTyping: isTyping},
	})
}
