package ws

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"teamline/internal/domain"
	"teamline/internal/service"
	"teamline/internal/typing"
)

// jsonWriter is what a session needs from the underlying connection.
// *websocket.Conn satisfies it; tests plug in a recorder.
type jsonWriter interface {
	WriteJSON(v any) error
}

// Session is the per-connection view state: the currently selected
// channel's subscription, its typing debouncer, and the generation
// counter that guards against stale async results after a channel
// switch.
type Session struct {
	user      *domain.User
	hub       *Hub
	messages  *service.MessageService
	typingSvc *service.TypingService
	unread    *service.UnreadService
	channels  *service.ChannelService

	window           int
	debounceInterval time.Duration
	log              zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	wmu  sync.Mutex // serializes socket writes
	conn jsonWriter

	mu            sync.Mutex
	generation    uint64
	active        *Subscription
	activeChannel int64
	debouncer     *typing.Debouncer
}

func NewSession(
	conn jsonWriter,
	user *domain.User,
	hub *Hub,
	messages *service.MessageService,
	typingSvc *service.TypingService,
	unread *service.UnreadService,
	channels *service.ChannelService,
	window int,
	debounceInterval time.Duration,
	log zerolog.Logger,
) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		user:             user,
		hub:              hub,
		messages:         messages,
		typingSvc:        typingSvc,
		unread:           unread,
		channels:         channels,
		window:           window,
		debounceInterval: debounceInterval,
		log:              log.With().Str("component", "session").Int64("user_id", user.ID).Logger(),
		ctx:              ctx,
		cancel:           cancel,
		conn:             conn,
	}
}

func (s *Session) send(ev Event) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.conn.WriteJSON(ev); err != nil {
		s.log.Debug().Err(err).Str("event", ev.Type).Msg("write failed")
	}
}

func (s *Session) sendError(msg string) {
	s.send(Event{Type: EventError, Payload: map[string]string{"message": msg}})
}

// SelectChannel switches the session to a channel: the previous
// subscription is released first, then the new one is established and
// the initial message window is fetched asynchronously. The generation
// counter makes sure a late window from a previous channel never
// populates the new one.
func (s *Session) SelectChannel(channelID int64) {
	if _, err := s.channels.Get(s.ctx, channelID, s.user.ID); err != nil {
		s.sendError("channel unavailable")
		return
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	oldSub := s.active
	oldDeb := s.debouncer
	s.active = nil
	s.debouncer = nil
	s.mu.Unlock()

	if oldDeb != nil {
		oldDeb.Stop()
	}
	if oldSub != nil {
		s.hub.Unsubscribe(oldSub)
	}

	sub := s.hub.Subscribe(channelID, s.send, func() {
		s.send(Event{Type: EventSubscriptionLost, ChannelID: channelID})
	})

	s.mu.Lock()
	if s.generation != gen {
		// Another SelectChannel won the race while we were subscribing.
		s.mu.Unlock()
		s.hub.Unsubscribe(sub)
		return
	}
	s.active = sub
	s.activeChannel = channelID
	s.debouncer = typing.NewDebouncer(s.debounceInterval, func(isTyping bool) {
		s.typingSvc.SetTyping(s.ctx, channelID, s.user.ID, isTyping)
	})
	s.mu.Unlock()

	go s.loadHistory(gen, channelID)
}

func (s *Session) loadHistory(gen uint64, channelID int64) {
	msgs, err := s.messages.ListRecent(s.ctx, channelID, s.window)

	s.mu.Lock()
	stale := s.generation != gen
	s.mu.Unlock()
	if stale {
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Int64("channel_id", channelID).Msg("history load failed")
		s.sendError("failed to load messages")
		return
	}
	s.send(Event{Type: EventHistory, ChannelID: channelID, Payload: msgs})
}

// Keystroke feeds the active channel's debouncer. No-op when no channel
// is selected.
func (s *Session) Keystroke() {
	s.mu.Lock()
	d := s.debouncer
	s.mu.Unlock()
	if d != nil {
		d.Keystroke()
	}
}

// StopTyping clears the typing indicator immediately (input emptied,
// message sent, composer blurred).
func (s *Session) StopTyping() {
	s.mu.Lock()
	d := s.debouncer
	s.mu.Unlock()
	if d != nil {
		d.Stop()
	}
}

// ActiveChannel returns the currently selected channel id, 0 if none.
func (s *Session) ActiveChannel() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return 0
	}
	return s.activeChannel
}

// Close releases the subscription and clears typing state. Called on
// connection teardown.
func (s *Session) Close() {
	s.mu.Lock()
	s.generation++ // invalidate any in-flight history load
	sub := s.active
	d := s.debouncer
	s.active = nil
	s.debouncer = nil
	s.mu.Unlock()

	if d != nil {
		d.Stop()
	}
	if sub != nil {
		s.hub.Unsubscribe(sub)
	}
	s.cancel()
}
