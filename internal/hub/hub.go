package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hwzhu/mowan-server/internal/game"
	"github.com/hwzhu/mowan-server/internal/room"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom creates the room if missing; start_game retries are
// idempotent.
type EnsureRoom struct {
	Code   string
	Roster []game.Seat
	Reply  chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// ResultFunc receives each room's terminal result (for the win/loss
// counters). May be nil.
type ResultFunc func(room.Result)

type Config struct {
	Room room.Config
	// How long a finished room is kept around before removal.
	Retention time.Duration
}

// Hub owns the rooms map behind its own actor loop. Rooms run fully in
// parallel with each other; the hub only routes lookups and lifecycle.
type Hub struct {
	inbox    chan HubMsg
	rooms    map[string]*room.Room
	cfg      Config
	onResult ResultFunc
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, cfg Config, log *zap.Logger, onResult ResultFunc) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		rooms:    make(map[string]*room.Room),
		cfg:      cfg,
		onResult: onResult,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if rm := h.rooms[msg.Code]; rm != nil {
					msg.Reply <- rm
					break
				}
				rm, err := room.New(h.ctx, msg.Code, msg.Roster, h.cfg.Room, h.log, h.terminal)
				if err != nil {
					h.log.Warn("room rejected", zap.String("room", msg.Code), zap.Error(err))
					msg.Reply <- nil
					break
				}
				h.rooms[msg.Code] = rm
				h.log.Info("room started", zap.String("room", msg.Code), zap.Int("players", len(msg.Roster)))
				msg.Reply <- rm

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case RemoveRoom:
				if rm := h.rooms[msg.Code]; rm != nil {
					stopRoom(rm)
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code))
				}

			case ShutdownHub:
				for _, rm := range h.rooms {
					stopRoom(rm)
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

// stopRoom asks a room to shut down without blocking on one that already
// has.
func stopRoom(rm *room.Room) {
	select {
	case rm.Inbox() <- room.Shutdown{}:
	case <-rm.Done():
	}
}

// terminal runs off the hub loop (the room calls it from a fresh
// goroutine): report the result, then schedule removal after the retention
// window. Abandoned or aborted rooms go away immediately.
func (h *Hub) terminal(res room.Result) {
	if h.onResult != nil && !res.Abandoned && !res.Aborted {
		h.onResult(res)
	}

	retention := h.cfg.Retention
	if res.Abandoned || res.Aborted {
		retention = 0
	}
	time.AfterFunc(retention, func() {
		select {
		case h.inbox <- RemoveRoom{Code: res.Code}:
		case <-h.ctx.Done():
		}
	})
}
