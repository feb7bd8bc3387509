package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/hwzhu/mowan-server/internal/auth"
	"github.com/hwzhu/mowan-server/internal/game"
	"github.com/hwzhu/mowan-server/internal/hub"
	"github.com/hwzhu/mowan-server/internal/room"
	"github.com/hwzhu/mowan-server/pkg/types"
)

// Handler upgrades a player's socket and bridges it to their room: outbound
// projections flow through a writer goroutine, inbound actions are decoded
// and forwarded with the authenticated identity attached.
func Handler(h *hub.Hub, secret []byte, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		claims, err := auth.ParseToken(secret, auth.BearerToken(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		playerID := strconv.FormatUint(uint64(claims.UserID), 10)

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		// Every inbox send selects against Done: once the room's loop has
		// exited nothing drains the inbox, and a bare send would wedge this
		// goroutine for good.
		outbox := make(chan types.ServerMessage, 16)
		select {
		case rm.Inbox() <- room.Attach{PlayerID: playerID, Outbox: outbox}:
		case <-rm.Done():
			_ = conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}
		defer func() {
			select {
			case rm.Inbox() <- room.Detach{PlayerID: playerID}:
			case <-rm.Done():
			}
		}()

		log.Info("socket attached", zap.String("room", code), zap.String("player", playerID))

		// Writer: room snapshots out, keepalive pings in between. Closing
		// the conn here unblocks the reader below.
		go func() {
			ping := time.NewTicker(15 * time.Second)
			defer func() {
				ping.Stop()
				_ = conn.Close(websocket.StatusNormalClosure, "bye")
			}()
			for {
				select {
				case msg, ok := <-outbox:
					if !ok {
						return
					}
					payload, err := json.Marshal(msg)
					if err != nil {
						continue
					}
					ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
					err = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
					if err != nil {
						return
					}
				case <-ping.C:
					_ = conn.Ping(r.Context())
				case <-r.Context().Done():
					return
				}
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("socket read ended", zap.String("player", playerID), zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"error","error":"bad json"}`))
				continue
			}

			cmd, ok := toCommand(playerID, cm)
			if !ok {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"error","error":"unknown type"}`))
				continue
			}
			select {
			case rm.Inbox() <- room.FromPlayer{Cmd: cmd}:
			case <-rm.Done():
				return
			}
		}
	}
}

func toCommand(playerID string, m types.ClientMessage) (game.Command, bool) {
	cell := game.Cell{Row: m.Row, Col: m.Col}
	switch m.Type {
	case "place":
		return game.Command{Type: game.CmdPlace, Player: playerID, Digit: m.Digit, Cell: cell}, true
	case "advance":
		return game.Command{Type: game.CmdAdvance, Player: playerID, Cell: cell}, true
	case "duel":
		return game.Command{
			Type:       game.CmdDuel,
			Player:     playerID,
			Target:     m.TargetPlayer,
			TargetCell: game.Cell{Row: m.TargetRow, Col: m.TargetCol},
		}, true
	case "recycle":
		return game.Command{Type: game.CmdRecycle, Player: playerID, Cell: cell}, true
	case "pass":
		return game.Command{Type: game.CmdPass, Player: playerID}, true
	default:
		return game.Command{}, false
	}
}
