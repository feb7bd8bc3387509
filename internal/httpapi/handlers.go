package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	mrand "math/rand"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hwzhu/mowan-server/internal/auth"
	"github.com/hwzhu/mowan-server/internal/config"
	"github.com/hwzhu/mowan-server/internal/game"
	"github.com/hwzhu/mowan-server/internal/hub"
	"github.com/hwzhu/mowan-server/internal/room"
	"github.com/hwzhu/mowan-server/internal/store"
)

type API struct {
	Store *store.Store
	Hub   *hub.Hub
	Cfg   config.Config
	Log   *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// GenerateCode makes a 4-character room code, letters and digits.
func GenerateCode() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	code := make([]byte, 4)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	if len(req.Username) < 3 || len(req.Username) > 20 {
		writeErr(w, http.StatusBadRequest, "username must be 3-20 characters")
		return
	}
	if len(req.Password) < 6 {
		writeErr(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}
	if req.Nickname == "" || len(req.Nickname) > 20 {
		writeErr(w, http.StatusBadRequest, "nickname must be 1-20 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	if _, err := a.Store.CreateUser(req.Username, hash, req.Nickname); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			writeErr(w, http.StatusBadRequest, "username taken")
			return
		}
		a.Log.Error("create user", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	u, err := a.Store.FindUserByUsername(req.Username)
	if err != nil || auth.CheckPassword(u.PasswordHash, req.Password) != nil {
		writeErr(w, http.StatusUnauthorized, "wrong username or password")
		return
	}
	token, err := auth.MintToken([]byte(a.Cfg.JWTSecret), u.ID, u.Nickname, a.Cfg.TokenTTL)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  publicUser(u),
	})
}

func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFrom(r)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := a.Store.FindUserByID(claims.UserID)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, publicUser(u))
}

// Logout is a formality: tokens are stateless, the client just drops its
// copy.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func publicUser(u *store.User) map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID,
		"username":    u.Username,
		"nickname":    u.Nickname,
		"total_games": u.TotalGames,
		"wins":        u.Wins,
	}
}

func (a *API) CreateRoom(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r)
	var req struct {
		MaxPlayers int `json:"max_players"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.MaxPlayers == 0 {
		req.MaxPlayers = 4
	}
	if req.MaxPlayers < 3 || req.MaxPlayers > 5 {
		writeErr(w, http.StatusBadRequest, "room size must be 3-5 players")
		return
	}

	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "failed to generate code")
			return
		}
		exists, err := a.Store.RoomExists(c)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !exists {
			code = c
			break
		}
	}

	if err := a.Store.CreateRoom(code, claims.UserID, req.MaxPlayers); err != nil {
		a.Log.Error("create room", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"code":        code,
		"max_players": req.MaxPlayers,
	})
}

func (a *API) GetRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rm, members, err := a.Store.GetRoom(code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "room not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":        rm.Code,
		"creator_id":  rm.CreatorID,
		"max_players": rm.MaxPlayers,
		"status":      rm.Status,
		"players":     members,
	})
}

func (a *API) JoinRoom(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r)
	code := chi.URLParam(r, "code")
	switch err := a.Store.JoinRoom(code, claims.UserID); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "joined"})
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, "room not found")
	case errors.Is(err, store.ErrRoomClosed):
		writeErr(w, http.StatusBadRequest, "game already started")
	case errors.Is(err, store.ErrRoomFull):
		writeErr(w, http.StatusBadRequest, "room full")
	default:
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r)
	code := chi.URLParam(r, "code")
	if err := a.Store.LeaveRoom(code, claims.UserID); err != nil && !errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "left"})
}

func (a *API) KickPlayer(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r)
	code := chi.URLParam(r, "code")
	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}

	rm, _, err := a.Store.GetRoom(code)
	if err != nil {
		writeErr(w, http.StatusNotFound, "room not found")
		return
	}
	if rm.CreatorID != claims.UserID {
		writeErr(w, http.StatusForbidden, "only the creator can kick")
		return
	}
	if req.UserID == claims.UserID {
		writeErr(w, http.StatusBadRequest, "cannot kick yourself")
		return
	}
	if rm.Status != store.RoomWaiting {
		writeErr(w, http.StatusBadRequest, "game already started")
		return
	}
	if err := a.Store.KickPlayer(code, req.UserID); err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "kicked"})
}

// StartGame moves a waiting room into a live session: the roster is frozen,
// seat order shuffled, and the hub spins up the room actor.
func (a *API) StartGame(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r)
	code := chi.URLParam(r, "code")

	rm, members, err := a.Store.GetRoom(code)
	if err != nil {
		writeErr(w, http.StatusNotFound, "room not found")
		return
	}
	if rm.CreatorID != claims.UserID {
		writeErr(w, http.StatusForbidden, "only the creator can start")
		return
	}
	if len(members) < 3 {
		writeErr(w, http.StatusBadRequest, "at least 3 players required")
		return
	}

	roster := make([]game.Seat, 0, len(members))
	for _, m := range members {
		roster = append(roster, game.Seat{
			ID:   strconv.FormatUint(uint64(m.UserID), 10),
			Name: m.Nickname,
		})
	}
	mrand.Shuffle(len(roster), func(i, j int) {
		roster[i], roster[j] = roster[j], roster[i]
	})

	reply := make(chan *room.Room, 1)
	a.Hub.Inbox() <- hub.EnsureRoom{Code: code, Roster: roster, Reply: reply}
	if <-reply == nil {
		writeErr(w, http.StatusInternalServerError, "failed to start game")
		return
	}
	if err := a.Store.SetRoomStatus(code, store.RoomPlaying); err != nil {
		a.Log.Error("set room status", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "game started"})
}

func (a *API) Leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := a.Store.Leaderboard(50)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
