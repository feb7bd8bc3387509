package store

import (
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")
var ErrUsernameTaken = errors.New("username taken")
var ErrRoomFull = errors.New("room full")
var ErrRoomClosed = errors.New("room closed")

const (
	RoomWaiting = "waiting"
	RoomPlaying = "playing"
	RoomEnded   = "ended"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:20"`
	PasswordHash string
	Nickname     string `gorm:"size:20"`
	TotalGames   int
	Wins         int
	CreatedAt    time.Time
}

type Room struct {
	Code       string `gorm:"primaryKey;size:4"`
	CreatorID  uint
	MaxPlayers int
	Status     string `gorm:"default:waiting"`
	CreatedAt  time.Time
}

type RoomPlayer struct {
	ID        uint   `gorm:"primaryKey"`
	RoomCode  string `gorm:"index;uniqueIndex:idx_room_user,priority:1"`
	UserID    uint   `gorm:"uniqueIndex:idx_room_user,priority:2"`
	IsCreator bool
	JoinedAt  time.Time
}

type GameRecord struct {
	ID       uint `gorm:"primaryKey"`
	RoomCode string
	UserID   uint
	Won      bool
	EndedAt  time.Time
}

// RoomMember is a room row joined with the player's public profile.
type RoomMember struct {
	UserID    uint   `json:"user_id"`
	Nickname  string `json:"nickname"`
	IsCreator bool   `json:"is_creator"`
}

type LeaderboardRow struct {
	UserID     uint    `json:"user_id"`
	Nickname   string  `json:"nickname"`
	TotalGames int     `json:"total_games"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"win_rate"`
}

type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&User{}, &Room{}, &RoomPlayer{}, &GameRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateUser(username, passwordHash, nickname string) (*User, error) {
	u := &User{Username: username, PasswordHash: passwordHash, Nickname: nickname}
	if err := s.db.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		var existing User
		if s.db.Where("username = ?", username).First(&existing).Error == nil {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) FindUserByUsername(username string) (*User, error) {
	var u User
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByID(id uint) (*User, error) {
	var u User
	if err := s.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateRoom(code string, creatorID uint, maxPlayers int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&Room{Code: code, CreatorID: creatorID, MaxPlayers: maxPlayers, Status: RoomWaiting}).Error; err != nil {
			return err
		}
		return tx.Create(&RoomPlayer{RoomCode: code, UserID: creatorID, IsCreator: true, JoinedAt: time.Now()}).Error
	})
}

func (s *Store) RoomExists(code string) (bool, error) {
	var n int64
	if err := s.db.Model(&Room{}).Where("code = ?", code).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) GetRoom(code string) (*Room, []RoomMember, error) {
	var rm Room
	if err := s.db.First(&rm, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	members, err := s.Members(code)
	if err != nil {
		return nil, nil, err
	}
	return &rm, members, nil
}

// Members returns the roster in join order; seat order for the game.
func (s *Store) Members(code string) ([]RoomMember, error) {
	var members []RoomMember
	err := s.db.Model(&RoomPlayer{}).
		Select("room_players.user_id, users.nickname, room_players.is_creator").
		Joins("JOIN users ON users.id = room_players.user_id").
		Where("room_players.room_code = ?", code).
		Order("room_players.joined_at").
		Scan(&members).Error
	return members, err
}

func (s *Store) JoinRoom(code string, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var rm Room
		if err := tx.First(&rm, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if rm.Status != RoomWaiting {
			return ErrRoomClosed
		}
		var n int64
		if err := tx.Model(&RoomPlayer{}).Where("room_code = ?", code).Count(&n).Error; err != nil {
			return err
		}
		var already int64
		if err := tx.Model(&RoomPlayer{}).Where("room_code = ? AND user_id = ?", code, userID).Count(&already).Error; err != nil {
			return err
		}
		if already > 0 {
			return nil
		}
		if int(n) >= rm.MaxPlayers {
			return ErrRoomFull
		}
		return tx.Create(&RoomPlayer{RoomCode: code, UserID: userID, JoinedAt: time.Now()}).Error
	})
}

// LeaveRoom removes the player; a leaving creator dissolves the room.
func (s *Store) LeaveRoom(code string, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var rm Room
		if err := tx.First(&rm, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if rm.CreatorID == userID {
			if err := tx.Where("room_code = ?", code).Delete(&RoomPlayer{}).Error; err != nil {
				return err
			}
			return tx.Delete(&Room{}, "code = ?", code).Error
		}
		return tx.Where("room_code = ? AND user_id = ?", code, userID).Delete(&RoomPlayer{}).Error
	})
}

func (s *Store) KickPlayer(code string, targetID uint) error {
	return s.db.Where("room_code = ? AND user_id = ?", code, targetID).Delete(&RoomPlayer{}).Error
}

func (s *Store) SetRoomStatus(code, status string) error {
	return s.db.Model(&Room{}).Where("code = ?", code).Update("status", status).Error
}

// RecordResult bumps the win/loss counters once per finished game. winnerID
// zero means a draw: everyone gets a played game, nobody a win.
func (s *Store) RecordResult(code string, winnerID uint, participants []uint) error {
	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range participants {
			won := id == winnerID && winnerID != 0
			updates := map[string]interface{}{"total_games": gorm.Expr("total_games + 1")}
			if won {
				updates["wins"] = gorm.Expr("wins + 1")
			}
			if err := tx.Model(&User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
			if err := tx.Create(&GameRecord{RoomCode: code, UserID: id, Won: won, EndedAt: now}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&Room{}).Where("code = ?", code).Update("status", RoomEnded).Error
	})
}

func (s *Store) Leaderboard(limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := s.db.Model(&User{}).
		Select("id AS user_id, nickname, total_games, wins, ROUND(wins::numeric / total_games * 100, 1) AS win_rate").
		Where("total_games > 0").
		Order("win_rate DESC, wins DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
