package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MatchRecord 一场比赛的存档（对局结束后一次性落库）
type MatchRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	RoomID     string             `bson:"room_id"`
	EngineType string             `bson:"engine_type"`
	Players    []PlayerInfo       `bson:"players"`
	Rounds     []RoundRecord      `bson:"rounds"`
	Scores     []int              `bson:"scores"`
	CreatedAt  time.Time          `bson:"created_at"`
	FinishedAt time.Time          `bson:"finished_at"`
}

type PlayerInfo struct {
	UserID  string `bson:"user_id"`
	Name    string `bson:"name"`
	Seat    int    `bson:"seat"`
	IsHuman bool   `bson:"is_human"`
}

// RoundRecord 单局内的事件序列与结果
type RoundRecord struct {
	RoundIndex int          `bson:"round_index"`
	Dealer     int          `bson:"dealer"`
	Events     []RoundEvent `bson:"events"`
	Winners    []int        `bson:"winners"`
	WinType    string       `bson:"win_type"`
	DrawGame   bool         `bson:"draw_game"`
	Scores     []int        `bson:"scores"`
	StartedAt  time.Time    `bson:"started_at"`
	EndedAt    time.Time    `bson:"ended_at"`
}

type RoundEvent struct {
	Type string         `bson:"type"`
	Seat int            `bson:"seat"`
	Data map[string]any `bson:"data,omitempty"`
	At   time.Time      `bson:"at"`
}

const (
	EventTypeDraw    = "draw"
	EventTypeDiscard = "discard"
	EventTypeMeld    = "meld"
)

func NewMatchRecord(roomID, engineType string) *MatchRecord {
	return &MatchRecord{
		ID:         primitive.NewObjectID(),
		RoomID:     roomID,
		EngineType: engineType,
		CreatedAt:  time.Now(),
	}
}
