package game

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"xiangqi-mahjong/game/engines"
	"xiangqi-mahjong/game/share"
)

// Room 游戏房间，创建时分配游戏引擎
// 座位与对局状态都归引擎管，房间只留目录层需要的壳
type Room struct {
	ID        string
	Cfg       share.RoomConfig
	Engine    engines.Engine
	CreatedAt time.Time
}

// GenerateRoomID 生成房间 ID
// 格式：room_<timestamp>_<random>
func GenerateRoomID() string {
	timestamp := time.Now().Unix()
	randomBytes := make([]byte, 4)
	rand.Read(randomBytes)
	randomStr := hex.EncodeToString(randomBytes)
	return fmt.Sprintf("room_%d_%s", timestamp, randomStr)
}

// NewRoom 创建新房间（引擎由原型克隆注入）
func NewRoom(engine engines.Engine, cfg share.RoomConfig) (*Room, error) {
	if engine == nil {
		return nil, fmt.Errorf("游戏引擎不能为空")
	}
	room := &Room{
		ID:        GenerateRoomID(),
		Cfg:       cfg,
		Engine:    engine,
		CreatedAt: time.Now(),
	}
	return room, nil
}

// HasPassword 房间是否需要口令
func (r *Room) HasPassword() bool {
	return r.Cfg.Password != ""
}

// Close 关闭房间并释放资源
func (r *Room) Close() {
	if r.Engine != nil {
		r.Engine.Close()
	}
}
