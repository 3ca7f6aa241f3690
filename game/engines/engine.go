package engines

import (
	"xiangqi-mahjong/game/share"
)

type EngineType int32

const (
	XIANGQI_MAHJONG_4P_ENGINE EngineType = iota // 象棋麻将4人 游戏引擎
)

type GameState int

const (
	GameWaiting    GameState = iota // 等待开始
	GameInProgress                  // 进行中
	GameFinished                    // 结束
)

// Summary 房间目录需要的引擎概要（列表展示、入座前的容量判断）
type Summary struct {
	Phase        string
	SeatsTaken   int
	Humans       int
	OnlineHumans int
	Started      bool
}

// Engine 使用原型模式，每个游戏房间都有一个游戏引擎
type Engine interface {
	// InitializeEngine 初始化游戏引擎（房间创建时调用）
	InitializeEngine(roomID string, cfg share.RoomConfig) error

	// NotifyEvent 通知游戏事件（入队，由引擎内部串行处理）
	NotifyEvent(event share.GameEvent)

	// Snapshot 返回引擎概要，供房间目录使用
	Snapshot() Summary

	// Clone 克隆引擎实例（用于原型模式）
	Clone() Engine

	// Terminate 触发销毁房间（异步请求）
	Terminate()

	// Close 释放引擎内部资源
	Close()
}
