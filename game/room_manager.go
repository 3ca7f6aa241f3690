package game

import (
	"fmt"
	"sort"
	"sync"

	"xiangqi-mahjong/common/config"
	"xiangqi-mahjong/common/log"
	"xiangqi-mahjong/dto"
	"xiangqi-mahjong/game/engines"
	"xiangqi-mahjong/game/share"
)

// RoomManager 房间目录
// 管理所有游戏房间实例，使用原型模式管理 Engine
type RoomManager struct {
	rooms            map[string]*Room                       // roomID -> Room
	playerRoom       map[string]string                      // userID -> roomID
	enginePrototypes map[engines.EngineType]engines.Engine  // engineType -> Engine 原型
	limits           config.RoomLimits
	mu               sync.RWMutex
}

func NewRoomManager(limits config.RoomLimits) *RoomManager {
	return &RoomManager{
		rooms:            make(map[string]*Room),
		playerRoom:       make(map[string]string),
		enginePrototypes: make(map[engines.EngineType]engines.Engine),
		limits:           limits,
	}
}

// SetEnginePrototype 注入 Engine 原型（进程启动时调用）
func (rm *RoomManager) SetEnginePrototype(engineType engines.EngineType, engine engines.Engine) error {
	if engine == nil {
		return fmt.Errorf("Engine 原型不能为空")
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.enginePrototypes[engineType] = engine
	log.Info("RoomManager 注入 Engine 原型: engineType=%d", engineType)
	return nil
}

// CreateRoom 建房（建房者随后以 JoinEvent 入座）
func (rm *RoomManager) CreateRoom(cfg share.RoomConfig, creatorID string, engineType engines.EngineType) (*Room, error) {
	if len(cfg.Name) == 0 || len(cfg.Name) > rm.limits.RoomNameMaxLen {
		return nil, dto.ErrRoomNameLength
	}
	if len(cfg.Password) > rm.limits.PasswordMaxLen {
		return nil, dto.ErrPasswordLength
	}
	if cfg.HumanTarget < 1 || cfg.HumanTarget > 4 {
		cfg.HumanTarget = 1
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if roomID, exists := rm.playerRoom[creatorID]; exists {
		log.Warn("玩家 %s 已在房间 %s 中", creatorID, roomID)
		return nil, dto.ErrAlreadyInRoom
	}

	prototype, exists := rm.enginePrototypes[engineType]
	if !exists {
		return nil, fmt.Errorf("不支持的引擎类型: %d", engineType)
	}
	engine := prototype.Clone()
	if engine == nil {
		return nil, fmt.Errorf("克隆游戏引擎失败: engineType=%d", engineType)
	}

	room, err := NewRoom(engine, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建房间失败: %v", err)
	}
	if err := room.Engine.InitializeEngine(room.ID, cfg); err != nil {
		room.Close()
		return nil, fmt.Errorf("初始化游戏引擎失败: %v", err)
	}

	rm.rooms[room.ID] = room
	rm.playerRoom[creatorID] = room.ID

	log.Info("RoomManager 创建房间 %s（%s）", room.ID, cfg.Name)
	return room, nil
}

// JoinRoom 路由层入房检查：房间存在、占用、口令
// 容量与真正的座位分配由引擎在收件箱里完成
func (rm *RoomManager) JoinRoom(roomID, userID, password string) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, exists := rm.rooms[roomID]
	if !exists {
		return nil, dto.ErrRoomNotFound
	}
	if cur, ok := rm.playerRoom[userID]; ok && cur != roomID {
		return nil, dto.ErrAlreadyInRoom
	}
	if room.HasPassword() && room.Cfg.Password != password {
		return nil, dto.ErrRoomPassword
	}

	rm.playerRoom[userID] = roomID
	return room, nil
}

// DetachPlayer 解除玩家到房间的路由（引擎拒收或请人出房时回调）
func (rm *RoomManager) DetachPlayer(roomID, userID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if cur, ok := rm.playerRoom[userID]; ok && cur == roomID {
		delete(rm.playerRoom, userID)
	}
}

// GetRoom 获取房间
func (rm *RoomManager) GetRoom(roomID string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, exists := rm.rooms[roomID]
	return room, exists
}

// GetPlayerRoom 获取玩家所在房间
func (rm *RoomManager) GetPlayerRoom(userID string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	roomID, exists := rm.playerRoom[userID]
	if !exists {
		return nil, false
	}
	room, exists := rm.rooms[roomID]
	return room, exists
}

// DeleteRoom 删除房间并清掉其中玩家的路由
// Close 在锁外执行：引擎收尾要等事件循环退出，循环里可能还在查目录
func (rm *RoomManager) DeleteRoom(roomID string) error {
	rm.mu.Lock()
	room, exists := rm.rooms[roomID]
	if !exists {
		rm.mu.Unlock()
		return fmt.Errorf("房间 %s 不存在", roomID)
	}
	for userID, rid := range rm.playerRoom {
		if rid == roomID {
			delete(rm.playerRoom, userID)
		}
	}
	delete(rm.rooms, roomID)
	rm.mu.Unlock()

	room.Close()
	log.Info("RoomManager 删除房间 %s", roomID)
	return nil
}

// RoomSummary 大厅房间列表条目
type RoomSummary struct {
	RoomID      string `json:"roomID"`
	Name        string `json:"name"`
	HasPassword bool   `json:"hasPassword"`
	HumanTarget int    `json:"humanTarget"`
	SeatsTaken  int    `json:"seatsTaken"`
	Humans      int    `json:"humans"`
	Phase       string `json:"phase"`
	Started     bool   `json:"started"`
}

// ListRooms 房间列表（按创建先后稳定排序）
func (rm *RoomManager) ListRooms() []RoomSummary {
	rm.mu.RLock()
	rooms := make([]*Room, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		rooms = append(rooms, room)
	}
	rm.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})

	out := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		sum := room.Engine.Snapshot()
		out = append(out, RoomSummary{
			RoomID:      room.ID,
			Name:        room.Cfg.Name,
			HasPassword: room.HasPassword(),
			HumanTarget: room.Cfg.HumanTarget,
			SeatsTaken:  sum.SeatsTaken,
			Humans:      sum.Humans,
			Phase:       sum.Phase,
			Started:     sum.Started,
		})
	}
	return out
}

// GetStats 房间数与玩家数（Monitor 上报用）
func (rm *RoomManager) GetStats() (gameCount int, playerCount int) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms), len(rm.playerRoom)
}
