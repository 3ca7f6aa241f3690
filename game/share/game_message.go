package share

// GameEvent 游戏事件接口
// 所有外部来源的动作（玩家操作、入座、断线、聊天）都收敛成事件，
// 由引擎内部的串行循环处理
type GameEvent interface {
	GetUserID() string
	GetEventType() string
}

type GameMessageEvent struct {
	UserID string `json:"userID"`
}

func (e *GameMessageEvent) GetUserID() string {
	return e.UserID
}

// JoinEvent 入座（首次加入或断线重连）
type JoinEvent struct {
	GameMessageEvent
	Name   string `json:"name"`
	ConnID string `json:"connID"`
}

func (e *JoinEvent) GetEventType() string { return "Join" }

// LeaveEvent 主动退出房间
type LeaveEvent struct {
	GameMessageEvent
}

func (e *LeaveEvent) GetEventType() string { return "Leave" }

// DisconnectEvent 连接断开（保留座位）
type DisconnectEvent struct {
	GameMessageEvent
	ConnID string `json:"connID"`
}

func (e *DisconnectEvent) GetEventType() string { return "Disconnect" }

// StartGameEvent 房主开始游戏
type StartGameEvent struct {
	GameMessageEvent
}

func (e *StartGameEvent) GetEventType() string { return "StartGame" }

// DrawTileEvent 当前玩家摸牌
type DrawTileEvent struct {
	GameMessageEvent
}

func (e *DrawTileEvent) GetEventType() string { return "DrawTile" }

// DiscardTileEvent 当前玩家打牌
type DiscardTileEvent struct {
	GameMessageEvent
	TileID int `json:"tileID"`
}

func (e *DiscardTileEvent) GetEventType() string { return "DiscardTile" }

// SelfHuEvent 自摸和（含庄家开局天和）
type SelfHuEvent struct {
	GameMessageEvent
}

func (e *SelfHuEvent) GetEventType() string { return "SelfHu" }

// AnGangEvent 暗杠，Kind 为牌种编码
type AnGangEvent struct {
	GameMessageEvent
	Kind int `json:"kind"`
}

func (e *AnGangEvent) GetEventType() string { return "AnGang" }

// AddGangEvent 加杠（碰升级为杠）
type AddGangEvent struct {
	GameMessageEvent
	Kind int `json:"kind"`
}

func (e *AddGangEvent) GetEventType() string { return "AddGang" }

// 鸣牌决定
const (
	ClaimPass = "pass"
	ClaimHu   = "hu"
	ClaimGang = "gang"
	ClaimPeng = "peng"
	ClaimChi  = "chi"
)

// ClaimEvent 对别家弃牌的响应决定
type ClaimEvent struct {
	GameMessageEvent
	Decision     string `json:"decision"`
	Kind         int    `json:"kind,omitempty"`
	ComboTileIDs []int  `json:"comboTileIDs,omitempty"` // 吃：选中的两张手牌
}

func (e *ClaimEvent) GetEventType() string { return "Claim" }

// ConfirmNextRoundEvent 回合结算后确认进入下一局
type ConfirmNextRoundEvent struct {
	GameMessageEvent
}

func (e *ConfirmNextRoundEvent) GetEventType() string { return "ConfirmNextRound" }

// VoteRematchEvent 整场结束后的再来一场投票（只有同意票）
type VoteRematchEvent struct {
	GameMessageEvent
}

func (e *VoteRematchEvent) GetEventType() string { return "VoteRematch" }

// ChatEvent 房间内聊天
type ChatEvent struct {
	GameMessageEvent
	Text string `json:"text"`
}

func (e *ChatEvent) GetEventType() string { return "Chat" }
