package mahjong

import (
	"sync"
	"time"

	"xiangqi-mahjong/game/share"
)

// Phase 局内阶段状态机
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseWaitingForPlayers
	PhaseDealing
	PhasePlayerTurnStart // 等待当前玩家摸牌
	PhasePlayerDrawn     // 已摸牌，等待打出/自摸/杠
	PhaseAwaitingDiscard // 不摸牌直接打（开局庄家、碰吃之后）
	PhaseTileDiscarded   // 刚打出，待计算响应资格
	PhaseAwaitingClaims  // 收集所有有资格座位的响应
	PhaseClaimsResolution
	PhaseChiChoice // 下家确认吃的组合
	PhaseRoundOver
	PhaseAwaitingRematchVotes
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseLoading:              "LOADING",
	PhaseWaitingForPlayers:    "WAITING_FOR_PLAYERS",
	PhaseDealing:              "DEALING",
	PhasePlayerTurnStart:      "PLAYER_TURN_START",
	PhasePlayerDrawn:          "PLAYER_DRAWN",
	PhaseAwaitingDiscard:      "AWAITING_DISCARD",
	PhaseTileDiscarded:        "TILE_DISCARDED",
	PhaseAwaitingClaims:       "AWAITING_ALL_CLAIMS_RESPONSE",
	PhaseClaimsResolution:     "AWAITING_CLAIMS_RESOLUTION",
	PhaseChiChoice:            "ACTION_PENDING_CHI_CHOICE",
	PhaseRoundOver:            "ROUND_OVER",
	PhaseAwaitingRematchVotes: "AWAITING_REMATCH_VOTES",
	PhaseGameOver:             "GAME_OVER",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "UNKNOWN"
}

// HandsVisible 这些阶段全员手牌公开
func (p Phase) HandsVisible() bool {
	return p == PhaseRoundOver || p == PhaseAwaitingRematchVotes || p == PhaseGameOver
}

// CanDiscard 允许打牌的阶段
func (p Phase) CanDiscard() bool {
	return p == PhasePlayerDrawn || p == PhaseAwaitingDiscard
}

// TimerKind 命名倒计时
type TimerKind int

const (
	TimerNone      TimerKind = iota
	TimerTurn                // 当前玩家行动
	TimerClaim               // 鸣牌响应全局截止
	TimerNextRound           // 局间休整
	TimerRematch             // 再战投票
	TimerRoundCap            // 单局墙钟上限
	TimerAIThink             // AI 思考延迟
	TimerEmptyRoom           // 空房看门狗
)

var timerNames = map[TimerKind]string{
	TimerNone:      "none",
	TimerTurn:      "turn",
	TimerClaim:     "claim",
	TimerNextRound: "nextRound",
	TimerRematch:   "rematch",
	TimerRoundCap:  "roundCap",
	TimerAIThink:   "aiThink",
	TimerEmptyRoom: "emptyRoom",
}

func (k TimerKind) String() string {
	if s, ok := timerNames[k]; ok {
		return s
	}
	return "unknown"
}

// TimerFireEvent 倒计时触发事件，投回房间收件箱串行处理
// Seq 用于丢弃已被撤销的旧触发
type TimerFireEvent struct {
	share.GameMessageEvent
	Kind TimerKind
	Seq  uint64
}

func (e *TimerFireEvent) GetEventType() string { return "TimerFire" }

type timerSlot struct {
	kind     TimerKind
	seq      uint64
	timer    *time.Timer
	deadline time.Time
}

func (s *timerSlot) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.kind = TimerNone
	s.seq++
}

// RoomTimers 房间倒计时子系统
// turn/claim/nextRound/rematch/roundCap 互斥（同组至多一个活动），
// aiThink 和 emptyRoom 各自独立。触发不直接改状态，只投事件
//
// 回合墙钟的落实方式：roundCap 启动时记下墙钟截止点，
// 之后组内的 turn/claim 倒计时都被该截止点截断；
// 在截止点触发的倒计时按 roundCap 上报（判流局），否则按原名上报
type RoomTimers struct {
	mu            sync.Mutex
	notify        func(*TimerFireEvent)
	family        timerSlot
	aiThink       timerSlot
	emptyRoom     timerSlot
	roundDeadline time.Time
}

func NewRoomTimers(notify func(*TimerFireEvent)) *RoomTimers {
	return &RoomTimers{notify: notify}
}

func inRoundKind(kind TimerKind) bool {
	return kind == TimerTurn || kind == TimerClaim
}

// StartFamily 启动互斥组内的一个倒计时，清掉组内当前的那个
func (rt *RoomTimers) StartFamily(kind TimerKind, d time.Duration) uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.family.stopLocked()

	now := time.Now()
	if kind == TimerRoundCap {
		rt.roundDeadline = now.Add(d)
	}
	deadline := now.Add(d)
	if inRoundKind(kind) && !rt.roundDeadline.IsZero() && deadline.After(rt.roundDeadline) {
		deadline = rt.roundDeadline
	}

	rt.family.kind = kind
	rt.family.deadline = deadline
	seq := rt.family.seq
	rt.family.timer = time.AfterFunc(time.Until(deadline), func() {
		rt.fireFamily(seq)
	})
	return seq
}

func (rt *RoomTimers) fireFamily(seq uint64) {
	rt.mu.Lock()
	if rt.family.seq != seq || rt.family.timer == nil {
		rt.mu.Unlock()
		return
	}
	kind := rt.family.kind
	if inRoundKind(kind) && !rt.roundDeadline.IsZero() && !time.Now().Before(rt.roundDeadline) {
		kind = TimerRoundCap
	}
	rt.family.timer = nil
	rt.family.kind = TimerNone
	notify := rt.notify
	rt.mu.Unlock()

	notify(&TimerFireEvent{Kind: kind, Seq: seq})
}

// ClearFamily 幂等撤销，已投未处理的触发随 seq 失效
func (rt *RoomTimers) ClearFamily() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.family.stopLocked()
}

// ClearRoundDeadline 回合结束后解除墙钟截止
func (rt *RoomTimers) ClearRoundDeadline() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.roundDeadline = time.Time{}
}

// ConsumeFamily 引擎处理触发事件时校验是否仍然有效
func (rt *RoomTimers) ConsumeFamily(seq uint64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.family.seq == seq
}

// FamilyState 当前活动倒计时（投影展示用）
func (rt *RoomTimers) FamilyState() (TimerKind, int, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.family.timer == nil {
		return TimerNone, 0, false
	}
	remain := int(time.Until(rt.family.deadline).Seconds())
	if remain < 0 {
		remain = 0
	}
	return rt.family.kind, remain, true
}

// StartAIThink AI 思考延迟（独立于互斥组）
func (rt *RoomTimers) StartAIThink(d time.Duration) uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.aiThink.stopLocked()
	rt.aiThink.kind = TimerAIThink
	rt.aiThink.deadline = time.Now().Add(d)
	seq := rt.aiThink.seq
	rt.aiThink.timer = time.AfterFunc(d, func() {
		rt.fireIndependent(&rt.aiThink, TimerAIThink, seq)
	})
	return seq
}

func (rt *RoomTimers) ClearAIThink() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.aiThink.stopLocked()
}

func (rt *RoomTimers) ConsumeAIThink(seq uint64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.aiThink.seq == seq
}

// StartEmptyRoom 空房看门狗（独立于互斥组）
func (rt *RoomTimers) StartEmptyRoom(d time.Duration) uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.emptyRoom.stopLocked()
	rt.emptyRoom.kind = TimerEmptyRoom
	rt.emptyRoom.deadline = time.Now().Add(d)
	seq := rt.emptyRoom.seq
	rt.emptyRoom.timer = time.AfterFunc(d, func() {
		rt.fireIndependent(&rt.emptyRoom, TimerEmptyRoom, seq)
	})
	return seq
}

func (rt *RoomTimers) ClearEmptyRoom() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.emptyRoom.stopLocked()
}

func (rt *RoomTimers) ConsumeEmptyRoom(seq uint64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.emptyRoom.seq == seq
}

func (rt *RoomTimers) fireIndependent(slot *timerSlot, kind TimerKind, seq uint64) {
	rt.mu.Lock()
	if slot.seq != seq || slot.timer == nil {
		rt.mu.Unlock()
		return
	}
	slot.timer = nil
	slot.kind = TimerNone
	notify := rt.notify
	rt.mu.Unlock()

	notify(&TimerFireEvent{Kind: kind, Seq: seq})
}

// StopAll 关房时停掉一切
func (rt *RoomTimers) StopAll() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.family.stopLocked()
	rt.aiThink.stopLocked()
	rt.emptyRoom.stopLocked()
	rt.roundDeadline = time.Time{}
}
