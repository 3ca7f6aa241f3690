package mahjong

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"xiangqi-mahjong/common/config"
	"xiangqi-mahjong/common/log"
	"xiangqi-mahjong/dto"
	"xiangqi-mahjong/game"
	"xiangqi-mahjong/game/engines"
	"xiangqi-mahjong/game/share"
)

const (
	HandSize = 7 // 每家手牌张数，庄家开局多一张浮牌

	// 同座位重复提交的拦截窗口
	resubmitGuardWindow = 150 * time.Millisecond
)

/*
	房间引擎：回合状态机 + 鸣牌仲裁 + 计时 + AI 托管 + 重连，全部动作
	经由收件箱串行处理，规则回调不会重入收件箱。

	大体状态流：
		WAITING_FOR_PLAYERS -> DEALING -> 庄家 AWAITING_DISCARD
		-> (打牌) TILE_DISCARDED -> 有响应资格则 AWAITING_ALL_CLAIMS_RESPONSE
		-> AWAITING_CLAIMS_RESOLUTION -> 碰吃回 AWAITING_DISCARD / 杠回
		   PLAYER_TURN_START / 和牌 ROUND_OVER / 全过 PLAYER_TURN_START
		-> 局数打满 ROUND_OVER 后进入 AWAITING_REMATCH_VOTES -> GAME_OVER
*/

// XiangqiMahjong4p 象棋麻将四人引擎
type XiangqiMahjong4p struct {
	State    engines.GameState
	Worker   *game.Worker // Game Worker（创建原型时注入，可为 nil 供单测）
	RoomID   string
	RoomCfg  share.RoomConfig
	Timeouts config.TimeoutsConf
	Rules    config.RulesConf

	Phase    Phase
	Players  [NumSeats]*PlayerImage
	Deck     *DeckManager
	Discards []DiscardEntry
	Current  int
	Dealer   int
	TurnNum  int

	LastDrawn   *Tile
	lastDiscard LastDiscard
	Claims      *ClaimRound
	ChiDecider  int // 弃牌者下家（唯一可吃的座位），下家不能吃时为 -1

	Winners      []int
	WinType      string
	WinDiscarder int
	DrawGame     bool

	RoundIndex  int
	TotalRounds int
	MatchOver   bool
	nextDealer  int

	rematchVotes      map[int]bool // 座位 -> 是否已投同意
	nextRoundConfirms map[int]bool

	Timers         *RoomTimers
	ai             *AIService
	aiPending      *pendingAI
	scoreFn        ScoreFunc
	rng            *rand.Rand
	actionGuard    [NumSeats]time.Time
	emptyRoomArmed bool

	msgLog    []string
	Persister *GamePersister

	gameEvents chan share.GameEvent
	gameDone   chan struct{}
	actorExit  chan struct{}
	closed     atomic.Bool
	closeOnce  sync.Once

	summaryMu sync.Mutex
	summary   engines.Summary
}

type LastDiscard struct {
	Seat  int
	Tile  Tile
	Valid bool
}

type pendingAI struct {
	Seat int
	Seq  uint64
}

// NewXiangqiMahjong4p 创建引擎实例（原型）
func NewXiangqiMahjong4p(worker *game.Worker, timeouts config.TimeoutsConf, rules config.RulesConf) *XiangqiMahjong4p {
	return &XiangqiMahjong4p{
		State:    engines.GameWaiting,
		Worker:   worker,
		Timeouts: timeouts,
		Rules:    rules,
		Phase:    PhaseLoading,
		scoreFn:  BaselineScore,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// InitializeEngine 初始化游戏引擎
func (eg *XiangqiMahjong4p) InitializeEngine(roomID string, cfg share.RoomConfig) error {
	eg.RoomID = roomID
	eg.RoomCfg = cfg
	eg.TotalRounds = cfg.Rounds
	if eg.TotalRounds <= 0 {
		eg.TotalRounds = eg.Rules.DefaultRounds
	}
	eg.Phase = PhaseWaitingForPlayers
	eg.State = engines.GameWaiting
	eg.ChiDecider = -1
	eg.WinDiscarder = -1

	eg.closed.Store(false)
	eg.gameEvents = make(chan share.GameEvent, 256)
	eg.gameDone = make(chan struct{})
	eg.actorExit = make(chan struct{})
	eg.Deck = NewDeckManager(eg.Rules.CopiesPerKind)
	eg.Timers = NewRoomTimers(func(ev *TimerFireEvent) {
		eg.NotifyEvent(ev)
	})
	eg.ai = NewAIService()

	if eg.Worker != nil && eg.Worker.GameRecordRepository != nil {
		eg.Persister = NewGamePersister(eg.Worker.GameRecordRepository, roomID)
	}

	// 空房看门狗：创建后还没人进来也要能关掉
	eg.armEmptyRoomWatchdog()

	go eg.actorLoop()
	eg.refreshSummary()
	return nil
}

// actorLoop 游戏事件循环，房间内动作的唯一执行者
func (eg *XiangqiMahjong4p) actorLoop() {
	defer func() {
		if eg.actorExit != nil {
			close(eg.actorExit)
		}
	}()
	for {
		select {
		case <-eg.gameDone:
			return
		case event := <-eg.gameEvents:
			eg.processEvent(event)
		}
	}
}

// NotifyEvent 投递游戏事件（串行处理）
func (eg *XiangqiMahjong4p) NotifyEvent(event share.GameEvent) {
	if event == nil {
		return
	}
	if eg.closed.Load() {
		return
	}

	select {
	case <-eg.gameDone:
		return
	case eg.gameEvents <- event:
		return
	default:
		log.Warn("gameEvents 队列已满, eventType=%s", event.GetEventType())
		return
	}
}

func (eg *XiangqiMahjong4p) processEvent(event share.GameEvent) {
	if event == nil {
		return
	}

	switch ev := event.(type) {
	case *share.JoinEvent:
		eg.handleJoinEvent(ev)
	case *share.LeaveEvent:
		eg.handleLeaveEvent(ev)
	case *share.DisconnectEvent:
		eg.handleDisconnectEvent(ev)
	case *share.StartGameEvent:
		eg.handleStartGameEvent(ev)
	case *share.DrawTileEvent:
		eg.handleDrawEvent(ev)
	case *share.DiscardTileEvent:
		eg.handleDiscardEvent(ev)
	case *share.SelfHuEvent:
		eg.handleSelfHuEvent(ev)
	case *share.AnGangEvent:
		eg.handleAnGangEvent(ev)
	case *share.AddGangEvent:
		eg.handleAddGangEvent(ev)
	case *share.ClaimEvent:
		eg.handleClaimEvent(ev)
	case *share.ConfirmNextRoundEvent:
		eg.handleConfirmNextRoundEvent(ev)
	case *share.VoteRematchEvent:
		eg.handleVoteRematchEvent(ev)
	case *share.ChatEvent:
		eg.handleChatEvent(ev)
	case *TimerFireEvent:
		eg.handleTimerFire(ev)
	default:
		log.Warn("不支持的事件类型: %s", event.GetEventType())
		return
	}

	eg.watchEmptyRoom()
	eg.broadcastState()
	eg.refreshSummary()
}

// ---------------------------------------------------------------- 入座与连接

func (eg *XiangqiMahjong4p) handleJoinEvent(ev *share.JoinEvent) {
	// 1) 用户 ID 对上了：纯重连
	for _, p := range eg.seats() {
		if p.UserID == ev.UserID {
			p.SetOnline(ev.ConnID, ev.Name)
			eg.appendLog(fmt.Sprintf("%s 回到了房间", p.Name))
			log.Info("房间 %s 玩家 %s 重连", eg.RoomID, ev.UserID)
			return
		}
	}
	// 2) 同名离线真人：接管那个座位（分数/手牌/副露/房主位随座位保留）
	for _, p := range eg.seats() {
		if p.IsHuman && !p.IsOnline && p.Name == ev.Name {
			if eg.Worker != nil && p.UserID != ev.UserID {
				eg.Worker.DetachPlayer(eg.RoomID, p.UserID)
			}
			p.UserID = ev.UserID
			p.SetOnline(ev.ConnID, ev.Name)
			eg.appendLog(fmt.Sprintf("%s 接管了座位 %d", p.Name, p.SeatIndex))
			return
		}
	}
	// 3) 新玩家：仅在等待开局阶段可入座
	if eg.Phase != PhaseWaitingForPlayers {
		eg.rejectJoin(ev, dto.ErrRoomFull)
		return
	}
	seat := eg.lowestFreeSeat()
	if seat < 0 {
		eg.rejectJoin(ev, dto.ErrRoomFull)
		return
	}
	p := NewHumanPlayer(ev.UserID, ev.Name, ev.ConnID, seat)
	if eg.hostSeat() < 0 {
		p.IsHost = true
	}
	eg.Players[seat] = p
	eg.appendLog(fmt.Sprintf("%s 入座 %d", p.Name, seat))
	eg.notifyRoomChanged()
}

func (eg *XiangqiMahjong4p) rejectJoin(ev *share.JoinEvent, err error) {
	eg.pushErrorToConn(ev.ConnID, err)
	if eg.Worker != nil {
		eg.Worker.DetachPlayer(eg.RoomID, ev.UserID)
	}
}

func (eg *XiangqiMahjong4p) handleLeaveEvent(ev *share.LeaveEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 {
		return
	}
	p := eg.Players[seat]
	if eg.matchActive() {
		// 对局中退出等同断线，座位和手牌保留，由超时走 AI 托管
		p.SetOffline()
		eg.afterHumanOffline(seat)
		return
	}
	eg.Players[seat] = nil
	if eg.Worker != nil {
		eg.Worker.DetachPlayer(eg.RoomID, p.UserID)
	}
	eg.appendLog(fmt.Sprintf("%s 离开了房间", p.Name))
	if p.IsHost {
		eg.reassignHost()
	}
	eg.notifyRoomChanged()
}

func (eg *XiangqiMahjong4p) handleDisconnectEvent(ev *share.DisconnectEvent) {
	seat := -1
	for _, p := range eg.seats() {
		if p.ConnID == ev.ConnID {
			seat = p.SeatIndex
			break
		}
	}
	if seat < 0 {
		return
	}
	p := eg.Players[seat]
	if !eg.matchActive() && eg.Phase == PhaseWaitingForPlayers {
		// 没开局，直接腾出座位
		eg.Players[seat] = nil
		if p.IsHost {
			eg.reassignHost()
		}
		eg.notifyRoomChanged()
		return
	}
	p.SetOffline()
	eg.appendLog(fmt.Sprintf("%s 断线", p.Name))
	eg.afterHumanOffline(seat)
}

// afterHumanOffline 真人离线后的善后：房主移交、全员离线时终结对局
func (eg *XiangqiMahjong4p) afterHumanOffline(seat int) {
	p := eg.Players[seat]
	if p != nil && p.IsHost {
		eg.reassignHost()
	}
	if eg.onlineHumanCount() == 0 && eg.matchActive() {
		log.Warn("房间 %s 对局中失去全部在线真人，终止对局", eg.RoomID)
		eg.abortMatch()
	}
	eg.notifyRoomChanged()
}

// abortMatch 对局中房间被清空：立即终局
func (eg *XiangqiMahjong4p) abortMatch() {
	eg.Timers.ClearFamily()
	eg.Timers.ClearRoundDeadline()
	eg.Timers.ClearAIThink()
	eg.Claims = nil
	eg.clearPendingClaims()
	eg.MatchOver = true
	eg.Phase = PhaseGameOver
	eg.State = engines.GameFinished
	eg.flushMatchRecord()
}

// reassignHost 房主离开时移交给座位号最小的在线真人
func (eg *XiangqiMahjong4p) reassignHost() {
	for _, p := range eg.seats() {
		p.IsHost = false
	}
	for s := 0; s < NumSeats; s++ {
		p := eg.Players[s]
		if p != nil && p.IsHuman && p.IsOnline {
			p.IsHost = true
			eg.appendLog(fmt.Sprintf("%s 成为房主", p.Name))
			return
		}
	}
	// 没有在线真人，房主空缺
}

// ---------------------------------------------------------------- 开局与发牌

func (eg *XiangqiMahjong4p) handleStartGameEvent(ev *share.StartGameEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 || !eg.Players[seat].IsHost {
		eg.pushError(seat, dto.ErrNotHost)
		return
	}
	if eg.Phase != PhaseWaitingForPlayers {
		eg.pushError(seat, dto.ErrInvalidTiming)
		return
	}
	if eg.humanCount() < eg.RoomCfg.HumanTarget {
		eg.pushError(seat, dto.ErrNotEnoughPlayers)
		return
	}
	if eg.RoomCfg.FillWithAI {
		eg.fillWithAI()
	}
	if eg.seatCount() < NumSeats {
		eg.pushError(seat, dto.ErrNotEnoughPlayers)
		return
	}

	eg.State = engines.GameInProgress
	eg.startNewMatch(nil)
	eg.notifyRoomChanged()
}

var aiNamePool = []string{"电脑·甲", "电脑·乙", "电脑·丙", "电脑·丁"}

// fillWithAI 空座位补电脑，名字保证互不相同
func (eg *XiangqiMahjong4p) fillWithAI() {
	used := make(map[string]bool, NumSeats)
	for _, p := range eg.seats() {
		used[p.Name] = true
	}
	for s := 0; s < NumSeats; s++ {
		if eg.Players[s] != nil {
			continue
		}
		name := ""
		for _, cand := range aiNamePool {
			if !used[cand] {
				name = cand
				break
			}
		}
		if name == "" {
			name = "电脑·" + uuid.NewString()[:4]
		}
		used[name] = true
		eg.Players[s] = NewAIPlayer("ai_"+uuid.NewString(), name, s)
		eg.appendLog(fmt.Sprintf("%s 补位座位 %d", name, s))
	}
}

// startNewMatch 开一场新比赛
// preserved 非空时为再战：初始化后按 userID 恢复各家分数
func (eg *XiangqiMahjong4p) startNewMatch(preserved map[string]int) {
	eg.Dealer = eg.rng.Intn(NumSeats)
	eg.nextDealer = eg.Dealer
	eg.RoundIndex = 1
	eg.MatchOver = false
	eg.rematchVotes = nil

	for _, p := range eg.seats() {
		p.Score = 0
	}
	if preserved != nil {
		for _, p := range eg.seats() {
			if score, ok := preserved[p.UserID]; ok {
				p.Score = score
			}
		}
	}

	if eg.Persister != nil {
		eg.Persister.StartMatch(eg.playerInfos())
	}
	eg.startRound()
}

// startRound 初始化并开始一局
func (eg *XiangqiMahjong4p) startRound() {
	eg.Phase = PhaseDealing
	eg.Dealer = eg.nextDealer
	for _, p := range eg.seats() {
		p.ResetRound()
		p.IsDealer = p.SeatIndex == eg.Dealer
	}
	eg.Discards = eg.Discards[:0]
	eg.lastDiscard.Valid = false
	eg.LastDrawn = nil
	eg.Claims = nil
	eg.ChiDecider = -1
	eg.Winners = nil
	eg.WinType = WinTypeNone
	eg.WinDiscarder = -1
	eg.DrawGame = false
	eg.nextRoundConfirms = make(map[int]bool)

	eg.Deck.InitRound()
	for r := 0; r < HandSize; r++ {
		for s := 0; s < NumSeats; s++ {
			t, ok := eg.Deck.Deal()
			if !ok {
				eg.damageRound("发牌失败: 牌库不足")
				return
			}
			eg.Players[s].AddTile(t)
		}
	}
	// 庄家的第 8 张先挂为浮牌，由庄家先打
	t, ok := eg.Deck.Deal()
	if !ok {
		eg.damageRound("庄家补牌失败: 牌库不足")
		return
	}
	eg.LastDrawn = &t

	if err := eg.verifyRoundInvariants(); err != nil {
		eg.damageRound(err.Error())
		return
	}

	eg.Current = eg.Dealer
	eg.TurnNum = 1
	eg.Phase = PhaseAwaitingDiscard

	if eg.Persister != nil {
		eg.Persister.StartRound(eg.RoundIndex, eg.Dealer)
	}
	eg.appendLog(fmt.Sprintf("第 %d/%d 局开始，庄家座位 %d", eg.RoundIndex, eg.TotalRounds, eg.Dealer))

	// 回合墙钟先落位，随后的行动计时都被它截断
	eg.Timers.StartFamily(TimerRoundCap, eg.secs(eg.Timeouts.MaxRoundDurationSeconds))
	eg.startTurnTimer()
	eg.scheduleAIIfNeeded(eg.Current)
}

// verifyRoundInvariants 开局自检：总张数与 ID 唯一性
func (eg *XiangqiMahjong4p) verifyRoundInvariants() error {
	seen := make(map[int]bool, eg.Deck.TotalTiles())
	count := 0
	add := func(t Tile) error {
		if seen[t.ID] {
			return fmt.Errorf("牌 ID 重复: %d", t.ID)
		}
		seen[t.ID] = true
		count++
		return nil
	}
	for _, p := range eg.seats() {
		for _, t := range p.Tiles {
			if err := add(t); err != nil {
				return err
			}
		}
		for _, m := range p.Melds {
			for _, t := range m.Tiles {
				if err := add(t); err != nil {
					return err
				}
			}
		}
	}
	if eg.LastDrawn != nil {
		if err := add(*eg.LastDrawn); err != nil {
			return err
		}
	}
	for _, d := range eg.Discards {
		if err := add(d.Tile); err != nil {
			return err
		}
	}
	count += eg.Deck.Remaining()
	if count != eg.Deck.TotalTiles() {
		return fmt.Errorf("牌数不守恒: %d != %d", count, eg.Deck.TotalTiles())
	}
	return nil
}

// damageRound 不变式被破坏：记录并按流局收场
func (eg *XiangqiMahjong4p) damageRound(reason string) {
	log.Error("房间 %s 回合崩坏: %s", eg.RoomID, reason)
	eg.DrawGame = true
	eg.finalizeRound(RoundResult{DrawGame: true, Discarder: -1})
}

// ---------------------------------------------------------------- 回合推进

func (eg *XiangqiMahjong4p) startTurnTimer() {
	eg.Timers.StartFamily(TimerTurn, eg.secs(eg.Timeouts.PlayerTurnActionSeconds))
}

// enterTurnStart 轮到某座位行动（需要摸牌）
func (eg *XiangqiMahjong4p) enterTurnStart(seat int) {
	eg.Current = seat
	eg.TurnNum++
	eg.Phase = PhasePlayerTurnStart
	eg.startTurnTimer()
	eg.scheduleAIIfNeeded(seat)
}

// scheduleAIIfNeeded 电脑座位挂一个思考延迟；离线真人交给行动超时兜底
func (eg *XiangqiMahjong4p) scheduleAIIfNeeded(seat int) {
	p := eg.Players[seat]
	if p == nil || p.IsHuman {
		return
	}
	minMs := eg.Timeouts.AiThinkMinMs
	maxMs := eg.Timeouts.AiThinkMaxMs
	if maxMs < minMs {
		maxMs = minMs
	}
	d := time.Duration(minMs) * time.Millisecond
	if maxMs > minMs {
		d = time.Duration(minMs+eg.rng.Intn(maxMs-minMs+1)) * time.Millisecond
	}
	seq := eg.Timers.StartAIThink(d)
	eg.aiPending = &pendingAI{Seat: seat, Seq: seq}
}

func (eg *XiangqiMahjong4p) handleDrawEvent(ev *share.DrawTileEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 {
		return
	}
	if !eg.guard(seat) {
		eg.pushError(seat, dto.ErrDuplicateSubmission)
		return
	}
	if eg.Phase != PhasePlayerTurnStart || eg.Current != seat {
		eg.pushError(seat, dto.ErrInvalidTiming)
		return
	}
	eg.internalDraw(seat)
}

// internalDraw 牌库摸一张挂为浮牌；牌尽则荒牌流局
// 返回 false 表示本局已随之结束
func (eg *XiangqiMahjong4p) internalDraw(seat int) bool {
	t, ok := eg.Deck.Draw()
	if !ok {
		eg.appendLog("牌库摸尽，荒牌流局")
		eg.DrawGame = true
		eg.finalizeRound(RoundResult{DrawGame: true, Discarder: -1})
		return false
	}
	eg.LastDrawn = &t
	eg.Phase = PhasePlayerDrawn
	eg.startTurnTimer()
	eg.announce(seat, "draw", nil)
	if eg.Persister != nil {
		eg.Persister.RecordDraw(seat)
	}
	return true
}

func (eg *XiangqiMahjong4p) handleDiscardEvent(ev *share.DiscardTileEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 {
		return
	}
	if !eg.guard(seat) {
		eg.pushError(seat, dto.ErrDuplicateSubmission)
		return
	}
	if !eg.Phase.CanDiscard() || eg.Current != seat {
		eg.pushError(seat, dto.ErrInvalidTiming)
		return
	}
	if err := eg.internalDiscard(seat, ev.TileID); err != nil {
		eg.pushError(seat, err)
	}
}

// internalDiscard 打出一张牌并进入响应判定
// tileID 命中浮牌则打浮牌；否则从手牌打出、浮牌并入手牌
func (eg *XiangqiMahjong4p) internalDiscard(seat int, tileID int) error {
	p := eg.Players[seat]
	var tile Tile
	if eg.LastDrawn != nil && eg.LastDrawn.ID == tileID {
		tile = *eg.LastDrawn
		eg.LastDrawn = nil
	} else {
		t, ok := p.RemoveTileByID(tileID)
		if !ok {
			return dto.ErrTileNotInHand
		}
		if eg.LastDrawn != nil {
			p.AddTile(*eg.LastDrawn)
			eg.LastDrawn = nil
		}
		tile = t
	}

	eg.Discards = append(eg.Discards, DiscardEntry{Tile: tile, Seat: seat})
	eg.lastDiscard = LastDiscard{Seat: seat, Tile: tile, Valid: true}
	eg.Phase = PhaseTileDiscarded
	eg.announce(seat, "discard", tile)
	if eg.Persister != nil {
		eg.Persister.RecordDiscard(seat, int(tile.Kind))
	}

	eg.evaluateClaims()
	return nil
}

// ---------------------------------------------------------------- 鸣牌收集与仲裁

// evaluateClaims 弃牌后计算各家响应资格；无人有资格直接轮转
func (eg *XiangqiMahjong4p) evaluateClaims() {
	discarder := eg.lastDiscard.Seat
	tile := eg.lastDiscard.Tile
	rightNeighbor := (discarder + 1) % NumSeats

	cr := NewClaimRound(discarder, tile)
	for s := 0; s < NumSeats; s++ {
		if s == discarder || eg.Players[s] == nil {
			continue
		}
		p := eg.Players[s]
		elig := &SeatEligibility{
			CanHu:   CheckWin(append(append([]Tile{}, p.Tiles...), tile), p.Melds),
			CanGang: CanMingGang(p.Tiles, tile),
			CanPeng: CanPeng(p.Tiles, tile),
		}
		if s == rightNeighbor {
			elig.ChiOptions = ChiOptions(p.Tiles, tile)
		}
		if elig.Any() {
			cr.Eligible[s] = elig
			p.Pending = elig
			p.HasResponded = false
		}
	}

	if len(cr.Eligible) == 0 {
		eg.lastDiscard.Valid = false
		eg.enterTurnStart(rightNeighbor)
		return
	}

	eg.Claims = cr
	if _, ok := cr.Eligible[rightNeighbor]; ok && len(cr.Eligible[rightNeighbor].ChiOptions) > 0 {
		eg.ChiDecider = rightNeighbor
	} else {
		eg.ChiDecider = -1
	}
	eg.Phase = PhaseAwaitingClaims
	eg.Timers.StartFamily(TimerClaim, eg.secs(eg.Timeouts.ClaimDecisionSeconds))

	// 电脑座位立即提交
	for _, s := range cr.EligibleSeats() {
		p := eg.Players[s]
		if p.IsHuman {
			continue
		}
		sub := eg.ai.ClaimDecision(cr.Eligible[s], tile)
		cr.Submit(s, sub)
		p.HasResponded = true
	}
	if cr.AllResponded() {
		eg.resolveClaims()
	}
}

func (eg *XiangqiMahjong4p) handleClaimEvent(ev *share.ClaimEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 {
		return
	}
	if eg.Phase != PhaseAwaitingClaims || eg.Claims == nil {
		eg.pushError(seat, dto.ErrInvalidTiming)
		return
	}
	if !eg.Claims.IsEligible(seat) {
		eg.pushError(seat, dto.ErrNotEligible)
		return
	}
	if eg.Claims.HasResponded(seat) {
		eg.pushError(seat, dto.ErrAlreadyResponded)
		return
	}
	if !eg.guard(seat) {
		eg.pushError(seat, dto.ErrDuplicateSubmission)
		return
	}

	sub, err := eg.buildSubmission(seat, ev)
	if err != nil {
		eg.pushError(seat, err)
		return
	}
	eg.Claims.Submit(seat, sub)
	eg.Players[seat].HasResponded = true
	eg.announce(seat, "claimSubmitted", nil)

	if eg.Claims.AllResponded() {
		eg.resolveClaims()
	}
}

// buildSubmission 把客户端决定转成仲裁提交，内容不合法直接拒绝
func (eg *XiangqiMahjong4p) buildSubmission(seat int, ev *share.ClaimEvent) (*ClaimSubmission, error) {
	elig := eg.Claims.Eligible[seat]
	tile := eg.Claims.Tile
	switch ev.Decision {
	case share.ClaimPass:
		return &ClaimSubmission{Decision: share.ClaimPass}, nil
	case share.ClaimHu:
		if !elig.CanHu {
			return nil, dto.ErrNotEligible
		}
		return &ClaimSubmission{Decision: share.ClaimHu}, nil
	case share.ClaimGang:
		if !elig.CanGang || TileKind(ev.Kind) != tile.Kind {
			return nil, dto.ErrKindMismatch
		}
		return &ClaimSubmission{Decision: share.ClaimGang, Kind: tile.Kind}, nil
	case share.ClaimPeng:
		if !elig.CanPeng || TileKind(ev.Kind) != tile.Kind {
			return nil, dto.ErrKindMismatch
		}
		return &ClaimSubmission{Decision: share.ClaimPeng, Kind: tile.Kind}, nil
	case share.ClaimChi:
		if len(elig.ChiOptions) == 0 {
			return nil, dto.ErrNotEligible
		}
		combo, err := eg.resolveChiCombo(seat, ev.ComboTileIDs, elig)
		if err != nil {
			return nil, err
		}
		return &ClaimSubmission{Decision: share.ClaimChi, Kind: tile.Kind, Combo: combo}, nil
	default:
		return nil, dto.ErrInvalidMessage
	}
}

// resolveChiCombo 校验客户端选中的两张手牌；未指定时取第一组
func (eg *XiangqiMahjong4p) resolveChiCombo(seat int, ids []int, elig *SeatEligibility) ([2]Tile, error) {
	if len(ids) == 0 {
		return elig.ChiOptions[0], nil
	}
	if len(ids) != 2 {
		return [2]Tile{}, dto.ErrInvalidMessage
	}
	p := eg.Players[seat]
	t1, ok1 := p.FindTile(ids[0])
	t2, ok2 := p.FindTile(ids[1])
	if !ok1 || !ok2 {
		return [2]Tile{}, dto.ErrTileNotInHand
	}
	combo := [2]Tile{t1, t2}
	if _, ok := BuildShunzi(eg.Claims.Tile, combo, eg.Claims.Discarder); !ok {
		return [2]Tile{}, dto.ErrKindMismatch
	}
	return combo, nil
}

// resolveClaims 收集完毕（或截止触发）后的唯一裁决入口
// 阶段迁移只发生在这里，不在收集过程中
func (eg *XiangqiMahjong4p) resolveClaims() {
	eg.Phase = PhaseClaimsResolution
	eg.Timers.ClearFamily()

	cr := eg.Claims
	res := cr.Resolve(
		func(seat int) bool {
			p := eg.Players[seat]
			return CheckWin(append(append([]Tile{}, p.Tiles...), cr.Tile), p.Melds)
		},
		func(seat int, decision string) {
			p := eg.Players[seat]
			log.Warn("房间 %s 座位 %d 的 %s 复核未通过，按过处理", eg.RoomID, seat, decision)
			if p != nil && p.IsHuman {
				eg.pushError(seat, dto.ErrFalseHu)
			}
		},
	)
	eg.executeResolution(res)
}

func (eg *XiangqiMahjong4p) executeResolution(res Resolution) {
	cr := eg.Claims
	tile := cr.Tile
	discarder := cr.Discarder
	eg.Claims = nil
	eg.ChiDecider = -1
	eg.clearPendingClaims()

	switch res.Kind {
	case ResolveHu:
		// 一炮多响：全部记为赢家，放炮者对每家付分
		eg.announceMany(res.HuSeats, "hu", tile)
		eg.lastDiscard.Valid = false
		eg.finalizeRound(RoundResult{
			Winners:   res.HuSeats,
			WinType:   WinTypeDiscard,
			Discarder: discarder,
		})
		return

	case ResolveGang:
		p := eg.Players[res.Seat]
		removed, ok := p.RemoveKind(tile.Kind, 3)
		if !ok {
			eg.damageRound(fmt.Sprintf("杠牌取手牌失败: 座位 %d 种 %v", res.Seat, tile.Kind))
			return
		}
		eg.popDiscardTop()
		p.Melds = append(p.Melds, Meld{
			Type:          MeldGangzi,
			Tiles:         sortMeldTiles(append(removed, tile)),
			Open:          true,
			From:          discarder,
			ClaimedTileID: tile.ID,
		})
		eg.announce(res.Seat, "gang", tile)
		if eg.Persister != nil {
			eg.Persister.RecordMeld(res.Seat, string(MeldGangzi), int(tile.Kind))
		}
		eg.enterTurnStart(res.Seat)
		return

	case ResolvePeng:
		p := eg.Players[res.Seat]
		removed, ok := p.RemoveKind(tile.Kind, 2)
		if !ok {
			eg.damageRound(fmt.Sprintf("碰牌取手牌失败: 座位 %d 种 %v", res.Seat, tile.Kind))
			return
		}
		eg.popDiscardTop()
		p.Melds = append(p.Melds, Meld{
			Type:          MeldKezi,
			Tiles:         sortMeldTiles(append(removed, tile)),
			Open:          true,
			From:          discarder,
			ClaimedTileID: tile.ID,
		})
		eg.announce(res.Seat, "peng", tile)
		if eg.Persister != nil {
			eg.Persister.RecordMeld(res.Seat, string(MeldKezi), int(tile.Kind))
		}
		// 碰完不摸牌，直接进入打牌
		eg.Current = res.Seat
		eg.Phase = PhaseAwaitingDiscard
		eg.startTurnTimer()
		eg.scheduleAIIfNeeded(res.Seat)
		return

	case ResolveChi:
		p := eg.Players[res.Seat]
		meld, ok := BuildShunzi(tile, res.Combo, discarder)
		if !ok {
			eg.damageRound(fmt.Sprintf("吃牌组定式失败: 座位 %d", res.Seat))
			return
		}
		if _, ok := p.RemoveTileByID(res.Combo[0].ID); !ok {
			eg.damageRound("吃牌取手牌失败")
			return
		}
		if _, ok := p.RemoveTileByID(res.Combo[1].ID); !ok {
			eg.damageRound("吃牌取手牌失败")
			return
		}
		eg.popDiscardTop()
		p.Melds = append(p.Melds, meld)
		eg.announce(res.Seat, "chi", tile)
		if eg.Persister != nil {
			eg.Persister.RecordMeld(res.Seat, string(MeldShunzi), int(tile.Kind))
		}
		eg.Current = res.Seat
		eg.Phase = PhaseAwaitingDiscard
		eg.startTurnTimer()
		eg.scheduleAIIfNeeded(res.Seat)
		return

	default: // 全过
		eg.lastDiscard.Valid = false
		eg.enterTurnStart((discarder + 1) % NumSeats)
	}
}

func (eg *XiangqiMahjong4p) clearPendingClaims() {
	for _, p := range eg.seats() {
		p.Pending = nil
		p.HasResponded = false
	}
}

func (eg *XiangqiMahjong4p) popDiscardTop() {
	if len(eg.Discards) > 0 {
		eg.Discards = eg.Discards[:len(eg.Discards)-1]
	}
	eg.lastDiscard.Valid = false
}

// ---------------------------------------------------------------- 自摸与杠

func (eg *XiangqiMahjong4p) handleSelfHuEvent(ev *share.SelfHuEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 {
		return
	}
	if !eg.guard(seat) {
		eg.pushError(seat, dto.ErrDuplicateSubmission)
		return
	}
	if err := eg.internalSelfHu(seat); err != nil {
		eg.pushError(seat, err)
	}
}

// internalSelfHu 自摸（庄家开局 8 张成和即天和）
func (eg *XiangqiMahjong4p) internalSelfHu(seat int) error {
	if eg.Current != seat || eg.LastDrawn == nil {
		return dto.ErrInvalidTiming
	}
	openingHand := eg.Phase == PhaseAwaitingDiscard && seat == eg.Dealer && eg.TurnNum == 1
	if eg.Phase != PhasePlayerDrawn && !openingHand {
		return dto.ErrInvalidTiming
	}

	p := eg.Players[seat]
	full := append(append([]Tile{}, p.Tiles...), *eg.LastDrawn)
	if !CheckWin(full, p.Melds) {
		// 诈和：告知本人，计时重走，阶段不变
		log.Info("房间 %s 座位 %d 诈和", eg.RoomID, seat)
		eg.startTurnTimer()
		return dto.ErrFalseHu
	}

	p.AddTile(*eg.LastDrawn)
	eg.LastDrawn = nil
	if openingHand {
		eg.appendLog(fmt.Sprintf("%s 天和！", p.Name))
	}
	eg.announce(seat, "selfHu", nil)
	eg.finalizeRound(RoundResult{
		Winners:   []int{seat},
		WinType:   WinTypeSelfDrawn,
		Discarder: -1,
	})
	return nil
}

func (eg *XiangqiMahjong4p) handleAnGangEvent(ev *share.AnGangEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 {
		return
	}
	if !eg.guard(seat) {
		eg.pushError(seat, dto.ErrDuplicateSubmission)
		return
	}
	if err := eg.internalAnGang(seat, TileKind(ev.Kind)); err != nil {
		eg.pushError(seat, err)
	}
}

// internalAnGang 暗杠：(手牌 ∪ 浮牌) 里凑足四张
func (eg *XiangqiMahjong4p) internalAnGang(seat int, kind TileKind) error {
	if eg.Current != seat {
		return dto.ErrNotYourTurn
	}
	if eg.Phase != PhasePlayerTurnStart && !eg.Phase.CanDiscard() {
		return dto.ErrInvalidTiming
	}
	if !kind.Valid() {
		return dto.ErrKindMismatch
	}

	p := eg.Players[seat]
	useDrawn := eg.LastDrawn != nil && eg.LastDrawn.Kind == kind
	need := 4
	if useDrawn {
		need = 3
	}
	removed, ok := p.RemoveKind(kind, need)
	if !ok {
		return dto.ErrKindMismatch
	}
	tiles := removed
	if useDrawn {
		tiles = append(tiles, *eg.LastDrawn)
	}
	if eg.LastDrawn != nil && !useDrawn {
		// 浮牌不在杠里，并回手牌
		p.AddTile(*eg.LastDrawn)
	}
	eg.LastDrawn = nil

	p.Melds = append(p.Melds, Meld{
		Type:          MeldGangzi,
		Tiles:         sortMeldTiles(tiles),
		Open:          false,
		From:          -1,
		ClaimedTileID: -1,
	})
	eg.announce(seat, "anGang", nil)
	if eg.Persister != nil {
		eg.Persister.RecordMeld(seat, "AnGang", int(kind))
	}
	// 杠完摸补张
	eg.enterTurnStart(seat)
	return nil
}

func (eg *XiangqiMahjong4p) handleAddGangEvent(ev *share.AddGangEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 {
		return
	}
	if !eg.guard(seat) {
		eg.pushError(seat, dto.ErrDuplicateSubmission)
		return
	}
	if err := eg.internalAddGang(seat, TileKind(ev.Kind)); err != nil {
		eg.pushError(seat, err)
	}
}

// internalAddGang 加杠：浮牌种类对上已有明刻
func (eg *XiangqiMahjong4p) internalAddGang(seat int, kind TileKind) error {
	if eg.Current != seat {
		return dto.ErrNotYourTurn
	}
	if eg.Phase != PhasePlayerDrawn {
		return dto.ErrInvalidTiming
	}
	if eg.LastDrawn == nil || eg.LastDrawn.Kind != kind {
		return dto.ErrKindMismatch
	}
	p := eg.Players[seat]
	idx := p.FindOpenKezi(kind)
	if idx < 0 {
		return dto.ErrMeldNotFound
	}

	meld := &p.Melds[idx]
	meld.Type = MeldGangzi
	meld.Tiles = sortMeldTiles(append(meld.Tiles, *eg.LastDrawn))
	eg.LastDrawn = nil

	eg.announce(seat, "addGang", nil)
	if eg.Persister != nil {
		eg.Persister.RecordMeld(seat, "AddGang", int(kind))
	}
	eg.enterTurnStart(seat)
	return nil
}

// sortMeldTiles 刻杠内部按 ID 稳定排序（同种牌序值一致）
func sortMeldTiles(tiles []Tile) []Tile {
	SortTiles(tiles)
	return tiles
}

// ---------------------------------------------------------------- 结算与局间

// finalizeRound 统一结算入口
func (eg *XiangqiMahjong4p) finalizeRound(res RoundResult) {
	eg.Timers.ClearFamily()
	eg.Timers.ClearRoundDeadline()
	eg.Timers.ClearAIThink()
	eg.aiPending = nil
	eg.Claims = nil
	eg.ChiDecider = -1
	eg.clearPendingClaims()

	eg.Winners = res.Winners
	eg.WinType = res.WinType
	eg.WinDiscarder = res.Discarder
	eg.DrawGame = res.DrawGame

	delta := eg.scoreFn(res)
	for s := 0; s < NumSeats; s++ {
		if eg.Players[s] != nil && delta[s] != 0 {
			eg.Players[s].AddScore(delta[s])
		}
	}

	// 连庄规则：庄家赢则连庄，否则顺移
	dealerWon := false
	for _, w := range res.Winners {
		if w == eg.Dealer {
			dealerWon = true
		}
	}
	if dealerWon {
		eg.nextDealer = eg.Dealer
	} else {
		eg.nextDealer = (eg.Dealer + 1) % NumSeats
	}

	eg.Phase = PhaseRoundOver
	eg.nextRoundConfirms = make(map[int]bool)

	if eg.Persister != nil {
		eg.Persister.EndRound(res, eg.scores())
	}
	eg.Timers.StartFamily(TimerNextRound, eg.secs(eg.Timeouts.NextRoundCountdownSecs))
}

func (eg *XiangqiMahjong4p) handleConfirmNextRoundEvent(ev *share.ConfirmNextRoundEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 {
		return
	}
	if eg.Phase != PhaseRoundOver {
		eg.pushError(seat, dto.ErrInvalidTiming)
		return
	}
	p := eg.Players[seat]
	if !p.IsHuman || !p.IsOnline {
		return
	}
	eg.nextRoundConfirms[seat] = true

	// 所有在线真人就绪则提前结束休整
	for _, q := range eg.seats() {
		if q.IsHuman && q.IsOnline && !eg.nextRoundConfirms[q.SeatIndex] {
			return
		}
	}
	eg.Timers.ClearFamily()
	eg.proceedAfterRoundOver()
}

// proceedAfterRoundOver 休整结束：开下一局或进入再战投票
func (eg *XiangqiMahjong4p) proceedAfterRoundOver() {
	if eg.RoundIndex >= eg.TotalRounds {
		eg.enterRematchVotes()
		return
	}
	eg.RoundIndex++
	eg.startRound()
}

// ---------------------------------------------------------------- 再战投票

func (eg *XiangqiMahjong4p) enterRematchVotes() {
	eg.MatchOver = true
	eg.Phase = PhaseAwaitingRematchVotes
	eg.State = engines.GameFinished
	eg.flushMatchRecord()

	eg.rematchVotes = make(map[int]bool)
	hasVoter := false
	for _, p := range eg.seats() {
		if p.IsHuman && p.IsOnline {
			eg.rematchVotes[p.SeatIndex] = false
			hasVoter = true
		}
	}
	if !hasVoter {
		eg.Phase = PhaseGameOver
		eg.Terminate()
		return
	}
	eg.appendLog("本场结束，发起再战投票")
	eg.Timers.StartFamily(TimerRematch, eg.secs(eg.Timeouts.RematchVoteSeconds))
	eg.notifyRoomChanged()
}

func (eg *XiangqiMahjong4p) handleVoteRematchEvent(ev *share.VoteRematchEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 {
		return
	}
	if eg.Phase != PhaseAwaitingRematchVotes {
		eg.pushError(seat, dto.ErrInvalidTiming)
		return
	}
	if _, ok := eg.rematchVotes[seat]; !ok {
		return
	}
	if !eg.guard(seat) {
		eg.pushError(seat, dto.ErrDuplicateSubmission)
		return
	}
	eg.rematchVotes[seat] = true
	eg.appendLog(fmt.Sprintf("%s 同意再战", eg.Players[seat].Name))

	for _, yes := range eg.rematchVotes {
		if !yes {
			return
		}
	}
	eg.Timers.ClearFamily()
	eg.doRematch()
}

// doRematch 全员同意：保分重开
// 留下投了同意的真人和原有电脑，其余座位重新补电脑（零分起步）
func (eg *XiangqiMahjong4p) doRematch() {
	preserved := make(map[string]int)
	for _, p := range eg.seats() {
		preserved[p.UserID] = p.Score
	}

	priorHostSeat := eg.hostSeat()
	for s := 0; s < NumSeats; s++ {
		p := eg.Players[s]
		if p == nil || !p.IsHuman {
			continue
		}
		if !eg.rematchVotes[s] {
			// 没投票的（含离线者）请出房间
			if eg.Worker != nil {
				eg.Worker.DetachPlayer(eg.RoomID, p.UserID)
			}
			eg.Players[s] = nil
		}
	}

	// 房主优先还给原房主（若其留下），否则给最小座位的在线真人
	if priorHostSeat >= 0 && eg.Players[priorHostSeat] != nil {
		for _, p := range eg.seats() {
			p.IsHost = p.SeatIndex == priorHostSeat
		}
	} else {
		eg.reassignHost()
	}

	eg.fillWithAI()
	eg.State = engines.GameInProgress
	eg.appendLog("再战开始，分数保留")
	eg.startNewMatch(preserved)
	eg.notifyRoomChanged()
}

// rematchDeadline 投票超时：通知未同意者并散场
func (eg *XiangqiMahjong4p) rematchDeadline() {
	for s, yes := range eg.rematchVotes {
		if yes {
			continue
		}
		p := eg.Players[s]
		if p != nil && p.IsHuman {
			eg.pushError(s, dto.ErrRematchTimeout)
		}
	}
	for _, p := range eg.seats() {
		if p.IsHuman && eg.Worker != nil {
			eg.Worker.DetachPlayer(eg.RoomID, p.UserID)
		}
	}
	eg.MatchOver = true
	eg.Phase = PhaseGameOver
	eg.appendLog("再战未达成，房间解散")
	eg.Terminate()
}

// ---------------------------------------------------------------- 倒计时触发

func (eg *XiangqiMahjong4p) handleTimerFire(ev *TimerFireEvent) {
	switch ev.Kind {
	case TimerAIThink:
		if !eg.Timers.ConsumeAIThink(ev.Seq) {
			return
		}
		eg.applyAIThink()
	case TimerEmptyRoom:
		if !eg.Timers.ConsumeEmptyRoom(ev.Seq) {
			return
		}
		if eg.onlineHumanCount() == 0 {
			log.Info("房间 %s 空置超时，请求关闭", eg.RoomID)
			eg.Terminate()
		}
	default:
		if !eg.Timers.ConsumeFamily(ev.Seq) {
			return
		}
		eg.handleFamilyTimerFire(ev.Kind)
	}
}

func (eg *XiangqiMahjong4p) handleFamilyTimerFire(kind TimerKind) {
	switch kind {
	case TimerTurn:
		eg.autoTurnAction(eg.Current)
	case TimerClaim:
		if eg.Phase == PhaseAwaitingClaims && eg.Claims != nil {
			filled := eg.Claims.FillPasses()
			if len(filled) > 0 {
				log.Info("房间 %s 鸣牌截止，座位 %v 记为过", eg.RoomID, filled)
			}
			eg.resolveClaims()
		}
	case TimerRoundCap:
		if eg.roundActive() {
			eg.appendLog("单局时长见顶，按流局处理")
			eg.DrawGame = true
			eg.finalizeRound(RoundResult{DrawGame: true, Discarder: -1})
		}
	case TimerNextRound:
		if eg.Phase == PhaseRoundOver {
			eg.proceedAfterRoundOver()
		}
	case TimerRematch:
		if eg.Phase == PhaseAwaitingRematchVotes {
			eg.rematchDeadline()
		}
	}
}

// autoTurnAction 行动超时兜底
// 没摸就先摸；打牌优先打浮牌，离线/电脑走 AI 选牌，在线真人打最右一张
func (eg *XiangqiMahjong4p) autoTurnAction(seat int) {
	p := eg.Players[seat]
	if p == nil {
		return
	}
	if eg.Phase == PhasePlayerTurnStart {
		if !eg.internalDraw(seat) {
			return
		}
	}
	if !eg.Phase.CanDiscard() || eg.Current != seat {
		return
	}

	var tileID int
	if !p.IsHuman || !p.IsOnline {
		hand := append([]Tile{}, p.Tiles...)
		if eg.LastDrawn != nil {
			hand = append(hand, *eg.LastDrawn)
		}
		tileID = eg.ai.DiscardChoice(hand, eg.Discards).ID
	} else if eg.LastDrawn != nil {
		tileID = eg.LastDrawn.ID
	} else {
		t, ok := p.RightmostTile()
		if !ok {
			eg.damageRound(fmt.Sprintf("座位 %d 超时且无牌可打", seat))
			return
		}
		tileID = t.ID
	}
	if err := eg.internalDiscard(seat, tileID); err != nil {
		eg.damageRound(fmt.Sprintf("超时自动打牌失败: %v", err))
	}
}

// applyAIThink 思考延迟到点，确认仍轮到该电脑才执行
func (eg *XiangqiMahjong4p) applyAIThink() {
	pend := eg.aiPending
	eg.aiPending = nil
	if pend == nil {
		return
	}
	seat := pend.Seat
	p := eg.Players[seat]
	if p == nil || p.IsHuman || eg.Current != seat {
		return
	}

	switch {
	case eg.Phase == PhasePlayerTurnStart:
		if kind, ok := eg.ai.PreDraw(p); ok {
			if err := eg.internalAnGang(seat, kind); err == nil {
				return
			}
		}
		if !eg.internalDraw(seat) {
			return
		}
		// 摸完再想一拍，决定自摸/杠/打牌
		eg.scheduleAIIfNeeded(seat)

	case eg.Phase.CanDiscard():
		act := eg.ai.SelfDrawn(p, eg.LastDrawn, eg.Discards)
		var err error
		switch act.Kind {
		case "hu":
			err = eg.internalSelfHu(seat)
		case "angang":
			err = eg.internalAnGang(seat, act.GangKind)
		case "addgang":
			err = eg.internalAddGang(seat, act.GangKind)
		default:
			err = eg.internalDiscard(seat, act.Discard.ID)
		}
		if err != nil {
			// AI 给出的内容不合法：降级为打最右一张
			log.Warn("房间 %s AI 座位 %d 动作失败(%v)，强制打牌", eg.RoomID, seat, err)
			if t, ok := p.RightmostTile(); ok {
				_ = eg.internalDiscard(seat, t.ID)
			}
		}
	}
}

// ---------------------------------------------------------------- 杂项

func (eg *XiangqiMahjong4p) handleChatEvent(ev *share.ChatEvent) {
	seat := eg.seatByUserID(ev.GetUserID())
	if seat < 0 || ev.Text == "" {
		return
	}
	p := eg.Players[seat]
	eg.appendLog(fmt.Sprintf("%s: %s", p.Name, ev.Text))
	eg.broadcastChat(seat, p.Name, ev.Text)
}

// guard 同座位短窗口内的重复提交拦截
func (eg *XiangqiMahjong4p) guard(seat int) bool {
	if seat < 0 || seat >= NumSeats {
		return false
	}
	now := time.Now()
	if now.Sub(eg.actionGuard[seat]) < resubmitGuardWindow {
		return false
	}
	eg.actionGuard[seat] = now
	return true
}

// watchEmptyRoom 离线人数变化时启停空房看门狗
func (eg *XiangqiMahjong4p) watchEmptyRoom() {
	if eg.onlineHumanCount() > 0 {
		if eg.emptyRoomArmed {
			eg.Timers.ClearEmptyRoom()
			eg.emptyRoomArmed = false
		}
		return
	}
	if eg.emptyRoomArmed {
		return
	}
	eg.armEmptyRoomWatchdog()
}

func (eg *XiangqiMahjong4p) armEmptyRoomWatchdog() {
	d := eg.secs(eg.Timeouts.EmptyRoomActiveSeconds)
	if eg.MatchOver || eg.Phase == PhaseGameOver {
		d = eg.secs(eg.Timeouts.EmptyRoomFinishedSeconds)
	}
	eg.Timers.StartEmptyRoom(d)
	eg.emptyRoomArmed = true
}

func (eg *XiangqiMahjong4p) secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// seats 非空座位，按座位号
func (eg *XiangqiMahjong4p) seats() []*PlayerImage {
	out := make([]*PlayerImage, 0, NumSeats)
	for s := 0; s < NumSeats; s++ {
		if eg.Players[s] != nil {
			out = append(out, eg.Players[s])
		}
	}
	return out
}

func (eg *XiangqiMahjong4p) seatByUserID(userID string) int {
	for _, p := range eg.seats() {
		if p.UserID == userID {
			return p.SeatIndex
		}
	}
	return -1
}

func (eg *XiangqiMahjong4p) lowestFreeSeat() int {
	for s := 0; s < NumSeats; s++ {
		if eg.Players[s] == nil {
			return s
		}
	}
	return -1
}

func (eg *XiangqiMahjong4p) hostSeat() int {
	for _, p := range eg.seats() {
		if p.IsHost {
			return p.SeatIndex
		}
	}
	return -1
}

func (eg *XiangqiMahjong4p) humanCount() int {
	n := 0
	for _, p := range eg.seats() {
		if p.IsHuman {
			n++
		}
	}
	return n
}

func (eg *XiangqiMahjong4p) onlineHumanCount() int {
	n := 0
	for _, p := range eg.seats() {
		if p.IsHuman && p.IsOnline {
			n++
		}
	}
	return n
}

func (eg *XiangqiMahjong4p) seatCount() int {
	return len(eg.seats())
}

// matchActive 比赛是否处于进行态（发牌到结算之间的任何阶段）
func (eg *XiangqiMahjong4p) matchActive() bool {
	return eg.State == engines.GameInProgress && !eg.MatchOver
}

// roundActive 局内阶段（墙钟流局只在这些阶段有意义）
func (eg *XiangqiMahjong4p) roundActive() bool {
	switch eg.Phase {
	case PhaseDealing, PhasePlayerTurnStart, PhasePlayerDrawn, PhaseAwaitingDiscard,
		PhaseTileDiscarded, PhaseAwaitingClaims, PhaseClaimsResolution, PhaseChiChoice:
		return true
	}
	return false
}

func (eg *XiangqiMahjong4p) scores() [NumSeats]int {
	var out [NumSeats]int
	for s := 0; s < NumSeats; s++ {
		if eg.Players[s] != nil {
			out[s] = eg.Players[s].Score
		}
	}
	return out
}

func (eg *XiangqiMahjong4p) playerInfos() []RecordPlayer {
	out := make([]RecordPlayer, 0, NumSeats)
	for _, p := range eg.seats() {
		out = append(out, RecordPlayer{UserID: p.UserID, Name: p.Name, Seat: p.SeatIndex, IsHuman: p.IsHuman})
	}
	return out
}

func (eg *XiangqiMahjong4p) flushMatchRecord() {
	if eg.Persister != nil {
		eg.Persister.FlushAsync(eg.scores())
	}
}

func (eg *XiangqiMahjong4p) appendLog(text string) {
	limit := 64
	if eg.Worker != nil && eg.Worker.MaxLogEntries > 0 {
		limit = eg.Worker.MaxLogEntries
	}
	eg.msgLog = append(eg.msgLog, text)
	if len(eg.msgLog) > limit {
		eg.msgLog = eg.msgLog[len(eg.msgLog)-limit:]
	}
}

func (eg *XiangqiMahjong4p) notifyRoomChanged() {
	if eg.Worker != nil {
		eg.Worker.NotifyRoomChanged()
	}
}

func (eg *XiangqiMahjong4p) refreshSummary() {
	eg.summaryMu.Lock()
	defer eg.summaryMu.Unlock()
	eg.summary = engines.Summary{
		Phase:        eg.Phase.String(),
		SeatsTaken:   eg.seatCount(),
		Humans:       eg.humanCount(),
		OnlineHumans: eg.onlineHumanCount(),
		Started:      eg.State == engines.GameInProgress,
	}
}

// Snapshot 房间目录用的概要
func (eg *XiangqiMahjong4p) Snapshot() engines.Summary {
	eg.summaryMu.Lock()
	defer eg.summaryMu.Unlock()
	return eg.summary
}

// Clone 克隆引擎实例（原型模式）
func (eg *XiangqiMahjong4p) Clone() engines.Engine {
	return NewXiangqiMahjong4p(eg.Worker, eg.Timeouts, eg.Rules)
}

// Terminate 请求销毁房间（异步）
func (eg *XiangqiMahjong4p) Terminate() {
	if eg.Worker == nil || eg.RoomID == "" {
		return
	}
	eg.Worker.RequestDestroyRoom(eg.RoomID)
}

// Close 释放引擎内部资源
func (eg *XiangqiMahjong4p) Close() {
	eg.closeOnce.Do(func() {
		eg.closed.Store(true)
		if eg.gameDone != nil {
			close(eg.gameDone)
		}
		if eg.actorExit != nil {
			<-eg.actorExit
		}

		eg.State = engines.GameFinished
		if eg.Timers != nil {
			eg.Timers.StopAll()
		}
		eg.Claims = nil
		eg.aiPending = nil
		eg.Players = [NumSeats]*PlayerImage{}
		eg.Worker = nil
	})
}
