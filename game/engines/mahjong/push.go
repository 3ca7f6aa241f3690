package mahjong

// 推送场景：
// 1. 全量局面投影（每个动作处理完广播一次，按座位脱敏）
// 2. 动作播报（打牌、鸣牌、和牌的短提示）
// 3. 错误提示（只发给动作发起者）
// 4. 房间聊天

const (
	RouteGameState  = "game.state"
	RouteGameAction = "game.action"
	RouteGameError  = "game.error"
	RouteRoomChat   = "room.chat"
)

type TileDTO struct {
	Kind int    `json:"kind"`
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// HiddenTile 看不见的牌的占位
var HiddenTile = TileDTO{Kind: -1, ID: -1, Name: "背"}

func toTileDTO(t Tile) TileDTO {
	return TileDTO{Kind: int(t.Kind), ID: t.ID, Name: t.Kind.String()}
}

type MeldDTO struct {
	Type          string    `json:"type"`
	Tiles         []TileDTO `json:"tiles"`
	Open          bool      `json:"open"`
	From          int       `json:"from"`
	ClaimedTileID int       `json:"claimedTileID"`
}

func toMeldDTO(m Meld, revealClosed bool) MeldDTO {
	dto := MeldDTO{
		Type:          string(m.Type),
		Open:          m.Open,
		From:          m.From,
		ClaimedTileID: m.ClaimedTileID,
		Tiles:         make([]TileDTO, 0, len(m.Tiles)),
	}
	for _, t := range m.Tiles {
		if !m.Open && !revealClosed {
			dto.Tiles = append(dto.Tiles, HiddenTile)
		} else {
			dto.Tiles = append(dto.Tiles, toTileDTO(t))
		}
	}
	return dto
}

type SeatDTO struct {
	Seat      int       `json:"seat"`
	Name      string    `json:"name"`
	IsHuman   bool      `json:"isHuman"`
	IsOnline  bool      `json:"isOnline"`
	IsDealer  bool      `json:"isDealer"`
	IsHost    bool      `json:"isHost"`
	Score     int       `json:"score"`
	HandCount int       `json:"handCount"`
	Hand      []TileDTO `json:"hand"`
	Melds     []MeldDTO `json:"melds"`
	Responded bool      `json:"responded"` // 鸣牌收集期是否已表态
}

type DiscardDTO struct {
	Tile TileDTO `json:"tile"`
	Seat int     `json:"seat"`
}

type TimerDTO struct {
	Kind      string `json:"kind"`
	Remaining int    `json:"remaining"`
}

type ClaimOfferDTO struct {
	CanHu      bool        `json:"canHu"`
	CanGang    bool        `json:"canGang"`
	CanPeng    bool        `json:"canPeng"`
	ChiOptions [][]TileDTO `json:"chiOptions,omitempty"`
}

type GameStateDTO struct {
	RoomID        string       `json:"roomID"`
	Phase         string       `json:"phase"`
	Current       int          `json:"current"`
	Dealer        int          `json:"dealer"`
	TurnNumber    int          `json:"turnNumber"`
	DeckRemaining int          `json:"deckRemaining"`
	Seats         []*SeatDTO   `json:"seats"`
	Discards      []DiscardDTO `json:"discards"`

	LastDrawn     *TileDTO `json:"lastDrawn,omitempty"` // 只发给持牌座位
	HasDrawnTile  bool     `json:"hasDrawnTile"`
	LastDiscard   *TileDTO `json:"lastDiscard,omitempty"`
	LastDiscarder int      `json:"lastDiscarder"`

	ActiveTimer *TimerDTO      `json:"activeTimer,omitempty"`
	ClaimOffer  *ClaimOfferDTO `json:"claimOffer,omitempty"` // 只发给有资格的座位
	ChiDecider  int            `json:"chiDecider"`           // 可吃的下家座位，无则 -1

	Winners      []int  `json:"winners,omitempty"`
	WinType      string `json:"winType,omitempty"`
	WinDiscarder int    `json:"winDiscarder"`
	DrawGame     bool   `json:"drawGame"`

	RoundIndex  int            `json:"roundIndex"`
	TotalRounds int            `json:"totalRounds"`
	MatchOver   bool           `json:"matchOver"`
	Rematch     map[int]bool   `json:"rematchVotes,omitempty"`
	HostName    string         `json:"hostName"`
	RoomName    string         `json:"roomName"`
	Rounds      int            `json:"configRounds"`
	MessageLog  []string       `json:"messageLog"`
	ViewerSeat  int            `json:"viewerSeat"`
}

// buildStateFor 生成某座位视角的投影
// 手牌只对本人可见；ROUND_OVER / 再战投票 / GAME_OVER 全员摊牌
func (eg *XiangqiMahjong4p) buildStateFor(viewer int) *GameStateDTO {
	reveal := eg.Phase.HandsVisible()

	st := &GameStateDTO{
		RoomID:        eg.RoomID,
		Phase:         eg.Phase.String(),
		Current:       eg.Current,
		Dealer:        eg.Dealer,
		TurnNumber:    eg.TurnNum,
		DeckRemaining: eg.Deck.Remaining(),
		Seats:         make([]*SeatDTO, 0, NumSeats),
		Discards:      make([]DiscardDTO, 0, len(eg.Discards)),
		LastDiscarder: -1,
		ChiDecider:    eg.ChiDecider,
		WinDiscarder:  eg.WinDiscarder,
		Winners:       eg.Winners,
		WinType:       eg.WinType,
		DrawGame:      eg.DrawGame,
		RoundIndex:    eg.RoundIndex,
		TotalRounds:   eg.TotalRounds,
		MatchOver:     eg.MatchOver,
		RoomName:      eg.RoomCfg.Name,
		Rounds:        eg.TotalRounds,
		MessageLog:    eg.msgLog,
		ViewerSeat:    viewer,
	}

	for s := 0; s < NumSeats; s++ {
		p := eg.Players[s]
		if p == nil {
			continue
		}
		seat := &SeatDTO{
			Seat:      s,
			Name:      p.Name,
			IsHuman:   p.IsHuman,
			IsOnline:  p.IsOnline,
			IsDealer:  p.IsDealer,
			IsHost:    p.IsHost,
			Score:     p.Score,
			HandCount: len(p.Tiles),
			Responded: p.HasResponded,
			Hand:      make([]TileDTO, 0, len(p.Tiles)),
			Melds:     make([]MeldDTO, 0, len(p.Melds)),
		}
		own := s == viewer
		for _, t := range p.Tiles {
			if own || reveal {
				seat.Hand = append(seat.Hand, toTileDTO(t))
			} else {
				seat.Hand = append(seat.Hand, HiddenTile)
			}
		}
		for _, m := range p.Melds {
			seat.Melds = append(seat.Melds, toMeldDTO(m, own || reveal))
		}
		if p.IsHost {
			st.HostName = p.Name
		}
		st.Seats = append(st.Seats, seat)
	}

	for _, d := range eg.Discards {
		st.Discards = append(st.Discards, DiscardDTO{Tile: toTileDTO(d.Tile), Seat: d.Seat})
	}

	if eg.LastDrawn != nil {
		st.HasDrawnTile = true
		if viewer == eg.Current || reveal {
			t := toTileDTO(*eg.LastDrawn)
			st.LastDrawn = &t
		}
	}
	if eg.lastDiscard.Valid {
		t := toTileDTO(eg.lastDiscard.Tile)
		st.LastDiscard = &t
		st.LastDiscarder = eg.lastDiscard.Seat
	}

	if kind, remain, ok := eg.Timers.FamilyState(); ok {
		st.ActiveTimer = &TimerDTO{Kind: kind.String(), Remaining: remain}
	}

	// 响应资格只发给本座位，避免从选项反推手牌
	if eg.Claims != nil {
		if elig, ok := eg.Claims.Eligible[viewer]; ok {
			offer := &ClaimOfferDTO{
				CanHu:   elig.CanHu,
				CanGang: elig.CanGang,
				CanPeng: elig.CanPeng,
			}
			for _, combo := range elig.ChiOptions {
				offer.ChiOptions = append(offer.ChiOptions, []TileDTO{toTileDTO(combo[0]), toTileDTO(combo[1])})
			}
			st.ClaimOffer = offer
		}
	}

	if eg.Phase == PhaseAwaitingRematchVotes {
		st.Rematch = eg.rematchVotes
	}

	return st
}

// broadcastState 给每个在线真人推各自视角的全量投影
func (eg *XiangqiMahjong4p) broadcastState() {
	if eg.Worker == nil {
		return
	}
	for _, p := range eg.seats() {
		if !p.IsHuman || !p.IsOnline || p.ConnID == "" {
			continue
		}
		eg.Worker.PushToConn(p.ConnID, RouteGameState, eg.buildStateFor(p.SeatIndex))
	}
}

type actionAnnouncement struct {
	Seat   int      `json:"seat"`
	Action string   `json:"action"`
	Tile   *TileDTO `json:"tile,omitempty"`
}

// announce 动作播报（所有在线真人可见的短提示）
func (eg *XiangqiMahjong4p) announce(seat int, action string, tile any) {
	if eg.Worker == nil {
		return
	}
	msg := actionAnnouncement{Seat: seat, Action: action}
	if t, ok := tile.(Tile); ok {
		dto := toTileDTO(t)
		msg.Tile = &dto
	}
	for _, p := range eg.seats() {
		if p.IsHuman && p.IsOnline && p.ConnID != "" {
			eg.Worker.PushToConn(p.ConnID, RouteGameAction, msg)
		}
	}
}

func (eg *XiangqiMahjong4p) announceMany(seatList []int, action string, tile Tile) {
	for _, s := range seatList {
		eg.announce(s, action, tile)
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

// pushError 校验失败只告知发起者，房间状态保持不变
func (eg *XiangqiMahjong4p) pushError(seat int, err error) {
	if eg.Worker == nil || seat < 0 || eg.Players[seat] == nil {
		return
	}
	p := eg.Players[seat]
	if !p.IsHuman || p.ConnID == "" {
		return
	}
	eg.Worker.PushToConn(p.ConnID, RouteGameError, errorPayload{Message: err.Error()})
}

func (eg *XiangqiMahjong4p) pushErrorToConn(connID string, err error) {
	if eg.Worker == nil || connID == "" {
		return
	}
	eg.Worker.PushToConn(connID, RouteGameError, errorPayload{Message: err.Error()})
}

type chatPayload struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
	Text string `json:"text"`
}

func (eg *XiangqiMahjong4p) broadcastChat(seat int, name, text string) {
	if eg.Worker == nil {
		return
	}
	msg := chatPayload{Seat: seat, Name: name, Text: text}
	for _, p := range eg.seats() {
		if p.IsHuman && p.IsOnline && p.ConnID != "" {
			eg.Worker.PushToConn(p.ConnID, RouteRoomChat, msg)
		}
	}
}
