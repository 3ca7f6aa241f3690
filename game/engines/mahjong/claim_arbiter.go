package mahjong

import (
	"sort"

	"xiangqi-mahjong/game/share"
)

// ClaimRound 一张弃牌的响应收集与仲裁
// 收集期间不发生任何阶段迁移；仲裁只看提交集合本身，
// 与提交到达顺序无关（同集合必得同结果）
type ClaimRound struct {
	Discarder int
	Tile      Tile
	Eligible  map[int]*SeatEligibility
	Submitted map[int]*ClaimSubmission
}

func NewClaimRound(discarder int, tile Tile) *ClaimRound {
	return &ClaimRound{
		Discarder: discarder,
		Tile:      tile,
		Eligible:  make(map[int]*SeatEligibility),
		Submitted: make(map[int]*ClaimSubmission),
	}
}

// EligibleSeats 有资格响应的座位，升序
func (cr *ClaimRound) EligibleSeats() []int {
	seats := make([]int, 0, len(cr.Eligible))
	for s := range cr.Eligible {
		seats = append(seats, s)
	}
	sort.Ints(seats)
	return seats
}

func (cr *ClaimRound) IsEligible(seat int) bool {
	_, ok := cr.Eligible[seat]
	return ok
}

func (cr *ClaimRound) HasResponded(seat int) bool {
	_, ok := cr.Submitted[seat]
	return ok
}

// Submit 记录一个座位的决定，重复提交返回 false
func (cr *ClaimRound) Submit(seat int, sub *ClaimSubmission) bool {
	if !cr.IsEligible(seat) {
		return false
	}
	if cr.HasResponded(seat) {
		return false
	}
	cr.Submitted[seat] = sub
	return true
}

// AllResponded 所有有资格座位是否都已提交
func (cr *ClaimRound) AllResponded() bool {
	for s := range cr.Eligible {
		if !cr.HasResponded(s) {
			return false
		}
	}
	return true
}

// FillPasses 截止触发时把未响应的座位记为过
// 返回被补记的座位
func (cr *ClaimRound) FillPasses() []int {
	filled := make([]int, 0, len(cr.Eligible))
	for s := range cr.Eligible {
		if !cr.HasResponded(s) {
			cr.Submitted[s] = &ClaimSubmission{Decision: share.ClaimPass}
			filled = append(filled, s)
		}
	}
	sort.Ints(filled)
	return filled
}

type ResolutionKind int

const (
	ResolveAllPass ResolutionKind = iota
	ResolveHu
	ResolveGang
	ResolvePeng
	ResolveChi
)

// Resolution 仲裁结果
type Resolution struct {
	Kind    ResolutionKind
	HuSeats []int // 一炮多响时多个赢家
	Seat    int   // 杠/碰/吃 的执行座位
	Combo   [2]Tile
}

// Resolve 按优先级 Hu > Gang > Peng > Chi > Pass 仲裁
// validHu 复核和牌（诈和被降级为过并通过 onInvalid 通知）
// 遍历按座位号升序，结果与提交到达顺序无关
func (cr *ClaimRound) Resolve(validHu func(seat int) bool, onInvalid func(seat int, decision string)) Resolution {
	seats := cr.EligibleSeats()

	huSeats := make([]int, 0, 3)
	for _, s := range seats {
		sub := cr.Submitted[s]
		if sub == nil || sub.Decision != share.ClaimHu {
			continue
		}
		if !cr.Eligible[s].CanHu || !validHu(s) {
			if onInvalid != nil {
				onInvalid(s, share.ClaimHu)
			}
			continue
		}
		huSeats = append(huSeats, s)
	}
	if len(huSeats) > 0 {
		return Resolution{Kind: ResolveHu, HuSeats: huSeats}
	}

	for _, s := range seats {
		sub := cr.Submitted[s]
		if sub == nil || sub.Decision != share.ClaimGang {
			continue
		}
		// 一张弃牌至多一个座位能杠（牌数算术保证唯一）
		if !cr.Eligible[s].CanGang || sub.Kind != cr.Tile.Kind {
			if onInvalid != nil {
				onInvalid(s, share.ClaimGang)
			}
			continue
		}
		return Resolution{Kind: ResolveGang, Seat: s}
	}

	for _, s := range seats {
		sub := cr.Submitted[s]
		if sub == nil || sub.Decision != share.ClaimPeng {
			continue
		}
		if !cr.Eligible[s].CanPeng || sub.Kind != cr.Tile.Kind {
			if onInvalid != nil {
				onInvalid(s, share.ClaimPeng)
			}
			continue
		}
		return Resolution{Kind: ResolvePeng, Seat: s}
	}

	for _, s := range seats {
		sub := cr.Submitted[s]
		if sub == nil || sub.Decision != share.ClaimChi {
			continue
		}
		if len(cr.Eligible[s].ChiOptions) == 0 {
			if onInvalid != nil {
				onInvalid(s, share.ClaimChi)
			}
			continue
		}
		if _, ok := BuildShunzi(cr.Tile, sub.Combo, cr.Discarder); !ok {
			if onInvalid != nil {
				onInvalid(s, share.ClaimChi)
			}
			continue
		}
		return Resolution{Kind: ResolveChi, Seat: s, Combo: sub.Combo}
	}

	return Resolution{Kind: ResolveAllPass}
}
