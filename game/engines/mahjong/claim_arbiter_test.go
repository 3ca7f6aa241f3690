package mahjong

import (
	"testing"

	"xiangqi-mahjong/game/share"
)

func alwaysValidHu(int) bool { return true }

func TestClaimRoundCollection(t *testing.T) {
	tile := tk(RedChariot)
	cr := NewClaimRound(0, tile)
	cr.Eligible[1] = &SeatEligibility{CanPeng: true}
	cr.Eligible[3] = &SeatEligibility{CanHu: true}

	if cr.AllResponded() {
		t.Fatalf("还没人响应")
	}
	if !cr.Submit(1, &ClaimSubmission{Decision: share.ClaimPass}) {
		t.Fatalf("首次提交应成功")
	}
	if cr.Submit(1, &ClaimSubmission{Decision: share.ClaimPeng, Kind: tile.Kind}) {
		t.Fatalf("重复提交应被拒")
	}
	if cr.Submit(2, &ClaimSubmission{Decision: share.ClaimPass}) {
		t.Fatalf("无资格座位提交应被拒")
	}

	filled := cr.FillPasses()
	if len(filled) != 1 || filled[0] != 3 {
		t.Fatalf("截止补过应只补座位 3, got %v", filled)
	}
	if !cr.AllResponded() {
		t.Fatalf("补过后应全部响应")
	}
}

// 同一提交集合，仲裁结果与提交顺序无关
func TestResolveDeterministic(t *testing.T) {
	tile := tk(RedChariot)
	build := func(order []int) Resolution {
		cr := NewClaimRound(0, tile)
		cr.Eligible[1] = &SeatEligibility{ChiOptions: [][2]Tile{{tk(RedHorse), tk(RedCannon)}}}
		cr.Eligible[2] = &SeatEligibility{CanPeng: true}
		subs := map[int]*ClaimSubmission{
			1: {Decision: share.ClaimChi, Kind: tile.Kind, Combo: cr.Eligible[1].ChiOptions[0]},
			2: {Decision: share.ClaimPeng, Kind: tile.Kind},
		}
		for _, s := range order {
			cr.Submit(s, subs[s])
		}
		return cr.Resolve(alwaysValidHu, nil)
	}

	a := build([]int{1, 2})
	b := build([]int{2, 1})
	if a.Kind != b.Kind || a.Seat != b.Seat {
		t.Fatalf("仲裁应与到达顺序无关: %+v vs %+v", a, b)
	}
	// 碰压过吃
	if a.Kind != ResolvePeng || a.Seat != 2 {
		t.Fatalf("碰应胜出, got %+v", a)
	}
}

func TestResolveMultiRon(t *testing.T) {
	tile := tk(BlackGeneral)
	cr := NewClaimRound(1, tile)
	cr.Eligible[2] = &SeatEligibility{CanHu: true}
	cr.Eligible[3] = &SeatEligibility{CanHu: true, CanPeng: true}
	cr.Submit(3, &ClaimSubmission{Decision: share.ClaimHu})
	cr.Submit(2, &ClaimSubmission{Decision: share.ClaimHu})

	res := cr.Resolve(alwaysValidHu, nil)
	if res.Kind != ResolveHu {
		t.Fatalf("应判和, got %+v", res)
	}
	if len(res.HuSeats) != 2 || res.HuSeats[0] != 2 || res.HuSeats[1] != 3 {
		t.Fatalf("两家都应赢且按座位序, got %v", res.HuSeats)
	}
}

// 诈和降级后继续按下一优先级裁决
func TestResolveFalseHuDowngrade(t *testing.T) {
	tile := tk(BlackCannon)
	cr := NewClaimRound(0, tile)
	cr.Eligible[1] = &SeatEligibility{CanHu: true}
	cr.Eligible[2] = &SeatEligibility{CanPeng: true}
	cr.Submit(1, &ClaimSubmission{Decision: share.ClaimHu})
	cr.Submit(2, &ClaimSubmission{Decision: share.ClaimPeng, Kind: tile.Kind})

	invalidated := 0
	res := cr.Resolve(func(int) bool { return false }, func(seat int, decision string) {
		invalidated++
		if seat != 1 || decision != share.ClaimHu {
			t.Fatalf("降级对象错误: seat=%d decision=%s", seat, decision)
		}
	})
	if invalidated != 1 {
		t.Fatalf("应降级一次, got %d", invalidated)
	}
	if res.Kind != ResolvePeng || res.Seat != 2 {
		t.Fatalf("降级后碰应胜出, got %+v", res)
	}
}

func TestResolveGangBeatsPeng(t *testing.T) {
	tile := tk(RedSoldier)
	cr := NewClaimRound(3, tile)
	cr.Eligible[0] = &SeatEligibility{CanGang: true, CanPeng: true}
	cr.Eligible[1] = &SeatEligibility{CanPeng: true}
	cr.Submit(0, &ClaimSubmission{Decision: share.ClaimGang, Kind: tile.Kind})
	cr.Submit(1, &ClaimSubmission{Decision: share.ClaimPeng, Kind: tile.Kind})

	res := cr.Resolve(alwaysValidHu, nil)
	if res.Kind != ResolveGang || res.Seat != 0 {
		t.Fatalf("杠应胜出, got %+v", res)
	}
}

func TestResolveAllPass(t *testing.T) {
	tile := tk(RedSoldier)
	cr := NewClaimRound(2, tile)
	cr.Eligible[0] = &SeatEligibility{CanPeng: true}
	cr.Submit(0, &ClaimSubmission{Decision: share.ClaimPass})

	res := cr.Resolve(alwaysValidHu, nil)
	if res.Kind != ResolveAllPass {
		t.Fatalf("全过, got %+v", res)
	}
}
