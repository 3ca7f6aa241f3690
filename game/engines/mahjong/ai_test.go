package mahjong

import (
	"testing"

	"xiangqi-mahjong/game/share"
)

func TestDiscardScoreDuplicates(t *testing.T) {
	single := hand(RedSoldier, BlackGeneral)
	pair := hand(RedSoldier, RedSoldier, BlackGeneral)

	s1 := DiscardScore(single[0], single, nil)
	s2 := DiscardScore(pair[0], pair, nil)
	if s2 <= s1 {
		t.Fatalf("成对的牌应比单张更舍不得: single=%d pair=%d", s1, s2)
	}
}

func TestDiscardScoreSafety(t *testing.T) {
	h := hand(BlackHorse, RedSoldier)
	fresh := DiscardScore(h[0], h, nil)
	discards := []DiscardEntry{
		{Tile: tk(BlackHorse), Seat: 1},
		{Tile: tk(BlackHorse), Seat: 2},
	}
	seen := DiscardScore(h[0], h, discards)
	if seen >= fresh {
		t.Fatalf("弃牌堆里出现过的牌应更安全: fresh=%d seen=%d", fresh, seen)
	}
}

func TestDiscardChoicePrefersLoneSoldier(t *testing.T) {
	ai := NewAIService()
	// 孤张兵 vs 成对将：应打兵
	h := hand(BlackGeneral, BlackGeneral, RedSoldier)
	choice := ai.DiscardChoice(h, nil)
	if choice.Kind != RedSoldier {
		t.Fatalf("应打孤张兵, got %v", choice.Kind)
	}
}

func TestClaimDecisionPriority(t *testing.T) {
	ai := NewAIService()
	discard := tk(RedChariot)

	elig := &SeatEligibility{CanHu: true, CanGang: true, CanPeng: true}
	if sub := ai.ClaimDecision(elig, discard); sub.Decision != share.ClaimHu {
		t.Fatalf("能和必和, got %s", sub.Decision)
	}

	elig = &SeatEligibility{CanGang: true, CanPeng: true}
	if sub := ai.ClaimDecision(elig, discard); sub.Decision != share.ClaimGang || sub.Kind != RedChariot {
		t.Fatalf("杠优于碰, got %+v", sub)
	}

	elig = &SeatEligibility{CanPeng: true}
	if sub := ai.ClaimDecision(elig, discard); sub.Decision != share.ClaimPeng {
		t.Fatalf("应碰, got %s", sub.Decision)
	}

	combo := [2]Tile{tk(RedHorse), tk(RedCannon)}
	elig = &SeatEligibility{ChiOptions: [][2]Tile{combo}}
	sub := ai.ClaimDecision(elig, discard)
	if sub.Decision != share.ClaimChi || sub.Combo != combo {
		t.Fatalf("应吃第一组, got %+v", sub)
	}

	elig = &SeatEligibility{}
	if sub := ai.ClaimDecision(elig, discard); sub.Decision != share.ClaimPass {
		t.Fatalf("无可选应过, got %s", sub.Decision)
	}
}

func TestAISelfDrawnOrder(t *testing.T) {
	ai := NewAIService()

	// 自摸优先
	p := NewAIPlayer("ai", "电脑", 0)
	p.Tiles = hand(
		RedGeneral, RedGeneral, RedGeneral,
		BlackChariot, BlackHorse, BlackCannon,
		RedSoldier,
	)
	drawn := tk(RedSoldier)
	act := ai.SelfDrawn(p, &drawn, nil)
	if act.Kind != "hu" {
		t.Fatalf("成和应自摸, got %s", act.Kind)
	}

	// 摸成四张应暗杠
	p2 := NewAIPlayer("ai", "电脑", 1)
	p2.Tiles = hand(BlackCannon, BlackCannon, BlackCannon, RedSoldier, RedGeneral, RedGeneral, BlackSoldier)
	drawn2 := tk(BlackCannon)
	act2 := ai.SelfDrawn(p2, &drawn2, nil)
	if act2.Kind != "angang" || act2.GangKind != BlackCannon {
		t.Fatalf("应暗杠砲, got %+v", act2)
	}

	// 无特殊动作则选一张打
	p3 := NewAIPlayer("ai", "电脑", 2)
	p3.Tiles = hand(RedGeneral, BlackSoldier, RedSoldier)
	drawn3 := tk(BlackElephant)
	act3 := ai.SelfDrawn(p3, &drawn3, nil)
	if act3.Kind != "discard" || act3.Discard.ID == 0 {
		t.Fatalf("应选择打牌, got %+v", act3)
	}

	// 碰吃后的轮次（无摸牌）只做打牌选择
	act4 := ai.SelfDrawn(p3, nil, nil)
	if act4.Kind != "discard" {
		t.Fatalf("无摸牌应直接打牌, got %+v", act4)
	}
}

func TestAIPreDrawAnGang(t *testing.T) {
	ai := NewAIService()
	p := NewAIPlayer("ai", "电脑", 0)
	p.Tiles = hand(RedElephant, RedElephant, RedElephant, RedElephant, BlackSoldier)
	kind, ok := ai.PreDraw(p)
	if !ok || kind != RedElephant {
		t.Fatalf("四张相应暗杠, got %v %v", kind, ok)
	}

	p.Tiles = hand(RedElephant, RedElephant, RedElephant, BlackSoldier)
	if _, ok := ai.PreDraw(p); ok {
		t.Fatalf("三张不该暗杠")
	}
}
