package mahjong

import (
	"xiangqi-mahjong/game/share"
)

// AIService 电脑玩家决策，确定性启发式，不做搜索
type AIService struct{}

func NewAIService() *AIService {
	return &AIService{}
}

// PreDraw 摸牌前的决策：手里已有四张则暗杠，否则摸牌
func (ai *AIService) PreDraw(p *PlayerImage) (TileKind, bool) {
	kinds := CanAnGang(p.Tiles, nil)
	if len(kinds) > 0 {
		return kinds[0], true
	}
	return KindNone, false
}

// SelfDrawnAction 摸牌后的决策结果
type SelfDrawnAction struct {
	Kind     string // "hu" | "angang" | "addgang" | "discard"
	GangKind TileKind
	Discard  Tile
}

// SelfDrawn 摸牌后按序考虑：自摸 > 暗杠（用上摸牌）> 加杠 > 打牌
// drawn 为 nil 表示碰吃之后的轮次，只做打牌选择
func (ai *AIService) SelfDrawn(p *PlayerImage, drawn *Tile, discards []DiscardEntry) SelfDrawnAction {
	if drawn != nil {
		full := append(append([]Tile{}, p.Tiles...), *drawn)
		if CheckWin(full, p.Melds) {
			return SelfDrawnAction{Kind: "hu"}
		}
		if kinds := CanAnGang(p.Tiles, drawn); len(kinds) > 0 {
			return SelfDrawnAction{Kind: "angang", GangKind: kinds[0]}
		}
		if kinds := CanAddGang(p.Melds, drawn); len(kinds) > 0 {
			return SelfDrawnAction{Kind: "addgang", GangKind: kinds[0]}
		}
		return SelfDrawnAction{Kind: "discard", Discard: ai.DiscardChoice(full, discards)}
	}
	return SelfDrawnAction{Kind: "discard", Discard: ai.DiscardChoice(p.Tiles, discards)}
}

// ClaimDecision 对弃牌的响应：取可行项里优先级最高的
func (ai *AIService) ClaimDecision(elig *SeatEligibility, discard Tile) *ClaimSubmission {
	switch {
	case elig.CanHu:
		return &ClaimSubmission{Decision: share.ClaimHu}
	case elig.CanGang:
		return &ClaimSubmission{Decision: share.ClaimGang, Kind: discard.Kind}
	case elig.CanPeng:
		return &ClaimSubmission{Decision: share.ClaimPeng, Kind: discard.Kind}
	case len(elig.ChiOptions) > 0:
		return &ClaimSubmission{Decision: share.ClaimChi, Kind: discard.Kind, Combo: elig.ChiOptions[0]}
	default:
		return &ClaimSubmission{Decision: share.ClaimPass}
	}
}

// DiscardChoice 给每张牌打分，打出分数最低的
// 平分时先比序值，再让非定式组（兵卒）先走
func (ai *AIService) DiscardChoice(hand []Tile, discards []DiscardEntry) Tile {
	if len(hand) == 0 {
		return Tile{Kind: KindNone, ID: -1}
	}
	best := hand[0]
	bestScore := DiscardScore(hand[0], hand, discards)
	for _, t := range hand[1:] {
		s := DiscardScore(t, hand, discards)
		if s < bestScore || (s == bestScore && discardTieLess(t, best)) {
			best = t
			bestScore = s
		}
	}
	return best
}

func discardTieLess(a, b Tile) bool {
	if a.Kind.Order() != b.Kind.Order() {
		return a.Kind.Order() < b.Kind.Order()
	}
	// 非定式组优先弃
	return !InAnyRun(a.Kind) && InAnyRun(b.Kind)
}

// DiscardScore 弃牌打分，分数越低越该打出
func DiscardScore(tile Tile, hand []Tile, discards []DiscardEntry) int {
	score := 0

	// 手内重复：单张最好打，成对/成刻/成杠逐级加价
	switch CountKind(hand, tile.Kind) {
	case 1:
		// 单张不加分
	case 2:
		score += 5
	case 3:
		score += 15
	default:
		score += 25
	}

	// 有搭子潜力的定式牌
	if hasRunPotential(tile.Kind, hand) {
		score += 8
	}

	// 基础价值
	score += 2 * tile.Kind.Order()

	seen := 0
	for _, d := range discards {
		if d.Tile.Kind == tile.Kind {
			seen++
		}
	}

	// 危险度：定式中间位最危险，弃牌堆里出现越多越安全
	central := 1
	if InAnyRun(tile.Kind) {
		central = 2
		if IsRunMiddle(tile.Kind) {
			central = 3
		}
	}
	danger := central - seen
	if danger < 0 {
		danger = 0
	}
	score += 2 * danger

	// 安全折扣
	score -= 3 * seen

	return score
}

// hasRunPotential 手里是否存在同定式的其他牌种
func hasRunPotential(kind TileKind, hand []Tile) bool {
	for _, run := range RunsContaining(kind) {
		for _, k := range run {
			if k == kind {
				continue
			}
			if CountKind(hand, k) > 0 {
				return true
			}
		}
	}
	return false
}
