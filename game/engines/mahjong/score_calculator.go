package mahjong

import (
	"xiangqi-mahjong/common/utils"
)

const (
	BaseWinPoints       = 100 // 点炮底分
	SelfDrawnMultiplier = 6   // 自摸倍数
)

// ScoreFunc 结算钩子，输入回合结果，输出各座位分数增减
// 番种扩展只需要换掉这个函数
type ScoreFunc func(res RoundResult) [NumSeats]int

// BaselineScore 基础分数表
// 点炮：赢家 +100，放炮者 -100（一炮多响则对每个赢家各付一份）
// 自摸：赢家 +100×6，其余三家均摊（向上取整）
// 流局：不动分
func BaselineScore(res RoundResult) [NumSeats]int {
	var delta [NumSeats]int
	if res.DrawGame || len(res.Winners) == 0 {
		return delta
	}

	switch res.WinType {
	case WinTypeDiscard:
		for _, w := range res.Winners {
			delta[w] += BaseWinPoints
			if res.Discarder >= 0 {
				delta[res.Discarder] -= BaseWinPoints
			}
		}
	case WinTypeSelfDrawn:
		winner := res.Winners[0]
		pot := BaseWinPoints * SelfDrawnMultiplier
		share := utils.CeilDiv(pot, NumSeats-1)
		for s := 0; s < NumSeats; s++ {
			if s == winner {
				continue
			}
			delta[s] -= share
			delta[winner] += share
		}
	}
	return delta
}
