package mahjong

import "testing"

func TestBaselineScoreDiscardWin(t *testing.T) {
	delta := BaselineScore(RoundResult{
		Winners:   []int{2},
		WinType:   WinTypeDiscard,
		Discarder: 0,
	})
	want := [NumSeats]int{-100, 0, 100, 0}
	if delta != want {
		t.Fatalf("点炮结算错误: got %v want %v", delta, want)
	}
}

func TestBaselineScoreMultiRon(t *testing.T) {
	delta := BaselineScore(RoundResult{
		Winners:   []int{2, 3},
		WinType:   WinTypeDiscard,
		Discarder: 1,
	})
	want := [NumSeats]int{0, -200, 100, 100}
	if delta != want {
		t.Fatalf("一炮双响结算错误: got %v want %v", delta, want)
	}
}

func TestBaselineScoreSelfDrawn(t *testing.T) {
	delta := BaselineScore(RoundResult{
		Winners:   []int{0},
		WinType:   WinTypeSelfDrawn,
		Discarder: -1,
	})
	want := [NumSeats]int{600, -200, -200, -200}
	if delta != want {
		t.Fatalf("自摸结算错误: got %v want %v", delta, want)
	}

	total := 0
	for _, d := range delta {
		total += d
	}
	if total != 0 {
		t.Fatalf("结算应零和: %d", total)
	}
}

func TestBaselineScoreDrawGame(t *testing.T) {
	delta := BaselineScore(RoundResult{DrawGame: true, Discarder: -1})
	if delta != ([NumSeats]int{}) {
		t.Fatalf("流局不动分: %v", delta)
	}
}
