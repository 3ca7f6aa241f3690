package mahjong

import (
	"testing"
)

var nextTestID = 1000

func tk(kind TileKind) Tile {
	nextTestID++
	return Tile{Kind: kind, ID: nextTestID}
}

func hand(kinds ...TileKind) []Tile {
	out := make([]Tile, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, tk(k))
	}
	return out
}

func TestCanPengAndGang(t *testing.T) {
	h := hand(RedChariot, RedChariot, BlackSoldier)
	if !CanPeng(h, tk(RedChariot)) {
		t.Fatalf("两张俥应可碰")
	}
	if CanPeng(h, tk(BlackSoldier)) {
		t.Fatalf("一张卒不可碰")
	}
	if CanMingGang(h, tk(RedChariot)) {
		t.Fatalf("两张俥不可明杠")
	}

	h = append(h, tk(RedChariot))
	if !CanMingGang(h, tk(RedChariot)) {
		t.Fatalf("三张俥应可明杠")
	}
}

func TestCanAnGang(t *testing.T) {
	h := hand(RedHorse, RedHorse, RedHorse, BlackCannon)
	if kinds := CanAnGang(h, nil); len(kinds) != 0 {
		t.Fatalf("三张傌不够暗杠, got %v", kinds)
	}
	drawn := tk(RedHorse)
	kinds := CanAnGang(h, &drawn)
	if len(kinds) != 1 || kinds[0] != RedHorse {
		t.Fatalf("手三张加摸牌应可暗杠傌, got %v", kinds)
	}
}

func TestCanAddGang(t *testing.T) {
	melds := []Meld{
		{Type: MeldKezi, Open: true, Tiles: hand(BlackElephant, BlackElephant, BlackElephant), From: 2},
		{Type: MeldShunzi, Open: true, Tiles: hand(RedGeneral, RedAdvisor, RedElephant), From: 1},
	}
	drawn := tk(BlackElephant)
	kinds := CanAddGang(melds, &drawn)
	if len(kinds) != 1 || kinds[0] != BlackElephant {
		t.Fatalf("摸到象应可加杠, got %v", kinds)
	}
	other := tk(RedGeneral)
	if kinds := CanAddGang(melds, &other); len(kinds) != 0 {
		t.Fatalf("顺子不可加杠, got %v", kinds)
	}
	if kinds := CanAddGang(melds, nil); kinds != nil {
		t.Fatalf("无摸牌不可加杠")
	}
}

func TestChiOptions(t *testing.T) {
	// 手里有 仕+相，弃 帅 可吃
	h := hand(RedAdvisor, RedElephant, BlackSoldier)
	opts := ChiOptions(h, tk(RedGeneral))
	if len(opts) != 1 {
		t.Fatalf("应有一组吃, got %d", len(opts))
	}
	got := map[TileKind]bool{opts[0][0].Kind: true, opts[0][1].Kind: true}
	if !got[RedAdvisor] || !got[RedElephant] {
		t.Fatalf("吃的组合应为 仕+相, got %v", opts[0])
	}

	// 中间位弃牌：缺一门不可吃
	h = hand(RedGeneral, BlackSoldier)
	if opts := ChiOptions(h, tk(RedAdvisor)); len(opts) != 0 {
		t.Fatalf("缺相不可吃, got %v", opts)
	}

	// 兵卒不参与定式
	h = hand(RedSoldier, RedSoldier)
	if opts := ChiOptions(h, tk(RedSoldier)); len(opts) != 0 {
		t.Fatalf("兵不可吃")
	}

	// 跨色不可吃
	h = hand(BlackAdvisor, BlackElephant)
	if opts := ChiOptions(h, tk(RedGeneral)); len(opts) != 0 {
		t.Fatalf("红帅不能配黑士象")
	}
}

func TestBuildShunzi(t *testing.T) {
	claimed := tk(RedHorse)
	a, b := tk(RedChariot), tk(RedCannon)
	meld, ok := BuildShunzi(claimed, [2]Tile{a, b}, 3)
	if !ok {
		t.Fatalf("俥傌炮应成定式")
	}
	if meld.Type != MeldShunzi || !meld.Open {
		t.Fatalf("顺子属性错误: %+v", meld)
	}
	// 定式顺序：俥 傌 炮，被鸣的傌落在中间
	if meld.Tiles[0].Kind != RedChariot || meld.Tiles[1].Kind != RedHorse || meld.Tiles[2].Kind != RedCannon {
		t.Fatalf("定式顺序错误: %v", meld.Tiles)
	}
	if meld.ClaimedTileID != claimed.ID || meld.From != 3 {
		t.Fatalf("鸣牌来源记录错误: %+v", meld)
	}

	if _, ok := BuildShunzi(tk(RedSoldier), [2]Tile{tk(RedGeneral), tk(RedAdvisor)}, 0); ok {
		t.Fatalf("兵不应组成定式")
	}
}

func TestCheckWinStandardForm(t *testing.T) {
	// 8 张无副露：刻子 + 定式 + 对子
	h := hand(
		RedGeneral, RedGeneral, RedGeneral,
		BlackChariot, BlackHorse, BlackCannon,
		RedSoldier, RedSoldier,
	)
	if !CheckWin(h, nil) {
		t.Fatalf("两面子一对应成和")
	}

	// 差一张
	h2 := hand(
		RedGeneral, RedGeneral, RedGeneral,
		BlackChariot, BlackHorse, BlackCannon,
		RedSoldier, BlackSoldier,
	)
	if CheckWin(h2, nil) {
		t.Fatalf("散对不应成和")
	}

	// 带副露：手 5 张 + 一副露
	melds := []Meld{{Type: MeldKezi, Open: true, Tiles: hand(BlackSoldier, BlackSoldier, BlackSoldier), From: 1}}
	h3 := hand(RedChariot, RedHorse, RedCannon, BlackGeneral, BlackGeneral)
	if !CheckWin(h3, melds) {
		t.Fatalf("副露 + 定式 + 对子应成和")
	}

	// 张数不对
	if CheckWin(hand(RedGeneral), nil) {
		t.Fatalf("一张牌不能成和")
	}
}

func TestCheckWinRunOnlyCanonical(t *testing.T) {
	// 帅 + 车马 不构成定式（跨色）
	h := hand(
		RedGeneral, BlackHorse, BlackCannon,
		RedChariot, RedHorse, RedCannon,
		BlackSoldier, BlackSoldier,
	)
	if CheckWin(h, nil) {
		t.Fatalf("跨色散牌不应成和")
	}
}

func TestRemoveFromHand(t *testing.T) {
	h := hand(RedCannon, RedCannon, RedCannon, BlackSoldier)
	rest, removed, ok := RemoveFromHand(h, RedCannon, 2)
	if !ok || len(removed) != 2 || len(rest) != 2 {
		t.Fatalf("取两张炮失败: rest=%v removed=%v", rest, removed)
	}
	for _, tt := range removed {
		if tt.Kind != RedCannon {
			t.Fatalf("取走的不是炮: %v", tt)
		}
	}

	if _, _, ok := RemoveFromHand(rest, RedCannon, 2); ok {
		t.Fatalf("只剩一张炮不应成功")
	}
}

func TestDeckManagerConservation(t *testing.T) {
	dm := NewDeckManager(4)
	dm.InitRound()
	if dm.TotalTiles() != 56 {
		t.Fatalf("整副牌应 56 张, got %d", dm.TotalTiles())
	}
	if dm.Remaining() != 56 {
		t.Fatalf("洗完应剩 56, got %d", dm.Remaining())
	}

	seen := make(map[int]bool)
	var counts [KindCount]int
	for {
		tile, ok := dm.Draw()
		if !ok {
			break
		}
		if seen[tile.ID] {
			t.Fatalf("牌 ID 重复: %d", tile.ID)
		}
		seen[tile.ID] = true
		counts[tile.Kind]++
	}
	if len(seen) != 56 {
		t.Fatalf("摸出的总数不对: %d", len(seen))
	}
	for k, n := range counts {
		if n != 4 {
			t.Fatalf("牌种 %v 应 4 张, got %d", TileKind(k), n)
		}
	}
}
