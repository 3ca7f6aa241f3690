package mahjong

// 规则判定都是纯函数：输入手牌/副露/候选牌，输出可行性
// 不接触引擎状态，便于单测

// CountKind 统计手牌中某牌种张数
func CountKind(hand []Tile, kind TileKind) int {
	n := 0
	for _, t := range hand {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

// CanPeng 手里至少两张同种牌
func CanPeng(hand []Tile, tile Tile) bool {
	return CountKind(hand, tile.Kind) >= 2
}

// CanMingGang 手里至少三张同种牌
func CanMingGang(hand []Tile, tile Tile) bool {
	return CountKind(hand, tile.Kind) >= 3
}

// CanAnGang 返回 (手牌 ∪ 摸牌) 中满四张的牌种集合
func CanAnGang(hand []Tile, drawn *Tile) []TileKind {
	var counts [KindCount]int
	for _, t := range hand {
		counts[t.Kind]++
	}
	if drawn != nil {
		counts[drawn.Kind]++
	}
	out := make([]TileKind, 0, 1)
	for k := 0; k < KindCount; k++ {
		if counts[k] >= 4 {
			out = append(out, TileKind(k))
		}
	}
	return out
}

// CanAddGang 返回可以用摸牌升级的明刻牌种集合
func CanAddGang(melds []Meld, drawn *Tile) []TileKind {
	if drawn == nil {
		return nil
	}
	out := make([]TileKind, 0, 1)
	for _, m := range melds {
		if m.Type == MeldKezi && m.Open && len(m.Tiles) > 0 && m.Tiles[0].Kind == drawn.Kind {
			out = append(out, drawn.Kind)
		}
	}
	return out
}

// ChiOptions 枚举能和弃牌构成定式的两张手牌组合
// 同一定式内相同牌种的不同实体视为等价，每条定式至多返回一组
func ChiOptions(hand []Tile, tile Tile) [][2]Tile {
	var out [][2]Tile
	for _, run := range RunsContaining(tile.Kind) {
		need := make([]TileKind, 0, 2)
		for _, k := range run {
			if k != tile.Kind {
				need = append(need, k)
			}
		}
		if len(need) != 2 {
			continue
		}
		t1, ok1 := firstOfKind(hand, need[0])
		t2, ok2 := firstOfKind(hand, need[1])
		if ok1 && ok2 {
			out = append(out, [2]Tile{t1, t2})
		}
	}
	return out
}

func firstOfKind(hand []Tile, kind TileKind) (Tile, bool) {
	for _, t := range hand {
		if t.Kind == kind {
			return t, true
		}
	}
	return Tile{}, false
}

// BuildShunzi 用被鸣的牌和选中的两张手牌组顺子，按定式顺序摆放
// 组合不构成定式时返回 false
func BuildShunzi(claimed Tile, combo [2]Tile, from int) (Meld, bool) {
	kinds := map[TileKind]Tile{
		claimed.Kind:  claimed,
		combo[0].Kind: combo[0],
		combo[1].Kind: combo[1],
	}
	if len(kinds) != 3 {
		return Meld{}, false
	}
	for _, run := range canonicalRuns {
		a, ok0 := kinds[run[0]]
		b, ok1 := kinds[run[1]]
		c, ok2 := kinds[run[2]]
		if ok0 && ok1 && ok2 {
			return Meld{
				Type:          MeldShunzi,
				Tiles:         []Tile{a, b, c},
				Open:          true,
				From:          from,
				ClaimedTileID: claimed.ID,
			}, true
		}
	}
	return Meld{}, false
}

// CheckWin 整手（手牌+副露）是否构成 若干面子 + 一对
// 面子 = 刻子或定式顺子；手牌部分张数必须是 3m+2
func CheckWin(hand []Tile, melds []Meld) bool {
	if (len(hand)-2)%3 != 0 || len(hand) < 2 {
		return false
	}
	var counts [KindCount]int
	for _, t := range hand {
		counts[t.Kind]++
	}
	// 枚举对子，再递归拆面子
	for k := 0; k < KindCount; k++ {
		if counts[k] >= 2 {
			counts[k] -= 2
			if decompose(&counts) {
				counts[k] += 2
				return true
			}
			counts[k] += 2
		}
	}
	return false
}

// decompose 尝试把计数表完全拆成刻子和定式顺子
func decompose(counts *[KindCount]int) bool {
	idx := -1
	for k := 0; k < KindCount; k++ {
		if counts[k] > 0 {
			idx = k
			break
		}
	}
	if idx == -1 {
		return true
	}
	kind := TileKind(idx)

	if counts[idx] >= 3 {
		counts[idx] -= 3
		if decompose(counts) {
			counts[idx] += 3
			return true
		}
		counts[idx] += 3
	}

	// 只需尝试以该牌种开头的定式，保证不重复枚举
	for _, run := range canonicalRuns {
		if run[0] != kind {
			continue
		}
		a, b, c := int(run[0]), int(run[1]), int(run[2])
		if counts[a] > 0 && counts[b] > 0 && counts[c] > 0 {
			counts[a]--
			counts[b]--
			counts[c]--
			if decompose(counts) {
				counts[a]++
				counts[b]++
				counts[c]++
				return true
			}
			counts[a]++
			counts[b]++
			counts[c]++
		}
	}
	return false
}

// RemoveFromHand 从手牌取走 n 张指定牌种
// 返回 (剩余手牌, 取走的牌, 是否成功)；不足 n 张时原样返回
func RemoveFromHand(hand []Tile, kind TileKind, n int) ([]Tile, []Tile, bool) {
	if CountKind(hand, kind) < n {
		return hand, nil, false
	}
	rest := make([]Tile, 0, len(hand)-n)
	removed := make([]Tile, 0, n)
	for _, t := range hand {
		if t.Kind == kind && len(removed) < n {
			removed = append(removed, t)
			continue
		}
		rest = append(rest, t)
	}
	return rest, removed, true
}
