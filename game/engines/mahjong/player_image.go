package mahjong

// PlayerImage 座位上的玩家游戏状态
// 断线不销毁（标记离线保留手牌）；整场结束或离座时销毁
type PlayerImage struct {
	UserID    string
	Name      string
	SeatIndex int
	IsHuman   bool
	IsOnline  bool
	IsHost    bool
	IsDealer  bool
	ConnID    string // 外部连接 ID，离线为空
	Score     int

	Tiles []Tile // 手牌，保持展示排序
	Melds []Meld

	// 鸣牌收集期间的暂存
	Pending      *SeatEligibility
	HasResponded bool
}

// NewHumanPlayer 真人入座
func NewHumanPlayer(userID, name, connID string, seatIndex int) *PlayerImage {
	return &PlayerImage{
		UserID:    userID,
		Name:      name,
		SeatIndex: seatIndex,
		IsHuman:   true,
		IsOnline:  true,
		ConnID:    connID,
		Tiles:     make([]Tile, 0, 8),
		Melds:     make([]Meld, 0, 2),
	}
}

// NewAIPlayer 电脑补位
func NewAIPlayer(userID, name string, seatIndex int) *PlayerImage {
	return &PlayerImage{
		UserID:    userID,
		Name:      name,
		SeatIndex: seatIndex,
		IsHuman:   false,
		IsOnline:  true,
		Tiles:     make([]Tile, 0, 8),
		Melds:     make([]Meld, 0, 2),
	}
}

// ResetRound 清空一局内的状态，分数跨局保留
func (p *PlayerImage) ResetRound() {
	p.Tiles = p.Tiles[:0]
	p.Melds = p.Melds[:0]
	p.Pending = nil
	p.HasResponded = false
}

func (p *PlayerImage) AddTile(tile Tile) {
	p.Tiles = append(p.Tiles, tile)
	SortTiles(p.Tiles)
}

// FindTile 按 ID 查手牌
func (p *PlayerImage) FindTile(tileID int) (Tile, bool) {
	for _, t := range p.Tiles {
		if t.ID == tileID {
			return t, true
		}
	}
	return Tile{}, false
}

// RemoveTileByID 按 ID 移除一张手牌
func (p *PlayerImage) RemoveTileByID(tileID int) (Tile, bool) {
	for i, t := range p.Tiles {
		if t.ID == tileID {
			p.Tiles = append(p.Tiles[:i], p.Tiles[i+1:]...)
			return t, true
		}
	}
	return Tile{}, false
}

// RemoveKind 取走 n 张某牌种
func (p *PlayerImage) RemoveKind(kind TileKind, n int) ([]Tile, bool) {
	rest, removed, ok := RemoveFromHand(p.Tiles, kind, n)
	if !ok {
		return nil, false
	}
	p.Tiles = rest
	return removed, true
}

// RightmostTile 展示排序下最右一张（超时自动打牌用）
func (p *PlayerImage) RightmostTile() (Tile, bool) {
	if len(p.Tiles) == 0 {
		return Tile{}, false
	}
	return p.Tiles[len(p.Tiles)-1], true
}

// MeldTileCount 副露占用的总张数
func (p *PlayerImage) MeldTileCount() int {
	n := 0
	for _, m := range p.Melds {
		n += len(m.Tiles)
	}
	return n
}

// FindOpenKezi 查指定牌种的明刻（加杠用）
func (p *PlayerImage) FindOpenKezi(kind TileKind) int {
	for i, m := range p.Melds {
		if m.Type == MeldKezi && m.Open && len(m.Tiles) > 0 && m.Tiles[0].Kind == kind {
			return i
		}
	}
	return -1
}

func (p *PlayerImage) AddScore(delta int) {
	p.Score += delta
}

// SetOnline 重连恢复在线，顺带刷新展示名
func (p *PlayerImage) SetOnline(connID, name string) {
	p.IsOnline = true
	p.ConnID = connID
	if name != "" {
		p.Name = name
	}
}

func (p *PlayerImage) SetOffline() {
	p.IsOnline = false
	p.ConnID = ""
}
