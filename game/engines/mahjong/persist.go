package mahjong

import (
	"context"
	"sync"
	"time"

	"xiangqi-mahjong/common/log"
	"xiangqi-mahjong/core/domain/entity"
	"xiangqi-mahjong/core/domain/repository"
)

// RecordPlayer 存档用的玩家信息
type RecordPlayer struct {
	UserID  string
	Name    string
	Seat    int
	IsHuman bool
}

// GamePersister 对局存档组件
// 过程中只在内存里攒事件，整场结束后异步一次性落库
type GamePersister struct {
	repo   repository.MatchRecordRepository
	record *entity.MatchRecord
	mu     sync.Mutex
	closed bool
}

func NewGamePersister(repo repository.MatchRecordRepository, roomID string) *GamePersister {
	return &GamePersister{
		repo:   repo,
		record: entity.NewMatchRecord(roomID, "xiangqi_mahjong_4p"),
	}
}

// StartMatch 记录参赛名单（再战会重置名单和回合）
func (gp *GamePersister) StartMatch(players []RecordPlayer) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	if gp.closed {
		return
	}
	gp.record.Players = gp.record.Players[:0]
	for _, p := range players {
		gp.record.Players = append(gp.record.Players, entity.PlayerInfo{
			UserID:  p.UserID,
			Name:    p.Name,
			Seat:    p.Seat,
			IsHuman: p.IsHuman,
		})
	}
	gp.record.Rounds = gp.record.Rounds[:0]
}

func (gp *GamePersister) StartRound(roundIndex, dealer int) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	if gp.closed {
		return
	}
	gp.record.Rounds = append(gp.record.Rounds, entity.RoundRecord{
		RoundIndex: roundIndex,
		Dealer:     dealer,
		StartedAt:  time.Now(),
	})
}

func (gp *GamePersister) RecordDraw(seat int) {
	gp.addEvent(entity.EventTypeDraw, seat, nil)
}

func (gp *GamePersister) RecordDiscard(seat int, kind int) {
	gp.addEvent(entity.EventTypeDiscard, seat, map[string]any{"kind": kind})
}

func (gp *GamePersister) RecordMeld(seat int, meldType string, kind int) {
	gp.addEvent(entity.EventTypeMeld, seat, map[string]any{"meldType": meldType, "kind": kind})
}

func (gp *GamePersister) addEvent(eventType string, seat int, data map[string]any) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	if gp.closed || len(gp.record.Rounds) == 0 {
		return
	}
	round := &gp.record.Rounds[len(gp.record.Rounds)-1]
	round.Events = append(round.Events, entity.RoundEvent{
		Type: eventType,
		Seat: seat,
		Data: data,
		At:   time.Now(),
	})
}

// EndRound 收尾当前局
func (gp *GamePersister) EndRound(res RoundResult, scores [NumSeats]int) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	if gp.closed || len(gp.record.Rounds) == 0 {
		return
	}
	round := &gp.record.Rounds[len(gp.record.Rounds)-1]
	round.Winners = res.Winners
	round.WinType = res.WinType
	round.DrawGame = res.DrawGame
	round.Scores = scores[:]
	round.EndedAt = time.Now()
}

// FlushAsync 整场结束后异步落库
func (gp *GamePersister) FlushAsync(scores [NumSeats]int) {
	gp.mu.Lock()
	if gp.closed {
		gp.mu.Unlock()
		return
	}
	gp.record.Scores = scores[:]
	gp.record.FinishedAt = time.Now()
	record := gp.record
	repo := gp.repo
	gp.mu.Unlock()

	go func() {
		if err := repo.SaveMatchRecord(context.Background(), record); err != nil {
			log.Warn("对局存档落库失败: %v", err)
		}
	}()
}

func (gp *GamePersister) Close() {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.closed = true
}
