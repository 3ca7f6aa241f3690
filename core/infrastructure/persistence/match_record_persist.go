package persistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"xiangqi-mahjong/core/domain/entity"
)

const matchRecordCollection = "match_records"

// MatchRecordPersist MatchRecordRepository 的 mongo 实现
type MatchRecordPersist struct {
	col *mongo.Collection
}

func NewMatchRecordPersist(db *mongo.Database) *MatchRecordPersist {
	return &MatchRecordPersist{
		col: db.Collection(matchRecordCollection),
	}
}

func (p *MatchRecordPersist) SaveMatchRecord(ctx context.Context, record *entity.MatchRecord) error {
	if record == nil {
		return fmt.Errorf("record 不能为空")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := p.col.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("保存对局存档失败: %w", err)
	}
	return nil
}
