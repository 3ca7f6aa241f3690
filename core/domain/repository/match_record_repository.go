package repository

import (
	"context"

	"xiangqi-mahjong/core/domain/entity"
)

// MatchRecordRepository 对局存档仓储
type MatchRecordRepository interface {
	SaveMatchRecord(ctx context.Context, record *entity.MatchRecord) error
}
