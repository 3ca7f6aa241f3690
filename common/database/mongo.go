package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"xiangqi-mahjong/common/config"
	"xiangqi-mahjong/common/log"
)

type MongoManager struct {
	Cli *mongo.Client
	Db  *mongo.Database
}

// NewMongo 按配置建立 mongo 连接；未配置 url 时返回 nil（关闭落库）
func NewMongo(conf config.MongoConf) *MongoManager {
	if conf.Url == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(conf.Url)
	if conf.MinPoolSize > 0 {
		clientOptions.SetMinPoolSize(uint64(conf.MinPoolSize))
	}
	if conf.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(uint64(conf.MaxPoolSize))
	}
	if conf.Username != "" && conf.Password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: conf.Username,
			Password: conf.Password,
		})
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatal("mongodb 连接错误: %v", err)
		return nil
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal("mongodb Ping 错误: %v", err)
		return nil
	}

	m := &MongoManager{Cli: client}
	m.Db = m.Cli.Database(conf.Db)
	return m
}

func (m *MongoManager) Close() error {
	if m == nil {
		return nil
	}
	return m.Cli.Disconnect(context.TODO())
}
