package database

import (
	"context"
	"fmt"
	"time"

	"healthhive/internal/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// InitMongo 连接 MongoDB 并校验可用性
func InitMongo(ctx context.Context, cfg config.MongoConfig, log *zap.Logger) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Info("mongo connection established", zap.String("database", cfg.Database))
	return client.Database(cfg.Database), nil
}

// MatchID 主键匹配条件
// 外部系统写入的帖子、用户以 ObjectId 为主键，本服务写入的是字符串；24 位十六进制的 id 两种形式都匹配
func MatchID(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.D{{Key: "$in", Value: bson.A{id, oid}}}
	}
	return id
}

// IDValues 批量主键的全部候选形式，用于 $in
func IDValues(ids []string) bson.A {
	out := make(bson.A, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}
