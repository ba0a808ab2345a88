// pkg/database/store.go
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"TradeAssistant/pkg/config"
	"TradeAssistant/pkg/model"
	"TradeAssistant/pkg/repository"
)

// Store 基于 gorm 的交易信号存储
type Store struct {
	db *gorm.DB
}

// New 使用给定方言打开数据库并迁移表结构
func New(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.TradeSetup{},
		&model.TradeInteraction{},
		&model.UserTrade{},
	); err != nil {
		return nil, fmt.Errorf("迁移表结构失败: %w", err)
	}

	return &Store{db: db}, nil
}

// NewPostgres 连接 PostgreSQL
func NewPostgres(cfg config.DatabaseConfig) (*Store, error) {
	s, err := New(postgres.Open(cfg.ConnString()))
	if err != nil {
		return nil, err
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}
	// 设置连接池参数
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("测试数据库连接失败: %w", err)
	}
	return s, nil
}

// DB 底层 gorm 连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) GetOrCreateUser(ctx context.Context, email string) (*model.User, error) {
	return s.User().GetOrCreate(ctx, email)
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	return s.User().GetByID(ctx, userID)
}

func (s *Store) SaveTrade(ctx context.Context, userID string, trade *model.TradeSetup) error {
	return s.Trade().Save(ctx, userID, trade)
}

func (s *Store) GetTrades(ctx context.Context, userID string, filter model.TradeFilter) ([]model.TradeSetup, error) {
	return s.Trade().List(ctx, userID, filter)
}

func (s *Store) MarkDelivered(ctx context.Context, tradeID string) (*model.TradeSetup, error) {
	return s.Trade().MarkDelivered(ctx, tradeID)
}

func (s *Store) MarkAllDelivered(ctx context.Context, userID string) (int64, error) {
	return s.Trade().MarkAllDelivered(ctx, userID)
}

func (s *Store) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return s.Trade().ExpireOverdue(ctx, now)
}

func (s *Store) LogInteraction(ctx context.Context, interaction *model.TradeInteraction) error {
	return s.Interaction().Save(ctx, interaction)
}

func (s *Store) GetInteractions(ctx context.Context, userID string) ([]model.TradeInteraction, error) {
	return s.Interaction().Recent(ctx, userID)
}

func (s *Store) SaveUserTrade(ctx context.Context, trade *model.UserTrade) error {
	return s.UserTrade().Save(ctx, trade)
}

func (s *Store) GetUserTrades(ctx context.Context, userID string, limit int) ([]model.UserTrade, error) {
	return s.UserTrade().ListByUser(ctx, userID, limit)
}

func (s *Store) GetClosedUserTrades(ctx context.Context, userID string) ([]model.UserTrade, error) {
	return s.UserTrade().Closed(ctx, userID)
}

var _ repository.TradeStore = (*Store)(nil)
