// pkg/database/user.go
package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"TradeAssistant/pkg/model"
	"TradeAssistant/pkg/repository"
)

type UserDB struct {
	db *gorm.DB
}

func (s *Store) User() *UserDB {
	return &UserDB{db: s.db}
}

func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("创建用户失败: %w", err)
	}
	return nil
}

func (u *UserDB) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return u.first(ctx, "id = ?", userID)
}

func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.first(ctx, "email = ?", email)
}

func (u *UserDB) first(ctx context.Context, cond string, arg any) (*model.User, error) {
	var user model.User
	err := u.db.WithContext(ctx).First(&user, cond, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("获取用户信息失败: %w", err)
	}
	return &user, nil
}

// GetOrCreate 按邮箱获取或创建用户，唯一索引冲突时回退读取
func (u *UserDB) GetOrCreate(ctx context.Context, email string) (*model.User, error) {
	return repository.GetOrCreate(ctx,
		func(ctx context.Context) (*model.User, error) {
			return u.GetByEmail(ctx, email)
		},
		func(ctx context.Context) (*model.User, error) {
			user := &model.User{Email: email, Name: model.NameFromEmail(email)}
			if err := u.Create(ctx, user); err != nil {
				return nil, err
			}
			return user, nil
		},
	)
}
