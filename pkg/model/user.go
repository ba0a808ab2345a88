// pkg/model/user.go
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultUserEmail 单一可信调用方部署下使用的默认用户
const DefaultUserEmail = "demo@user.com"

type User struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"type:varchar(128)" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// 关联关系
	Trades     []TradeSetup `gorm:"foreignKey:UserID" json:"trades,omitempty"`
	UserTrades []UserTrade  `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate 创建前生成UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// NameFromEmail 根据邮箱生成默认显示名
func NameFromEmail(email string) string {
	if email == DefaultUserEmail {
		return "Demo User"
	}
	if name, _, ok := strings.Cut(email, "@"); ok {
		return name
	}
	return email
}
