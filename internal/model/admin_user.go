package model

import "time"

// AdminUser 管理员表 — 对应 admin_users
type AdminUser struct {
	ID           string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	Name         string     `gorm:"type:varchar(100);not null;default:''"          json:"name"`
	PasswordHash string     `gorm:"type:varchar(255);not null"                     json:"-"`
	LastLoginAt  *time.Time `                                                      json:"last_login_at,omitempty"`
	Timestamps
}

// TableName 指定表名
func (AdminUser) TableName() string { return "admin_users" }
