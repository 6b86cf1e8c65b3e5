package domain

import (
	"context"
	"time"
)

type User struct {
	ID        int64  `gorm:"primaryKey"`
	Username  string `gorm:"size:64"`
	Status    bool   `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }

type UserRepo interface {
	UserByID(ctx context.Context, id int64) (*User, error)
}
