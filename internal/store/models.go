package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID        string `gorm:"primaryKey"`
	ChatID    int64  `gorm:"uniqueIndex;not null"`
	Name      string `gorm:"not null"`
	Username  string
	Phone     string
	CreatedAt time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type GenerationModel struct {
	ID        string         `gorm:"primaryKey"`
	UserID    string         `gorm:"not null;index:idx_generations_user_created"`
	Status    string         `gorm:"not null;index"`
	Meta      datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;index:idx_generations_user_created"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (GenerationModel) TableName() string { return "generations" }
