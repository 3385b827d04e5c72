package model

import "time"

type Restaurant struct {
	RestaurantID uint      `json:"restaurant_id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"size:160;not null"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone" gorm:"size:32"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
