package models

import "time"

// Alert is a CO2 alert configuration: which MQTT topic on which broker to watch,
// and the CO2 level that should trigger it. The record does not name its owner.
type Alert struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Topic     string    `json:"topic" gorm:"type:varchar(255);not null"`
	Port      int       `json:"port" gorm:"not null"`
	CO2Limit  float64   `json:"co2Limit" gorm:"column:co2_limit;not null"`
	Broker    string    `json:"broker" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserAlert links an alert to the user owning it. The auto-increment ID keeps
// the attach order.
type UserAlert struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	UserID  string `gorm:"type:varchar(36);index;not null"`
	AlertID string `gorm:"type:varchar(36);uniqueIndex;not null"`
}
