package domain

import "time"

// Message 表示投递给某个用户名的一条临时消息。
//
// 消息在两种情况下失效：超过 ExpiresAt（时间过期），或被一次成功的
// Retrieve 返回后标记 Expired（读取过期）。两者取先到者。
type Message struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"type:varchar(255);index;not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"index;not null"`
	Expired   bool      `json:"expired" gorm:"default:false;index"`
	CreatedAt time.Time `json:"createdAt"`
}

// Valid 判断消息在给定时刻是否仍可被 Retrieve 返回。
// Expired 一旦置真不会回退，时间过期与读取过期相互独立。
func (m *Message) Valid(now time.Time) bool {
	return !m.Expired && now.Before(m.ExpiresAt)
}
