package model

import "time"

// ReplacementCredit одноразовое право записаться на другое занятие вместо пропущенного
type ReplacementCredit struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	AbsenceID int64      `json:"absence_id"` // уникален: одна заявка - один кредит
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"` // nil пока не использован
	CreatedAt time.Time  `json:"created_at"`
}

// IsAvailable кредит не использован и не истёк
func (c *ReplacementCredit) IsAvailable(now time.Time) bool {
	return c.UsedAt == nil && c.ExpiresAt.After(now)
}

// IsExpired истёк ли срок к моменту now
func (c *ReplacementCredit) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
