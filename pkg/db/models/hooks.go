package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (u *User) BeforeCreate(*gorm.DB) error {
	u.ID = ensureID(u.ID)
	return nil
}

func (r *Requirement) BeforeCreate(*gorm.DB) error {
	r.ID = ensureID(r.ID)
	return nil
}

func (q *Quotation) BeforeCreate(*gorm.DB) error {
	q.ID = ensureID(q.ID)
	return nil
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	n.ID = ensureID(n.ID)
	return nil
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	e.ID = ensureID(e.ID)
	return nil
}

func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error {
	d.ID = ensureID(d.ID)
	return nil
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
