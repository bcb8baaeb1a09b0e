package model

import "time"

// LessonType вид занятия из каталога; MaxStudents ограничивает места в одном занятии
type LessonType struct {
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	MaxStudents int       `json:"max_students"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
