package models

import "time"

// Note представляет текстовую заметку пользователя, привязанную к точке карты.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Position  Position  `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `json:"user_id"`
}

// DummyNote используется для приёма данных новой заметки из JSON-запроса.
type DummyNote struct {
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Title   string  `json:"title" validate:"required"`
	Content string  `json:"content,omitempty"`
}

// NotePatch описывает частичное обновление заметки.
type NotePatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}
