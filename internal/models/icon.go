package models

import "time"

// CustomIcon представляет загруженную пользователем иконку маркера.
// Хранится как data-URL, доступна только на тарифе с разрешёнными
// пользовательскими иконками.
type CustomIcon struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Data      string    `json:"data"` // data-URL содержимого иконки
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
}

// DummyIcon используется для приёма данных новой иконки из JSON-запроса.
type DummyIcon struct {
	Name string `json:"name" validate:"required"`
	Data string `json:"data" validate:"required,datauri"`
}
