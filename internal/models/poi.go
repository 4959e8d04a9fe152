package models

import "time"

// Position хранит координаты точки на карте.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// POI представляет точку интереса на карте.
//
// Поля SelectedIcon, CustomIcon и IconColor копируются из категории в момент
// создания точки (снимок). Последующие изменения категории уже созданные
// точки не затрагивают.
type POI struct {
	ID           string    `json:"id"`
	Position     Position  `json:"position"`
	Coords       string    `json:"coords"` // Форматированный вид "lat, lng" с 6 знаками
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	CategoryID   string    `json:"category_id,omitempty"` // Может остаться висячей после удаления категории
	IconColor    string    `json:"icon_color,omitempty"`
	CustomIcon   string    `json:"custom_icon,omitempty"`
	SelectedIcon string    `json:"selected_icon,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Атрибуция создателя.
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// DummyPOI используется для приёма данных новой точки из JSON-запроса.
type DummyPOI struct {
	Lat         float64 `json:"lat" validate:"latitude"`
	Lng         float64 `json:"lng" validate:"longitude"`
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description,omitempty"`
	CategoryID  string  `json:"category_id,omitempty"`
}

// POIPatch описывает частичное обновление точки. Нулевые указатели означают
// «поле не менять».
type POIPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
	IconColor   *string `json:"icon_color,omitempty"`
}
