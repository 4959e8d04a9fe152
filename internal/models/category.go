package models

import "time"

// Category представляет категорию POI. Категория принадлежит либо глобальной
// админской области, либо приватной области одного пользователя. Имя
// уникально внутри своей области (сравнение без учёта регистра).
type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`                   // Цвет маркера, подсказка для отображения
	SelectedIcon string    `json:"selected_icon,omitempty"` // Ключ встроенной иконки
	CustomIcon   string    `json:"custom_icon,omitempty"`   // Ссылка на CustomIcon.ID
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UserID       string    `json:"user_id"` // Идентификатор создателя
}

// DummyCategory используется для приёма данных новой категории из JSON-запроса.
type DummyCategory struct {
	Name         string `json:"name" validate:"required"`
	Color        string `json:"color" validate:"omitempty,hexcolor"`
	SelectedIcon string `json:"selected_icon,omitempty"`
	CustomIcon   string `json:"custom_icon,omitempty"`
	Description  string `json:"description,omitempty"`
}

// CategoryPatch описывает частичное обновление категории. Нулевые указатели
// означают «поле не менять».
type CategoryPatch struct {
	Name         *string `json:"name,omitempty"`
	Color        *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	SelectedIcon *string `json:"selected_icon,omitempty"`
	CustomIcon   *string `json:"custom_icon,omitempty"`
	Description  *string `json:"description,omitempty"`
}
