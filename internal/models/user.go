// Package models содержит доменные структуры сервиса интерактивных карт:
// пользователей, категории, точки интереса (POI), заметки, пользовательские
// иконки и тайловые слои. Структуры используются в бизнес-логике и при
// сериализации в хранилище.
package models

import "time"

// Роли пользователей системы.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User представляет зарегистрированного пользователя сервиса.
// Пользователь монопольно владеет своими коллекциями: POI, заметками,
// пользовательскими иконками и приватными категориями.
//
// Администратор устроен иначе: его коллекции — это объединение коллекций
// всех пользователей плюс глобальные админские списки (см. session.Manager).
type User struct {
	ID           string    `json:"id"`            // Уникальный идентификатор пользователя
	Email        string    `json:"email"`         // Электронная почта (уникальный ключ справочника)
	PasswordHash string    `json:"password_hash"` // bcrypt-хэш пароля
	Name         string    `json:"name"`          // Отображаемое имя
	Role         string    `json:"role"`          // Роль: admin или user
	Plan         string    `json:"plan"`          // Тарифный план: free, premium, unlimited
	CreatedAt    time.Time `json:"created_at"`

	POIs           []POI        `json:"pois"`            // Точки интереса пользователя
	Notes          []Note       `json:"notes"`           // Заметки пользователя
	CustomIcons    []CustomIcon `json:"custom_icons"`    // Загруженные иконки
	UserCategories []Category   `json:"user_categories"` // Приватные категории
}

// DummyRegister используется для приёма данных регистрации из JSON-запроса.
type DummyRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"omitempty"`
}

// DummyLogin используется для приёма данных входа из JSON-запроса.
// ExpectedRole опционален: если указан, вход разрешён только при совпадении
// роли учётной записи (разделение форм входа для admin и user).
type DummyLogin struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	ExpectedRole string `json:"expected_role,omitempty" validate:"omitempty,oneof=admin user"`
}
