// Package errs определяет доменные ошибки сервиса. Ошибки — это значения:
// обработчики сопоставляют их с HTTP-статусами через errors.Is / errors.As,
// исключений на границе ядра не бывает.
package errs

import (
	"errors"
	"fmt"
	"math"

	"github.com/magabrotheeeer/imaps-backend/internal/plan"
)

// Базовые виды отказов ядра.
var (
	// ErrValidation — некорректные входные данные (пустое имя, нечисловые координаты).
	ErrValidation = errors.New("validation error")
	// ErrDuplicateUser — пользователь с таким email уже зарегистрирован.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrDuplicateName — имя уже занято внутри области владения.
	ErrDuplicateName = errors.New("name already exists")
	// ErrInvalidCredentials — неверная пара email/пароль.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotFound — ресурс отсутствует в доступной области.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized — у действующего пользователя нет прав на ресурс.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnauthenticated — операция требует аутентификации.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrStore — отказ нижележащего хранилища; единственный вид,
	// для которого вызывающему имеет смысл повторить запрос.
	ErrStore = errors.New("storage error")
)

// Виды квот тарифного плана.
const (
	QuotaCategories   = "categories"        // Лимит числа категорий
	QuotaTotalPOIs    = "total_pois"        // Общий лимит POI
	QuotaCategoryPOIs = "pois_per_category" // Лимит POI в одной категории
)

// QuotaError возвращается, когда операция упирается в лимит тарифа.
// Несёт текущее значение, лимит и остаток, чтобы интерфейс мог предложить
// переход на старший тариф.
type QuotaError struct {
	Quota   string  // Какая именно квота исчерпана
	Plan    string  // Тариф действующего пользователя
	Current int     // Текущее количество
	Limit   float64 // Лимит тарифа
}

func (e *QuotaError) Error() string {
	remaining := plan.Remaining(e.Limit, e.Current)
	return fmt.Sprintf("%s quota exceeded for plan %q: %d of %s used, %s remaining",
		e.Quota, e.Plan, e.Current, formatLimit(e.Limit), formatLimit(remaining))
}

// RoleMismatchError возвращается при входе через форму не той роли.
type RoleMismatchError struct {
	Expected string // Роль, которую ожидала форма входа
	Actual   string // Фактическая роль учётной записи
}

func (e *RoleMismatchError) Error() string {
	if e.Expected == "admin" {
		return "these credentials are for a regular user account, please use user login"
	}
	return "these credentials are for an admin account, please use admin login"
}

func formatLimit(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return fmt.Sprintf("%d", int64(v))
}
