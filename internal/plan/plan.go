// Package plan реализует политику тарифных планов: таблицу лимитов и чистые
// функции проверки, разрешено ли действие при текущих счётчиках.
//
// Безлимит представлен math.Inf(1): любое конечное значение меньше него,
// поэтому арифметика остатков деградирует до «∞» без особых случаев
// на вызывающей стороне.
package plan

import "math"

// Plan — закрытый набор тарифных планов.
type Plan string

// Известные тарифы.
const (
	Free      Plan = "free"
	Premium   Plan = "premium"
	Unlimited Plan = "unlimited"
)

// Inf — представление безлимитного значения в таблице лимитов.
var Inf = math.Inf(1)

// Limits описывает квоты одного тарифа.
type Limits struct {
	MaxCategories      float64 // Максимум приватных категорий
	MaxPOIsPerCategory float64 // Максимум POI в одной категории
	TotalPOILimit      float64 // Общий максимум POI
	AllowCustomIcons   bool    // Разрешены ли пользовательские иконки
}

var table = map[Plan]Limits{
	Free:      {MaxCategories: 10, MaxPOIsPerCategory: 10, TotalPOILimit: 100},
	Premium:   {MaxCategories: 20, MaxPOIsPerCategory: 20, TotalPOILimit: 400},
	Unlimited: {MaxCategories: Inf, MaxPOIsPerCategory: Inf, TotalPOILimit: Inf, AllowCustomIcons: true},
}

// Known сообщает, входит ли тариф в закрытый набор.
func Known(p Plan) bool {
	_, ok := table[p]
	return ok
}

// LimitsFor возвращает лимиты тарифа. Нераспознанный тариф получает нулевые
// лимиты: безопаснее запретить всё, чем молча разрешить безлимит.
func LimitsFor(p Plan) Limits {
	return table[p]
}

// CanCreateCategory сообщает, можно ли создать ещё одну категорию.
func CanCreateCategory(p Plan, currentCount int) bool {
	return float64(currentCount) < LimitsFor(p).MaxCategories
}

// CanAddPOI сообщает, можно ли создать ещё одну точку с учётом общего лимита.
func CanAddPOI(p Plan, currentTotal int) bool {
	return float64(currentTotal) < LimitsFor(p).TotalPOILimit
}

// CanAddPOIToCategory сообщает, можно ли добавить точку в категорию
// с учётом лимита на категорию.
func CanAddPOIToCategory(p Plan, currentInCategory int) bool {
	return float64(currentInCategory) < LimitsFor(p).MaxPOIsPerCategory
}

// AllowsCustomIcons сообщает, разрешены ли тарифу пользовательские иконки.
func AllowsCustomIcons(p Plan) bool {
	return LimitsFor(p).AllowCustomIcons
}

// Remaining возвращает остаток квоты: max(0, limit-current) либо +Inf.
// Отрицательным остаток не бывает.
func Remaining(limit float64, current int) float64 {
	if math.IsInf(limit, 1) {
		return limit
	}
	r := limit - float64(current)
	if r < 0 {
		return 0
	}
	return r
}
