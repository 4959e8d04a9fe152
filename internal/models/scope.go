package models

// Scope определяет область владения ресурсом: глобальная админская либо
// приватная область конкретного пользователя. Разрешается один раз на
// операцию и передаётся дальше, чтобы не размазывать проверки роли по коду.
type Scope struct {
	Admin  bool   // Глобальная админская область
	UserID string // Идентификатор владельца для приватной области
}

// AdminScope возвращает глобальную админскую область.
func AdminScope() Scope { return Scope{Admin: true} }

// UserScope возвращает приватную область пользователя.
func UserScope(userID string) Scope { return Scope{UserID: userID} }

// ScopeFor разрешает область владения для действующего пользователя.
func ScopeFor(u *User) Scope {
	if u.Role == RoleAdmin {
		return AdminScope()
	}
	return UserScope(u.ID)
}
