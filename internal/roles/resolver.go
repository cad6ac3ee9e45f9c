package roles

import (
	"strings"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
)

// Канонические имена ролей
const (
	RoleAnonymous      = "Anonymous"
	RoleAdmin          = "Admin"
	RoleStaff          = "Staff"
	RoleSubscriberPaid = "SubscriberPaid"
	RoleModerator      = "Moderator"
	RoleRegisteredFree = "RegisteredFree"
)

// Resolve возвращает каноническое имя роли для дескриптора пользователя.
//
// Порядок определения (выигрывает первое совпадение):
//  1. nil -> Anonymous
//  2. флаг суперпользователя -> Admin
//  3. флаг персонала -> Staff
//  4. subscription_type профиля, если задан, используется как есть
//  5. эвристики по именам групп (SubscriberPaid, Moderator, Staff, Admin, RegisteredFree)
//  6. иначе -> RegisteredFree
//
// Функция чистая и тотальная: не имеет побочных эффектов и никогда не
// паникует; отсутствующие группы эквивалентны пустому списку.
func Resolve(user *domain.User) string {
	if user == nil {
		return RoleAnonymous
	}

	if user.IsSuperuser {
		return RoleAdmin
	}
	if user.IsStaff {
		return RoleStaff
	}

	if user.SubscriptionType != "" {
		return user.SubscriptionType
	}

	for _, g := range user.Groups {
		if g == "" {
			continue
		}
		gl := strings.ToLower(g)
		switch {
		case strings.Contains(gl, "subscriber") || strings.Contains(gl, "paid"):
			return RoleSubscriberPaid
		case strings.Contains(gl, "moderator"):
			return RoleModerator
		case gl == "staff":
			return RoleStaff
		case strings.Contains(gl, "admin") || strings.Contains(gl, "administrator"):
			return RoleAdmin
		case strings.Contains(gl, "free") || strings.Contains(gl, "registered"):
			return RoleRegisteredFree
		}
	}

	return RoleRegisteredFree
}
