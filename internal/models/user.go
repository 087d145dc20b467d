package models

import "time"

// Роли сотрудников: teller — операционист, admin — доступ к админским
// экранам (удаление клиентов, аудит-лог, статистика).
const (
	RoleAdmin  = "admin"
	RoleTeller = "teller"
)

type User struct {
	ID           string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}
