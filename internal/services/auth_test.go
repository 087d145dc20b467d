package services

import (
	"testing"
	"time"

	"bank-ledger/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewAuthService("test-secret", time.Hour)

	token, err := s.GenerateToken("user-1", models.RoleTeller)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, ожидалось user-1", claims.UserID)
	}
	if claims.Role != models.RoleTeller {
		t.Errorf("Role = %q, ожидалось %q", claims.Role, models.RoleTeller)
	}
}

func TestExpiredToken(t *testing.T) {
	s := NewAuthService("test-secret", -time.Minute)

	token, err := s.GenerateToken("user-1", models.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := s.ValidateToken(token); err == nil {
		t.Fatal("просроченный токен прошёл валидацию")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewAuthService("secret-a", time.Hour)
	verifier := NewAuthService("secret-b", time.Hour)

	token, err := issuer.GenerateToken("user-1", models.RoleTeller)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := verifier.ValidateToken(token); err == nil {
		t.Fatal("токен с чужой подписью прошёл валидацию")
	}
}

func TestValidateGarbageToken(t *testing.T) {
	s := NewAuthService("test-secret", time.Hour)
	if _, err := s.ValidateToken("не.токен.вовсе"); err == nil {
		t.Fatal("мусорная строка прошла валидацию")
	}
}

func TestPasswordHashing(t *testing.T) {
	s := NewAuthService("test-secret", time.Hour)

	hash, err := s.HashPassword("admin123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "admin123" {
		t.Fatal("пароль сохранён открытым текстом")
	}

	if err := s.CheckPasswordHash("admin123", hash); err != nil {
		t.Errorf("верный пароль отклонён: %v", err)
	}
	if err := s.CheckPasswordHash("wrong", hash); err == nil {
		t.Error("неверный пароль принят")
	}
}
