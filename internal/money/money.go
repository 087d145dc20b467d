package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Суммы храним в int64 в минимальных единицах валюты (копейки/центы).
// Через API суммы ходят десятичными строками ("123.45"), а не float —
// двоичная плавающая точка для денег не используется нигде.

var (
	ErrBadAmount = errors.New("некорректный формат суммы")
)

const scale = 100 // два знака после запятой

// Parse разбирает десятичную строку в минимальные единицы.
// Допустимо не более двух знаков после точки; знак минус разрешён.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrBadAmount
	}

	negative := false
	if s[0] == '-' || s[0] == '+' {
		negative = s[0] == '-'
		s = s[1:]
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}

	if whole == "" && frac == "" {
		return 0, ErrBadAmount
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, ErrBadAmount
	}
	// Дополняем дробную часть до двух знаков: "5" → "50"
	for len(frac) < 2 {
		frac += "0"
	}

	// ParseUint: знак уже снят выше, внутри частей цифр быть
	// не может — "1.-5" и "1.+5" отклоняются здесь.
	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, ErrBadAmount
	}
	f, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, ErrBadAmount
	}

	// w*scale+f обязан помещаться в int64, иначе сумма молча
	// заворачивается и проходит проверку "> 0".
	if w > (math.MaxInt64-f)/scale {
		return 0, ErrBadAmount
	}

	units := int64(w)*scale + int64(f)
	if negative {
		units = -units
	}
	return units, nil
}

// Format переводит минимальные единицы обратно в десятичную строку.
func Format(units int64) string {
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", sign, units/scale, units%scale)
}
