package domain

import (
	"strings"
	"unicode"
)

// ListView names a task listing shown over chat. Position addressing
// ("done 2") is resolved against the owner's last view.
type ListView string

const (
	ViewAll   ListView = "all"
	ViewToday ListView = "today"
)

// Owner is the person behind a phone-style key.
type Owner struct {
	ID           OwnerID
	PhoneKey     string
	Name         string
	CalendarSync bool
	LastView     ListView
	CreatedAt    Timestamp
	LastActiveAt Timestamp
}

const whatsappPrefix = "whatsapp:"

// NormalizePhoneKey strips transport prefixes and separators and enforces a
// leading "+". It returns "" when nothing usable is left.
func NormalizePhoneKey(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= len(whatsappPrefix) && strings.EqualFold(s[:len(whatsappPrefix)], whatsappPrefix) {
		s = s[len(whatsappPrefix):]
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' || r == '.' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimLeft(s, "+")
	if s == "" {
		return ""
	}
	return "+" + s
}
