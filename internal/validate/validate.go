package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reID     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reVarKey = regexp.MustCompile(`^[A-Za-z0-9 _:|/,.-]{0,128}$`)
	reQ      = regexp.MustCompile(`^[A-Za-z0-9 _'&.-]{1,60}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 60 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// ID validates a resource identifier (product/offer/order/ticket ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// VarKey validates a variation key: a stable serialization of selected
// variation choices, e.g. "color:red|size:L". Empty is allowed (no
// variations).
func VarKey(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reVarKey.MatchString(s)
}

// Q validates a catalog search query.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s, reQ.MatchString(s)
}

// Qty parses a unit quantity. Unlike a retail shop there is no upper
// clamp here; lot sizes run into the thousands and the cart enforces
// stock limits itself.
func Qty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Price parses a non-negative money amount with at most two decimals.
func Price(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 10_000_000 {
		return 0, false
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > 2 {
		return 0, false
	}
	return f, true
}

// Name validates a displayable name.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 40 {
		return "", false
	}
	return s, true
}

// Text validates free-form body text (messages, tickets).
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > max {
		return "", false
	}
	return s, true
}

// Password enforces the login policy: 8-64 chars with mixed classes.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}

// Role validates a self-registered account role; admins are seeded, never
// registered.
func Role(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, s == "BUYER" || s == "SELLER"
}
