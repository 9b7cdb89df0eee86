package render

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/notifyhub/chatbridge/internal/domain"
)

// TimeLayout is used by formatTime.
const TimeLayout = "Mon Jan 2, 2006 15:04 MST"

var funcs = template.FuncMap{
	"fullName":   fullName,
	"formatTime": formatTime,
	"upper":      strings.ToUpper,
	"default":    defaultString,
	"letter":     letter,
}

func fullName(u *domain.User) string {
	if name := u.FullName(); name != "" {
		return name
	}
	return "A member"
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "TBD"
	}
	return t.Format(TimeLayout)
}

// defaultString returns def when v is nil or renders blank.
func defaultString(def string, v any) string {
	if v == nil {
		return def
	}
	s := fmt.Sprint(v)
	if strings.TrimSpace(s) == "" || s == "<nil>" {
		return def
	}
	return s
}

func letter(i int) string {
	return string(rune('A' + i))
}
