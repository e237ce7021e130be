package observability

import (
	"regexp"
	"strings"
)

var (
	rePassword = regexp.MustCompile(`(?i)(password=)([^\s;&]+)`)
	reDSNCreds = regexp.MustCompile(`(?i)(://)([^:/@\s]+):([^@\s]+)(@)`)
	reDSNUser  = regexp.MustCompile(`(?i)(://)([^:/@\s]+)(@)`)
	reUserKV   = regexp.MustCompile(`(?i)(\buser=)([^\s;&]+)`)
)

// Mask hides credentials in connection strings and driver error text so they
// can be logged or returned to clients.
func Mask(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	out := reDSNCreds.ReplaceAllString(s, "$1*:*$4")
	out = reDSNUser.ReplaceAllString(out, "$1*$3")
	out = rePassword.ReplaceAllString(out, "$1***")
	out = reUserKV.ReplaceAllString(out, "$1***")
	return out
}
