package discord

import (
	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/ports/output"
)

// DomainErrorMessage resolves err to a user-facing message through its domain
// error code. Errors without a code get the generic message.
func DomainErrorMessage(tr output.T, locale string, err error) string {
	if err == nil {
		return ""
	}
	if code := domain.Code(err); code != "" {
		return tr.T(locale, "error_"+code, nil)
	}
	return tr.T(locale, "error_unknown", nil)
}
