package output

// T renders user-facing text (manager notices, CLI error messages) for a
// locale. data fills template placeholders and may be nil.
type T interface {
	T(locale, key string, data map[string]any) string
}
