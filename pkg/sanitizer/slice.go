package sanitizer

// SanitizeSlice applies a strategy to every element, dropping empties and
// duplicates while preserving first-seen order.
func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}

// NormalizeEmails dedupes a roster case-insensitively.
func NormalizeEmails(emails []string) []string {
	return SanitizeSlice(emails, NormalizeEmail)
}

// ContainsEmail reports whether the roster holds the address, comparing
// normalized forms.
func ContainsEmail(emails []string, email string) bool {
	needle := NormalizeEmail(email)
	for _, e := range emails {
		if NormalizeEmail(e) == needle {
			return true
		}
	}
	return false
}
