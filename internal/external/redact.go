package external

import "strings"

// RedactEmail masks an address for logging: "kai@example.com" becomes
// "k***@example.com". Input without "@" is masked entirely.
func RedactEmail(email string) string {
	if email == "" {
		return ""
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "***"
	}
	if local == "" {
		return "***@" + domain
	}
	return local[:1] + "***@" + domain
}

// RedactPhone keeps only the last four digits of a number.
func RedactPhone(phone string) string {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits <= 4 {
		return "***"
	}
	return "***" + phone[len(phone)-4:]
}
