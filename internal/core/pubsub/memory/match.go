package memory

import "strings"

// matchSubject reports whether subject matches a dot-separated pattern.
// "*" stands for exactly one token and a trailing ">" for one or more.
func matchSubject(pattern, subject string) bool {
	if pattern == "" || subject == "" {
		return false
	}
	for {
		p, pRest, pMore := strings.Cut(pattern, ".")
		if p == ">" && !pMore {
			return true
		}
		s, sRest, sMore := strings.Cut(subject, ".")
		if p != "*" && p != s {
			return false
		}
		if !pMore || !sMore {
			return pMore == sMore
		}
		pattern, subject = pRest, sRest
	}
}
