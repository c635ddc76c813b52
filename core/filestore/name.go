package filestore

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Sanitize reduces a client-supplied file name to the allowed character set:
// ASCII letters, digits, Hangul jamo (ㄱ-ㅎ), Hangul syllables (가-힣) and "._-".
// Path separators are removed and spaces become underscores.
func Sanitize(name string) string {
	name = strings.NewReplacer("/", "", "\\", "", " ", "_").Replace(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if allowedRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	case r >= 'ㄱ' && r <= 'ㅎ':
		return true
	case r >= '가' && r <= '힣':
		return true
	}
	return false
}

// Candidate returns the n-th collision candidate for name: the name itself
// for n == 0, otherwise "<stem>(n)<ext>".
func Candidate(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s(%d)%s", stem, n, ext)
}

// Stem strips the directory and extension from name.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
