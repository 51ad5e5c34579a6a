// Package guard holds lexical pre-submission checks that nudge beginners.
package guard

import "strings"

const (
	printPattern = "print("
	printWarning = "Use return instead of print() inside solve()"
)

// Check reports an advisory when source prints instead of returning a value.
// The match is purely lexical, so comments and string literals count too.
func Check(source string) (string, bool) {
	if strings.Contains(source, printPattern) {
		return printWarning, true
	}
	return "", false
}
