package util

import (
	. "unicode"
	"unicode/utf8"
)

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func Max(a, b int) int {
	if a < b {
		return b
	}
	return a
}

func Min(a, b int) int {
	if a > b {
		return b
	}
	return a
}

type RuneTester func(r rune) bool

func TestEach(t RuneTester, s string) byte {
	for i, w := 0, 0; i < len(s); i += w {
		runeValue, width := utf8.DecodeRuneInString(s[i:])
		if t(runeValue) {
			return 't'
		}
		w = width
	}
	return 'f'
}

var Testers = []RuneTester{
	IsDigit,
	IsLetter,
	IsLower,
	IsPunct,
	IsSymbol,
	IsUpper,
}

// Signature is a coarse character-class shape of s, one byte per tester.
func Signature(s string) string {
	indicators := make([]byte, len(Testers))
	for i, t := range Testers {
		indicators[i] = TestEach(t, s)
	}
	return string(indicators)
}

// Prefix returns the first n runes of s.
func Prefix(s string, n int) string {
	runes := []rune(s)
	return string(runes[0:Min(len(runes), n)])
}

// Suffix returns the last n runes of s.
func Suffix(s string, n int) string {
	runes := []rune(s)
	return string(runes[Max(len(runes)-n, 0):])
}
