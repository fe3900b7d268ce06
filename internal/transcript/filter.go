package transcript

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// The repeat collapsing filter is a heuristic for models that stutter in
// CJK output. It is lossy: legitimately doubled characters are collapsed too,
// so it is off unless configured.

var (
	repeatedPunct = mustCompile(`([,.!?，。！？、；：])\1+`)
	repeatedOpen  = mustCompile(`([（\(])\1+`)
	repeatedClose = mustCompile(`([）\)])\1+`)
	repeatedHan   = mustCompile(`([一-龥])\1+`)
	hanWord       = mustCompile(`[一-龥]{2,4}`)

	spacedWord   = mustCompile(`([一-龥]{2,4})\s*\1`)
	possessive   = mustCompile(`([一-龥]+的)\s*\1`)
	locative     = mustCompile(`([一-龥]{2}于)\s*\1`)
	bodyNoun     = mustCompile(`([一-龥]{2}体)\s*\1`)
	cityNoun     = mustCompile(`([一-龥]{2,4}市)\s*\1`)
	finalPasses  = []*regexp2.Regexp{spacedWord, possessive, locative, bodyNoun, cityNoun}
	doubledChars = []string{
		"是是", "的的", "在在", "了了", "和和", "与与", "对对", "这这", "那那", "有有",
		"个个", "中中", "大大", "小小", "一一", "二二", "三三", "日日", "月月", "年年",
		"不不", "也也", "很很", "都都", "可可", "能能", "将将", "会会",
	}
)

func mustCompile(pattern string) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, regexp2.None)
	re.MatchTimeout = time.Second
	return re
}

// CollapseRepeats removes stuttered punctuation, characters and short words
func CollapseRepeats(text string) string {
	if text == "" {
		return ""
	}

	result := replace(repeatedPunct, text, "$1")
	result = replace(repeatedOpen, result, "$1")
	result = replace(repeatedClose, result, "$1")
	result = replace(repeatedHan, result, "$1")

	for _, word := range findAll(hanWord, result) {
		re, err := regexp2.Compile("("+regexp2.Escape(word)+`)\s*\1+`, regexp2.None)
		if err != nil {
			continue
		}
		result = replace(re, result, "$1")
	}

	for _, pair := range doubledChars {
		result = strings.ReplaceAll(result, pair, string([]rune(pair)[:1]))
	}

	for _, re := range finalPasses {
		result = replace(re, result, "$1")
	}
	return result
}

func replace(re *regexp2.Regexp, input, repl string) string {
	out, err := re.Replace(input, repl, -1, -1)
	if err != nil {
		return input
	}
	return out
}

func findAll(re *regexp2.Regexp, input string) []string {
	var words []string
	m, _ := re.FindStringMatch(input)
	for m != nil {
		words = append(words, m.String())
		m, _ = re.FindNextMatch(m)
	}
	return words
}
