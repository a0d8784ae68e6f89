// Package textutil содержит счетчики эмодзи и ссылок, общие для аналитики и профилей.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/graphemes"
)

var (
	urlPattern       = regexp.MustCompile(`https?://\S+|www\.\S+`)
	shortcodePattern = regexp.MustCompile(`:[a-zA-Z0-9_]+:`)
)

const (
	variationSelector16 = '\uFE0F'
	combiningKeycap     = '\u20E3'
)

// emojiRanges - основные блоки Unicode, в которых лежат эмодзи.
var emojiRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00A9, Hi: 0x00AE, Stride: 5},
		{Lo: 0x203C, Hi: 0x2049, Stride: 13},
		{Lo: 0x2122, Hi: 0x2139, Stride: 23},
		{Lo: 0x231A, Hi: 0x231B, Stride: 1},
		{Lo: 0x2328, Hi: 0x23CF, Stride: 167},
		{Lo: 0x23E9, Hi: 0x23F3, Stride: 1},
		{Lo: 0x23F8, Hi: 0x23FA, Stride: 1},
		{Lo: 0x24C2, Hi: 0x24C2, Stride: 1},
		{Lo: 0x25AA, Hi: 0x25AB, Stride: 1},
		{Lo: 0x25B6, Hi: 0x25C0, Stride: 10},
		{Lo: 0x25FB, Hi: 0x25FE, Stride: 1},
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1},
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2B05, Hi: 0x2B07, Stride: 1},
		{Lo: 0x2B1B, Hi: 0x2B1C, Stride: 1},
		{Lo: 0x2B50, Hi: 0x2B55, Stride: 5},
		{Lo: 0x3030, Hi: 0x303D, Stride: 13},
		{Lo: 0x3297, Hi: 0x3299, Stride: 2},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1F02F, Stride: 1},
		{Lo: 0x1F0A0, Hi: 0x1F0FF, Stride: 1},
		{Lo: 0x1F170, Hi: 0x1F251, Stride: 1},
		{Lo: 0x1F300, Hi: 0x1FAFF, Stride: 1},
	},
	LatinOffset: 1,
}

// IsEmoji сообщает, является ли графема эмодзи. Учитываются флаги, последовательности
// с ZWJ и модификаторами, а также keycap-последовательности вида 1️⃣.
func IsEmoji(grapheme string) bool {
	r, _ := utf8.DecodeRuneInString(grapheme)
	if r == utf8.RuneError {
		return false
	}
	if unicode.Is(emojiRanges, r) {
		return true
	}
	return strings.ContainsRune(grapheme, variationSelector16) || strings.ContainsRune(grapheme, combiningKeycap)
}

// CountEmoji считает эмодзи в тексте: графемы-эмодзи и шорткоды вида :smile:.
func CountEmoji(text string) int {
	if text == "" {
		return 0
	}

	count := len(shortcodePattern.FindAllStringIndex(text, -1))

	iter := graphemes.FromString(text)
	for iter.Next() {
		g := iter.Value()
		// ASCII не бывает эмодзи, кроме keycap-последовательностей из нескольких байт.
		if len(g) == 1 {
			continue
		}
		if IsEmoji(g) {
			count++
		}
	}
	return count
}

// CountLinks считает ссылки вида http(s)://... и www....
func CountLinks(text string) int {
	if text == "" {
		return 0
	}
	return len(urlPattern.FindAllStringIndex(text, -1))
}

// StripNoise удаляет из текста ссылки и шорткоды эмодзи.
func StripNoise(text string) string {
	text = urlPattern.ReplaceAllString(text, " ")
	return shortcodePattern.ReplaceAllString(text, " ")
}

// Truncate обрезает строку до maxRunes символов и добавляет многоточие.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}

// RuneLen возвращает длину строки в символах.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
