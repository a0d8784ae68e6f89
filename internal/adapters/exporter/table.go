package exporter

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Column описывает колонку текстовой таблицы.
type Column struct {
	Title string
	Width int
}

// Table - текстовая таблица с переносом длинных значений по словам.
// Ширина считается в экранных позициях, поэтому CJK-символы и эмодзи занимают две.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// NewTable создает таблицу с заданными колонками.
func NewTable(columns ...Column) *Table {
	return &Table{Columns: columns}
}

// Append добавляет строку. Лишние значения отбрасываются, недостающие считаются пустыми.
func (t *Table) Append(values ...string) {
	row := make([]string, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

// Render выводит таблицу в w.
func (t *Table) Render(w io.Writer) error {
	var sb strings.Builder

	for _, col := range t.Columns {
		fmt.Fprintf(&sb, "| %s%s ", col.Title, padding(col.Title, col.Width))
	}
	sb.WriteString("|\n")

	for _, col := range t.Columns {
		fmt.Fprintf(&sb, "|%s", strings.Repeat("-", col.Width+2))
	}
	sb.WriteString("|\n")

	for _, row := range t.Rows {
		cells := make([][]string, len(t.Columns))
		maxLines := 1
		for i, col := range t.Columns {
			value := strings.ReplaceAll(strings.ToValidUTF8(row[i], ""), "\n", " ")
			cells[i] = wrapString(value, col.Width)
			maxLines = max(maxLines, len(cells[i]))
		}

		for line := 0; line < maxLines; line++ {
			for i, col := range t.Columns {
				part := ""
				if line < len(cells[i]) {
					part = cells[i][line]
				}
				fmt.Fprintf(&sb, "| %s%s ", part, padding(part, col.Width))
			}
			sb.WriteString("|\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// String возвращает таблицу в виде строки.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

// padding вычисляет отступ для строки с учетом поправки на CJK-символы.
func padding(s string, colWidth int) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	// Некоторые клиенты Telegram рисуют CJK-символы чуть шире, добавляем один пробел.
	hasCJK := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			hasCJK = true
			break
		}
	}

	if hasCJK && paddingNeeded >= 0 {
		paddingNeeded++
	}

	if paddingNeeded > 0 {
		return strings.Repeat(" ", paddingNeeded)
	}
	return ""
}

// wrapString переносит строку по словам так, чтобы каждая часть помещалась в width позиций.
// Слово длиннее width разрезается.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)

		if wordWidth > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
			lines = append(lines, splitByWidth(word, width)...)
			continue
		}

		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+wordWidth > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return lines
}

func splitByWidth(word string, width int) []string {
	var parts []string
	runes := []rune(word)
	for len(runes) > 0 {
		i, currentWidth := 0, 0
		for i < len(runes) {
			rw := runewidth.RuneWidth(runes[i])
			if currentWidth+rw > width {
				break
			}
			currentWidth += rw
			i++
		}
		// Символ шире колонки выводится целиком, иначе цикл не завершится.
		if i == 0 {
			i = 1
		}
		parts = append(parts, string(runes[:i]))
		runes = runes[i:]
	}
	return parts
}
