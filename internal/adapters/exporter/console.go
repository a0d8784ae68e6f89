package exporter

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/ports"
)

var weekdayNames = [7]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// ConsoleExporter реализует интерфейс Exporter для вывода отчетов в виде текстовых таблиц.
type ConsoleExporter struct {
	out io.Writer
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter. Пустой out означает stdout.
func NewConsoleExporter(out io.Writer) *ConsoleExporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleExporter{out: out}
}

var _ ports.Exporter = (*ConsoleExporter)(nil)

// ExportAnalytics выводит статистику по чату.
func (e *ConsoleExporter) ExportAnalytics(a *domain.ChatAnalytics) error {
	fmt.Fprintln(e.out, "--- Chat Analytics ---")
	fmt.Fprintf(e.out, "Сообщений: %d, активных пользователей: %d, выборка: %d\n\n", a.TotalMessages, a.ActiveUsers, a.SampleSize)

	sections := []struct {
		title string
		table *Table
	}{
		{"Самые активные", UserCountTable(a.MostActiveUsers)},
		{"Эмодзи", UserCountTable(a.EmojiUsers)},
		{"Медиа", UserCountTable(a.MediaUsers)},
		{"Длинные сообщения", UserCountTable(a.LongMessageUsers)},
		{"Пересылки", UserCountTable(a.ForwardingUsers)},
		{"Часы активности", HourTable(a.PeakHours)},
		{"Дни активности", DayTable(a.PeakDays)},
		{"Дни недели", WeekdayTable(a.ActiveWeekdays)},
		{"Темы", TopicTable(a.TopTopics)},
	}

	for _, s := range sections {
		fmt.Fprintf(e.out, "%s:\n", s.title)
		if len(s.table.Rows) == 0 {
			fmt.Fprintln(e.out, "  нет данных")
			fmt.Fprintln(e.out)
			continue
		}
		if err := s.table.Render(e.out); err != nil {
			return fmt.Errorf("failed to render %s: %w", s.title, err)
		}
		fmt.Fprintln(e.out)
	}
	return nil
}

// ExportStructure выводит отчет о структуре файла экспорта.
func (e *ConsoleExporter) ExportStructure(r *domain.StructureReport) error {
	fmt.Fprintln(e.out, "--- Export Structure ---")
	fmt.Fprintf(e.out, "Файл: %s (%s)\n", r.Path, humanBytes(r.FileSizeBytes))
	fmt.Fprintf(e.out, "Корневые ключи: %v\n", r.RootKeys)
	fmt.Fprintf(e.out, "Прочитано записей: %d, пропущено: %d\n", r.SampledRecords, r.SkippedRecords)
	fmt.Fprintf(e.out, "Уникальных авторов в выборке: %d\n", r.UniqueUsers)
	fmt.Fprintf(e.out, "Сообщений в файле (приблизительно): %d\n\n", r.ApproximateTotal)

	sections := []struct {
		title string
		items []domain.KeyCount
	}{
		{"Типы записей", r.MessageTypes},
		{"Поля", r.Fields},
		{"Типы медиа", r.MediaTypes},
	}
	for _, s := range sections {
		fmt.Fprintf(e.out, "%s:\n", s.title)
		if len(s.items) == 0 {
			fmt.Fprintln(e.out, "  нет данных")
			fmt.Fprintln(e.out)
			continue
		}
		if err := KeyCountTable(s.items).Render(e.out); err != nil {
			return fmt.Errorf("failed to render %s: %w", s.title, err)
		}
		fmt.Fprintln(e.out)
	}
	return nil
}

// UserCountTable строит таблицу рейтинга пользователей.
func UserCountTable(users []domain.UserCount) *Table {
	t := NewTable(Column{"#", 3}, Column{"User ID", 16}, Column{"Name", 22}, Column{"Count", 7})
	for i, u := range users {
		t.Append(strconv.Itoa(i+1), u.UserID, u.Name, strconv.Itoa(u.Count))
	}
	return t
}

// HourTable строит таблицу активности по часам.
func HourTable(hours []domain.HourCount) *Table {
	t := NewTable(Column{"Hour", 5}, Column{"Count", 7})
	for _, h := range hours {
		t.Append(fmt.Sprintf("%02d:00", h.Hour), strconv.Itoa(h.Count))
	}
	return t
}

// DayTable строит таблицу активности по дням.
func DayTable(days []domain.DayCount) *Table {
	t := NewTable(Column{"Date", 10}, Column{"Count", 7})
	for _, d := range days {
		t.Append(d.Date, strconv.Itoa(d.Count))
	}
	return t
}

// WeekdayTable строит таблицу активности по дням недели (0 - понедельник).
func WeekdayTable(weekdays map[int]int) *Table {
	t := NewTable(Column{"Day", 3}, Column{"Count", 7})
	for day := range weekdayNames {
		if n, ok := weekdays[day]; ok {
			t.Append(weekdayNames[day], strconv.Itoa(n))
		}
	}
	return t
}

// TopicTable строит таблицу тем.
func TopicTable(topics []domain.Topic) *Table {
	t := NewTable(Column{"Topic", 20}, Column{"Weight", 7})
	for _, tp := range topics {
		t.Append(tp.Topic, strconv.FormatFloat(tp.Weight, 'f', 3, 64))
	}
	return t
}

// KeyCountTable строит таблицу "значение - количество".
func KeyCountTable(items []domain.KeyCount) *Table {
	t := NewTable(Column{"Key", 24}, Column{"Count", 8})
	for _, kc := range items {
		t.Append(kc.Key, strconv.Itoa(kc.Count))
	}
	return t
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
