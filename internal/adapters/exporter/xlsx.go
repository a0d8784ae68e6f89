package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/ports"
)

// Имена листов книги с аналитикой.
const (
	SheetOverview = "Обзор"
	SheetRankings = "Рейтинги"
	SheetActivity = "Активность"
	SheetTopics   = "Темы"
	SheetFields   = "Структура"
)

// XLSXExporter записывает отчеты в книгу Excel.
type XLSXExporter struct {
	out    io.Writer
	logger *slog.Logger
}

// NewXLSXExporter создает экспортер, пишущий книгу в out.
func NewXLSXExporter(out io.Writer, logger *slog.Logger) *XLSXExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXExporter{out: out, logger: logger}
}

var _ ports.Exporter = (*XLSXExporter)(nil)

// ExportAnalytics записывает статистику по чату: обзор, рейтинги, активность и темы на отдельных листах.
func (e *XLSXExporter) ExportAnalytics(a *domain.ChatAnalytics) error {
	f := excelize.NewFile()
	defer e.close(f)

	sheet := newSheetWriter(f)

	sheet.open(SheetOverview)
	sheet.row("Показатель", "Значение")
	sheet.row("Сообщений", a.TotalMessages)
	sheet.row("Активных пользователей", a.ActiveUsers)
	sheet.row("Размер выборки", a.SampleSize)

	sheet.open(SheetRankings)
	sheet.row("Рейтинг", "Место", "User ID", "Имя", "Количество")
	rankings := []struct {
		title string
		users []domain.UserCount
	}{
		{"Самые активные", a.MostActiveUsers},
		{"Эмодзи", a.EmojiUsers},
		{"Медиа", a.MediaUsers},
		{"Длинные сообщения", a.LongMessageUsers},
		{"Пересылки", a.ForwardingUsers},
	}
	for _, r := range rankings {
		for i, u := range r.users {
			sheet.row(r.title, i+1, u.UserID, u.Name, u.Count)
		}
	}

	sheet.open(SheetActivity)
	sheet.row("Час", "Сообщений")
	for _, h := range a.PeakHours {
		sheet.row(h.Hour, h.Count)
	}
	sheet.row()
	sheet.row("Дата", "Сообщений")
	for _, d := range a.PeakDays {
		sheet.row(d.Date, d.Count)
	}
	sheet.row()
	sheet.row("День недели", "Сообщений")
	for day, name := range weekdayNames {
		if n, ok := a.ActiveWeekdays[day]; ok {
			sheet.row(name, n)
		}
	}

	sheet.open(SheetTopics)
	sheet.row("Тема", "Вес")
	for _, t := range a.TopTopics {
		sheet.row(t.Topic, t.Weight)
	}

	return sheet.finish(e.out)
}

// ExportStructure записывает отчет о структуре файла экспорта.
func (e *XLSXExporter) ExportStructure(r *domain.StructureReport) error {
	f := excelize.NewFile()
	defer e.close(f)

	sheet := newSheetWriter(f)
	sheet.open(SheetOverview)
	sheet.row("Показатель", "Значение")
	sheet.row("Файл", r.Path)
	sheet.row("Размер, байт", r.FileSizeBytes)
	sheet.row("Прочитано записей", r.SampledRecords)
	sheet.row("Пропущено записей", r.SkippedRecords)
	sheet.row("Уникальных авторов", r.UniqueUsers)
	sheet.row("Сообщений (приблизительно)", r.ApproximateTotal)

	sheet.open(SheetFields)
	sheet.row("Раздел", "Значение", "Количество")
	for _, kc := range r.MessageTypes {
		sheet.row("Тип записи", kc.Key, kc.Count)
	}
	for _, kc := range r.Fields {
		sheet.row("Поле", kc.Key, kc.Count)
	}
	for _, kc := range r.MediaTypes {
		sheet.row("Тип медиа", kc.Key, kc.Count)
	}

	return sheet.finish(e.out)
}

func (e *XLSXExporter) close(f *excelize.File) {
	if err := f.Close(); err != nil {
		e.logger.Error("failed to close excel file", slog.String("error", err.Error()))
	}
}

// sheetWriter последовательно заполняет листы книги и запоминает первую ошибку.
type sheetWriter struct {
	f      *excelize.File
	name   string
	next   int
	sheets int
	err    error
}

func newSheetWriter(f *excelize.File) *sheetWriter {
	return &sheetWriter{f: f}
}

func (s *sheetWriter) open(name string) {
	if s.err != nil {
		return
	}
	if s.sheets == 0 {
		// Первый лист книги переименовывается, а не создается.
		s.err = s.f.SetSheetName(s.f.GetSheetName(0), name)
	} else {
		_, s.err = s.f.NewSheet(name)
	}
	s.name = name
	s.next = 1
	s.sheets++
}

func (s *sheetWriter) row(values ...any) {
	if s.err != nil {
		return
	}
	if len(values) > 0 {
		cell, err := excelize.CoordinatesToCellName(1, s.next)
		if err != nil {
			s.err = err
			return
		}
		if err := s.f.SetSheetRow(s.name, cell, &values); err != nil {
			s.err = fmt.Errorf("failed to write row %d on %s: %w", s.next, s.name, err)
			return
		}
	}
	s.next++
}

func (s *sheetWriter) finish(w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	s.f.SetActiveSheet(0)
	if err := s.f.Write(w); err != nil {
		return fmt.Errorf("failed to write excel: %w", err)
	}
	return nil
}
