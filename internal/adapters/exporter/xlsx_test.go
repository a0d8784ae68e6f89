package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"telegram-chat-analyzer/internal/domain"
)

func TestXLSXExporter(t *testing.T) {
	t.Run("ExportAnalytics создает листы", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewXLSXExporter(&buf, nil).ExportAnalytics(sampleAnalytics())
		require.NoError(t, err)

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{SheetOverview, SheetRankings, SheetActivity, SheetTopics}, f.GetSheetList())

		total, err := f.GetCellValue(SheetOverview, "B2")
		require.NoError(t, err)
		assert.Equal(t, "120", total)

		rows, err := f.GetRows(SheetRankings)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"Самые активные", "1", "user1", "Alice", "80"}, rows[1])
		assert.Equal(t, []string{"Эмодзи", "1", "user1", "Alice", "7"}, rows[3])

		topic, err := f.GetCellValue(SheetTopics, "A2")
		require.NoError(t, err)
		assert.Equal(t, "release", topic)
	})

	t.Run("ExportStructure", func(t *testing.T) {
		var buf bytes.Buffer
		report := &domain.StructureReport{
			Path:         "result.json",
			MessageTypes: []domain.KeyCount{{Key: "message", Count: 2}},
			MediaTypes:   []domain.KeyCount{{Key: "sticker", Count: 1}},
		}
		require.NoError(t, NewXLSXExporter(&buf, nil).ExportStructure(report))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows(SheetFields)
		require.NoError(t, err)
		assert.Equal(t, []string{"Тип записи", "message", "2"}, rows[1])
		assert.Equal(t, []string{"Тип медиа", "sticker", "1"}, rows[2])
	})
}
