package ui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/skalibog/bookmap/internal/batch"
	"github.com/skalibog/bookmap/pkg/models"
)

var summaryColumns = []string{"ФАЙЛ", "СИМВОЛ", "ДАТА", "СТРОК", "ОТБРОШЕНО", "СДЕЛОК", "СТАТУС", "РЕЗУЛЬТАТ"}

const statusColumn = 6

// statusStyle цвет статуса отчета
func statusStyle(status models.ReportStatus) lipgloss.Style {
	switch status {
	case models.StatusOK:
		return lipgloss.NewStyle().Foreground(successColor)
	case models.StatusSkipped:
		return lipgloss.NewStyle().Foreground(warningColor)
	default:
		return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	}
}

// summaryRow ячейки строки отчета без стилей
func summaryRow(r models.FileReport) []string {
	date := "-"
	if !r.Date.IsZero() {
		date = r.Date.Format("2006-01-02")
	}
	result := r.Output
	if r.Status != models.StatusOK {
		result = r.Err
	}
	return []string{
		filepath.Base(r.File),
		r.Symbol,
		date,
		fmt.Sprint(r.Rows),
		fmt.Sprint(r.Dropped),
		fmt.Sprint(r.Trades),
		string(r.Status),
		result,
	}
}

// RenderSummary таблица итогов пакетной обработки
func RenderSummary(s batch.Summary) string {
	rows := make([][]string, 0, len(s.Reports))
	for _, r := range s.Reports {
		rows = append(rows, summaryRow(r))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(secondaryColor)).
		Headers(summaryColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == statusColumn:
				return cellStyle.Inherit(statusStyle(s.Reports[row].Status))
			default:
				return cellStyle
			}
		})

	totals := fmt.Sprintf("Запуск %s: файлов %d, успешно %d, пропущено %d, ошибок %d, время %s",
		s.RunID, len(s.Reports),
		s.Count(models.StatusOK), s.Count(models.StatusSkipped), s.Count(models.StatusFailed),
		s.Duration.Round(time.Millisecond))

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("BOOKMAP - итоги обработки"),
		t.Render(),
		footerStyle.Render(totals),
	)
}
