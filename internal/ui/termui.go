package ui

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/skalibog/bookmap/internal/batch"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/logger"
	"github.com/skalibog/bookmap/pkg/models"
	"go.uber.org/zap"
)

// Число строк лога в окне
const maxLogs = 8

// Сообщения для обновления UI
type (
	startedMsg struct {
		runID string
		files []string
	}
	fileStartedMsg struct{ path string }
	fileDoneMsg    struct{ report models.FileReport }
	logsMsg        struct{ lines []string }
	finishedMsg    struct{}
)

// fileState состояние одного файла в окне прогресса
type fileState struct {
	path    string
	running bool
	report  *models.FileReport
}

// progressModel модель bubbletea окна прогресса
type progressModel struct {
	runID    string
	files    []fileState
	index    map[string]int
	logs     []string
	started  time.Time
	width    int
	finished bool
	cancel   context.CancelFunc
}

func newProgressModel(cancel context.CancelFunc) progressModel {
	return progressModel{
		index:   make(map[string]int),
		started: time.Now(),
		width:   120,
		cancel:  cancel,
	}
}

// Init методы для bubbletea
func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case startedMsg:
		m.runID = msg.runID
		m.files = make([]fileState, len(msg.files))
		m.index = make(map[string]int, len(msg.files))
		for i, f := range msg.files {
			m.files[i] = fileState{path: f}
			m.index[f] = i
		}

	case fileStartedMsg:
		if i, ok := m.index[msg.path]; ok {
			m.files[i].running = true
		}

	case fileDoneMsg:
		if i, ok := m.index[msg.report.File]; ok {
			r := msg.report
			m.files[i].running = false
			m.files[i].report = &r
		}

	case logsMsg:
		m.logs = msg.lines

	case finishedMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

// Done число обработанных файлов
func (m progressModel) Done() int {
	n := 0
	for _, f := range m.files {
		if f.report != nil {
			n++
		}
	}
	return n
}

func (m progressModel) View() string {
	title := titleStyle.Render("BOOKMAP - построение карт стакана")

	var files strings.Builder
	if len(m.files) == 0 {
		files.WriteString("  Поиск файлов...\n")
	}
	for _, f := range m.files {
		name := filepath.Base(f.path)
		switch {
		case f.report != nil:
			status := statusStyle(f.report.Status).Render(string(f.report.Status))
			files.WriteString(fmt.Sprintf("  %s %s сделок: %d\n", status, name, f.report.Trades))
		case f.running:
			files.WriteString(lipgloss.NewStyle().Foreground(primaryColor).Render("  >> "+name) + "\n")
		default:
			files.WriteString(lipgloss.NewStyle().Foreground(mutedColor).Render("  .. "+name) + "\n")
		}
	}

	progress := fmt.Sprintf("Обработано %d из %d, прошло %s",
		m.Done(), len(m.files), time.Since(m.started).Round(time.Second))

	return appStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render("ФАЙЛЫ"), files.String())),
			sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render("ЛОГИ"), renderLogs(m.logs))),
			footerStyle.Render(progress+"   Клавиши: Q - остановить"),
		),
	)
}

func renderLogs(logs []string) string {
	var b strings.Builder
	for _, line := range logs {
		switch {
		case strings.Contains(line, "[ERROR]"):
			line = lipgloss.NewStyle().Foreground(errorColor).Render(line)
		case strings.Contains(line, "[WARN]"):
			line = lipgloss.NewStyle().Foreground(warningColor).Render(line)
		case strings.Contains(line, "[INFO]"):
			line = lipgloss.NewStyle().Foreground(successColor).Render(line)
		}
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}

// TermUI окно прогресса пакетной обработки, реализует batch.Observer
type TermUI struct {
	program *tea.Program
	logFile string
	done    chan struct{}
	stop    chan struct{}
	once    sync.Once
}

var _ batch.Observer = (*TermUI)(nil)

// NewTermUI создает окно прогресса. cancel вызывается при выходе по клавише.
func NewTermUI(cfg config.Config, cancel context.CancelFunc) *TermUI {
	return &TermUI{
		program: tea.NewProgram(newProgressModel(cancel), tea.WithAltScreen()),
		logFile: cfg.Logging.JSONFile,
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

// Start запускает окно и чтение логов в фоне
func (ui *TermUI) Start() {
	go func() {
		defer close(ui.done)
		if _, err := ui.program.Run(); err != nil {
			logger.Error("Ошибка запуска UI", zap.Error(err))
		}
	}()

	if ui.logFile == "" {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ui.stop:
				return
			case <-ticker.C:
				lines, err := tailLogs(ui.logFile, maxLogs)
				if err != nil {
					continue
				}
				ui.program.Send(logsMsg{lines: lines})
			}
		}
	}()
}

// Stop закрывает окно и ждет завершения
func (ui *TermUI) Stop() {
	ui.once.Do(func() {
		close(ui.stop)
		ui.program.Send(finishedMsg{})
	})
	<-ui.done
}

func (ui *TermUI) Started(runID string, files []string) {
	ui.program.Send(startedMsg{runID: runID, files: files})
}

func (ui *TermUI) FileStarted(path string) {
	ui.program.Send(fileStartedMsg{path: path})
}

func (ui *TermUI) FileDone(report models.FileReport) {
	ui.program.Send(fileDoneMsg{report: report})
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// tailLogs последние n записей JSON лога в читаемом виде
func tailLogs(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var logs []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		logs = append(logs, formatLogLine(scanner.Text()))
		if len(logs) > n {
			logs = logs[1:]
		}
	}
	return logs, scanner.Err()
}

// formatLogLine запись zap в виде "[время] [уровень] сообщение (поле: значение)"
func formatLogLine(line string) string {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line
	}

	level, _ := entry["level"].(string)
	ts, _ := entry["ts"].(string)
	msg, _ := entry["msg"].(string)
	level = ansiRegex.ReplaceAllString(level, "")

	timestamp := ""
	if t, err := time.Parse("02.01.2006 - 15:04:05.999999999Z07:00", ts); err == nil {
		timestamp = t.Format("15:04:05")
	}

	out := fmt.Sprintf("[%s] [%s] %s", timestamp, level, msg)
	for _, k := range []string{"symbol", "file", "error", "reason"} {
		if v, ok := entry[k]; ok {
			out += fmt.Sprintf(" (%s: %v)", k, v)
		}
	}
	return out
}
