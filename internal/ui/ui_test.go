package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/skalibog/bookmap/internal/batch"
	"github.com/skalibog/bookmap/pkg/models"
)

func TestProgressModel(t *testing.T) {
	cancelled := false
	var m tea.Model = newProgressModel(func() { cancelled = true })

	m, _ = m.Update(startedMsg{runID: "r", files: []string{"/d/a.csv", "/d/b.csv"}})
	m, _ = m.Update(fileStartedMsg{path: "/d/a.csv"})
	m, _ = m.Update(fileDoneMsg{report: models.FileReport{File: "/d/a.csv", Status: models.StatusOK, Trades: 3}})

	pm := m.(progressModel)
	if pm.Done() != 1 || len(pm.files) != 2 {
		t.Fatalf("done = %d files = %d", pm.Done(), len(pm.files))
	}
	view := pm.View()
	if !strings.Contains(view, "a.csv") || !strings.Contains(view, "b.csv") || !strings.Contains(view, "1 из 2") {
		t.Errorf("view = %s", view)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil || !cancelled {
		t.Error("q does not stop the run")
	}

	m, cmd = m.Update(finishedMsg{})
	if cmd == nil || !m.(progressModel).finished {
		t.Error("finished message does not quit")
	}
}

func TestRenderSummary(t *testing.T) {
	s := batch.Summary{
		RunID: "run-1",
		Reports: []models.FileReport{
			{File: "/d/600000_20240315.csv", Symbol: "600000", Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
				Rows: 10, Trades: 2, Status: models.StatusOK, Output: "/out/bookmap_600000_20240315.html"},
			{File: "/d/bad.csv", Symbol: "bad", Status: models.StatusFailed, Err: "несовпадение схемы"},
		},
		Duration: 1500 * time.Millisecond,
	}
	out := RenderSummary(s)
	for _, want := range []string{"СТАТУС", "╭", "600000_20240315.csv", "2024-03-15", "bookmap_600000_20240315.html", "несовпадение схемы", "успешно 1", "ошибок 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestTailLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json.log")
	lines := []string{
		`{"level":"INFO","ts":"15.03.2024 - 09:30:00.000000000+08:00","msg":"Файл обработан","symbol":"600000"}`,
		`not json`,
		`{"level":"ERROR","ts":"15.03.2024 - 09:30:01.000000000+08:00","msg":"Ошибка","error":"x"}`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := tailLogs(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "not json" {
		t.Fatalf("logs = %q", got)
	}
	if got[1] != "[09:30:01] [ERROR] Ошибка (error: x)" {
		t.Errorf("line = %q", got[1])
	}

	if got, err := tailLogs(filepath.Join(t.TempDir(), "none"), 2); err != nil || got != nil {
		t.Errorf("missing file = %v, %v", got, err)
	}
}
