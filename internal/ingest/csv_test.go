package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestReadGBK(t *testing.T) {
	src := "市场代码,证券代码,时间\nSH,600000,2024-03-15 09:30:00\n,,\nSH,600000,2024-03-15 09:30:03\n"
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(src)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "600000_20240315.csv")
	if err := os.WriteFile(path, []byte(encoded), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewCSVReader(config.InputConfig{Encoding: "gbk"})
	table, err := r.ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if table.Source != path {
		t.Errorf("source = %q", table.Source)
	}
	if got := strings.Join(table.Header, "|"); got != "市场代码|证券代码|时间" {
		t.Errorf("header = %q", got)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank row skipped)", len(table.Rows))
	}
}

func TestReadUTF8WithBOMAndRaggedRows(t *testing.T) {
	src := "\ufeffa,b,c\n1,2,3\n4,5\n"
	r := NewCSVReader(config.InputConfig{Encoding: "utf-8"})
	table, err := r.Read(context.Background(), "x.csv", bytes.NewBufferString(src))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.Header[0] != "a" {
		t.Errorf("BOM not stripped: %q", table.Header[0])
	}
	if len(table.Rows[1]) != 2 {
		t.Errorf("ragged row length = %d", len(table.Rows[1]))
	}
}

func TestReadEmpty(t *testing.T) {
	r := NewCSVReader(config.InputConfig{Encoding: "utf-8"})
	_, err := r.Read(context.Background(), "empty.csv", bytes.NewBuffer(nil))
	if !errors.Is(err, models.ErrEmptySession) {
		t.Fatalf("err = %v, want ErrEmptySession", err)
	}
}

func TestUnknownEncoding(t *testing.T) {
	r := NewCSVReader(config.InputConfig{Encoding: "ebcdic"})
	if _, err := r.Read(context.Background(), "x.csv", bytes.NewBufferString("a\n")); err == nil {
		t.Fatal("expected error")
	}
}
