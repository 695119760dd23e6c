// Package ingest читает сырые снимки стакана из CSV файлов.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table сырые строки файла до нормализации
type Table struct {
	Source string
	Header []string
	Rows   [][]string
}

// CSVReader читает CSV в заданной кодировке
type CSVReader struct {
	encoding string
}

// NewCSVReader создает читателя по настройкам входа
func NewCSVReader(cfg config.InputConfig) *CSVReader {
	return &CSVReader{encoding: cfg.Encoding}
}

// ReadFile читает файл целиком
func (r *CSVReader) ReadFile(ctx context.Context, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", path, err)
	}
	defer f.Close()

	return r.Read(ctx, path, f)
}

// Read разбирает поток: первая строка заголовок, остальные данные
func (r *CSVReader) Read(ctx context.Context, source string, rd io.Reader) (*Table, error) {
	enc, err := lookupEncoding(r.encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(rd, enc.NewDecoder()))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: файл %s пуст", models.ErrEmptySession, source)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заголовка %s: %w", source, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	table := &Table{Source: source, Header: header}
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения %s, строка %d: %w", source, line, err)
		}
		if isBlank(record) {
			continue
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "gbk":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	default:
		return nil, fmt.Errorf("неподдерживаемая кодировка %q", name)
	}
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
