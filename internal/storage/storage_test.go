package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
)

func sampleResult(dir string) *models.SessionResult {
	start := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	return &models.SessionResult{
		RunID:  "run-1",
		Symbol: "600000",
		Source: filepath.Join(dir, "600000_20240315.csv"),
		Date:   start,
		Times:  []time.Time{start, start.Add(3 * time.Second), start.Add(6 * time.Second)},
		Space:  models.CoordinateSpace{Points: 3, DailyMin: 10, DailyMax: 10.5},
		Trades: []models.SyntheticTrade{
			{Index: 1, Time: start.Add(3 * time.Second), VolumeDelta: 60, PriceDelta: models.Some(-0.2),
				ExecutionPrice: models.Some(10.29), Side: models.SideSell},
			{Index: 2, Time: start.Add(6 * time.Second), VolumeDelta: 80, PriceDelta: models.Missing(),
				ExecutionPrice: models.Missing(), Side: models.SideSell, Estimated: true},
		},
		VWAP:       []float64{10, 10.1, 10.2},
		CVD:        []float64{0, -60, -140},
		Profile:    []models.VolumeProfileEntry{{Price: 10.3, SellVolume: 60}, {Price: 10.5, BuyVolume: 80}},
		MinuteBars: []models.MinuteBar{
			{Start: start, Open: 10, High: 10.5, Low: 10, Close: 10.3, Volume: 140},
			{Start: start.Add(time.Minute), Open: 10.3, High: 10.4, Low: 10.1, Close: 10.2, Volume: 30},
		},
		Indicators: &models.Indicators{
			SMA: []models.NullFloat{models.Missing(), models.Some(10.25)},
			RSI: []models.NullFloat{models.Missing(), models.Some(55)},
			ATR: []models.NullFloat{models.Missing(), models.Some(0.4)},
		},
		Artifact:   &models.Artifact{Name: "bookmap_600000_20240315.html", ContentType: "text/html", Data: []byte("<html></html>")},
	}
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult(dir)

	path, err := NewFileStorage("").SaveResult(context.Background(), res)
	if err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if path != filepath.Join(dir, "bookmap_600000_20240315.html") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "<html></html>" {
		t.Fatalf("file = %q, %v", data, err)
	}

	out := filepath.Join(dir, "out", "nested")
	path, err = NewFileStorage(out).SaveResult(context.Background(), res)
	if err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if filepath.Dir(path) != out {
		t.Errorf("path = %s", path)
	}

	res.Artifact = nil
	if _, err := NewFileStorage(dir).SaveResult(context.Background(), res); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("err = %v", err)
	}
}

type failing struct{ closed bool }

func (f *failing) SaveResult(context.Context, *models.SessionResult) (string, error) {
	return "", errors.New("недоступно")
}

func (f *failing) Close() error {
	f.closed = true
	return nil
}

func TestMulti(t *testing.T) {
	dir := t.TempDir()
	bad := &failing{}
	m := NewMulti(bad, NewFileStorage(dir))

	path, err := m.SaveResult(context.Background(), sampleResult(dir))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if path == "" {
		t.Error("file location lost")
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("file not written: %v", statErr)
	}
	if err := m.Close(); err != nil || !bad.closed {
		t.Errorf("close err=%v closed=%v", err, bad.closed)
	}
}

func TestNewFileOnly(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{Backends: []string{"file"}}, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.(*FileStorage); !ok {
		t.Errorf("storage = %T", s)
	}
	if _, err := New(context.Background(), config.StorageConfig{Backends: []string{"ftp"}}, ""); err == nil {
		t.Error("unknown backend accepted")
	}
	if _, err := New(context.Background(), config.StorageConfig{}, ""); !errors.Is(err, ErrNoBackends) {
		t.Errorf("empty backends: err = %v", err)
	}
}

func TestSQLiteStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewSQLiteStorage(ctx, config.SQLiteConfig{Path: filepath.Join(dir, "bookmap.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	defer s.Close()

	res := sampleResult(dir)
	for range 2 {
		if _, err := s.SaveResult(ctx, res); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}

	got, err := s.Trades(ctx, res.RunID, res.Symbol, res.Date)
	if err != nil {
		t.Fatalf("Trades: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("trades = %d, want 2", len(got))
	}
	if got[0].Index != 1 || got[0].ExecutionPrice != models.Some(10.29) || got[0].Side != models.SideSell {
		t.Errorf("trade 0 = %+v", got[0])
	}
	if got[1].ExecutionPrice.Valid || got[1].PriceDelta.Valid || !got[1].Estimated {
		t.Errorf("trade 1 = %+v", got[1])
	}
	if !got[0].Time.Equal(res.Trades[0].Time) {
		t.Errorf("time = %v", got[0].Time)
	}

	var profileRows int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM volume_profile").Scan(&profileRows); err != nil {
		t.Fatal(err)
	}
	if profileRows != 2 {
		t.Errorf("profile rows = %d", profileRows)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT rsi, atr FROM minute_bars ORDER BY start")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var rsi, atr []sql.NullFloat64
	for rows.Next() {
		var r, a sql.NullFloat64
		if err := rows.Scan(&r, &a); err != nil {
			t.Fatal(err)
		}
		rsi = append(rsi, r)
		atr = append(atr, a)
	}
	if len(rsi) != 2 {
		t.Fatalf("minute bars = %d, want 2", len(rsi))
	}
	if rsi[0].Valid || atr[0].Valid {
		t.Errorf("warm-up bar has indicators: rsi=%v atr=%v", rsi[0], atr[0])
	}
	if rsi[1] != (sql.NullFloat64{Float64: 55, Valid: true}) || atr[1] != (sql.NullFloat64{Float64: 0.4, Valid: true}) {
		t.Errorf("bar 1 indicators: rsi=%v atr=%v", rsi[1], atr[1])
	}
}

func TestInfluxPoints(t *testing.T) {
	res := sampleResult(t.TempDir())
	points := Points(res)

	count := map[string]int{}
	for _, p := range points {
		count[p.Name()]++
	}
	want := map[string]int{"trades": 2, "vwap_cvd": 3, "minute_bars": 2, "volume_profile": 2}
	for name, n := range want {
		if count[name] != n {
			t.Errorf("%s points = %d, want %d", name, count[name], n)
		}
	}

	for _, p := range points {
		if p.Name() != "trades" || !p.Time().Equal(res.Trades[1].Time) {
			continue
		}
		for _, f := range p.FieldList() {
			if f.Key == "execution_price" {
				t.Error("missing execution price written as field")
			}
		}
	}

	for _, p := range points {
		if p.Name() != "minute_bars" {
			continue
		}
		fields := map[string]interface{}{}
		for _, f := range p.FieldList() {
			fields[f.Key] = f.Value
		}
		switch {
		case p.Time().Equal(res.MinuteBars[0].Start):
			for _, k := range []string{"sma", "rsi", "atr"} {
				if _, ok := fields[k]; ok {
					t.Errorf("warm-up bar has field %s", k)
				}
			}
		case p.Time().Equal(res.MinuteBars[1].Start):
			if fields["rsi"] != 55.0 || fields["atr"] != 0.4 || fields["sma"] != 10.25 {
				t.Errorf("bar 1 fields = %v", fields)
			}
		}
	}
}

func TestS3KeyAndEndpoint(t *testing.T) {
	s := &S3Storage{bucket: "b", prefix: "bookmap/2024"}
	if got := s.Key(sampleResult("")); got != "bookmap/2024/bookmap_600000_20240315.html" {
		t.Errorf("key = %s", got)
	}
	if got := normaliseEndpoint("minio:9000", false); got != "http://minio:9000" {
		t.Errorf("endpoint = %s", got)
	}
	if got := normaliseEndpoint("https://s3.example.com", false); got != "https://s3.example.com" {
		t.Errorf("endpoint = %s", got)
	}
}
