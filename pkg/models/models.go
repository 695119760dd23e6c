package models

import (
	"encoding/json"
	"math"
	"time"
)

// BookDepth количество уровней стакана с каждой стороны
const BookDepth = 5

// NullFloat числовое значение, которое может отсутствовать
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some создает присутствующее значение, NaN считается пропуском
func Some(v float64) NullFloat {
	if math.IsNaN(v) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// Missing возвращает маркер пропущенного значения
func Missing() NullFloat {
	return NullFloat{}
}

// Get возвращает значение и признак его наличия
func (n NullFloat) Get() (float64, bool) {
	return n.Float64, n.Valid
}

// Or возвращает значение или fallback, если значение отсутствует
func (n NullFloat) Or(fallback float64) float64 {
	if !n.Valid {
		return fallback
	}
	return n.Float64
}

// Sub разность двух значений, пропуск если хотя бы одно отсутствует
func (n NullFloat) Sub(other NullFloat) NullFloat {
	if !n.Valid || !other.Valid {
		return NullFloat{}
	}
	return Some(n.Float64 - other.Float64)
}

// MarshalJSON пропуск сериализуется как null, чтобы линии на графике рвались
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// Level уровень стакана
type Level struct {
	Price NullFloat
	Size  NullFloat
}

// Snapshot снимок стакана второго уровня
type Snapshot struct {
	Time       time.Time
	MarketCode string
	Symbol     string
	LastPrice  NullFloat
	TradeCount NullFloat // накопленное число сделок
	Turnover   NullFloat // накопленный оборот
	Volume     NullFloat // накопленный объем
	Direction  string
	Bids       [BookDepth]Level
	Asks       [BookDepth]Level
}

// BestBid лучшая цена покупки
func (s *Snapshot) BestBid() NullFloat {
	return s.Bids[0].Price
}

// BestAsk лучшая цена продажи
func (s *Snapshot) BestAsk() NullFloat {
	return s.Asks[0].Price
}

// Session упорядоченные снимки одного инструмента за одну торговую сессию.
// Индекс снимка в Snapshots служит временной координатой.
type Session struct {
	Symbol    string
	Source    string
	Snapshots []Snapshot
}

// Len количество снимков
func (s *Session) Len() int {
	return len(s.Snapshots)
}

// Date время первого снимка сессии
func (s *Session) Date() time.Time {
	if len(s.Snapshots) == 0 {
		return time.Time{}
	}
	return s.Snapshots[0].Time
}

// TradeSide сторона агрессора синтетической сделки
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// BookSide сторона стакана
type BookSide string

const (
	BookBid BookSide = "bid"
	BookAsk BookSide = "ask"
)

// SyntheticTrade сделка, выведенная из изменения накопленного объема
type SyntheticTrade struct {
	Index          int
	Time           time.Time
	VolumeDelta    float64
	PriceDelta     NullFloat
	ExecutionPrice NullFloat
	Side           TradeSide
	Estimated      bool // лучшая котировка отсутствовала, взята последняя цена
}

// Label подпись сделки для всплывающей подсказки
func (t SyntheticTrade) Label() string {
	switch {
	case t.Side == SideBuy && t.Estimated:
		return "BUY (est.)"
	case t.Side == SideBuy:
		return "Active BUY"
	case t.Estimated:
		return "SELL (est.)"
	default:
		return "Active SELL"
	}
}

// CoordinateSpace общая система координат для всех слоев графика
type CoordinateSpace struct {
	Points          int
	DailyMin        float64
	DailyMax        float64
	DailyRange      float64
	ExtendedMin     float64
	ExtendedMax     float64
	MainWidth       float64
	ProfileWidth    float64
	ProfileCenter   float64
	TotalWidth      float64
	VolumeBarBase   float64
	VolumeBarTop    float64
	VolumeBarHeight float64
}

// Degenerate нулевой дневной диапазон цен
func (c CoordinateSpace) Degenerate() bool {
	return c.DailyRange == 0
}

// HeatmapCell ячейка тепловой карты ликвидности
type HeatmapCell struct {
	TimeIndex int
	Price     float64
	Size      float64
	Side      BookSide
	Opacity   float64
}

// VolumeProfileEntry объем по цене исполнения
type VolumeProfileEntry struct {
	Price      float64
	BuyVolume  float64
	SellVolume float64
}

// VolumeBar агрегированный вертикальный столбец объема
type VolumeBar struct {
	Start      int
	End        int
	Center     float64
	Volume     float64
	PriceDelta float64
	Trades     int
}

// MinuteBar минутный бар
type MinuteBar struct {
	Start      time.Time
	FirstIndex int
	LastIndex  int
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	Turnover   float64
	VWAP       float64
	Spread     float64 // средний спред лучших котировок
	Mid        float64 // средняя середина спреда
}

// Indicators технические индикаторы по минутным барам.
// Значения периода разогрева отсутствуют.
type Indicators struct {
	SMA []NullFloat
	RSI []NullFloat
	ATR []NullFloat
}

// At значения индикаторов для бара i, nil и выход за границы дают отсутствующие значения
func (ind *Indicators) At(i int) (sma, rsi, atr NullFloat) {
	if ind == nil {
		return
	}
	at := func(s []NullFloat) NullFloat {
		if i < 0 || i >= len(s) {
			return NullFloat{}
		}
		return s[i]
	}
	return at(ind.SMA), at(ind.RSI), at(ind.ATR)
}

// Artifact отрисованный результат для сохранения
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// SessionResult все производные данные одной сессии
type SessionResult struct {
	RunID      string
	Symbol     string
	Source     string
	Date       time.Time
	Times      []time.Time
	Space      CoordinateSpace
	Trades     []SyntheticTrade
	VWAP       []float64
	CVD        []float64
	Heatmap    []HeatmapCell
	Profile    []VolumeProfileEntry
	VolumeBars []VolumeBar
	MinuteBars []MinuteBar
	Indicators *Indicators
	Scene      *Scene
	Artifact   *Artifact
}

// ReportStatus итог обработки файла
type ReportStatus string

const (
	StatusOK      ReportStatus = "ok"
	StatusSkipped ReportStatus = "skipped"
	StatusFailed  ReportStatus = "failed"
)

// FileReport отчет по одному входному файлу
type FileReport struct {
	File          string
	Symbol        string
	Date          time.Time
	Rows          int
	Dropped       int
	ParseFailures int
	Trades        int
	TradingDay    bool
	Output        string
	Status        ReportStatus
	Err           string
	Duration      time.Duration
}
