package models

import "time"

// ShapeLayer слой фоновых фигур
type ShapeLayer string

const (
	LayerHeatmap    ShapeLayer = "heatmap"
	LayerVolumeBars ShapeLayer = "volume_bars"
	LayerProfile    ShapeLayer = "profile"
)

// SeriesMode способ отрисовки ряда
type SeriesMode string

const (
	ModeLines   SeriesMode = "lines"
	ModeMarkers SeriesMode = "markers"
)

// Названия рядов сцены
const (
	SeriesBestBid = "Best Bid"
	SeriesBestAsk = "Best Ask"
	SeriesVWAP    = "VWAP"
	SeriesCVD     = "CVD"
	SeriesCVDZero = "CVD Zero"
	SeriesTrades  = "Trades"
	SeriesSMA     = "SMA"
)

// Shape прямоугольник в координатах графика
type Shape struct {
	Layer   ShapeLayer
	X0      float64
	X1      float64
	Y0      float64
	Y1      float64
	Fill    string
	Opacity float64
}

// Series ряд переднего плана
type Series struct {
	Name          string
	Mode          SeriesMode
	X             []float64
	Y             []NullFloat
	Color         string
	Width         float64
	Dash          string
	ShowLegend    bool
	Opacity       float64
	MarkerSizes   []float64
	MarkerColors  []string
	Text          []string
	Custom        []NullFloat
	HoverTemplate string
}

// Axis диапазон оси
type Axis struct {
	Title string
	Min   float64
	Max   float64
}

// Scene полное описание графика сессии, не изменяется после сборки
type Scene struct {
	Title  string
	Symbol string
	Date   time.Time
	XAxis  Axis
	YAxis  Axis
	Shapes []Shape
	Series []Series
}

// ShapesOf фигуры заданного слоя
func (s *Scene) ShapesOf(layer ShapeLayer) []Shape {
	var out []Shape
	for _, shape := range s.Shapes {
		if shape.Layer == layer {
			out = append(out, shape)
		}
	}
	return out
}

// SeriesByName ищет ряд по имени
func (s *Scene) SeriesByName(name string) (*Series, bool) {
	for i := range s.Series {
		if s.Series[i].Name == name {
			return &s.Series[i], true
		}
	}
	return nil, false
}
