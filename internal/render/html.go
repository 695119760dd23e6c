// Package render превращает сцену сессии в автономную HTML страницу с Plotly.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	grob "github.com/MetalBlueberry/go-plotly/generated/v2.34.0/graph_objects"
	"github.com/MetalBlueberry/go-plotly/pkg/types"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
)

// ContentType тип содержимого страницы
const ContentType = "text/html; charset=utf-8"

// Цвета темной темы
const (
	paperColor = "#1e1e1e"
	plotColor  = "#2d2d2d"
	gridColor  = "#404040"
)

// offline.ToHtml пишет только в файл и берет CDN из версии схемы,
// поэтому страница собирается своим шаблоном
var page = template.Must(template.New("bookmap").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.PlotlyURL}}"></script>
<style>body{margin:0;background:` + paperColor + `}</style>
</head>
<body>
<div id="bookmap" style="width:100%;height:{{.Height}}px"></div>
<script>
const fig = {{.Figure}};
Plotly.newPlot("bookmap", fig.data, fig.layout, {responsive: true});
</script>
</body>
</html>
`))

type pageData struct {
	Title     string
	PlotlyURL string
	Height    int
	Figure    template.JS
}

// Renderer отрисовывает сцены в HTML
type Renderer struct {
	config config.OutputConfig
}

// NewRenderer создает новый отрисовщик
func NewRenderer(cfg config.OutputConfig) *Renderer {
	return &Renderer{
		config: cfg,
	}
}

// ArtifactName имя файла результата: bookmap_<символ>_<ГГГГММДД>.html
func ArtifactName(symbol string, date time.Time) string {
	return fmt.Sprintf("bookmap_%s_%s.html", symbol, date.Format("20060102"))
}

// Figure переводит сцену в фигуру Plotly
func (r *Renderer) Figure(scene *models.Scene) *grob.Fig {
	data := make([]types.Trace, 0, len(scene.Series))
	for _, s := range scene.Series {
		data = append(data, toScatter(s))
	}
	return &grob.Fig{
		Data:   data,
		Layout: r.layout(scene),
	}
}

// Render собирает страницу по сцене
func (r *Renderer) Render(scene *models.Scene) (*models.Artifact, error) {
	if scene == nil {
		return nil, fmt.Errorf("пустая сцена")
	}

	figJSON, err := json.Marshal(r.Figure(scene))
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации графика: %w", err)
	}

	plotlyURL := r.config.Plotly
	if plotlyURL == "" {
		plotlyURL = (&grob.Fig{}).Info().Cdn
	}

	var buf bytes.Buffer
	err = page.Execute(&buf, pageData{
		Title:     scene.Title,
		PlotlyURL: plotlyURL,
		Height:    r.config.Height,
		Figure:    template.JS(figJSON),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка шаблона: %w", err)
	}

	return &models.Artifact{
		Name:        ArtifactName(scene.Symbol, scene.Date),
		ContentType: ContentType,
		Data:        buf.Bytes(),
	}, nil
}

func toScatter(s models.Series) *grob.Scatter {
	t := &grob.Scatter{
		Name:        types.S(s.Name),
		Mode:        grob.ScatterMode(s.Mode),
		X:           types.DataArray(s.X),
		Y:           types.DataArray(s.Y),
		Showlegend:  types.B(s.ShowLegend),
		Connectgaps: types.False,
	}
	if len(s.Text) > 0 {
		text := make([]types.StringType, len(s.Text))
		for i, v := range s.Text {
			text[i] = types.S(v)
		}
		t.Text = types.ArrayOKArray(text...)
	}
	if len(s.Custom) > 0 {
		t.Customdata = types.DataArray(s.Custom)
	}
	if s.HoverTemplate != "" {
		t.Hovertemplate = types.ArrayOKValue(types.S(s.HoverTemplate))
	}

	if s.Mode == models.ModeMarkers {
		t.Showlegend = types.False
		t.Marker = &grob.ScatterMarker{
			Size:    types.ArrayOKArray(types.NA(s.MarkerSizes)...),
			Color:   types.ArrayOKArray(types.UseColors(types.CN(s.MarkerColors))...),
			Opacity: types.ArrayOKValue(types.N(s.Opacity)),
			Line: &grob.ScatterMarkerLine{
				Color: types.ArrayOKValue(types.UseColor("white")),
				Width: types.ArrayOKValue(types.N(1)),
			},
		}
		return t
	}
	t.Line = &grob.ScatterLine{
		Color: types.C(s.Color),
		Width: types.N(s.Width),
		Dash:  types.S(s.Dash),
	}
	return t
}

func (r *Renderer) layout(scene *models.Scene) *grob.Layout {
	shapes := make([]grob.LayoutShape, 0, len(scene.Shapes))
	for _, s := range scene.Shapes {
		shapes = append(shapes, grob.LayoutShape{
			Type:      grob.LayoutShapeTypeRect,
			Xref:      grob.LayoutShapeXref("x"),
			Yref:      grob.LayoutShapeYref("y"),
			X0:        s.X0,
			X1:        s.X1,
			Y0:        s.Y0,
			Y1:        s.Y1,
			Fillcolor: types.C(s.Fill),
			Opacity:   types.N(s.Opacity),
			Line:      &grob.LayoutShapeLine{Color: types.C(s.Fill), Width: types.N(0)},
			Layer:     grob.LayoutShapeLayerBelow,
		})
	}

	return &grob.Layout{
		Title:        &grob.LayoutTitle{Text: types.S(scene.Title)},
		PaperBgcolor: paperColor,
		PlotBgcolor:  plotColor,
		Font:         &grob.LayoutFont{Color: "white"},
		Height:       types.N(float64(r.config.Height)),
		Xaxis: &grob.LayoutXaxis{
			Title:     &grob.LayoutXaxisTitle{Text: types.S(scene.XAxis.Title)},
			Range:     []float64{scene.XAxis.Min, scene.XAxis.Max},
			Gridcolor: gridColor,
			Zeroline:  types.False,
		},
		Yaxis: &grob.LayoutYaxis{
			Title:     &grob.LayoutYaxisTitle{Text: types.S(scene.YAxis.Title)},
			Range:     []float64{scene.YAxis.Min, scene.YAxis.Max},
			Gridcolor: gridColor,
			Zeroline:  types.False,
		},
		Legend:     &grob.LayoutLegend{X: types.N(0.02), Y: types.N(0.98), Bgcolor: "rgba(0,0,0,0.5)"},
		Showlegend: types.True,
		Hovermode:  grob.LayoutHovermodeClosest,
		Shapes:     shapes,
	}
}
