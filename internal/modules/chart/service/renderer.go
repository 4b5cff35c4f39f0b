package service

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"binary_bot/internal/models"
	"binary_bot/internal/modules/config"

	"github.com/pkg/errors"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Renderer рисует PNG по сигналу: линия цены, две SMA, текущая цена в заголовке.
// Наружу ошибки не отдаёт: при любом сбое возвращается путь к заглушке,
// чтобы доставка шла дальше с деградированной картинкой.
type Renderer struct {
	dir      string
	fallback string

	now func() time.Time
}

func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{
		dir:      cfg.ChartDir,
		fallback: filepath.Join(cfg.ChartDir, "chart_error.png"),
		now:      time.Now,
	}
}

// Init готовит каталог и заглушку. Вызывается один раз на старте.
func (r *Renderer) Init() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("chart dir: %w", err)
	}
	placeholder := chart.Chart{
		Title:  "Chart unavailable",
		Width:  600,
		Height: 360,
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: []float64{0, 1},
				YValues: []float64{0, 0},
			},
		},
	}
	if err := r.writeChart(placeholder, r.fallback); err != nil {
		return fmt.Errorf("render placeholder: %w", err)
	}
	return nil
}

// Render возвращает путь к артефакту. Время жизни файла — забота вызывающего.
func (r *Renderer) Render(sig *models.Signal, a *models.Analysis, series []float64) string {
	path, err := r.render(sig, a, series)
	if err != nil {
		// осознанный best-effort: сигнал не теряем, теряем только картинку
		log.Printf("[CHART] render %s failed: %v", sig.Pair, err)
		return r.fallback
	}
	return path
}

func (r *Renderer) render(sig *models.Signal, a *models.Analysis, series []float64) (string, error) {
	if len(series) < 2 {
		return "", errors.Errorf("series too short: %d", len(series))
	}

	xs := make([]float64, len(series))
	smaShort := make([]float64, len(series))
	smaLong := make([]float64, len(series))
	for i := range series {
		xs[i] = float64(i)
		smaShort[i] = a.SMA10
		smaLong[i] = a.SMA20
	}

	graph := chart.Chart{
		Title:  r.title(sig, a),
		Width:  800,
		Height: 480,
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Price",
				XValues: xs,
				YValues: series,
				Style: chart.Style{
					StrokeColor: drawing.ColorBlue,
					StrokeWidth: 2,
				},
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("SMA 10: %.4f", a.SMA10),
				XValues: xs,
				YValues: smaShort,
				Style: chart.Style{
					StrokeColor:     drawing.ColorFromHex("ffa500"),
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("SMA 20: %.4f", a.SMA20),
				XValues: xs,
				YValues: smaLong,
				Style: chart.Style{
					StrokeColor:     drawing.ColorRed,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
			chart.AnnotationSeries{
				Annotations: []chart.Value2{
					{
						XValue: xs[len(xs)-1],
						YValue: a.CurrentPrice,
						Label:  fmt.Sprintf("Current: %.4f", a.CurrentPrice),
					},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	path := filepath.Join(r.dir, fmt.Sprintf("binary_chart_%d_%d.png", sig.ID, r.now().UnixNano()))
	if err := r.writeChart(graph, path); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Renderer) title(sig *models.Signal, a *models.Analysis) string {
	directionText := "HIGH (CALL)"
	if sig.Direction == models.DirectionLow {
		directionText = "LOW (PUT)"
	}
	marketLabel := "Forex"
	if a.Market == models.MarketOTC {
		marketLabel = "OTC"
	}
	return fmt.Sprintf("BINARY %s: %s - %s | %dmin | Conf: %.1f%%",
		marketLabel, sig.Pair, directionText, sig.ExpiryMinutes(), sig.Confidence*100)
}

func (r *Renderer) writeChart(graph chart.Chart, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create artifact")
	}
	defer func() {
		_ = f.Close()
	}()
	if err := graph.Render(chart.PNG, f); err != nil {
		return errors.Wrap(err, "render png")
	}
	return nil
}

// FallbackPath — путь к заглушке (нужен тестам и диспетчеру для логов).
func (r *Renderer) FallbackPath() string { return r.fallback }
