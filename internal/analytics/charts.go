package analytics

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"

	"github.com/preppro/backend/internal/models"
	"github.com/samber/lo"
	chart "github.com/wcharczuk/go-chart/v2"
)

const (
	chartWidth  = 800
	chartHeight = 450
)

type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func dataURI(c renderer) (*string, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	return &uri, nil
}

// performanceChart plots scores in attempt order. Nil when there are no attempts.
func performanceChart(points []models.ScorePoint) (*string, error) {
	if len(points) == 0 {
		return nil, nil
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	maxScore := 1.0
	for i, p := range points {
		xs[i] = float64(i + 1)
		ys[i] = float64(p.Score)
		if ys[i] > maxScore {
			maxScore = ys[i]
		}
	}
	c := chart.Chart{
		Title:  "Performance Over Time",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis: chart.XAxis{
			Name:  "Attempt",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(points) + 1)},
		},
		YAxis: chart.YAxis{
			Name:  "Score",
			Range: &chart.ContinuousRange{Min: 0, Max: maxScore * 1.1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Score",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeWidth: 2, DotWidth: 4},
			},
		},
	}
	return dataURI(c)
}

func subjectChart(scores []models.SubjectScore) (*string, error) {
	if len(scores) == 0 {
		return nil, nil
	}
	maxScore := lo.Max(lo.Map(scores, func(s models.SubjectScore, _ int) float64 { return s.AvgScore }))
	if maxScore < 1 {
		maxScore = 1
	}
	c := chart.BarChart{
		Title:    "Subject-Wise Performance",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxScore * 1.1},
		},
		Bars: lo.Map(scores, func(s models.SubjectScore, _ int) chart.Value {
			return chart.Value{Label: s.Subject, Value: s.AvgScore}
		}),
	}
	return dataURI(c)
}

// participationChart is nil when nothing was assigned.
func participationChart(title string, attempted, total int) (*string, error) {
	if total <= 0 {
		return nil, nil
	}
	notAttempted := total - attempted
	if notAttempted < 0 {
		notAttempted = 0
	}
	values := lo.Filter([]chart.Value{
		{Label: "Attempted", Value: float64(attempted)},
		{Label: "Not Attempted", Value: float64(notAttempted)},
	}, func(v chart.Value, _ int) bool { return v.Value > 0 })

	c := chart.PieChart{
		Title:  title,
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}
	return dataURI(c)
}

var teacherPage = template.Must(template.New("participation").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Student Test Participation</title></head>
<body>
<h1>Student Test Participation</h1>
{{if .Chart}}<img alt="Student Test Participation" src="{{.Chart}}">
{{else}}<p>No tests created yet.</p>
{{end}}<p>{{.Attempted}} of {{.Total}} tests attempted.</p>
</body>
</html>
`))

func renderTeacherPage(w io.Writer, attempted, total int) error {
	uri, err := participationChart("Student Test Participation", attempted, total)
	if err != nil {
		return err
	}
	data := struct {
		Chart     template.URL
		Attempted int
		Total     int
	}{Attempted: attempted, Total: total}
	if uri != nil {
		data.Chart = template.URL(*uri)
	}
	return teacherPage.Execute(w, data)
}
