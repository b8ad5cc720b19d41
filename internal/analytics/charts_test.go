package analytics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/preppro/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pngPrefix = "data:image/png;base64,"

func TestCharts_EmptyInputsGiveNil(t *testing.T) {
	perf, err := performanceChart(nil)
	require.NoError(t, err)
	assert.Nil(t, perf)

	subj, err := subjectChart(nil)
	require.NoError(t, err)
	assert.Nil(t, subj)

	part, err := participationChart("Test Participation", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, part)
}

func TestCharts_RenderPNG(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	perf, err := performanceChart([]models.ScorePoint{{AttemptedAt: now, Score: 3}})
	require.NoError(t, err)
	require.NotNil(t, perf)
	assert.True(t, strings.HasPrefix(*perf, pngPrefix))

	subj, err := subjectChart([]models.SubjectScore{{Subject: "Biology", AvgScore: 2.5}, {Subject: "Physics", AvgScore: 4}})
	require.NoError(t, err)
	require.NotNil(t, subj)
	assert.True(t, strings.HasPrefix(*subj, pngPrefix))

	part, err := participationChart("Test Participation", 1, 3)
	require.NoError(t, err)
	require.NotNil(t, part)
	assert.True(t, strings.HasPrefix(*part, pngPrefix))
}

func TestRenderTeacherPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderTeacherPage(&buf, 2, 5))
	html := buf.String()
	assert.Contains(t, html, `src="`+pngPrefix)
	assert.Contains(t, html, "2 of 5 tests attempted.")

	buf.Reset()
	require.NoError(t, renderTeacherPage(&buf, 0, 0))
	assert.Contains(t, buf.String(), "No tests created yet.")
	assert.NotContains(t, buf.String(), "<img")
}
