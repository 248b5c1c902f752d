package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finintel/internal/core"
	"finintel/internal/pipeline"
	"finintel/internal/sheets/memory"
	"finintel/internal/storage"
)

func TestWriteSection(t *testing.T) {
	report := pipeline.Run(memory.Demo())

	var buf bytes.Buffer
	require.NoError(t, writeSection(&buf, report, sectionSummary, false))
	var summary core.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &summary))
	assert.True(t, summary.TotalRevenue.Equal(report.Summary.TotalRevenue))

	buf.Reset()
	require.NoError(t, writeSection(&buf, report, sectionRisk, true))
	var risk []core.RiskAmount
	require.NoError(t, json.Unmarshal(buf.Bytes(), &risk))
	assert.Len(t, risk, len(report.Risk))

	assert.Error(t, writeSection(&buf, report, "totals", false))
}

func TestDemoImportReport(t *testing.T) {
	dir := t.TempDir()
	workbook := filepath.Join(dir, "finance.xlsx")
	db := filepath.Join(dir, "finintel.db")
	g := &Globals{LogLevel: "error", LogFormat: "text"}

	require.NoError(t, (&demoCmd{Out: workbook}).Run(g))
	require.NoError(t, (&importCmd{Workbook: workbook, DB: db}).Run(g))

	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)
	defer repo.Close()
	last, err := repo.LastImport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workbook, last.Source)
	assert.Equal(t, len(memory.Demo().Transactions), last.Transactions)

	fromDB, err := Source{DB: db}.load(context.Background(), g.logger())
	require.NoError(t, err)
	want, err := json.Marshal(pipeline.Run(memory.Demo()).Summary)
	require.NoError(t, err)
	got, err := json.Marshal(pipeline.Run(fromDB).Summary)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestCommandLineParsing(t *testing.T) {
	var c struct {
		Globals `embed:""`
		Import  importCmd `cmd:""`
		Report  reportCmd `cmd:""`
		Demo    demoCmd   `cmd:""`
	}
	parser, err := kong.New(&c, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"report", "--section", "budget", "--compact"})
	require.NoError(t, err)
	assert.Equal(t, "report", ctx.Command())
	assert.Equal(t, "budget", c.Report.Section)
	assert.True(t, c.Report.Compact)

	_, err = parser.Parse([]string{"report", "--section", "totals"})
	assert.Error(t, err)
}
