package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/IshaanNene/outbreak/internal/cache"
	"github.com/IshaanNene/outbreak/internal/types"
)

// printDataset writes the cached dataset as JSON or as a table.
func printDataset(w io.Writer, repo cache.Repository, dataset types.Dataset, format string) error {
	var value any
	switch dataset {
	case types.DatasetWorld:
		if world, ok := cache.World(repo); ok {
			value = world
		}
	case types.DatasetCountries:
		value = cache.Countries(repo)
	case types.DatasetNews:
		value = cache.News(repo)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case "table", "":
		renderTable(w, value)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (valid: table, json)", format)
	}
}

func renderTable(w io.Writer, value any) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	switch v := value.(type) {
	case types.WorldSummary:
		t.AppendHeader(table.Row{"Cases", "Deaths", "Recovered", "Updated"})
		t.AppendRow(table.Row{v.Cases, v.Deaths, v.Recovered, v.UpdatedAt().Format(time.RFC3339)})
		numericColumns(t, 1, 2, 3)
	case []types.CountryRecord:
		t.AppendHeader(table.Row{"#", "Country", "Cases", "New", "Deaths", "New Deaths", "Recovered", "Critical"})
		for i, c := range v {
			t.AppendRow(table.Row{i + 1, c.Country, c.Cases, c.TodayCases, c.Deaths, c.TodayDeaths, c.Recovered, c.Critical})
		}
		t.AppendFooter(table.Row{"", "Rows", len(v)})
		numericColumns(t, 3, 4, 5, 6, 7, 8)
	case []types.NewsArticle:
		t.AppendHeader(table.Row{"Published", "Source", "Title", "URL"})
		for _, a := range v {
			t.AppendRow(table.Row{a.PublishedAt, a.Source.Name, text.Trim(a.Title, 70), a.URL})
		}
	default:
		t.AppendRow(table.Row{"no data"})
	}

	t.Render()
}

// numericColumns right-aligns the given 1-based columns.
func numericColumns(t table.Writer, cols ...int) {
	configs := make([]table.ColumnConfig, 0, len(cols))
	for _, n := range cols {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	t.SetColumnConfigs(configs)
}
