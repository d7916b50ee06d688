package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/types"
)

// TableSchema describes where the per-country table lives and how its
// columns map to CountryRecord fields.
type TableSchema struct {
	TableID      string
	TotalColumns int
	Columns      config.ColumnIndex

	// Positional selects the legacy fixed-index walk over flattened cells.
	// Otherwise columns are located by header name.
	Positional bool
}

// SchemaFromConfig builds a TableSchema from parser settings.
func SchemaFromConfig(cfg config.ParserConfig) TableSchema {
	return TableSchema{
		TableID:      cfg.TableID,
		TotalColumns: cfg.TotalColumns,
		Columns:      cfg.Columns,
		Positional:   cfg.Positional,
	}
}

// headerAliases lists the normalized header names accepted for each field.
var headerAliases = map[string][]string{
	types.FieldCountry:     {"countryother", "country", "countryterritory"},
	types.FieldCases:       {"totalcases", "cases"},
	types.FieldTodayCases:  {"newcases", "todaycases"},
	types.FieldDeaths:      {"totaldeaths", "deaths"},
	types.FieldTodayDeaths: {"newdeaths", "todaydeaths"},
	types.FieldRecovered:   {"totalrecovered", "recovered"},
	types.FieldCritical:    {"seriouscritical", "critical"},
}

// TableParser extracts CountryRecords from the statistics table.
type TableParser struct {
	schema TableSchema
	logger *slog.Logger
}

// NewTableParser creates a table parser for the given schema.
func NewTableParser(schema TableSchema, logger *slog.Logger) *TableParser {
	return &TableParser{
		schema: schema,
		logger: logger.With("component", "table_parser"),
	}
}

// Parse returns one record per body row in source order, excluding the
// trailing total row.
func (p *TableParser) Parse(resp *types.Response) ([]types.CountryRecord, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.URLString(), Err: err}
	}

	selector := fmt.Sprintf("table[id=%q]", p.schema.TableID)
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, &types.ParseError{
			URL:      resp.URLString(),
			Selector: selector,
			Err:      fmt.Errorf("%w: table %q", types.ErrNotFound, p.schema.TableID),
		}
	}

	if p.schema.Positional {
		return p.parsePositional(table), nil
	}
	return p.parseByHeader(resp.URLString(), selector, table)
}

// parsePositional walks every body cell in order and assigns it to a field
// by its index modulo TotalColumns. A cell count that is not a multiple of
// TotalColumns shifts fields silently, so it is only reported as a warning.
func (p *TableParser) parsePositional(table *goquery.Selection) []types.CountryRecord {
	cells := table.ChildrenFiltered("tbody").ChildrenFiltered("tr").ChildrenFiltered("td").Nodes
	total := p.schema.TotalColumns

	if len(cells)%total != 0 {
		p.logger.Warn("cell count is not a multiple of the column count, fields may be misaligned",
			"table", p.schema.TableID,
			"cells", len(cells),
			"columns", total,
		)
	}

	fieldAt := p.positionalFields()
	records := make([]types.CountryRecord, 0, len(cells)/total)

	// The last TotalColumns cells are the aggregate footer row.
	for i := 0; i < len(cells)-total; i++ {
		col := i % total
		cell := cells[i]

		if col == p.schema.Columns.Country {
			records = append(records, types.CountryRecord{Country: countryText(cell)})
			continue
		}
		field, ok := fieldAt[col]
		if !ok || len(records) == 0 {
			continue
		}
		records[len(records)-1].SetCount(field, ParseCount(goquery.NewDocumentFromNode(cell).Text()))
	}

	return records
}

func (p *TableParser) positionalFields() map[int]string {
	c := p.schema.Columns
	return map[int]string{
		c.Cases:       types.FieldCases,
		c.TodayCases:  types.FieldTodayCases,
		c.Deaths:      types.FieldDeaths,
		c.TodayDeaths: types.FieldTodayDeaths,
		c.Recovered:   types.FieldRecovered,
		c.Critical:    types.FieldCritical,
	}
}

// parseByHeader resolves each field's column from the header row and reads
// body rows one at a time. Missing headers and short rows are errors.
func (p *TableParser) parseByHeader(url, selector string, table *goquery.Selection) ([]types.CountryRecord, error) {
	headers := table.ChildrenFiltered("thead").Find("tr").First().Children()
	if headers.Length() == 0 {
		headers = table.Find("tr").First().ChildrenFiltered("th")
	}

	names := make([]string, 0, headers.Length())
	headers.Each(func(_ int, th *goquery.Selection) {
		names = append(names, normalizeHeader(th.Text()))
	})

	index := make(map[string]int, len(types.CountryFields))
	widest := 0
	for _, field := range types.CountryFields {
		col := findHeader(names, headerAliases[field])
		if col < 0 {
			return nil, &types.ParseError{
				URL:      url,
				Selector: selector + " thead th",
				Err:      fmt.Errorf("%w: header for field %q", types.ErrNotFound, field),
			}
		}
		index[field] = col
		widest = max(widest, col+1)
	}

	rows := table.ChildrenFiltered("tbody").ChildrenFiltered("tr")
	records := make([]types.CountryRecord, 0, rows.Length())

	// The final body row is the aggregate total.
	last := rows.Length() - 1
	for i := 0; i < last; i++ {
		cells := rows.Eq(i).ChildrenFiltered("td")
		if cells.Length() == 0 {
			continue
		}
		if cells.Length() < widest {
			return nil, &types.SchemaError{
				Table:    p.schema.TableID,
				Row:      i,
				Expected: widest,
				Got:      cells.Length(),
			}
		}

		rec := types.CountryRecord{Country: countryText(cells.Get(index[types.FieldCountry]))}
		for field, col := range index {
			if field == types.FieldCountry {
				continue
			}
			rec.SetCount(field, ParseCount(cells.Eq(col).Text()))
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		p.logger.Warn("table has no data rows", "table", p.schema.TableID)
	}

	return records, nil
}

func findHeader(names, aliases []string) int {
	for _, alias := range aliases {
		for i, name := range names {
			if strings.EqualFold(name, alias) {
				return i
			}
		}
	}
	return -1
}
