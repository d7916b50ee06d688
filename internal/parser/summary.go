package parser

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/types"
)

// updatedLayouts are the month-day-year/hour:minute forms accepted after the
// "Last updated" label. Times are read as UTC.
var updatedLayouts = []string{
	"January 2, 2006, 15:04",
	"January 2, 2006 15:04",
	"Jan 2, 2006, 15:04",
	"Jan 2, 2006 15:04",
	"01/02/2006 15:04",
	"01-02-2006 15:04",
}

// SummaryParser extracts the headline counters of the statistics page.
type SummaryParser struct {
	counterSelector string
	updatedLabel    string
	now             func() time.Time
	logger          *slog.Logger
}

// SummaryOption configures a SummaryParser.
type SummaryOption func(*SummaryParser)

// WithClock replaces the wall clock used when no timestamp can be parsed.
func WithClock(now func() time.Time) SummaryOption {
	return func(p *SummaryParser) { p.now = now }
}

// NewSummaryParser creates a summary parser from parser settings.
func NewSummaryParser(cfg config.ParserConfig, logger *slog.Logger, opts ...SummaryOption) *SummaryParser {
	p := &SummaryParser{
		counterSelector: cfg.CounterSelector,
		updatedLabel:    cfg.UpdatedLabel,
		now:             time.Now,
		logger:          logger.With("component", "summary_parser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads up to three headline counters in document order: cases,
// deaths, then recovered. Counters that are absent stay 0. A page with no
// counters at all is a ParseError.
func (p *SummaryParser) Parse(resp *types.Response) (types.WorldSummary, error) {
	var summary types.WorldSummary

	doc, err := resp.Document()
	if err != nil {
		return summary, &types.ParseError{URL: resp.URLString(), Err: err}
	}

	counters := doc.Find(p.counterSelector)
	if counters.Length() == 0 {
		return summary, &types.ParseError{
			URL:      resp.URLString(),
			Selector: p.counterSelector,
			Err:      fmt.Errorf("%w: headline counters", types.ErrNotFound),
		}
	}
	if counters.Length() < 3 {
		p.logger.Warn("fewer headline counters than expected",
			"selector", p.counterSelector,
			"found", counters.Length(),
		)
	}

	counters.Slice(0, min(counters.Length(), 3)).Each(func(i int, sel *goquery.Selection) {
		count := ParseCount(sel.Text())
		switch i {
		case 0:
			summary.Cases = count
		case 1:
			summary.Deaths = count
		default:
			summary.Recovered = count
		}
	})

	summary.Updated = p.lastUpdated(doc, resp.URLString()).UnixMilli()
	return summary, nil
}

// lastUpdated finds the element carrying the "Last updated" label and parses
// the text after it. On any failure it returns the current time.
func (p *SummaryParser) lastUpdated(doc *goquery.Document, url string) time.Time {
	if len(doc.Nodes) == 0 || p.updatedLabel == "" {
		return p.now()
	}

	expr := fmt.Sprintf("//*[contains(text(), %q)]", p.updatedLabel)
	nodes, err := htmlquery.QueryAll(doc.Nodes[0], expr)
	if err != nil {
		p.logger.Warn("invalid last-updated xpath", "expr", expr, "error", err)
		return p.now()
	}
	if len(nodes) == 0 {
		p.logger.Warn("last-updated label not found, using current time", "url", url, "label", p.updatedLabel)
		return p.now()
	}

	var raw string
	for _, node := range nodes {
		text := htmlquery.InnerText(node)
		idx := strings.Index(text, p.updatedLabel)
		if idx < 0 {
			continue
		}
		raw = text[idx+len(p.updatedLabel):]
		if t, ok := ParseUpdated(raw); ok {
			return t
		}
	}

	p.logger.Warn("unparseable last-updated time, using current time", "url", url, "value", strings.TrimSpace(raw))
	return p.now()
}

// ParseUpdated parses the text following the "Last updated" label, such as
// ": March 22, 2020, 10:10 GMT", as a UTC time.
func ParseUpdated(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, ": ")
	s = strings.Join(strings.Fields(s), " ")
	for _, zone := range []string{" GMT", " UTC", " Z"} {
		s = strings.TrimSuffix(s, zone)
	}

	for _, layout := range updatedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
