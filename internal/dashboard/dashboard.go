// Package dashboard renders the cached world summary as an HTML card.
package dashboard

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/IshaanNene/outbreak/internal/types"
)

// WorldProvider returns the current world summary, if one is cached.
type WorldProvider func() (types.WorldSummary, bool)

// labels are the card captions for one language.
type labels struct {
	Title     string
	Deaths    string
	Recovered string
	Updated   string
	Pending   string
}

var cardLabels = map[language.Base]labels{
	mustBase("en"): {Title: "Coronavirus", Deaths: "Deaths", Recovered: "Recovered", Updated: "Updated", Pending: "Waiting for first refresh"},
	mustBase("zh"): {Title: "Coronavirus", Deaths: "死亡", Recovered: "康復", Updated: "更新", Pending: "等待首次更新"},
}

func mustBase(s string) language.Base {
	b, err := language.ParseBase(s)
	if err != nil {
		panic(err)
	}
	return b
}

// cardView is the data handed to the card template.
type cardView struct {
	Labels    labels
	Ready     bool
	Cases     string
	Deaths    string
	Recovered string
	Updated   string
}

// Dashboard serves the world card.
type Dashboard struct {
	provider WorldProvider
	tmpl     *template.Template
	tag      language.Tag
	labels   labels
	printer  *message.Printer
	logger   *slog.Logger
}

// NewDashboard creates a card renderer. lang is a BCP 47 tag such as "en"
// or "zh-Hant"; unknown languages fall back to English captions.
func NewDashboard(provider WorldProvider, lang string, logger *slog.Logger) *Dashboard {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	base, _ := tag.Base()
	l, ok := cardLabels[base]
	if !ok {
		l = cardLabels[mustBase("en")]
	}

	return &Dashboard{
		provider: provider,
		tmpl:     template.Must(template.New("card").Parse(cardHTML)),
		tag:      tag,
		labels:   l,
		printer:  message.NewPrinter(language.English),
		logger:   logger.With("component", "dashboard"),
	}
}

// CommaNum formats n with thousands separators, e.g. 1234567 as "1,234,567".
func (d *Dashboard) CommaNum(n int64) string {
	return d.printer.Sprintf("%d", n)
}

// Render writes the card for world. A nil world renders the pending state.
func (d *Dashboard) Render(world *types.WorldSummary) ([]byte, error) {
	view := cardView{Labels: d.labels}
	if world != nil {
		view.Ready = true
		view.Cases = d.CommaNum(world.Cases)
		view.Deaths = d.CommaNum(world.Deaths)
		view.Recovered = d.CommaNum(world.Recovered)
		view.Updated = world.UpdatedAt().UTC().Format(time.RFC1123)
	}

	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ServeHTTP renders the card for the currently cached world summary.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var world *types.WorldSummary
	if d.provider != nil {
		if ws, ok := d.provider(); ok {
			world = &ws
		}
	}

	body, err := d.Render(world)
	if err != nil {
		d.logger.Error("render card", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", d.tag.String())
	w.Write(body)
}
