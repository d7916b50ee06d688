package dashboard

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/outbreak/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestCommaNum(t *testing.T) {
	d := NewDashboard(nil, "en", testLogger)
	tests := map[int64]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		1234567:   "1,234,567",
		332930000: "332,930,000",
	}
	for in, want := range tests {
		if got := d.CommaNum(in); got != want {
			t.Errorf("CommaNum(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderWorldCard(t *testing.T) {
	world := types.WorldSummary{
		Cases:     1234567,
		Deaths:    50000,
		Recovered: 900000,
		Updated:   time.Date(2020, 3, 22, 10, 10, 0, 0, time.UTC).UnixMilli(),
	}
	d := NewDashboard(func() (types.WorldSummary, bool) { return world, true }, "zh-Hant", testLogger)

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/card", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<div class="highlight">1,234,567</div>`,
		`<div class="val">50,000</div>`,
		`<div class="val">900,000</div>`,
		"死亡",
		"康復",
		"Sun, 22 Mar 2020 10:10:00 UTC",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("card missing %q", want)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
}

func TestRenderPendingCard(t *testing.T) {
	d := NewDashboard(func() (types.WorldSummary, bool) { return types.WorldSummary{}, false }, "en", testLogger)

	body, err := d.Render(nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(body), "Waiting for first refresh") {
		t.Error("pending card missing placeholder")
	}
	if strings.Contains(string(body), `class="highlight">`) {
		t.Error("pending card must not show counters")
	}
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	d := NewDashboard(nil, "not a tag!!", testLogger)
	if d.labels.Deaths != "Deaths" {
		t.Errorf("labels = %+v", d.labels)
	}
}
