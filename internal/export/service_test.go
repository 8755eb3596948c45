package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/wenjia-zhai/genbridge/internal/library"
)

type stubAssets struct {
	assets []library.Asset
	from   *time.Time
	to     *time.Time
}

func (s *stubAssets) Create(context.Context, *library.Asset) error { return nil }
func (s *stubAssets) GetByID(context.Context, uuid.UUID) (*library.Asset, error) {
	return nil, nil
}
func (s *stubAssets) ListByUser(_ context.Context, _ uuid.UUID, from, to *time.Time, _ int) ([]library.Asset, error) {
	s.from, s.to = from, to
	return s.assets, nil
}
func (s *stubAssets) Delete(context.Context, uuid.UUID) error { return nil }

func TestExportHistoryXLSX(t *testing.T) {
	userID := uuid.New()
	stub := &stubAssets{assets: []library.Asset{
		{
			UserID:    userID,
			Kind:      "IMAGE",
			Vendor:    "dashscope",
			Model:     "wanx-v1",
			Prompt:    "a lighthouse at dusk",
			URL:       "https://bucket.example/images/a.png",
			ObjectKey: "images/a.png",
			SizeBytes: 2048,
			Durable:   true,
			CreatedAt: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		},
		{
			UserID:    userID,
			Kind:      "VIDEO",
			Vendor:    "dashscope",
			Prompt:    "waves",
			URL:       "https://vendor.example/ephemeral.mp4",
			Durable:   false,
			CreatedAt: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		},
	}}

	svc := NewService(stub, nil)
	data, err := svc.ExportHistoryXLSX(context.Background(), userID, nil, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Generations")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d, want header + 2 assets", len(rows))
	}
	if rows[0][0] != "Created" || rows[0][1] != "Kind" {
		t.Fatalf("unexpected header row: %v", rows[0])
	}
	if rows[1][2] != "dashscope" || rows[1][4] != "a lighthouse at dusk" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
}

func TestTruncate_MultibytePrompts(t *testing.T) {
	ascii := strings.Repeat("a", 200)
	if got := truncate(ascii, 140); utf8.RuneCountInString(got) != 140 {
		t.Fatalf("rune count=%d, want 140", utf8.RuneCountInString(got))
	}

	// Every rune here is multi-byte; a byte-index cut would split one.
	cjk := strings.Repeat("海", 200)
	got := truncate(cjk, 140)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated prompt is not valid UTF-8: %q", got)
	}
	if utf8.RuneCountInString(got) != 140 {
		t.Fatalf("rune count=%d, want 140", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("truncation marker missing from %q", got)
	}

	short := "波浪"
	if truncate(short, 140) != short {
		t.Fatalf("short strings must pass through unchanged")
	}
}

func TestExportHistoryXLSX_FromImpliesToToday(t *testing.T) {
	stub := &stubAssets{}
	svc := NewService(stub, nil)

	from := time.Date(2026, 8, 1, 15, 30, 0, 0, time.UTC)
	if _, err := svc.ExportHistoryXLSX(context.Background(), uuid.New(), &from, nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	if stub.from == nil || !stub.from.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from not normalized to date-only: %v", stub.from)
	}
	if stub.to == nil {
		t.Fatalf("a lone from must imply to=today")
	}
}
