package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/storage/models"
)

func generateTestTrades() []*models.Trade {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	trade := func(offset time.Duration, mint, direction string, tokens uint64, amount string) *models.Trade {
		return &models.Trade{
			TradeID:       uuid.NewString(),
			Mint:          mint,
			Direction:     direction,
			Trader:        "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
			TokenAmount:   tokens,
			BaseAmount:    amount,
			SupplyAfter:   tokens,
			ReservesAfter: amount,
			ExecutedAt:    base.Add(offset),
		}
	}

	return []*models.Trade{
		trade(0, "mintAAAAAAAA", "buy", 100, "101000"),
		trade(10*time.Minute, "mintAAAAAAAA", "buy", 50, "62000"),
		trade(20*time.Minute, "mintBBBBBBBB", "buy", 30, "31000"),
		trade(30*time.Minute, "mintAAAAAAAA", "sell", 40, "52000"),
	}
}

func TestTradeExportCSV(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.ExportTrades(generateTestTrades(), Options{
		Format:    FormatCSV,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open export file: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}

	if len(rows) != 5 {
		t.Fatalf("Expected header plus 4 trades, got %d rows", len(rows))
	}
	if rows[0][0] != "trade_id" {
		t.Errorf("Unexpected header row: %v", rows[0])
	}
	// Rows sorted oldest first.
	if rows[1][6] != "101000" || rows[4][3] != "sell" {
		t.Errorf("Unexpected row contents: %v / %v", rows[1], rows[4])
	}
}

func TestTradeExportJSON(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.ExportTrades(generateTestTrades(), Options{
		Format:    FormatJSON,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}

	var doc struct {
		TradeCount int             `json:"trade_count"`
		Trades     []*models.Trade `json:"trades"`
		Summary    Summary         `json:"summary"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		t.Fatalf("Failed to decode export JSON: %v", err)
	}

	if doc.TradeCount != 4 || len(doc.Trades) != 4 {
		t.Errorf("Expected 4 trades, got count=%d len=%d", doc.TradeCount, len(doc.Trades))
	}
	if doc.Summary.BuyCount != 3 || doc.Summary.SellCount != 1 {
		t.Errorf("Unexpected summary counts: %+v", doc.Summary)
	}
	if doc.Summary.UniqueMints != 2 {
		t.Errorf("Expected 2 unique mints, got %d", doc.Summary.UniqueMints)
	}
	if doc.Summary.TotalBuyVolume != "194000" {
		t.Errorf("Expected buy volume 194000, got %s", doc.Summary.TotalBuyVolume)
	}
	if doc.Summary.TotalSellVolume != "52000" {
		t.Errorf("Expected sell volume 52000, got %s", doc.Summary.TotalSellVolume)
	}
	if doc.Summary.TokensBought != 180 || doc.Summary.TokensSold != 40 {
		t.Errorf("Unexpected token totals: %+v", doc.Summary)
	}
}

func TestTradeExportFilters(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	trades := generateTestTrades()

	countRows := func(t *testing.T, path string) int {
		t.Helper()
		file, err := os.Open(path)
		if err != nil {
			t.Fatalf("Failed to open export file: %v", err)
		}
		defer file.Close()
		rows, err := csv.NewReader(file).ReadAll()
		if err != nil {
			t.Fatalf("Failed to parse CSV: %v", err)
		}
		return len(rows) - 1 // drop header
	}

	t.Run("by mint", func(t *testing.T) {
		path, err := exporter.ExportTrades(trades, Options{
			Format:     FormatCSV,
			MintFilter: "mintBBBBBBBB",
			OutputDir:  t.TempDir(),
		})
		if err != nil {
			t.Fatalf("Failed to export with mint filter: %v", err)
		}
		if got := countRows(t, path); got != 1 {
			t.Errorf("Expected 1 trade, got %d", got)
		}
	})

	t.Run("by direction", func(t *testing.T) {
		path, err := exporter.ExportTrades(trades, Options{
			Format:          FormatCSV,
			DirectionFilter: "sell",
			OutputDir:       t.TempDir(),
		})
		if err != nil {
			t.Fatalf("Failed to export with direction filter: %v", err)
		}
		if got := countRows(t, path); got != 1 {
			t.Errorf("Expected 1 trade, got %d", got)
		}
	})

	t.Run("by time window", func(t *testing.T) {
		path, err := exporter.ExportTrades(trades, Options{
			Format:    FormatCSV,
			StartTime: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
			EndTime:   time.Date(2025, 6, 1, 12, 25, 0, 0, time.UTC),
			OutputDir: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("Failed to export with time filter: %v", err)
		}
		if got := countRows(t, path); got != 2 {
			t.Errorf("Expected 2 trades, got %d", got)
		}
	})

	t.Run("nothing matches", func(t *testing.T) {
		_, err := exporter.ExportTrades(trades, Options{
			Format:     FormatCSV,
			MintFilter: "mintZZZZZZZZ",
			OutputDir:  t.TempDir(),
		})
		if err == nil {
			t.Error("Expected error when no trades match")
		}
	})
}

func TestExportUnsupportedFormat(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())

	_, err := exporter.ExportTrades(generateTestTrades(), Options{
		Format:    Format("xml"),
		OutputDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("Expected error for unsupported format")
	}
	if want := fmt.Sprintf("unsupported format: %s", "xml"); err.Error() != want {
		t.Errorf("Unexpected error message: %v", err)
	}
}
