package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/storage/models"
)

// Format is the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures which trades are exported and where.
type Options struct {
	Format          Format
	StartTime       time.Time
	EndTime         time.Time
	MintFilter      string // only trades against this mint
	DirectionFilter string // "buy" or "sell"
	OutputDir       string
}

// TradeExporter writes persisted trade rows out as CSV or JSON files
// for offline analysis.
type TradeExporter struct {
	logger *zap.Logger
}

func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{logger: logger.Named("export")}
}

// ExportTrades filters, sorts and writes the given trades, returning
// the path of the file it produced.
func (te *TradeExporter) ExportTrades(trades []*models.Trade, options Options) (string, error) {
	filtered := te.filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].ExecutedAt.Before(filtered[j].ExecutedAt)
	})

	filename := te.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (te *TradeExporter) filterTrades(trades []*models.Trade, options Options) []*models.Trade {
	var filtered []*models.Trade

	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.ExecutedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.ExecutedAt.After(options.EndTime) {
			continue
		}
		if options.MintFilter != "" && trade.Mint != options.MintFilter {
			continue
		}
		if options.DirectionFilter != "" && trade.Direction != options.DirectionFilter {
			continue
		}
		filtered = append(filtered, trade)
	}

	return filtered
}

func (te *TradeExporter) generateFilename(options Options) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "trades_all"
	if options.DirectionFilter != "" {
		prefix = fmt.Sprintf("trades_%s", options.DirectionFilter)
	}
	if options.MintFilter != "" && len(options.MintFilter) >= 8 {
		prefix += "_" + options.MintFilter[:8]
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func csvHeaders() []string {
	return []string{
		"trade_id", "executed_at", "mint", "direction", "trader",
		"token_amount", "base_amount", "supply_after", "reserves_after",
	}
}

func csvRow(t *models.Trade) []string {
	return []string{
		t.TradeID,
		t.ExecutedAt.UTC().Format(time.RFC3339),
		t.Mint,
		t.Direction,
		t.Trader,
		fmt.Sprintf("%d", t.TokenAmount),
		t.BaseAmount,
		fmt.Sprintf("%d", t.SupplyAfter),
		t.ReservesAfter,
	}
}

func (te *TradeExporter) exportToCSV(trades []*models.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(csvRow(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}

	return nil
}

func (te *TradeExporter) exportToJSON(trades []*models.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time       `json:"export_time"`
		TradeCount int             `json:"trade_count"`
		Trades     []*models.Trade `json:"trades"`
		Summary    Summary         `json:"summary"`
	}{
		ExportTime: time.Now().UTC(),
		TradeCount: len(trades),
		Trades:     trades,
		Summary:    calculateSummary(trades),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// Summary holds aggregate statistics over an exported trade set. Volumes
// are decimal strings since base amounts can exceed 64 bits.
type Summary struct {
	TotalTrades     int       `json:"total_trades"`
	BuyCount        int       `json:"buy_count"`
	SellCount       int       `json:"sell_count"`
	UniqueMints     int       `json:"unique_mints"`
	TokensBought    uint64    `json:"tokens_bought"`
	TokensSold      uint64    `json:"tokens_sold"`
	TotalBuyVolume  string    `json:"total_buy_volume"`
	TotalSellVolume string    `json:"total_sell_volume"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

// calculateSummary expects trades already sorted by execution time.
func calculateSummary(trades []*models.Trade) Summary {
	summary := Summary{
		TotalTrades:     len(trades),
		TotalBuyVolume:  "0",
		TotalSellVolume: "0",
	}
	if len(trades) == 0 {
		return summary
	}

	summary.StartDate = trades[0].ExecutedAt
	summary.EndDate = trades[len(trades)-1].ExecutedAt

	mintSet := make(map[string]bool)
	buyVolume := new(uint256.Int)
	sellVolume := new(uint256.Int)

	for _, trade := range trades {
		mintSet[trade.Mint] = true

		amount, err := uint256.FromDecimal(trade.BaseAmount)
		if err != nil {
			// Skip unparsable rows rather than abort the whole export.
			amount = new(uint256.Int)
		}

		switch trade.Direction {
		case "buy":
			summary.BuyCount++
			summary.TokensBought += trade.TokenAmount
			buyVolume.Add(buyVolume, amount)
		case "sell":
			summary.SellCount++
			summary.TokensSold += trade.TokenAmount
			sellVolume.Add(sellVolume, amount)
		}
	}

	summary.UniqueMints = len(mintSet)
	summary.TotalBuyVolume = buyVolume.Dec()
	summary.TotalSellVolume = sellVolume.Dec()

	return summary
}
