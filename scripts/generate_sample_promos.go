package main

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

var header = []string{"code", "discount_percent", "discount_amount", "max_uses", "min_order_amount", "valid_until", "is_active"}

// generateSamplePromos creates sample promo import files for local testing.
// SPRING10 is defined in both files; the second file wins on import, so it
// ends up with a usage cap of 50.
func main() {
	dataDir := "data/promo"

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	files := map[string][][]string{
		"promo_base.csv.gz": {
			{"SPRING10", "10", "", "100", "", "2026-05-31", "true"},
			{"FLAT50", "", "50", "", "300", "", "true"},
			{"BOOKCLUB", "15", "", "", "", "", "true"},
			{"OLDSALE", "20", "", "", "", "2024-01-31", "true"},
		},
		"promo_campaign.csv.gz": {
			{"SPRING10", "10", "", "50", "", "2026-05-31", "true"},
			{"FIRSTORDER", "", "100", "1000", "500", "", "true"},
			{"PAUSED", "5", "", "", "", "", "false"},
		},
	}

	for filename, rows := range files {
		filePath := filepath.Join(dataDir, filename)

		if err := createPromoFile(filePath, rows); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d codes\n", filePath, len(rows))
	}

	fmt.Println("\nImport with:")
	fmt.Printf("  go run ./cmd/promo-import %s %s\n",
		filepath.Join(dataDir, "promo_base.csv.gz"),
		filepath.Join(dataDir, "promo_campaign.csv.gz"))
}

func createPromoFile(filePath string, rows [][]string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	writer := csv.NewWriter(gzipWriter)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write promo rows: %w", err)
	}

	return nil
}
