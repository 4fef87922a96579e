package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

const batchSize = 500

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: go run ./cmd/seed <xlsx_file_path> [--yes]")
		os.Exit(2)
	}
	filePath := os.Args[1]
	assumeYes := len(os.Args) > 2 && os.Args[2] == "--yes"

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	rows, err := readRowsFromXLSX(filePath)
	if err != nil {
		logger.Fatal("Failed to read XLSX", err)
	}

	result := parseRows(rows)
	printSummary(len(rows)-1, result)
	if len(result.Rows) == 0 {
		fmt.Println("Nothing to import.")
		return
	}

	if !assumeYes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	inserted, err := importProducts(db.GetDB(), result.Rows, batchSize)
	if err != nil {
		logger.Fatal("Failed to import products", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("  Products inserted: %d\n", inserted)
	fmt.Printf("  Already present:   %d\n", int64(len(result.Rows))-inserted)
}

func printSummary(total int, result parseResult) {
	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", total)
	fmt.Printf("  Valid products: %d\n", len(result.Rows))
	fmt.Printf("  Skipped rows: %d\n", len(result.Skipped))

	lines := make([]int, 0, len(result.Skipped))
	for line := range result.Skipped {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	for _, line := range lines {
		fmt.Printf("    row %d: %s\n", line, result.Skipped[line])
	}
}
