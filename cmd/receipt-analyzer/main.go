package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"github.com/zenebe/receipt-analyzer/internal/parsing"
	"github.com/zenebe/receipt-analyzer/internal/transaction"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-analyzer")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "receipt-analyzer.db", "Database file path")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		voidTolerance = fs.StringLong("void-tolerance", "0.01", "Void pair matching tolerance; 0 for exact matching")
		buyerTIN      = fs.StringLong("buyer-tin-fallback", "CASH", "Buyer TIN recorded when a receipt has none")
		merchantTIN   = fs.StringLong("merchant-tin-fallback", "", "Merchant TIN recorded when a receipt has none")
		strictFooter  = fs.BoolLong("strict-footer", "Only footer keywords end a receipt, not dash runs")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_ANALYZER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Build parser configuration
	cfg := parsing.DefaultConfig()
	tolerance, err := decimal.NewFromString(*voidTolerance)
	if err != nil {
		slog.Error("Invalid void tolerance", "value", *voidTolerance, "error", err)
		os.Exit(1)
	}
	cfg.VoidTolerance = tolerance
	cfg.BuyerTINFallback = *buyerTIN
	cfg.MerchantTINFallback = *merchantTIN
	cfg.DisableDashFooter = *strictFooter

	// Initialize database
	slog.Info("Initializing database...")
	db, err := transaction.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize service
	parser := parsing.NewParserWithConfig(cfg)
	service := transaction.NewService(db, parser, transaction.NewExcelExporter())

	// Initialize server
	basicAuth := transaction.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := transaction.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
