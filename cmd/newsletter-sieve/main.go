package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/newsletter-sieve/internal/core"
	"github.com/mikey/newsletter-sieve/internal/di"
	"github.com/mikey/newsletter-sieve/internal/whitelist"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build application: %v\n", err)
		os.Exit(1)
	}

	err = container.Invoke(func(
		logger *zap.Logger,
		ex core.Extractor,
		service *core.FilterService,
	) {
		defer logger.Sync()
		run(flags, logger, ex, service)
	})
	if err != nil {
		fmt.Printf("Failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run(flags *di.CLIFlags, logger *zap.Logger, ex core.Extractor, service *core.FilterService) {
	// Read email from file or stdin
	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
		}
		defer file.Close()
		reader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		logger.Fatal("Failed to read email", zap.Error(err))
	}

	email := ex.Extract(core.RawMessage{ID: flags.InputFile, Data: data})
	if email == nil {
		logger.Fatal("No normalized email could be produced from the input")
	}

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.Sender)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Date: %s\n", email.Date)
	fmt.Printf("Content type: %s\n", email.ContentType)
	fmt.Printf("Has unsubscribe: %t\n", email.HasUnsubscribe)
	fmt.Printf("Body length: %d bytes\n", len(email.Body))

	if flags.Verbose {
		preview := email.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	fmt.Printf("\n=== Analysis ===\n")

	var domains []string
	if flags.WhitelistedDomains != "" {
		for _, d := range strings.Split(flags.WhitelistedDomains, ",") {
			domains = append(domains, strings.TrimSpace(d))
		}
	}
	checker := whitelist.NewChecker(domains, logger)
	if checker.IsWhitelisted(email.Sender) {
		fmt.Printf("\n=== Results ===\n")
		fmt.Printf("Keep as newsletter: true (sender domain is whitelisted)\n")
		return
	}

	startTime := time.Now()
	decision := service.ClassifyEmail(email)
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Score Breakdown ===\n")
	fmt.Printf("Unsubscribe:       %.2f\n", decision.Analysis.Unsubscribe)
	fmt.Printf("Sender:            %.2f\n", decision.Analysis.Sender)
	fmt.Printf("Content:           %.2f\n", decision.Analysis.Content)
	fmt.Printf("Structural:        %.2f\n", decision.Analysis.Structural)
	fmt.Printf("Transactional:     %.2f\n", decision.Analysis.Transactional)
	fmt.Printf("Domain reputation: %.2f\n", decision.Analysis.DomainReputation)
	fmt.Printf("Engagement:        %.2f\n", decision.Analysis.Engagement)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Total score: %.4f\n", decision.TotalScore)
	fmt.Printf("Threshold: %.2f\n", decision.Threshold)
	fmt.Printf("Keep as newsletter: %t\n", decision.ShouldKeep)
	fmt.Printf("Primary pattern: %s\n", decision.PrimaryPattern)
	fmt.Printf("Processing time: %v\n", duration)

	if flags.ExportPath != "" {
		doc, err := core.ExportLog([]core.ClassificationDecision{decision}, time.Now())
		if err != nil {
			logger.Error("Failed to serialize decision log", zap.Error(err))
			return
		}
		if err := os.WriteFile(flags.ExportPath, doc, 0o644); err != nil {
			logger.Error("Failed to write decision log", zap.Error(err), zap.String("path", flags.ExportPath))
			return
		}
		logger.Info("Decision log exported", zap.String("path", flags.ExportPath))
	}
}
