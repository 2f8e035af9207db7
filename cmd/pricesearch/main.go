package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/darkkaiser/pricesearch/internal/config"
	"github.com/darkkaiser/pricesearch/internal/engine"
	"github.com/darkkaiser/pricesearch/internal/pkg/version"
	applog "github.com/darkkaiser/pricesearch/pkg/log"
	log "github.com/sirupsen/logrus"
)

const (
	appName = "pricesearch"

	// logMaxAge is how many days of old log files are kept on disk.
	logMaxAge = 30
)

const banner = `
  ____       _              ____                          _
 |  _ \ _ __(_) ___ ___  ___/ ___|  ___  __ _ _ __ ___| |__
 | |_) | '__| |/ __/ _ \/ _ \___ \ / _ \/ _' | '__/ __| '_ \
 |  __/| |  | | (_|  __/  __/___) |  __/ (_| | | | (__| | | |
 |_|   |_|  |_|\___\___|\___|____/ \___|\__,_|_|  \___|_| |_|
--------------------------------------------------------------------------------
`

func main() {
	appLogCloser, err := applog.Setup(applog.Options{
		Name:              appName,
		MaxAge:            logMaxAge,
		EnableCriticalLog: true,
		EnableConsoleLog:  true,
		ReportCaller:      true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] failed to initialize logging, aborting startup (cause: %v)\n", err)
		os.Exit(1)
	}
	defer appLogCloser.Close()

	fmt.Print(banner)

	buildInfo := version.Get()
	applog.WithComponentAndFields("main", log.Fields{
		"version": buildInfo.String(),
	}).Info("build information")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <query>\n", appName)
		os.Exit(2)
	}
	query := os.Args[1]

	cfg, err := config.Load("")
	if err != nil {
		applog.WithComponentAndFields("main", log.Fields{"error": err}).Fatal("failed to load configuration")
	}

	eng, err := engine.New(cfg)
	if err != nil {
		applog.WithComponentAndFields("main", log.Fields{"error": err}).Fatal("failed to initialize engine")
	}
	defer func() {
		if err := eng.Close(); err != nil {
			applog.WithComponentAndFields("main", log.Fields{"error": err}).Warn("engine shutdown reported an error")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.TotalBudget()+5*time.Second)
	defer cancel()

	result := eng.Orchestrator.Search(ctx, query)

	applog.WithComponentAndFields("main", log.Fields{
		"query":   query,
		"status":  result.Status,
		"source":  result.Source,
		"elapsed": result.Budget.Elapsed,
	}).Info("search finished")

	switch {
	case result.Price > 0:
		fmt.Printf("%s\n%d KRW  (%s, %s)\n", result.ProductName, result.Price, result.Mall, result.ProductURL)
	default:
		fmt.Printf("no result: %s (%s)\n", result.Status, result.ErrorMessage)
	}
}
