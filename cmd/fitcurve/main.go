package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/meenmo/termfit/config"
	"github.com/meenmo/termfit/logging"
	"github.com/meenmo/termfit/marketdata"
	"github.com/meenmo/termfit/metrics"
	"github.com/meenmo/termfit/utils"
)

func main() {
	inputPath := flag.String("input", "", "market snapshot JSON path (optional; if set, ignores stdin)")
	configPath := flag.String("config", "", "config file (toml, yaml or json)")
	parBonds := flag.String("par-bonds", "", "use the built-in par bond ladder issued on this date (YYYY-MM-DD) instead of an input")
	advanceMonths := flag.Int("advance-months", 0, "also report after moving the evaluation date by this many months")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address and wait for a signal after reporting")
	help := flag.Bool("h", false, "Show help")
	flag.BoolVar(help, "help", false, "Show help")
	flag.Parse()

	if *help {
		usage()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		writeError(err.Error())
		return
	}
	if err := logging.Init(cfg.Logger); err != nil {
		writeError(fmt.Sprintf("failed to init logger: %v", err))
		return
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	snap, err := loadSnapshot(strings.TrimSpace(*inputPath), strings.TrimSpace(*parBonds))
	if err != nil {
		writeError(err.Error())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		srv = serveMetrics(cfg.Metrics)
	}

	s, err := newSession(snap, cfg)
	if err != nil {
		writeError(fmt.Sprintf("failed to build curves: %v", err))
		return
	}

	reports := []Report{s.report(ctx)}
	if *advanceMonths != 0 {
		s.advance(*advanceMonths)
		reports = append(reports, s.report(ctx))
	}

	outputBytes, _ := json.Marshal(reports)
	fmt.Println(string(outputBytes))

	hadError := false
	for _, r := range reports {
		if r.Error != "" {
			hadError = true
		}
	}

	if srv != nil {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Get().Error("metrics server shutdown", "error", err)
		}
	}
	if hadError {
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  fitcurve < market.json")
	fmt.Println("  fitcurve -input /path/to/market.json [-config termfit.toml]")
	fmt.Println("  fitcurve -par-bonds 2024-03-15 -advance-months 23")
	fmt.Println()
	fmt.Println("Bootstrap and fit discount curves to a market snapshot and print every")
	fmt.Println("bond's par rate on every curve as JSON.")
	fmt.Println()
	fmt.Println("Example input:")
	fmt.Println(`  {`)
	fmt.Println(`    "curve_date": "2024-03-15",`)
	fmt.Println(`    "bonds": [{"name": "bond-2y", "issue": "2024-03-15", "maturity": "2026-03-15",`)
	fmt.Println(`               "coupon": "0.02", "day_count": "30/360", "price": "100"}, ...],`)
	fmt.Println(`    "reference": {"rate": "0.03"}`)
	fmt.Println(`  }`)
}

func loadSnapshot(path, parBondsDate string) (*marketdata.Snapshot, error) {
	if parBondsDate != "" {
		d, err := utils.ParseDate(parBondsDate)
		if err != nil {
			return nil, fmt.Errorf("invalid -par-bonds date: %v", err)
		}
		return marketdata.ParBonds(d), nil
	}
	if path == "" {
		if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			usage()
			os.Exit(2)
		}
	}
	raw, err := readInput(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %v", err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty input")
	}
	snap, err := marketdata.Read(bytes.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON input: %v", err)
	}
	return snap, nil
}

func readInput(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

func serveMetrics(cfg config.MetricsConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Default.Handler())
	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logging.Get().Info("serving metrics", "addr", cfg.Addr, "path", cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Get().Error("metrics server", "error", err)
		}
	}()
	return srv
}

func writeError(msg string) {
	outputBytes, _ := json.Marshal([]Report{{Error: msg}})
	fmt.Println(string(outputBytes))
	os.Exit(1)
}
