// Command fitmon decodes a FIT monitoring file and writes its decoded
// message stream and day-bucketed statistics to a few output formats.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tgoetz/fitmonitor/config"
	"github.com/tgoetz/fitmonitor/decode"
	"github.com/tgoetz/fitmonitor/monitor"
	"github.com/tgoetz/fitmonitor/report"
)

func main() {
	var (
		fitPath    = flag.String("fit", "", "Path to input .fit file")
		configPath = flag.String("config", "", "Path to TOML configuration file (optional)")
		outDir     = flag.String("out", "", "Output directory")
		format     = flag.String("format", "parquet", "Canonical sample format: parquet|csv")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --fit input.fit --out outdir [--config fitmon.toml] [--format parquet|csv]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*fitPath) == "" || strings.TrimSpace(*outDir) == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *format != "parquet" && *format != "csv" {
		fmt.Fprintf(os.Stderr, "fitmon: unsupported format %q (expected parquet|csv)\n", *format)
		os.Exit(2)
	}

	if err := run(*fitPath, *configPath, *outDir, *format); err != nil {
		fmt.Fprintf(os.Stderr, "fitmon failed: %v\n", err)
		os.Exit(1)
	}
}

func run(fitPath, configPath, outDir, format string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(fitPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", fitPath, err)
	}

	result, err := decode.Parse(data, cfg.UnitPolicy())
	if err != nil {
		return fmt.Errorf("decoding %s: %w", fitPath, err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	agg := monitor.NewAggregator()
	for _, m := range result.Messages {
		agg.Add(m)
	}
	days := agg.Days()

	messagesPath := filepath.Join(outDir, "messages.jsonl")
	mf, err := os.Create(messagesPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", messagesPath, err)
	}
	if err := report.WriteMessagesJSONL(mf, result.Messages); err != nil {
		_ = mf.Close()
		return err
	}
	if err := mf.Close(); err != nil {
		return err
	}

	statsPath := filepath.Join(outDir, "day_stats.json")
	sf, err := os.Create(statsPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", statsPath, err)
	}
	if err := report.WriteDayStatsJSON(sf, days); err != nil {
		_ = sf.Close()
		return err
	}
	if err := sf.Close(); err != nil {
		return err
	}

	samples := report.SamplesFromMessages(result.Messages)
	var samplesPath string
	switch format {
	case "csv":
		samplesPath = filepath.Join(outDir, "samples.csv")
		cf, err := os.Create(samplesPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", samplesPath, err)
		}
		if err := report.WriteCanonicalSamplesCSV(cf, samples); err != nil {
			_ = cf.Close()
			return err
		}
		if err := cf.Close(); err != nil {
			return err
		}
	case "parquet":
		samplesPath = filepath.Join(outDir, "samples.parquet")
		if err := report.WriteCanonicalSamplesParquet(samplesPath, samples); err != nil {
			return err
		}
	}

	fmt.Println("fitmon complete")
	fmt.Printf("file CRC valid:   %v\n", result.FileCRCOK)
	fmt.Printf("messages decoded: %d\n", len(result.Messages))
	fmt.Printf("messages:         %s\n", messagesPath)
	fmt.Printf("day stats:        %s\n", statsPath)
	fmt.Printf("samples:          %s\n", samplesPath)
	for _, w := range result.Warnings {
		fmt.Printf("warning:          %v\n", w)
	}
	return nil
}
