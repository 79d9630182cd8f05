package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nealgriffin/gridiron/internal/logger"
	"github.com/nealgriffin/gridiron/pkg/nfl"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: gridiron [-config path] [-db path] [-week n] <command>

commands:
  import     fetch the configured seasons into the staging tables
  transform  rebuild the normalized stat, schedule and game tables
  predict    train and predict a week (default: the current elapsed week)
  backtest   replay the current season week by week
  run        import, transform, then backtest
`)
	os.Exit(2)
}

func main() {
	// Configure logging
	logger.SetShowDateTime(true)
	logger.SetLogOutput('c')

	var configPath, dbPath, command string
	var week int
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-config":
			if i+1 >= len(args) {
				usage()
			}
			i++
			configPath = args[i]
		case "-db":
			if i+1 >= len(args) {
				usage()
			}
			i++
			dbPath = args[i]
		case "-week":
			if i+1 >= len(args) {
				usage()
			}
			i++
			w, err := strconv.Atoi(args[i])
			if err != nil || w < 1 {
				usage()
			}
			week = w
		default:
			if command != "" {
				usage()
			}
			command = args[i]
		}
	}
	if command == "" {
		usage()
	}

	cfg, err := nfl.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration:", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration:", err)
	}

	store, err := nfl.OpenStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("Failed to open database:", err)
	}
	defer store.Close()

	provider := nfl.NewNflverseProvider(cfg.CachePath)

	switch command {
	case "import":
		err = nfl.ImportSeasons(store, provider, cfg)
	case "transform":
		err = nfl.Transform(store, cfg)
	case "predict":
		if week == 0 {
			week = cfg.ElapsedWeek(time.Now())
			logger.Info("No week given, predicting the current elapsed week", week)
		}
		var result *nfl.WeekResult
		result, err = nfl.PredictWeek(store, cfg.ForWeek(week))
		if err == nil && !result.Skipped {
			logger.Highlight("Predicted week", result.Week, "games", result.PredictRows)
		}
	case "backtest":
		var result *nfl.BacktestResult
		result, err = nfl.RunBacktest(store, cfg)
		if err == nil {
			logger.Highlight("Season accuracy", result.Accuracy())
		}
	case "run":
		var result *nfl.BacktestResult
		result, err = nfl.Run(store, provider, cfg)
		if err == nil {
			logger.Highlight("Season accuracy", result.Accuracy())
		}
	default:
		usage()
	}

	if err != nil {
		logger.Error("Command failed:", command, err)
		os.Exit(1)
	}
}
