package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/quietkey/pushtotalk/internal/app"
	"github.com/quietkey/pushtotalk/internal/config"
	"github.com/quietkey/pushtotalk/internal/metrics"
	"github.com/quietkey/pushtotalk/internal/version"
)

func main() {
	var (
		resetConfig    = flag.Bool("reset-config", false, "Delete the saved configuration and start fresh")
		showConfig     = flag.Bool("show-config", false, "Show current configuration file location and contents")
		showVersion    = flag.Bool("version", false, "Show current version")
		showStats      = flag.Bool("stats", false, "Show usage statistics and productivity metrics")
		resetStats     = flag.Bool("reset-stats", false, "Clear all usage statistics")
		setTypingSpeed = flag.String("set-typing-speed", "", "Set your typing speed in words per minute (e.g., --set-typing-speed=65)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("PushToTalk %s\n", version.VERSION)
		return
	}

	if *showConfig {
		handleShowConfig()
		return
	}

	if *showStats {
		handleShowStats()
		return
	}

	if *resetStats {
		handleResetStats()
		return
	}

	if *setTypingSpeed != "" {
		handleSetTypingSpeed(*setTypingSpeed)
		return
	}

	if *resetConfig {
		handleResetConfig()
	}

	daemon := app.NewDaemon()
	if err := daemon.Initialize(); err != nil {
		log.Fatalf("failed to initialize daemon: %v", err)
	}

	if err := daemon.Run(); err != nil {
		log.Fatalf("daemon error: %v", err)
	}
}

func handleShowConfig() {
	path, err := config.Path()
	if err != nil {
		fmt.Printf("error getting config path: %v\n", err)
		os.Exit(1)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("config file does not exist yet")
		return
	}

	fmt.Printf("config file location: %s\n\n", path)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("error reading config file: %v\n", err)
		return
	}
	fmt.Println(string(content))
}

func handleResetConfig() {
	path, _ := config.Path()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Printf("warning: failed to remove existing config: %v\n", err)
	}
	fmt.Println("configuration reset. Defaults will be used; with the Qwen provider you will be prompted for its API key if none is found.")
}

func handleShowStats() {
	statsDir, err := config.StatsDir()
	if err != nil {
		fmt.Printf("error getting stats directory: %v\n", err)
		os.Exit(1)
	}

	manager, err := metrics.NewMetricsManager(statsDir)
	if err != nil {
		fmt.Printf("error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	total, err := manager.GetTotalStats()
	if err != nil {
		fmt.Printf("error getting total metrics: %v\n", err)
		os.Exit(1)
	}

	recent, err := manager.GetRecentDays(7)
	if err != nil {
		fmt.Printf("warning: failed to get recent metrics: %v\n", err)
	}

	formatter := metrics.NewStatsFormatter()
	fmt.Println(formatter.FormatTotalStats(total))
	fmt.Println()

	if len(recent) > 0 {
		fmt.Println(formatter.FormatWeeklyStats(recent))
		fmt.Println()
	}

	fmt.Printf("current typing speed setting: %d WPM\n", manager.GetTypingSpeed())
	fmt.Println("use --set-typing-speed to update for more accurate time savings")
}

func handleResetStats() {
	statsDir, err := config.StatsDir()
	if err != nil {
		fmt.Printf("error getting stats directory: %v\n", err)
		os.Exit(1)
	}

	manager, err := metrics.NewMetricsManager(statsDir)
	if err != nil {
		fmt.Printf("error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	if err := manager.ClearAllMetrics(); err != nil {
		fmt.Printf("error clearing metrics: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("all usage statistics have been cleared")
}

func handleSetTypingSpeed(speedStr string) {
	speed, err := strconv.Atoi(speedStr)
	if err != nil {
		fmt.Printf("invalid typing speed: %s (must be a number)\n", speedStr)
		os.Exit(1)
	}
	if speed < 10 || speed > 200 {
		fmt.Printf("typing speed must be between 10 and 200 WPM (got %d)\n", speed)
		os.Exit(1)
	}

	statsDir, err := config.StatsDir()
	if err != nil {
		fmt.Printf("error getting stats directory: %v\n", err)
		os.Exit(1)
	}

	manager, err := metrics.NewMetricsManager(statsDir)
	if err != nil {
		fmt.Printf("error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	if err := manager.SetTypingSpeed(speed); err != nil {
		fmt.Printf("error setting typing speed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("typing speed updated to %d WPM\n", speed)
}
