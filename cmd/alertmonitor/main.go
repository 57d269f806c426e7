// Command alertmonitor is the standalone external poller for C9's alert
// engine, grounded in original_source/alert_monitor.py: connect to the
// alert-engine service and trigger a check sweep on an interval (or once
// and exit), independent of whether that service's own in-process cron
// monitor (start_monitor/stop_monitor) is running.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/autofinance/control-plane/internal/rpcclient"
)

// alertEngineURL reads ALERT_ENGINE_URL, defaulting to the alert-engine
// service's standard local port (config.Ports["alert-engine"]).
func alertEngineURL() string {
	if v := os.Getenv("ALERT_ENGINE_URL"); v != "" {
		return v
	}
	return "http://localhost:9011/mcp"
}

func main() {
	interval := flag.Int("interval", 60, "check interval in seconds")
	once := flag.Bool("once", false, "check once and exit")
	flag.Parse()

	alertEngine := rpcclient.New(alertEngineURL(), "alert-monitor", 15*time.Second)

	if *once {
		checkOnce(alertEngine)
		return
	}

	fmt.Printf("monitoring every %ds (ctrl+c to stop)\n", *interval)
	ticker := time.NewTicker(time.Duration(*interval) * time.Second)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	checkOnce(alertEngine)
	for {
		select {
		case <-ticker.C:
			checkOnce(alertEngine)
		case <-stop:
			fmt.Println("alert monitor stopped")
			return
		}
	}
}

func checkOnce(alertEngine *rpcclient.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	var result struct {
		Checked int `json:"alerts_checked"`
		Fired   int `json:"alerts_fired"`
	}
	if err := alertEngine.CallTool(ctx, "check_alerts_now", nil, &result); err != nil {
		fmt.Printf("check failed: %v\n", err)
		return
	}
	if result.Fired > 0 {
		fmt.Printf("checked %d alert(s), %d triggered\n", result.Checked, result.Fired)
		return
	}
	fmt.Printf("checked %d alert(s), none triggered\n", result.Checked)
}
