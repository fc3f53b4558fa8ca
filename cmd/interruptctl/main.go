// cmd/interruptctl/main.go
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colebrumley/interruptd/internal/config"
)

const defaultBaseURL = "http://127.0.0.1:9876"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "init":
		err = cmdInit()
	case "status":
		err = cmdStatus()
	case "triggers":
		err = cmdTriggers()
	case "history":
		err = cmdHistory(args)
	case "stats":
		err = cmdStats(args)
	case "feedback":
		err = cmdFeedback(args)
	case "evaluate":
		err = cmdEvaluate(args)
	case "enable":
		err = cmdSetEnabled(args, true)
	case "disable":
		err = cmdSetEnabled(args, false)
	case "validate":
		err = cmdValidate(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`interruptctl - control the proactive trigger daemon

Usage: interruptctl <command> [options]

Commands:
  init                 Initialize configuration directories
  status               Show daemon status
  triggers             List registered triggers
  history [trigger]    Show recent interaction decisions
  stats [-days N]      Show trigger statistics
  feedback <trigger> <accepted|ignored|dismissed> [-latency 5s]
                       Record user feedback for the latest decision
  evaluate [-execute]  Run one evaluation cycle immediately
  enable <trigger>     Enable a trigger
  disable <trigger>    Disable a trigger
  validate [trigger]   Validate trigger files`)
}

func baseURL() string {
	if v := os.Getenv("INTERRUPTD_ADDR"); v != "" {
		return v
	}
	return defaultBaseURL
}

func stateDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".interruptd"), nil
}

func get(path string, out any) error {
	resp, err := http.Get(baseURL() + path)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func post(path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := http.Post(baseURL()+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func cmdInit() error {
	dir, err := stateDir()
	if err != nil {
		return err
	}

	triggersDir := filepath.Join(dir, "triggers")
	dirs := []string{dir, triggersDir, filepath.Join(dir, "logs")}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
		fmt.Printf("Created %s\n", d)
	}

	if err := os.Chmod(triggersDir, 0700); err != nil {
		return fmt.Errorf("setting triggers directory permissions: %w", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaultConfig := config.Global{
			Daemon: config.DaemonConfig{
				LogLevel:      "info",
				ListenAddress: "127.0.0.1",
				ListenPort:    9876,
			},
			Logging: config.LoggingConfig{
				Format: "json",
			},
			Engine: config.EngineConfig{
				Interval:      config.Duration(time.Minute),
				DefaultUser:   "default",
				RetentionDays: 90,
			},
		}

		data, err := yaml.Marshal(defaultConfig)
		if err != nil {
			return err
		}
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			return err
		}
		fmt.Printf("Created %s\n", configPath)
	}

	fmt.Println("\nInitialization complete. Add trigger files to:", triggersDir)
	return nil
}

func cmdStatus() error {
	var health struct {
		Status          string `json:"status"`
		Uptime          string `json:"uptime"`
		TriggersLoaded  int    `json:"triggers_loaded"`
		TriggersEnabled int    `json:"triggers_enabled"`
	}
	if err := get("/health", &health); err != nil {
		return err
	}

	fmt.Printf("Status:   %s\n", health.Status)
	fmt.Printf("Uptime:   %s\n", health.Uptime)
	fmt.Printf("Triggers: %d loaded, %d enabled\n", health.TriggersLoaded, health.TriggersEnabled)
	return nil
}

func cmdTriggers() error {
	var triggers []struct {
		TriggerID   string `json:"trigger_id"`
		Kind        string `json:"kind"`
		Priority    int    `json:"priority"`
		Cooldown    string `json:"cooldown"`
		Enabled     bool   `json:"enabled"`
		Description string `json:"description"`
	}
	if err := get("/api/triggers", &triggers); err != nil {
		return err
	}

	if len(triggers) == 0 {
		fmt.Println("No triggers registered")
		return nil
	}

	fmt.Printf("%-22s %-10s %-4s %-10s %-8s %s\n", "TRIGGER", "KIND", "PRI", "COOLDOWN", "ENABLED", "DESCRIPTION")
	fmt.Println(strings.Repeat("-", 90))
	for _, t := range triggers {
		enabled := "yes"
		if !t.Enabled {
			enabled = "no"
		}
		desc := t.Description
		if len(desc) > 35 {
			desc = desc[:32] + "..."
		}
		fmt.Printf("%-22s %-10s %-4d %-10s %-8s %s\n", t.TriggerID, t.Kind, t.Priority, t.Cooldown, enabled, desc)
	}
	return nil
}

func cmdHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "max records to show")
	fs.Parse(args)

	path := fmt.Sprintf("/api/history?limit=%d", *limit)
	if fs.NArg() > 0 {
		path += "&trigger=" + fs.Arg(0)
	}

	var records []struct {
		DecisionID      string    `json:"decision_id"`
		TriggerID       string    `json:"trigger_id"`
		InteractionType string    `json:"interaction_type"`
		PriorityTier    string    `json:"priority_tier"`
		FinalScore      float64   `json:"final_score"`
		CreatedAt       time.Time `json:"created_at"`
		UserFeedback    string    `json:"user_feedback"`
	}
	if err := get(path, &records); err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No decisions recorded")
		return nil
	}

	fmt.Printf("%-20s %-22s %-14s %-9s %-6s %s\n", "TIME", "TRIGGER", "TYPE", "TIER", "SCORE", "FEEDBACK")
	fmt.Println(strings.Repeat("-", 90))
	for _, rec := range records {
		feedback := rec.UserFeedback
		if feedback == "" {
			feedback = "-"
		}
		fmt.Printf("%-20s %-22s %-14s %-9s %-6.2f %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.TriggerID, rec.InteractionType, rec.PriorityTier, rec.FinalScore, feedback)
	}
	return nil
}

func cmdStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	days := fs.Int("days", 7, "lookback window in days")
	fs.Parse(args)

	var stats struct {
		Days          int `json:"days"`
		TotalTriggers int `json:"total_triggers"`
		ByTrigger     []struct {
			TriggerID string `json:"trigger_id"`
			Count     int    `json:"count"`
		} `json:"by_trigger"`
		Effectiveness []struct {
			TriggerID      string  `json:"trigger_id"`
			Total          int     `json:"total"`
			AcceptanceRate float64 `json:"acceptance_rate"`
		} `json:"effectiveness"`
	}
	if err := get(fmt.Sprintf("/api/stats?days=%d", *days), &stats); err != nil {
		return err
	}

	fmt.Printf("Last %d days: %d decisions\n\n", stats.Days, stats.TotalTriggers)
	if len(stats.ByTrigger) > 0 {
		fmt.Printf("%-22s %s\n", "TRIGGER", "COUNT")
		for _, t := range stats.ByTrigger {
			fmt.Printf("%-22s %d\n", t.TriggerID, t.Count)
		}
	}
	if len(stats.Effectiveness) > 0 {
		fmt.Printf("\n%-22s %-6s %s\n", "TRIGGER", "TOTAL", "ACCEPTANCE")
		for _, e := range stats.Effectiveness {
			fmt.Printf("%-22s %-6d %.0f%%\n", e.TriggerID, e.Total, e.AcceptanceRate*100)
		}
	}
	return nil
}

func cmdFeedback(args []string) error {
	fs := flag.NewFlagSet("feedback", flag.ExitOnError)
	latency := fs.Duration("latency", 0, "time from prompt to response")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: interruptctl feedback <trigger> <accepted|ignored|dismissed>")
	}

	body := map[string]any{
		"trigger_id": fs.Arg(0),
		"outcome":    fs.Arg(1),
		"latency_ms": latency.Milliseconds(),
	}
	if err := post("/api/feedback", body, nil); err != nil {
		return err
	}
	fmt.Println("Feedback recorded")
	return nil
}

func cmdEvaluate(args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	execute := fs.Bool("execute", false, "dispatch the winning decision")
	user := fs.String("user", "", "user id to evaluate for")
	fs.Parse(args)

	var result struct {
		Decision *struct {
			TriggerID       string  `json:"trigger_id"`
			InteractionType string  `json:"interaction_type"`
			PriorityTier    string  `json:"priority_tier"`
			FinalScore      float64 `json:"final_score"`
			Reason          string  `json:"reason"`
		} `json:"decision"`
		Executed bool `json:"executed"`
	}
	body := map[string]any{"user_id": *user, "execute": *execute}
	if err := post("/api/evaluate", body, &result); err != nil {
		return err
	}

	if result.Decision == nil {
		fmt.Println("No trigger fired")
		return nil
	}
	d := result.Decision
	fmt.Printf("Trigger: %s\nType:    %s\nTier:    %s\nScore:   %.2f\nReason:  %s\n",
		d.TriggerID, d.InteractionType, d.PriorityTier, d.FinalScore, d.Reason)
	if result.Executed {
		fmt.Println("\nInteraction dispatched")
	}
	return nil
}

func cmdSetEnabled(args []string, enabled bool) error {
	if len(args) < 1 {
		verb := "enable"
		if !enabled {
			verb = "disable"
		}
		return fmt.Errorf("usage: interruptctl %s <trigger>", verb)
	}

	body := map[string]any{"enabled": enabled}
	if err := post("/api/triggers/"+args[0]+"/config", body, nil); err != nil {
		return err
	}
	if enabled {
		fmt.Printf("Trigger '%s' enabled\n", args[0])
	} else {
		fmt.Printf("Trigger '%s' disabled\n", args[0])
	}
	return nil
}

func cmdValidate(args []string) error {
	dir, err := stateDir()
	if err != nil {
		return err
	}
	triggersDir := filepath.Join(dir, "triggers")
	if v := os.Getenv("INTERRUPTD_TRIGGERS_DIR"); v != "" {
		triggersDir = v
	}

	if len(args) > 0 {
		path := filepath.Join(triggersDir, args[0]+".yaml")
		if _, err := config.LoadTrigger(path); err != nil {
			return fmt.Errorf("invalid trigger %s: %w", args[0], err)
		}
		fmt.Printf("Trigger '%s' is valid\n", args[0])
		return nil
	}

	triggers, err := config.LoadTriggersDir(triggersDir)
	if err != nil {
		return err
	}
	fmt.Printf("Validated %d trigger files\n", len(triggers))
	return nil
}
