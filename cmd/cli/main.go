package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type result struct {
	Target    string    `json:"target"`
	Up        bool      `json:"up"`
	LatencyMS int64     `json:"latency_ms"`
	Status    string    `json:"status"`
	Pushed    bool      `json:"pushed"`
	Rotation  string    `json:"rotation"`
	CheckedAt time.Time `json:"checked_at"`
}

var (
	apiBase string
	apiKey  string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cli",
		Short:         "Query a running pushfailover agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return status(baseURL(), apiKey)
		},
	}

	defBase := os.Getenv("API_BASE")
	if defBase == "" {
		defBase = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&apiBase, "api", defBase, "agent status API base URL (default $API_BASE)")
	root.PersistentFlags().StringVar(&apiKey, "key", os.Getenv("API_KEY"), "API key (default $API_KEY)")

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the latest result per target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return status(baseURL(), apiKey)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "check <target>",
		Short: "Run one cycle for a target now (admin key)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(baseURL(), apiKey, args[0])
		},
	})
	return root
}

func baseURL() string { return strings.TrimRight(apiBase, "/") }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func call(method, url, key string, out any) error {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return err
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("API returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func status(api, key string) error {
	var rows []result
	if err := call(http.MethodGet, api+"/api/results/latest", key, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No results yet.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tPING\tSTATUS\tPUSHED\tCHECKED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%v\t%s\n", r.Target, r.LatencyMS, r.Status, r.Pushed, r.CheckedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func check(api, key, name string) error {
	var r result
	if err := call(http.MethodPost, api+"/api/targets/"+url.PathEscape(name)+"/check", key, &r); err != nil {
		return err
	}
	fmt.Printf("%s: %s (ping %d)\n", r.Target, r.Status, r.LatencyMS)
	if r.Rotation != "" {
		fmt.Printf("failover: %s\n", r.Rotation)
	}
	return nil
}
