// Package main implements the journeyctl CLI for manual operations against a
// running journeyd server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the journeyd HTTP server
	serverURL string
	// limit bounds the list commands
	limit int
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "journeyctl",
	Short: "CLI for journeyd server operations",
	Long: `journeyctl is a command-line interface for interacting with a running
journeyd server. It provides commands for checking health, inspecting mined
conversion paths, drop-off analyses, and optimizations, and sending test
touchpoints.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9092", "journeyd server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(dropoffsCmd)
	rootCmd.AddCommand(optimizationsCmd)
	rootCmd.AddCommand(trackCmd)

	for _, cmd := range []*cobra.Command{pathsCmd, dropoffsCmd, optimizationsCmd} {
		cmd.Flags().IntVar(&limit, "limit", 10, "maximum entries to return")
	}
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check journeyd server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getJSON("/health")
	},
}

// pathsCmd lists mined conversion paths
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List top conversion paths by frequency",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getJSON(fmt.Sprintf("/api/v1/paths?limit=%d", limit))
	},
}

// dropoffsCmd lists drop-off analyses
var dropoffsCmd = &cobra.Command{
	Use:   "dropoffs",
	Short: "List top drop-off analyses by impact score",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getJSON(fmt.Sprintf("/api/v1/dropoffs?limit=%d", limit))
	},
}

// optimizationsCmd lists journey optimizations
var optimizationsCmd = &cobra.Command{
	Use:   "optimizations",
	Short: "List top optimizations by projected conversion increase",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getJSON(fmt.Sprintf("/api/v1/optimizations?limit=%d", limit))
	},
}

// trackCmd sends a touchpoint from a JSON file or stdin
var trackCmd = &cobra.Command{
	Use:   "track [file]",
	Short: "Send a touchpoint from a JSON file or stdin",
	Long: `Send a raw touchpoint to the journeyd ingestion endpoint.

Examples:
  # Track from a file
  journeyctl track touchpoint.json

  # Track from stdin
  echo '{"type":"page_view","channel":"organic","session_id":"s1"}' | journeyctl track -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrack,
}

func runTrack(cmd *cobra.Command, args []string) error {
	var payload []byte
	var err error

	if len(args) == 0 || args[0] == "-" {
		payload, err = io.ReadAll(os.Stdin)
	} else {
		payload, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read touchpoint payload: %w", err)
	}

	resp, err := httpClient().Post(serverURL+"/api/v1/touchpoints", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("post touchpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
	}

	return printIndented(body)
}

// getJSON fetches a path from the server and pretty-prints the JSON body.
func getJSON(path string) error {
	resp, err := httpClient().Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusServiceUnavailable {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
	}

	return printIndented(body)
}

func printIndented(body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		// Not JSON; print as-is.
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(buf.String())
	return nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
