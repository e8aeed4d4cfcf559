package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// probeResult is the outcome of one health probe.
type probeResult struct {
	Probe      string `json:"probe"`
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
	InstanceID string `json:"instanceId,omitempty"`
	Version    string `json:"version,omitempty"`
	Error      string `json:"error,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe the liveness and readiness of the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := clientConfig(cmd.Context())
		if err != nil {
			return err
		}
		base, err := healthBase(cfg.Endpoint)
		if err != nil {
			return err
		}

		client := cfg.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 5 * time.Second}
		}

		results := []probeResult{
			probe(cmd.Context(), client, base, "live"),
			probe(cmd.Context(), client, base, "ready"),
		}

		if err := render(cmd.OutOrStdout(), results, func() *table {
			t := &table{header: []string{"PROBE", "CODE", "STATUS", "INSTANCE", "VERSION"}}
			for _, r := range results {
				status := r.Status
				if r.Error != "" {
					status = r.Error
				}
				t.add(r.Probe, fmt.Sprint(r.StatusCode), status, r.InstanceID, r.Version)
			}
			return t
		}); err != nil {
			return err
		}

		for _, r := range results {
			if r.StatusCode != http.StatusOK {
				return fmt.Errorf("server is not %s", r.Probe)
			}
		}
		return nil
	},
}

// healthBase turns the GraphQL endpoint into the /health URL of the same server.
func healthBase(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/graphql") + "/health"
	u.RawQuery = ""
	return u.String(), nil
}

func probe(ctx context.Context, client *http.Client, base, name string) probeResult {
	result := probeResult{Probe: name}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+name, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	resp, err := client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	var body struct {
		Status     string `json:"status"`
		InstanceID string `json:"instance_id"`
		Version    string `json:"version"`
		Error      string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		result.Error = fmt.Sprintf("invalid response: %v", err)
		return result
	}
	result.Status = body.Status
	result.InstanceID = body.InstanceID
	result.Version = body.Version
	if result.Status == "" {
		result.Status = body.Error
	}
	return result
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
