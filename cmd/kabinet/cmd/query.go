package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kabinet.io/kabinet/sdk"
)

var queryFlags struct {
	vars          []string
	variablesFile string
	jsonPath      string
	maxEvents     int
}

var queryCmd = &cobra.Command{
	Use:   "query <file|->",
	Short: "Send a GraphQL document",
	Long: `Send a GraphQL document read from a file or stdin.

Queries and mutations print the response data. Subscriptions print every
event until interrupted or --max-events is reached.

Variables come from --variables-file (JSON or YAML) and --var name=value;
values that parse as JSON are sent as such, anything else as a string.`,
	Example: `  kabinet query pod.graphql --var id=pod-1
  kabinet query pod.graphql --var id=pod-1 --jsonpath '$.pod.podId'
  echo 'subscription WatchPods { pods { create { id } } }' | kabinet query - --max-events 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		vars, err := queryVariables(queryFlags.variablesFile, queryFlags.vars)
		if err != nil {
			return err
		}
		op := sdk.ParseOperation(doc)

		gql, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer gql.Close()

		ctx := cmd.Context()
		if op.Kind != sdk.KindSubscription {
			var data json.RawMessage
			if err := gql.Execute(ctx, op, vars, &data); err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), data, queryFlags.jsonPath)
		}

		sub, err := gql.Subscribe(ctx, op, vars)
		if err != nil {
			return err
		}
		defer sub.Close()

		for n := 0; queryFlags.maxEvents <= 0 || n < queryFlags.maxEvents; n++ {
			if !sub.Next(ctx) {
				if err := sub.Err(); err != nil && !errors.Is(err, ctx.Err()) {
					return err
				}
				return nil
			}
			resp := sub.Response()
			if err := resp.Err(); err != nil {
				return err
			}
			if err := printData(cmd.OutOrStdout(), resp.Data, queryFlags.jsonPath); err != nil {
				return err
			}
		}
		return nil
	},
}

func readDocument(stdin io.Reader, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	doc := strings.TrimSpace(string(raw))
	if doc == "" {
		return "", errors.New("document is empty")
	}
	return doc, nil
}

// queryVariables merges the variables file with --var pairs; pairs win.
func queryVariables(file string, pairs []string) (sdk.Variables, error) {
	vars := sdk.Variables{}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read variables: %w", err)
		}
		// YAML is a superset of JSON.
		if err := yaml.Unmarshal(raw, &vars); err != nil {
			return nil, fmt.Errorf("failed to parse variables: %w", err)
		}
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", pair)
		}
		var decoded interface{}
		if err := json.Unmarshal([]byte(value), &decoded); err != nil {
			decoded = value
		}
		vars[name] = decoded
	}
	return vars, nil
}

// printData prints data, or the value expr selects from it.
func printData(w io.Writer, data json.RawMessage, expr string) error {
	var doc interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("response data is not JSON: %w", err)
		}
	}

	if expr = strings.TrimSpace(expr); expr != "" {
		v, err := extract(doc, expr)
		if err != nil {
			return err
		}
		if s, ok := v.(string); ok {
			_, err := fmt.Fprintln(w, s)
			return err
		}
		doc = v
	}
	return render(w, doc, nil)
}

// extract evaluates a JSONPath expression. Single element results of
// wildcard or filter expressions are unwrapped.
func extract(doc interface{}, expr string) (interface{}, error) {
	v, err := jsonpath.Get(expr, doc)
	if err != nil {
		return nil, fmt.Errorf("jsonpath %s: %w", expr, err)
	}
	if list, ok := v.([]interface{}); ok && len(list) == 1 {
		v = list[0]
	}
	if v == nil {
		return nil, fmt.Errorf("jsonpath %s: no value found", expr)
	}
	return v, nil
}

func init() {
	rootCmd.AddCommand(queryCmd)

	f := queryCmd.Flags()
	f.StringArrayVar(&queryFlags.vars, "var", nil, "Variable as name=value, repeatable")
	f.StringVar(&queryFlags.variablesFile, "variables-file", "", "JSON or YAML file with variables")
	f.StringVar(&queryFlags.jsonPath, "jsonpath", "", "Print only the value selected by this JSONPath expression")
	f.IntVar(&queryFlags.maxEvents, "max-events", 0, "Stop a subscription after this many events")
}
