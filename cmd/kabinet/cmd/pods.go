package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk/kabinet"
)

var podsCmd = &cobra.Command{
	Use:   "pods",
	Short: "Inspect and manage pods",
}

var podsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pods",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			pods, err := c.ListPods(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), pods, func() *table {
				t := &table{header: []string{"ID", "POD ID"}}
				for _, p := range pods {
					t.add(p.ID, p.PodID)
				}
				return t
			})
		})
	},
}

var podsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a pod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			pod, err := c.GetPod(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), pod, func() *table {
				release := pod.Deployment.Flavour.Release
				t := &table{header: []string{"ID", "POD ID", "APP", "VERSION"}}
				t.add(pod.ID, pod.PodID, release.App.Identifier, release.Version)
				return t
			})
		})
	},
}

var podCreateFlags struct {
	instanceID string
	localID    string
}

var podsCreateCmd = &cobra.Command{
	Use:   "create <deployment>",
	Short: "Register a pod for a deployment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			pod, err := c.CreatePod(ctx, args[0], podCreateFlags.instanceID, podCreateFlags.localID)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), pod, func() *table {
				t := &table{header: []string{"ID", "POD ID"}}
				t.add(pod.ID, pod.PodID)
				return t
			})
		})
	},
}

var podUpdateFlags struct {
	instanceID string
	localID    bool
}

var podsUpdateCmd = &cobra.Command{
	Use:   "update <pod> <status>",
	Short: "Report a new pod status",
	Long: `Report a new status for a pod.

The pod is addressed by its server ID, or by its backend-local ID with --local.
Statuses: ` + strings.Join(podStatusNames(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := models.PodStatus(strings.ToUpper(args[1]))
		if !status.Valid() {
			return fmt.Errorf("unknown status %q: must be one of %s", args[1], strings.Join(podStatusNames(), ", "))
		}

		var pod, localID *models.ID
		if podUpdateFlags.localID {
			localID = &args[0]
		} else {
			pod = &args[0]
		}

		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			updated, err := c.UpdatePod(ctx, status, podUpdateFlags.instanceID, pod, localID)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), updated, func() *table {
				t := &table{header: []string{"ID", "POD ID", "STATUS"}}
				t.add(updated.ID, updated.PodID, string(status))
				return t
			})
		})
	},
}

var podsLogsCmd = &cobra.Command{
	Use:   "logs <pod> [file]",
	Short: "Upload pod logs from a file or stdin",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 2 && args[1] != "-" {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		logs, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("failed to read logs: %w", err)
		}

		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			dump, err := c.DumpLogs(ctx, args[0], string(logs))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), dump, func() *table {
				t := &table{header: []string{"POD", "BYTES"}}
				t.add(dump.Pod.ID, fmt.Sprint(len(dump.Logs)))
				return t
			})
		})
	},
}

var podWatchFlags struct {
	backend     string
	poll        bool
	live        bool
	interval    time.Duration
	skipInitial bool
}

var podsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream pod changes until interrupted",
	Long: `Stream pod creations, updates and deletions.

By default the WatchPods subscription is used over a websocket. With --poll
the pod list is polled instead and changes are derived from snapshots.
With --live the pods are shown as a table redrawn on every change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			if podWatchFlags.live {
				return watchPodsLive(ctx, cmd, c)
			}
			return watchPods(ctx, c, func(_ context.Context, e models.PodEvent) error {
				return printEvent(cmd.OutOrStdout(), e)
			})
		})
	},
}

// watchPods reports pod events to emit until ctx is done or the
// subscription ends.
func watchPods(ctx context.Context, c *kabinet.Client, emit func(context.Context, models.PodEvent) error) error {
	if podWatchFlags.poll {
		kabinet.NewPodWatcher(kabinet.PodWatcherConfig{
			Client:      c,
			Logger:      logger,
			Interval:    podWatchFlags.interval,
			OnEvent:     emit,
			SkipInitial: podWatchFlags.skipInitial,
		}).Run(ctx)
		return nil
	}

	events, err := c.WatchPods(ctx, optional(podWatchFlags.backend))
	if err != nil {
		return err
	}
	defer events.Close()

	for {
		e, ok := events.Next(ctx)
		if !ok {
			break
		}
		if err := emit(ctx, e); err != nil {
			return err
		}
	}
	if err := events.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Debug("pod watch ended", zap.Error(ctx.Err()))
	return nil
}

// watchPodsLive runs watchPods behind a bubbletea program. Quitting the
// program stops the watch.
func watchPodsLive(ctx context.Context, cmd *cobra.Command, c *kabinet.Client) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan tea.Msg, 64)
	go func() {
		defer close(msgs)
		err := watchPods(ctx, c, func(ctx context.Context, e models.PodEvent) error {
			select {
			case msgs <- podEventMsg(e):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		select {
		case msgs <- watchDoneMsg{err: err}:
		case <-ctx.Done():
		}
	}()

	program := tea.NewProgram(newPodsLiveModel(msgs),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := program.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("live view failed: %w", err)
	}
	if m, ok := final.(podsLiveModel); ok && m.err != nil {
		return m.err
	}
	return nil
}

// printEvent writes one event per line, or one JSON/YAML document per event.
func printEvent(w io.Writer, e models.PodEvent) error {
	if opts.output != string(formatTable) {
		return render(w, e, nil)
	}
	podID := ""
	switch {
	case e.Create != nil:
		podID = e.Create.PodID
	case e.Update != nil:
		podID = e.Update.PodID
	}
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\n", e.Kind(), e.PodID(), podID)
	return err
}

func podStatusNames() []string {
	var names []string
	for _, s := range models.PodStatuses() {
		names = append(names, string(s))
	}
	return names
}

func init() {
	rootCmd.AddCommand(podsCmd)
	podsCmd.AddCommand(podsListCmd, podsGetCmd, podsCreateCmd, podsUpdateCmd, podsLogsCmd, podsWatchCmd)

	podsCreateCmd.Flags().StringVar(&podCreateFlags.instanceID, "instance", "default", "Instance ID of the backend running the pod")
	podsCreateCmd.Flags().StringVar(&podCreateFlags.localID, "local-id", "", "Backend-local pod ID")
	podsCreateCmd.MarkFlagRequired("local-id")

	podsUpdateCmd.Flags().StringVar(&podUpdateFlags.instanceID, "instance", "default", "Instance ID of the backend running the pod")
	podsUpdateCmd.Flags().BoolVar(&podUpdateFlags.localID, "local", false, "Address the pod by its backend-local ID")

	podsWatchCmd.Flags().StringVar(&podWatchFlags.backend, "backend", "", "Only report pods of this backend")
	podsWatchCmd.Flags().BoolVar(&podWatchFlags.poll, "poll", false, "Poll the pod list instead of subscribing")
	podsWatchCmd.Flags().BoolVar(&podWatchFlags.live, "live", false, "Show pods as a live table instead of one line per event")
	podsWatchCmd.Flags().DurationVar(&podWatchFlags.interval, "interval", 5*time.Second, "Polling interval with --poll")
	podsWatchCmd.Flags().BoolVar(&podWatchFlags.skipInitial, "skip-initial", false, "With --poll, do not report pods that exist at start")
	// ListPod carries no backend, so polled events cannot be filtered by it.
	podsWatchCmd.MarkFlagsMutuallyExclusive("backend", "poll")
}
