package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/usage"
	"github.com/thamam/claude-hub/internal/watch"
)

var (
	watchPoll     bool
	watchInterval time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "Poll instead of using filesystem notifications (for NFS)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "Polling interval with --poll")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the JSONL log and print new events as they arrive",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	handler := func(ev usage.Event) {
		line := fmt.Sprintf("%s  %-20s session=%s", ev.Timestamp, ev.Tool, ev.SessionID)
		if ev.SkillName != "" {
			line += "  skill=" + ev.SkillName
		}
		if ev.SubagentName != "" {
			line += "  subagent=" + ev.SubagentName
		}
		fmt.Println(line)
	}

	fmt.Fprintf(os.Stderr, "watching %s (Ctrl-C to stop)\n", cfg.UsageLog)
	if watchPoll {
		return watch.NewPollTailer(cfg.UsageLog, handler, watchInterval).Run(ctx)
	}
	return watch.NewTailer(cfg.UsageLog, handler).Run(ctx)
}
