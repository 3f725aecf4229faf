package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentcost/internal/replay"
	"github.com/theirongolddev/agentcost/internal/source"
	"github.com/theirongolddev/agentcost/internal/tui"
)

var flagFromStart bool

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Live cost dashboard for a transcript being written",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&flagFromStart, "from-start", false, "Price calls already in the file before following")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]

	// Force TrueColor so themed backgrounds render on terminals that
	// under-report their capabilities.
	lipgloss.SetColorProfile(termenv.TrueColor)

	follower, err := source.NewFollower(path, flagFromStart)
	if err != nil {
		return err
	}
	ls, err := newLiveSession()
	if err != nil {
		return err
	}

	updates := make(chan tea.Msg, 1)
	unsubscribe := ls.tracker.Subscribe(tui.Listen(updates))
	defer unsubscribe()

	app := tui.NewApp(tui.Options{
		SessionID: ls.tracker.ID(),
		StartedAt: ls.tracker.StartedAt(),
		Source:    path,
		Model:     ls.gen.Model(),
		Updates:   updates,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Logs would corrupt the alternate screen.
	log.SetOutput(io.Discard)

	type followResult struct {
		stats replay.Stats
		err   error
	}
	done := make(chan followResult, 1)
	go func() {
		stats, err := replay.Follow(ctx, follower, ls.rec, ls.gen)
		if err != nil {
			p.Send(tui.FollowErrMsg{Err: err})
		}
		done <- followResult{stats, err}
	}()

	_, runErr := p.Run()
	cancel()
	res := <-done
	log.SetOutput(os.Stderr)

	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	fmt.Println(ls.summary("", res.stats))
	if res.err != nil && !errors.Is(res.err, context.Canceled) {
		return res.err
	}
	return nil
}
