package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/agentcost/internal/monitor"
	"github.com/theirongolddev/agentcost/internal/replay"
	"github.com/theirongolddev/agentcost/internal/source"
)

var (
	flagServeAddr         string
	flagServeEventsBuffer int
	flagServeFromStart    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve FILE",
	Short: "Follow a transcript and serve live cost over HTTP",
	Long: "Follow a transcript and serve its live cost: JSON status, an event\n" +
		"log, a server-sent event stream and Prometheus metrics.",
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default from config)")
	serveCmd.Flags().IntVar(&flagServeEventsBuffer, "events-buffer", 0, "Max in-memory events retained (default from config)")
	serveCmd.Flags().BoolVar(&flagServeFromStart, "from-start", false, "Price calls already in the file before following")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	path := args[0]

	addr := flagServeAddr
	if addr == "" {
		addr = cfg.Monitor.Addr
	}
	buffer := flagServeEventsBuffer
	if buffer <= 0 {
		buffer = cfg.Monitor.EventsBuffer
	}

	follower, err := source.NewFollower(path, flagServeFromStart)
	if err != nil {
		return err
	}
	ls, err := newLiveSession()
	if err != nil {
		return err
	}

	svc := monitor.New(monitor.Config{
		Addr:         addr,
		EventsBuffer: buffer,
		Source:       path,
	}, ls.tracker)
	defer svc.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "  Serving session %s on http://%s\n", ls.tracker.ID(), addr)

	var stats replay.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		var err error
		stats, err = replay.Follow(gctx, follower, ls.rec, ls.gen)
		return err
	})

	err = g.Wait()
	if err != nil {
		log.WithError(err).Error("serve: stopped")
	}
	fmt.Println()
	fmt.Print(ls.summary("", stats))
	return err
}
