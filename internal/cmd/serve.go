package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/broadcast"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/history"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/index"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/output"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/ring"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/scanner"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/server"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/tailer"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Tail the connection log and serve the activity panel",
	Long: `Serve starts the full pipeline: the tailer follows new log lines, a
one-shot throttled scanner backfills history into the index, and the web
panel exposes snapshots, paging, and live streams.

Examples:
  darkob serve --log-path /var/log/connections_log.txt
  darkob serve --log-path "/var/log/conns-*.txt" --port 8888 --console`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("log-path", "/root/V2IpLimit/connections_log.txt", "connection log file (glob allowed; newest match wins)")
	serveCmd.Flags().String("stats-path", "/root/V2IpLimit/user_stats.json", "external warning/deactivation stats file")
	serveCmd.Flags().String("host", "0.0.0.0", "listen address")
	serveCmd.Flags().Int("port", 8888, "listen port")
	serveCmd.Flags().String("flagged-host", "porn", "substring marking a host as flagged")
	serveCmd.Flags().Int("max-recent-events", 5000, "recent-event ring capacity")
	serveCmd.Flags().Int("max-hosts-per-user", index.DefaultMaxHosts, "sample hosts retained per user")
	serveCmd.Flags().Duration("heartbeat", 15*time.Second, "live stream heartbeat interval")
	serveCmd.Flags().Bool("console", false, "mirror live events to the terminal")
	serveCmd.Flags().StringP("output", "o", "text", "console output format: text, json")

	_ = viper.BindPFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath, err := resolveLogPath(viper.GetString("log-path"))
	if err != nil {
		return err
	}
	statsPath := viper.GetString("stats-path")
	addr := fmt.Sprintf("%s:%d", viper.GetString("host"), viper.GetInt("port"))
	flagged := index.SubstringFlag(viper.GetString("flagged-host"))

	idx := index.New(
		index.WithMaxHosts(viper.GetInt("max-hosts-per-user")),
		index.WithFlagged(flagged),
	)
	recent := ring.New(viper.GetInt("max-recent-events"))
	bcast := broadcast.New()
	pager := history.New(logPath)
	scan := scanner.New(logPath, idx)

	// Filesystem wake-ups are best effort; the tailer polls regardless.
	var wake <-chan struct{}
	if w, err := watcher.New(logPath); err == nil {
		wake = w.Wake
		go w.Start(ctx)
	} else {
		log.Printf("watcher unavailable, falling back to polling: %v", err)
	}

	// Open the tail position before the scanner picks its bound, so no
	// line appended in between can fall outside both readers.
	tail := tailer.New(logPath, idx, recent, bcast, wake)
	if off, ok := tail.Prime(); ok {
		go tail.Start(ctx)
		go scan.RunBounded(off)
	} else {
		go tail.Start(ctx)
		go scan.Run()
	}

	if viper.GetBool("console") {
		var renderer output.Renderer
		switch strings.ToLower(viper.GetString("output")) {
		case "json":
			renderer = output.NewJSONRenderer()
		default:
			renderer = output.NewTextRenderer(flagged)
		}
		go consoleFeed(ctx, bcast, renderer)
	}

	banner(logPath, statsPath, addr)

	srv := server.New(idx, recent, pager, scan, bcast, statsPath, addr, viper.GetDuration("heartbeat"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		pterm.Info.Println("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// resolveLogPath expands a glob pattern and picks the most recently
// modified match. A plain path (or a pattern with no matches yet) is
// returned as-is; the tailer waits for the file to appear.
func resolveLogPath(pattern string) (string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return pattern, nil
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("invalid log-path pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return pattern, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		fi, errI := os.Stat(matches[i])
		fj, errJ := os.Stat(matches[j])
		if errI != nil || errJ != nil {
			return matches[i] > matches[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})
	return matches[0], nil
}

// consoleFeed mirrors the live stream to a terminal renderer.
func consoleFeed(ctx context.Context, bc *broadcast.Broadcaster, r output.Renderer) {
	sub := bc.Subscribe()
	defer bc.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.C():
			if err := r.Render(msg); err != nil {
				log.Printf("render error: %v", err)
			}
		}
	}
}

func banner(logPath, statsPath, addr string) {
	pterm.DefaultHeader.Println("Darkob — Live User Activity Panel")
	pterm.Info.Printfln("log:    %s", logPath)
	pterm.Info.Printfln("stats:  %s", statsPath)
	pterm.Info.Printfln("listen: http://%s", addr)
}
