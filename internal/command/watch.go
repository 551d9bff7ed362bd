package command

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seamlabs/weave/internal/feed"
	"github.com/seamlabs/weave/internal/session"
	"github.com/seamlabs/weave/internal/types"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <channel>",
		Short: "Stream a channel's messages as they arrive",
		Long:  "Stream a channel's messages as they arrive. With feed_url configured, events come from the remote feed and the session reconnects with backoff on drops; otherwise events come from the local store.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			ch, err := resolveChannel(cmd, ctx, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			channels, err := ctx.Store.ListChannels(cmd.Context(), ctx.Config.TeamID)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			var sess *session.Session

			opts := session.Options{Logger: log, Persist: ctx.Store}
			if ctx.Config.FeedURL != "" {
				client := feed.NewClient(ctx.Config.FeedURL, feed.Options{
					Logger: log,
					OnLost: func(error) {
						if sess != nil {
							sess.Dispatcher.ConnectionLost()
						}
					},
				})
				if err := client.Dial(cmd.Context()); err != nil {
					return writeCommandError(cmd, err)
				}
				defer client.Close()
				opts.Feed = client
			}

			sess = session.New(ctx.UserID, ctx.Store, nil, opts)
			sess.Registry.Load(channels)
			sess.Dispatcher.AddHandler(func(event types.Event) {
				if event.Type == types.EventInsert && event.Message != nil && !event.Message.IsReply() {
					printMessage(cmd, event.Message)
				}
			})
			sess.Dispatcher.SetDegraded(func(degraded bool) {
				if degraded {
					fmt.Fprintln(cmd.ErrOrStderr(), "feed connection lost, retrying...")
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "feed reconnected")
				}
			})

			if _, err := sess.SelectChannel(cmd.Context(), ch.ID); err != nil {
				return writeCommandError(cmd, err)
			}
			defer sess.Dispatcher.Close()

			for _, msg := range sess.Timeline() {
				printMessage(cmd, msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching #%s (ctrl-c to stop)\n", ch.Code)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sig:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}
	return cmd
}
