package command

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seamlabs/weave/internal/importer"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <channel> <export.csv>",
		Short: "Import a Slack-style CSV export into a channel",
		Long:  "Import a CSV export into a channel. With --watch the argument is a directory; new CSV files dropped there import automatically.",
		Args:  cobra.ExactArgs(2),
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
			source, _ := cmd.Flags().GetString("source")
			watch, _ := cmd.Flags().GetBool("watch")

			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			imp := importer.New(ctx.Store, log)

			if watch {
				watcher := importer.NewWatcher(imp, ch.ID, source, args[1])
				if err := watcher.Start(cmd.Context()); err != nil {
					return writeCommandError(cmd, err)
				}
				defer watcher.Close()

				fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for %s exports (ctrl-c to stop)\n", args[1], source)
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
				select {
				case <-sig:
				case <-cmd.Context().Done():
				}
				return nil
			}

			res, err := imp.IngestFile(cmd.Context(), ch.ID, source, args[1])
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d messages into #%s (%d skipped)\n", res.Imported, ch.Code, res.Skipped)
			return nil
		},
	}

	cmd.Flags().String("source", "slack", "provenance marker for imported messages")
	cmd.Flags().Bool("watch", false, "watch a drop directory instead of importing one file")
	return cmd
}
