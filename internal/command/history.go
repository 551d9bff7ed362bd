package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seamlabs/weave/internal/types"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <channel>",
		Short: "Show recent channel messages",
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
			limit, _ := cmd.Flags().GetInt("limit")

			messages, err := ctx.Store.FetchBacklog(cmd.Context(), ch.ID, limit)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(messages)
			}
			for _, msg := range messages {
				printMessage(cmd, msg)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 50, "maximum messages to show")
	return cmd
}

// NewThreadCmd creates the thread command.
func NewThreadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thread <message-id>",
		Short: "Show a message and its replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			parent, err := ctx.Store.FetchMessage(cmd.Context(), args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			replies, err := ctx.Store.FetchReplies(cmd.Context(), parent.ID)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(types.ThreadState{
					ParentID: parent.ID,
					Replies:  replies,
					Loaded:   true,
				})
			}
			printMessage(cmd, parent)
			for _, reply := range replies {
				fmt.Fprint(cmd.OutOrStdout(), "  ")
				printMessage(cmd, reply)
			}
			return nil
		},
	}
	return cmd
}

func printMessage(cmd *cobra.Command, msg *types.Message) {
	body := msg.Body
	if msg.Deleted {
		body = "(deleted)"
	}
	tag := ""
	if msg.ImportedFrom != "" {
		tag = fmt.Sprintf(" [via %s]", msg.ImportedFrom)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  @%s%s: %s\n",
		msg.CreatedAt.Format("2006-01-02 15:04"), msg.ID, msg.AuthorID, tag, body)
}
