package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seamlabs/weave/internal/core"
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <channel> <body...>",
		Short: "Send a message to a channel",
		Args:  cobra.MinimumNArgs(2),
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
			body := strings.Join(args[1:], " ")

			draft := core.Draft{
				ChannelID: ch.ID,
				AuthorID:  ctx.UserID,
				Body:      body,
			}
			if replyTo, _ := cmd.Flags().GetString("reply-to"); replyTo != "" {
				parent, err := ctx.Store.FetchMessage(cmd.Context(), replyTo)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				draft.ReplyingTo = parent
			}

			payload, err := core.BuildSendPayload(draft)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			msg, err := ctx.Store.CreateMessage(cmd.Context(), payload)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to #%s\n", msg.ID, ch.Code)
			return nil
		},
	}

	cmd.Flags().String("reply-to", "", "post as a reply to this message id")
	return cmd
}
