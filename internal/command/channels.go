package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seamlabs/weave/internal/core"
	"github.com/seamlabs/weave/internal/types"
)

// NewChannelsCmd creates the channels command group.
func NewChannelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List and manage channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelsList(cmd)
		},
	}

	cmd.AddCommand(newChannelsAddCmd(), newChannelsFaveCmd(), newChannelsArchiveCmd())
	return cmd
}

func runChannelsList(cmd *cobra.Command) error {
	ctx, err := GetContext(cmd)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	defer ctx.Close()

	channels, err := ctx.Store.ListChannels(cmd.Context(), ctx.Config.TeamID)
	if err != nil {
		return writeCommandError(cmd, err)
	}

	if ctx.JSONMode {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(channels)
	}
	if len(channels) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No channels. Add one with 'weave channels add'.")
		return nil
	}
	for _, ch := range channels {
		marker := " "
		if ch.Favorite {
			marker = "*"
		}
		suffix := ""
		if ch.Archived {
			suffix = " (archived)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s #%s  %s%s\n", marker, ch.Code, ch.DisplayName, suffix)
	}
	return nil
}

func newChannelsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <code> [display name]",
		Short: "Register a channel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			code := args[0]
			display := code
			if len(args) > 1 {
				display = args[1]
			}

			id, err := core.GenerateGUID("ch")
			if err != nil {
				return writeCommandError(cmd, err)
			}
			ch := types.Channel{
				ID:             id,
				Code:           code,
				DisplayName:    display,
				TeamID:         ctx.Config.TeamID,
				LastActivityAt: time.Now().UTC(),
			}
			if err := ctx.Store.UpsertChannel(cmd.Context(), ch); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(ch)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added #%s (%s)\n", code, id)
			return nil
		},
	}
	return cmd
}

func newChannelsFaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fave <code>",
		Short: "Toggle a channel favorite",
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
			ch.Favorite = !ch.Favorite
			if err := ctx.Store.UpsertChannel(cmd.Context(), *ch); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(ch)
			}
			if ch.Favorite {
				fmt.Fprintf(cmd.OutOrStdout(), "Faved #%s\n", ch.Code)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Unfaved #%s\n", ch.Code)
			}
			return nil
		},
	}
	return cmd
}

func newChannelsArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <code>",
		Short: "Archive a channel",
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
			ch.Archived = true
			if err := ctx.Store.UpsertChannel(cmd.Context(), *ch); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(ch)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived #%s\n", ch.Code)
			return nil
		},
	}
	return cmd
}

// resolveChannel matches a channel by id or code.
func resolveChannel(cmd *cobra.Command, ctx *CommandContext, ref string) (*types.Channel, error) {
	channels, err := ctx.Store.ListChannels(cmd.Context(), ctx.Config.TeamID)
	if err != nil {
		return nil, err
	}
	for i := range channels {
		if channels[i].ID == ref || channels[i].Code == ref {
			return &channels[i], nil
		}
	}
	return nil, fmt.Errorf("%w: channel %s", types.ErrNotFound, ref)
}
