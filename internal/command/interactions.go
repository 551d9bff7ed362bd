package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seamlabs/weave/internal/interact"
	"github.com/seamlabs/weave/internal/types"
)

func newEngine(cmd *cobra.Command, ctx *CommandContext) *interact.Engine {
	resolve := func(id string) (*types.Message, bool) {
		msg, err := ctx.Store.FetchMessage(cmd.Context(), id)
		if err != nil {
			return nil, false
		}
		return msg, true
	}
	return interact.New(resolve, ctx.Store, ctx.Store)
}

// NewReactCmd creates the react command.
func NewReactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "react <message-id> <emoji>",
		Short: "Toggle a reaction on a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := newEngine(cmd, ctx).React(cmd.Context(), args[0], args[1], ctx.UserID); err != nil {
				return writeCommandError(cmd, err)
			}
			if !ctx.JSONMode {
				fmt.Fprintf(cmd.OutOrStdout(), "Toggled %s on %s\n", args[1], args[0])
			}
			return nil
		},
	}
	return cmd
}

// NewPinCmd creates the pin command.
func NewPinCmd() *cobra.Command {
	return pinCmd("pin", "Pin a message in its channel", true)
}

// NewUnpinCmd creates the unpin command.
func NewUnpinCmd() *cobra.Command {
	return pinCmd("unpin", "Remove a channel pin", false)
}

func pinCmd(use, short string, pinned bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <message-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			eng := newEngine(cmd, ctx)
			if pinned {
				err = eng.Pin(cmd.Context(), args[0], ctx.UserID)
			} else {
				err = eng.Unpin(cmd.Context(), args[0], ctx.UserID)
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if !ctx.JSONMode {
				if pinned {
					fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Unpinned %s\n", args[0])
				}
			}
			return nil
		},
	}
	return cmd
}

// NewSaveCmd creates the save command.
func NewSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <message-id>",
		Short: "Bookmark a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := newEngine(cmd, ctx).Save(cmd.Context(), args[0], ctx.UserID); err != nil {
				return writeCommandError(cmd, err)
			}
			if !ctx.JSONMode {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", args[0])
			}
			return nil
		},
	}
	return cmd
}

// NewUnsaveCmd creates the unsave command.
func NewUnsaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unsave <message-id>",
		Short: "Remove a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := newEngine(cmd, ctx).Unsave(cmd.Context(), args[0], ctx.UserID); err != nil {
				return writeCommandError(cmd, err)
			}
			if !ctx.JSONMode {
				fmt.Fprintf(cmd.OutOrStdout(), "Unsaved %s\n", args[0])
			}
			return nil
		},
	}
	return cmd
}

// NewSavesCmd creates the saves command.
func NewSavesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saves",
		Short: "List your bookmarked messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			eng := newEngine(cmd, ctx)
			if err := eng.LoadPersisted(cmd.Context(), "", ctx.UserID); err != nil {
				return writeCommandError(cmd, err)
			}
			refs := eng.SavedRefs(cmd.Context(), ctx.UserID)

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(refs)
			}
			if len(refs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved messages.")
				return nil
			}
			for _, ref := range refs {
				if ref.Unavailable {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  (unavailable)\n", ref.MessageID)
					continue
				}
				printMessage(cmd, ref.Message)
			}
			return nil
		},
	}
	return cmd
}
