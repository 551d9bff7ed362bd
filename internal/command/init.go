package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seamlabs/weave/internal/core"
	"github.com/seamlabs/weave/internal/store"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize config and the local message store",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			name, _ := cmd.Flags().GetString("name")
			dbPath, _ := cmd.Flags().GetString("db")
			feedURL, _ := cmd.Flags().GetString("feed")
			teamID, _ := cmd.Flags().GetString("team")
			jsonMode, _ := cmd.Flags().GetBool("json")

			if userID == "" {
				return writeCommandError(cmd, fmt.Errorf("--user is required"))
			}

			existing, err := core.ReadConfig()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			config := core.Config{UserID: userID, Name: name, DBPath: dbPath, FeedURL: feedURL, TeamID: teamID}
			if existing != nil {
				if config.DBPath == "" {
					config.DBPath = existing.DBPath
				}
				if config.FeedURL == "" {
					config.FeedURL = existing.FeedURL
				}
				if config.TeamID == "" {
					config.TeamID = existing.TeamID
				}
			}
			if config.DBPath == "" {
				config.DBPath, err = core.DefaultDBPath()
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}

			db, err := store.Open(config.DBPath)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			_ = db.Close()

			if err := core.WriteConfig(config); err != nil {
				return writeCommandError(cmd, err)
			}

			if jsonMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(config)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized weave for @%s (store: %s)\n", userID, config.DBPath)
			return nil
		},
	}

	cmd.Flags().String("user", "", "user id to act as")
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("db", "", "message store path")
	cmd.Flags().String("feed", "", "websocket change-feed URL")
	cmd.Flags().String("team", "", "team id")
	return cmd
}
