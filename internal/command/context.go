package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seamlabs/weave/internal/core"
	"github.com/seamlabs/weave/internal/store"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	Store    *store.SQLite
	Config   core.Config
	UserID   string
	JSONMode bool
}

// GetContext loads the config, opens the store and resolves the acting
// user for a command. The caller owns closing the store.
func (c *CommandContext) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}

func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	jsonMode, _ := cmd.Flags().GetBool("json")

	config, err := core.ReadConfig()
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, fmt.Errorf("no config found. Run 'weave init' first")
	}

	userID, _ := cmd.Flags().GetString("as")
	if userID == "" {
		userID = config.UserID
	}
	if userID == "" {
		return nil, fmt.Errorf("no user identity. Set one with 'weave init --user <id>' or pass --as")
	}

	dbPath := config.DBPath
	if dbPath == "" {
		dbPath, err = core.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Store:    db,
		Config:   *config,
		UserID:   userID,
		JSONMode: jsonMode,
	}, nil
}

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	return err
}
