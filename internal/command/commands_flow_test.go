package command

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seamlabs/weave/internal/types"
)

// setupHome points config and store at a temp directory.
func setupHome(t *testing.T) string {
	t.Helper()
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	return tmpHome
}

func TestInitChannelsSendHistoryFlow(t *testing.T) {
	setupHome(t)

	if _, err := executeCommand(NewRootCmd("test"), "init", "--user", "ava"); err != nil {
		t.Fatalf("init command: %v", err)
	}

	output, err := executeCommand(NewRootCmd("test"), "channels", "add", "general", "General")
	if err != nil {
		t.Fatalf("channels add: %v", err)
	}
	if !strings.Contains(output, "Added #general") {
		t.Fatalf("expected add confirmation, got %q", output)
	}

	if _, err := executeCommand(NewRootCmd("test"), "send", "general", "hello", "world"); err != nil {
		t.Fatalf("send command: %v", err)
	}

	output, err = executeCommand(NewRootCmd("test"), "history", "general", "--json")
	if err != nil {
		t.Fatalf("history command: %v", err)
	}
	var messages []*types.Message
	if err := json.Unmarshal([]byte(output), &messages); err != nil {
		t.Fatalf("decode history output: %v\n%s", err, output)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Body != "hello world" || messages[0].AuthorID != "ava" {
		t.Fatalf("unexpected message: %+v", messages[0])
	}
}

func TestThreadAndReactFlow(t *testing.T) {
	setupHome(t)

	if _, err := executeCommand(NewRootCmd("test"), "init", "--user", "ava"); err != nil {
		t.Fatalf("init command: %v", err)
	}
	if _, err := executeCommand(NewRootCmd("test"), "channels", "add", "general"); err != nil {
		t.Fatalf("channels add: %v", err)
	}

	output, err := executeCommand(NewRootCmd("test"), "send", "general", "parent", "--json")
	if err != nil {
		t.Fatalf("send parent: %v", err)
	}
	var parent types.Message
	if err := json.Unmarshal([]byte(output), &parent); err != nil {
		t.Fatalf("decode send output: %v", err)
	}

	if _, err := executeCommand(NewRootCmd("test"), "send", "general", "child", "--reply-to", parent.ID); err != nil {
		t.Fatalf("send reply: %v", err)
	}
	if _, err := executeCommand(NewRootCmd("test"), "react", parent.ID, "👍"); err != nil {
		t.Fatalf("react: %v", err)
	}

	output, err = executeCommand(NewRootCmd("test"), "thread", parent.ID, "--json")
	if err != nil {
		t.Fatalf("thread command: %v", err)
	}
	var thread types.ThreadState
	if err := json.Unmarshal([]byte(output), &thread); err != nil {
		t.Fatalf("decode thread output: %v", err)
	}
	if len(thread.Replies) != 1 || thread.Replies[0].Body != "child" {
		t.Fatalf("expected one reply, got %+v", thread.Replies)
	}
}

func TestImportCommand(t *testing.T) {
	setupHome(t)

	if _, err := executeCommand(NewRootCmd("test"), "init", "--user", "ava"); err != nil {
		t.Fatalf("init command: %v", err)
	}
	if _, err := executeCommand(NewRootCmd("test"), "channels", "add", "general"); err != nil {
		t.Fatalf("channels add: %v", err)
	}

	csvPath := filepath.Join(t.TempDir(), "export.csv")
	content := "ts,user,text\n1709294400,bob,imported hello\n"
	if err := os.WriteFile(csvPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}

	output, err := executeCommand(NewRootCmd("test"), "import", "general", csvPath)
	if err != nil {
		t.Fatalf("import command: %v", err)
	}
	if !strings.Contains(output, "Imported 1 messages") {
		t.Fatalf("expected import summary, got %q", output)
	}

	output, err = executeCommand(NewRootCmd("test"), "history", "general", "--json")
	if err != nil {
		t.Fatalf("history command: %v", err)
	}
	var messages []*types.Message
	if err := json.Unmarshal([]byte(output), &messages); err != nil {
		t.Fatalf("decode history output: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 imported message, got %d", len(messages))
	}
	if messages[0].ImportedFrom != "slack" || messages[0].AuthorID != "bob" {
		t.Fatalf("unexpected imported message: %+v", messages[0])
	}
	if messages[0].CreatedAt.After(time.Now().Add(-time.Hour)) {
		t.Fatal("expected the export timestamp to be preserved")
	}
}

func TestWatchPrintsBacklogAndStopsOnContext(t *testing.T) {
	setupHome(t)

	if _, err := executeCommand(NewRootCmd("test"), "init", "--user", "ava"); err != nil {
		t.Fatalf("init command: %v", err)
	}
	if _, err := executeCommand(NewRootCmd("test"), "channels", "add", "general"); err != nil {
		t.Fatalf("channels add: %v", err)
	}
	if _, err := executeCommand(NewRootCmd("test"), "send", "general", "already", "here"); err != nil {
		t.Fatalf("send command: %v", err)
	}

	cmd := NewRootCmd("test")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"watch", "general"})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("watch command: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "already here") {
		t.Fatalf("expected backlog in watch output, got %q", output)
	}
	if !strings.Contains(output, "Watching #general") {
		t.Fatalf("expected watch banner, got %q", output)
	}
}

func TestWatchDialsConfiguredFeed(t *testing.T) {
	setupHome(t)

	if _, err := executeCommand(NewRootCmd("test"), "init", "--user", "ava", "--feed", "ws://127.0.0.1:1/feed"); err != nil {
		t.Fatalf("init command: %v", err)
	}
	if _, err := executeCommand(NewRootCmd("test"), "channels", "add", "general"); err != nil {
		t.Fatalf("channels add: %v", err)
	}

	// The configured feed is unreachable; watch must try it and fail
	// rather than silently falling back to the local store.
	_, err := executeCommand(NewRootCmd("test"), "watch", "general")
	if err == nil || !strings.Contains(err.Error(), "dial feed") {
		t.Fatalf("expected dial failure against configured feed, got %v", err)
	}
}
