// Command overlap is the synchronous probe (C10): given a proposed edit,
// it asks each configured team instance (falling back to the local
// team-state mirror) whether a teammate is already editing the same
// region, and reports a proceed/warn/block decision in one of three
// output modes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/tracer/internal/config"
	"github.com/marcus/tracer/internal/overlap"
	"github.com/marcus/tracer/internal/poller"
)

var (
	mode        = flag.String("mode", "hook", "output mode: hook, machine, or human")
	cwdFlag     = flag.String("cwd", "", "working directory of the edit (defaults to hook input or os.Getwd)")
	fileFlag    = flag.String("file", "", "file path being edited")
	oldFlag     = flag.String("old-string", "", "old_string of the proposed edit")
	sessionFlag = flag.String("session", "", "calling agent's session id")
	repoFlag    = flag.String("repo", "", "explicit repo name, used when cwd is not a git repository")
	strict      = flag.Bool("strict", false, "exit 2 on a block decision")
)

// hookInput mirrors the subset of a Claude Code PreToolUse hook payload
// this probe reads off stdin in hook mode.
type hookInput struct {
	SessionID string `json:"session_id"`
	CWD       string `json:"cwd"`
	ToolInput struct {
		FilePath  string `json:"file_path"`
		OldString string `json:"old_string"`
	} `json:"tool_input"`
}

func main() {
	flag.Parse()

	req, err := buildRequest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "overlap: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	teams := make([]overlap.TeamCreds, 0, len(cfg.Teams))
	userIDs := make(map[string]struct{}, len(cfg.Teams))
	for _, t := range cfg.Teams {
		teams = append(teams, overlap.TeamCreds{Name: t.Name, InstanceURL: t.InstanceURL, Token: t.UserToken})
		if t.UserID != "" {
			userIDs[t.UserID] = struct{}{}
		}
	}

	mirror, _ := poller.ReadMirror()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := overlap.Decide(ctx, req, teams, userIDs, mirror)
	if err != nil {
		fmt.Fprintf(os.Stderr, "overlap: decide failed: %v\n", err)
		os.Exit(1)
	}

	switch *mode {
	case "machine":
		printMachine(result)
	case "human":
		printHuman(result)
	default:
		printHook(result)
	}

	if *strict && result.Decision == overlap.DecisionBlock {
		os.Exit(2)
	}
}

func buildRequest() (overlap.Request, error) {
	req := overlap.Request{
		CWD:          *cwdFlag,
		FilePath:     *fileFlag,
		OldString:    *oldFlag,
		SessionID:    *sessionFlag,
		ExplicitRepo: *repoFlag,
	}

	if *mode == "hook" && req.FilePath == "" {
		var in hookInput
		data, err := io.ReadAll(os.Stdin)
		if err == nil && len(data) > 0 {
			if jerr := json.Unmarshal(data, &in); jerr == nil {
				if req.CWD == "" {
					req.CWD = in.CWD
				}
				if req.SessionID == "" {
					req.SessionID = in.SessionID
				}
				req.FilePath = in.ToolInput.FilePath
				req.OldString = in.ToolInput.OldString
			}
		}
	}

	if req.CWD == "" {
		wd, err := os.Getwd()
		if err != nil {
			return req, fmt.Errorf("resolve cwd: %w", err)
		}
		req.CWD = wd
	}

	return req, nil
}

type hookOutput struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

type hookSpecificOutput struct {
	HookEventName      string `json:"hookEventName"`
	PermissionDecision string `json:"permissionDecision,omitempty"`
	AdditionalContext  string `json:"additionalContext,omitempty"`
}

func printHook(result overlap.Result) {
	out := hookOutput{HookSpecificOutput: hookSpecificOutput{HookEventName: "PreToolUse"}}
	if result.Decision == overlap.DecisionBlock {
		out.HookSpecificOutput.PermissionDecision = "deny"
	}
	if result.Decision != overlap.DecisionProceed {
		out.HookSpecificOutput.AdditionalContext = renderHuman(result)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	fmt.Println(string(data))
}

func printMachine(result overlap.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "overlap: encode result: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

var (
	blockStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#DC2626"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399"))
)

func printHuman(result overlap.Result) {
	fmt.Println(renderHuman(result))
}

func renderHuman(result overlap.Result) string {
	switch result.Decision {
	case overlap.DecisionBlock:
		msg := blockStyle.Render(fmt.Sprintf("blocked: %d overlapping region(s) already being edited", len(result.Overlaps)))
		return msg + "\n" + overlapLines(result)
	case overlap.DecisionWarn:
		msg := warnStyle.Render(fmt.Sprintf("warning: %d nearby edit(s) in progress", len(result.Overlaps)))
		return msg + "\n" + overlapLines(result)
	default:
		return okStyle.Render("no overlap detected")
	}
}

func overlapLines(result overlap.Result) string {
	out := ""
	for _, o := range result.Overlaps {
		out += fmt.Sprintf("  - %s is editing %s (%s)\n", o.DisplayName, o.FilePath, o.Tier)
	}
	if result.Warning != "" {
		out += "  " + result.Warning + "\n"
	}
	return out
}
