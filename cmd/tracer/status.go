package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/tracer/internal/domain"
	"github.com/marcus/tracer/internal/poller"
	"github.com/marcus/tracer/internal/state"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9CA3AF"))
	freshStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399"))
	staleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
	suspendedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F97316"))
)

// runStatus implements the supplemented `tracer status` subcommand: a
// separate process invocation that reads state.json/team-state.json
// directly and prints a snapshot, without taking any lock on a running
// daemon.
func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Parse(args)

	store, err := state.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tracer status: failed to read state: %v\n", err)
		os.Exit(1)
	}
	mirror, _ := poller.ReadMirror()

	printTrackedFiles(store.All())
	fmt.Println()
	printTeamStatus(store.TeamStatusSnapshot())
	fmt.Println()
	printMirror(mirror)
}

func printTrackedFiles(files map[string]domain.TrackedFile) {
	fmt.Println(headerStyle.Render("TRACKED FILES"))
	if len(files) == 0 {
		fmt.Println("  (none)")
		return
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		tf := files[p]
		fmt.Printf("  %-40s repo=%-20s teams=%-20s turn=%-4d offset=%d\n",
			truncate(p, 40), tf.MatchedRepo, strings.Join(tf.MatchedTeams, ","), tf.TurnNumber, tf.ByteOffset)
	}
}

func printTeamStatus(status map[string]domain.TeamRuntimeStatus) {
	fmt.Println(headerStyle.Render("TEAMS"))
	if len(status) == 0 {
		fmt.Println("  (none)")
		return
	}

	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := status[name]
		label := freshStyle.Render("active")
		if st.Suspended {
			label = suspendedStyle.Render("suspended")
		}
		fmt.Printf("  %-20s %s  queue_depth=%d\n", name, label, st.QueueDepth)
	}
}

func printMirror(mirror domain.RemoteSnapshot) {
	fmt.Println(headerStyle.Render("TEAM-STATE MIRROR"))
	label := "fresh"
	style := freshStyle
	if !mirror.Fresh(time.Now()) {
		label = "stale"
		style = staleStyle
	}
	fmt.Printf("  %s (%s), %d sessions\n", style.Render(label), mirror.UpdatedAt.Format("15:04:05"), len(mirror.Sessions))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return "..." + s[len(s)-(n-3):]
}
