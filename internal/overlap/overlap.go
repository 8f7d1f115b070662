// Package overlap implements the overlap probe (spec.md §4.9): given a
// proposed edit, ask each configured team (or fall back to the local
// team-state mirror) whether another developer is touching the same
// region, and classify the result into a decision a calling hook can
// act on.
package overlap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/marcus/tracer/internal/domain"
	"github.com/marcus/tracer/internal/symbols"
)

// Tier classifies how closely an overlap matches the target edit.
type Tier string

const (
	TierLine     Tier = "line"
	TierFunction Tier = "function"
	TierAdjacent Tier = "adjacent"
	TierFile     Tier = "file"
)

// Decision is the probe's verdict.
type Decision string

const (
	DecisionProceed Decision = "proceed"
	DecisionWarn    Decision = "warn"
	DecisionBlock   Decision = "block"
)

const adjacentLineWindow = 30

// Overlap is one conflicting region found, either server-reported or
// derived locally from the mirror.
type Overlap struct {
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	FilePath    string `json:"file_path"`
	Tier        Tier   `json:"tier"`
}

// Request is the probe's input.
type Request struct {
	CWD          string
	FilePath     string
	OldString    string
	SessionID    string
	ExplicitRepo string
}

// Result is the probe's output.
type Result struct {
	Decision     Decision  `json:"decision"`
	Overlaps     []Overlap `json:"overlaps"`
	TeamSessions int       `json:"team_sessions,omitempty"`
	GitHost      string    `json:"git_host,omitempty"`
	Warning      string    `json:"warning,omitempty"`
}

// TeamCreds is one configured team's connection info for the query fan-out.
type TeamCreds struct {
	Name        string
	InstanceURL string
	Token       string
}

var repoNameFromURL = regexp.MustCompile(`[/:]([^/:]+?)(?:\.git)?$`)

type gitInfo struct {
	repoName  string
	host      string
	remoteURL string
	gitRoot   string
}

// Decide runs the full algorithm from spec.md §4.9.
func Decide(ctx context.Context, req Request, teams []TeamCreds, userIDs map[string]struct{}, mirror domain.RemoteSnapshot) (Result, error) {
	info, ok := resolveGitInfo(req.CWD, req.ExplicitRepo)
	if !ok {
		return Result{Decision: DecisionProceed}, nil
	}

	relPath, ok := relativize(info.gitRoot, req.FilePath)
	if !ok {
		return Result{Decision: DecisionProceed}, nil
	}

	var startLine, endLine *int
	var functionName string
	if req.OldString != "" {
		if region, err := symbols.Resolve(req.FilePath, req.OldString); err == nil && region != nil {
			startLine, endLine = &region.StartLine, &region.EndLine
			functionName = region.EnclosingSymbol
		}
	}

	if result, ok := queryTeams(ctx, teams, info.repoName, relPath, req.SessionID, startLine, endLine, functionName); ok {
		result.GitHost = info.host
		return result, nil
	}

	result := localFallback(info.repoName, relPath, startLine, endLine, functionName, userIDs, mirror)
	result.GitHost = info.host
	return result, nil
}

func resolveGitInfo(cwd, explicitRepo string) (gitInfo, bool) {
	root, remoteURL := gitRootAndRemote(cwd)
	if root == "" {
		if explicitRepo == "" {
			return gitInfo{}, false
		}
		return gitInfo{repoName: explicitRepo, host: "none", gitRoot: cwd}, true
	}

	name := extractRepoName(remoteURL)
	if name == "" {
		name = filepath.Base(root)
	}
	host := "none"
	switch {
	case strings.Contains(remoteURL, "github.com"):
		host = "github"
	case strings.Contains(remoteURL, "gitlab.com"):
		host = "gitlab"
	}
	return gitInfo{repoName: name, host: host, remoteURL: remoteURL, gitRoot: root}, true
}

func gitRootAndRemote(cwd string) (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rootCmd := exec.CommandContext(ctx, "git", "--no-optional-locks", "rev-parse", "--show-toplevel")
	rootCmd.Dir = cwd
	rootOut, err := rootCmd.Output()
	if err != nil {
		return "", ""
	}
	root := strings.TrimSpace(string(rootOut))

	remoteCmd := exec.CommandContext(ctx, "git", "--no-optional-locks", "remote", "get-url", "origin")
	remoteCmd.Dir = cwd
	remoteOut, _ := remoteCmd.Output()
	return root, strings.TrimSpace(string(remoteOut))
}

func extractRepoName(remoteURL string) string {
	if remoteURL == "" {
		return ""
	}
	m := repoNameFromURL.FindStringSubmatch(remoteURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// relativize returns filePath relative to gitRoot, rejecting any path
// that escapes the root (spec.md §8's boundary behavior).
func relativize(gitRoot, filePath string) (string, bool) {
	rel, err := filepath.Rel(gitRoot, filePath)
	if err != nil {
		return "", false
	}
	if strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}

type overlapQueryRequest struct {
	RepoName     string `json:"repo_name"`
	FilePath     string `json:"file_path"`
	SessionID    string `json:"session_id"`
	StartLine    *int   `json:"start_line,omitempty"`
	EndLine      *int   `json:"end_line,omitempty"`
	FunctionName string `json:"function_name,omitempty"`
}

type overlapQueryResponse struct {
	Data struct {
		Decision Decision  `json:"decision"`
		Overlaps []Overlap `json:"overlaps"`
		Guidance string    `json:"guidance"`
	} `json:"data"`
}

// queryTeams fans out to every team in parallel with a 2s timeout each.
// Returns ok=false if every team was unreachable.
func queryTeams(ctx context.Context, teams []TeamCreds, repoName, filePath, sessionID string, startLine, endLine *int, functionName string) (Result, bool) {
	if len(teams) == 0 {
		return Result{}, false
	}

	body := overlapQueryRequest{
		RepoName:     repoName,
		FilePath:     filePath,
		SessionID:    sessionID,
		StartLine:    startLine,
		EndLine:      endLine,
		FunctionName: functionName,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, false
	}

	var mu sync.Mutex
	var overlaps []Overlap
	var guidance string
	var anySucceeded bool
	var wg sync.WaitGroup

	for _, team := range teams {
		wg.Add(1)
		go func(team TeamCreds) {
			defer wg.Done()
			qctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(qctx, http.MethodPost, team.InstanceURL+"/api/v1/overlap-query", bytes.NewReader(payload))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+team.Token)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return
			}

			var out overlapQueryResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return
			}

			mu.Lock()
			overlaps = append(overlaps, out.Data.Overlaps...)
			if out.Data.Guidance != "" {
				guidance = out.Data.Guidance
			}
			anySucceeded = true
			mu.Unlock()
		}(team)
	}
	wg.Wait()

	if !anySucceeded {
		return Result{}, false
	}

	return Result{Decision: classify(overlaps), Overlaps: overlaps, Warning: guidance}, true
}

func classify(overlaps []Overlap) Decision {
	for _, o := range overlaps {
		if o.Tier == TierLine || o.Tier == TierFunction {
			return DecisionBlock
		}
	}
	if len(overlaps) > 0 {
		return DecisionWarn
	}
	return DecisionProceed
}

// localFallback implements the team-state mirror classification when
// every configured team was unreachable. A mirror older than its 120s
// staleness window (spec.md §4.7) is treated as having no sessions,
// matching spec.md §4.9 step 5's "returning no sessions" behavior rather
// than producing a decision off a stale snapshot.
func localFallback(repoName, filePath string, startLine, endLine *int, functionName string, userIDs map[string]struct{}, mirror domain.RemoteSnapshot) Result {
	if !mirror.Fresh(time.Now()) {
		return Result{Decision: DecisionProceed}
	}

	var overlaps []Overlap
	count := 0
	for _, sess := range mirror.Sessions {
		if sess.RepoName != repoName {
			continue
		}
		if _, excluded := userIDs[sess.UserID]; excluded {
			continue
		}
		count++
		for _, region := range sess.Regions {
			tier, match := classifyRegion(region, filePath, startLine, endLine, functionName)
			if !match {
				continue
			}
			overlaps = append(overlaps, Overlap{
				SessionID:   sess.SessionID,
				UserID:      sess.UserID,
				DisplayName: sess.DisplayName,
				FilePath:    region.FilePath,
				Tier:        tier,
			})
		}
	}

	return Result{Decision: classify(overlaps), Overlaps: overlaps, TeamSessions: count}
}

func classifyRegion(region domain.SessionRegion, filePath string, startLine, endLine *int, functionName string) (Tier, bool) {
	if region.FilePath != filePath {
		return "", false
	}

	if startLine != nil && endLine != nil && region.StartLine != nil && region.EndLine != nil {
		if *startLine <= *region.EndLine && *endLine >= *region.StartLine {
			return TierLine, true
		}
	}

	if functionName != "" && region.FunctionName != "" && functionName == region.FunctionName {
		return TierFunction, true
	}

	if startLine != nil && endLine != nil && region.StartLine != nil && region.EndLine != nil {
		gap := gapBetween(*startLine, *endLine, *region.StartLine, *region.EndLine)
		if gap <= adjacentLineWindow {
			return TierAdjacent, true
		}
	}

	return TierFile, true
}

func gapBetween(aStart, aEnd, bStart, bEnd int) int {
	if aEnd < bStart {
		return bStart - aEnd
	}
	if bEnd < aStart {
		return aStart - bEnd
	}
	return 0
}
