package overlap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marcus/tracer/internal/domain"
)

func TestDecide_NonRepoCWDProceedsWithoutExplicitRepo(t *testing.T) {
	dir := t.TempDir()
	result, err := Decide(context.Background(), Request{CWD: dir, FilePath: dir + "/a.ts"}, nil, nil, domain.RemoteSnapshot{})
	require.NoError(t, err)
	require.Equal(t, DecisionProceed, result.Decision)
}

func TestRelativize_EscapingRootProceeds(t *testing.T) {
	_, ok := relativize("/repo", "/elsewhere/a.ts")
	require.False(t, ok)
}

func TestRelativize_WithinRoot(t *testing.T) {
	rel, ok := relativize("/repo", "/repo/src/a.ts")
	require.True(t, ok)
	require.Equal(t, "src/a.ts", rel)
}

func TestExtractRepoName(t *testing.T) {
	require.Equal(t, "widget", extractRepoName("git@github.com:acme/widget.git"))
	require.Equal(t, "widget", extractRepoName("https://gitlab.com/acme/widget"))
}

func TestClassify_BlocksOnLineOrFunctionTier(t *testing.T) {
	require.Equal(t, DecisionBlock, classify([]Overlap{{Tier: TierLine}}))
	require.Equal(t, DecisionBlock, classify([]Overlap{{Tier: TierFunction}}))
	require.Equal(t, DecisionWarn, classify([]Overlap{{Tier: TierFile}}))
	require.Equal(t, DecisionProceed, classify(nil))
}

func TestLocalFallback_LineOverlapBlocks(t *testing.T) {
	start, end := 50, 55
	regionStart, regionEnd := 40, 60
	mirror := domain.RemoteSnapshot{UpdatedAt: time.Now(), Sessions: []domain.TeamStateSession{
		{
			SessionID: "S2",
			UserID:    "teammate",
			RepoName:  "widget",
			Regions: []domain.SessionRegion{
				{FilePath: "src/a.ts", StartLine: &regionStart, EndLine: &regionEnd},
			},
		},
	}}

	result := localFallback("widget", "src/a.ts", &start, &end, "", map[string]struct{}{"me": {}}, mirror)
	require.Equal(t, DecisionBlock, result.Decision)
	require.Len(t, result.Overlaps, 1)
	require.Equal(t, TierLine, result.Overlaps[0].Tier)
}

func TestLocalFallback_StaleMirrorYieldsNoSessions(t *testing.T) {
	start, end := 50, 55
	regionStart, regionEnd := 40, 60
	mirror := domain.RemoteSnapshot{UpdatedAt: time.Now().Add(-121 * time.Second), Sessions: []domain.TeamStateSession{
		{
			SessionID: "S2",
			UserID:    "teammate",
			RepoName:  "widget",
			Regions: []domain.SessionRegion{
				{FilePath: "src/a.ts", StartLine: &regionStart, EndLine: &regionEnd},
			},
		},
	}}

	result := localFallback("widget", "src/a.ts", &start, &end, "", map[string]struct{}{"me": {}}, mirror)
	require.Equal(t, DecisionProceed, result.Decision)
	require.Empty(t, result.Overlaps)
	require.Equal(t, 0, result.TeamSessions)
}

func TestLocalFallback_SelfExclusion(t *testing.T) {
	mirror := domain.RemoteSnapshot{Sessions: []domain.TeamStateSession{
		{SessionID: "S1", UserID: "me", RepoName: "widget", Regions: []domain.SessionRegion{{FilePath: "src/a.ts"}}},
	}}

	result := localFallback("widget", "src/a.ts", nil, nil, "", map[string]struct{}{"me": {}}, mirror)
	require.Empty(t, result.Overlaps)
	require.Equal(t, 0, result.TeamSessions)
}

func TestLocalFallback_AdjacentWithinWindow(t *testing.T) {
	start, end := 100, 100
	regionStart, regionEnd := 110, 115
	mirror := domain.RemoteSnapshot{Sessions: []domain.TeamStateSession{
		{SessionID: "S2", UserID: "teammate", RepoName: "widget", Regions: []domain.SessionRegion{
			{FilePath: "src/a.ts", StartLine: &regionStart, EndLine: &regionEnd},
		}},
	}}

	result := localFallback("widget", "src/a.ts", &start, &end, "", nil, mirror)
	require.Len(t, result.Overlaps, 1)
	require.Equal(t, TierAdjacent, result.Overlaps[0].Tier)
	require.Equal(t, DecisionWarn, result.Decision)
}

func TestLocalFallback_FunctionTierWithNoLineOverlap(t *testing.T) {
	start, end := 10, 12
	regionStart, regionEnd := 500, 510
	mirror := domain.RemoteSnapshot{Sessions: []domain.TeamStateSession{
		{SessionID: "S2", UserID: "teammate", RepoName: "widget", Regions: []domain.SessionRegion{
			{FilePath: "src/a.ts", StartLine: &regionStart, EndLine: &regionEnd, FunctionName: "handleEdit"},
		}},
	}}

	result := localFallback("widget", "src/a.ts", &start, &end, "handleEdit", nil, mirror)
	require.Len(t, result.Overlaps, 1)
	require.Equal(t, TierFunction, result.Overlaps[0].Tier)
	require.Equal(t, DecisionBlock, result.Decision)
}

func TestFreshMirror_StalenessBoundary(t *testing.T) {
	old := domain.RemoteSnapshot{UpdatedAt: time.Now().Add(-121 * time.Second)}
	require.False(t, old.Fresh(time.Now()))

	fresh := domain.RemoteSnapshot{UpdatedAt: time.Now().Add(-60 * time.Second)}
	require.True(t, fresh.Fresh(time.Now()))
}
