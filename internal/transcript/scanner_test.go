// ABOUTME: Tests for the transcript scanner using temp-dir JSONL fixtures
// ABOUTME: Covers pattern matching, day bucketing, project names, and malformed input

package transcript

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assistantLine(t *testing.T, timestamp string, texts ...string) string {
	t.Helper()
	content := make([]map[string]string, 0, len(texts))
	for _, text := range texts {
		content = append(content, map[string]string{"type": "text", "text": text})
	}
	data, err := json.Marshal(map[string]any{
		"type":      "assistant",
		"timestamp": timestamp,
		"message":   map[string]any{"content": content},
	})
	require.NoError(t, err)
	return string(data)
}

func writeTranscript(t *testing.T, root, project, name string, lines ...string) {
	t.Helper()
	dir := filepath.Join(root, project)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

func newScanner(t *testing.T, opts ...Option) *Scanner {
	t.Helper()
	s, err := NewScanner(opts...)
	require.NoError(t, err)
	return s
}

func TestScan_CountsPatterns(t *testing.T) {
	s := newScanner(t)
	input := strings.Join([]string{
		assistantLine(t, "2024-01-15T10:00:00Z", "You're absolutely right! Let me fix that."),
		assistantLine(t, "2024-01-15T11:00:00Z", "you are right, the test was wrong"),
		assistantLine(t, "2024-01-15T12:00:00Z", "Here is the code."),
		assistantLine(t, "2024-01-16T09:00:00.123Z", "YOU ARE ABSOLUTELY RIGHT"),
	}, "\n")

	res, err := s.Scan(strings.NewReader(input), "widgets")
	require.NoError(t, err)
	require.Len(t, res.Days, 2)

	assert.Equal(t, "2024-01-15", res.Days[0].Day)
	assert.Equal(t, uint32(1), res.Days[0].Count)
	// "absolutely right" does not match the plain "right" pattern.
	assert.Equal(t, uint32(1), res.Days[0].RightCount)
	assert.Equal(t, map[string]uint32{"widgets": 1}, res.Days[0].Projects)

	assert.Equal(t, "2024-01-16", res.Days[1].Day)
	assert.Equal(t, uint32(1), res.Days[1].Count)
	assert.Equal(t, uint32(0), res.Days[1].RightCount)

	assert.Equal(t, uint64(2), res.TotalAbsolutely())
	assert.Equal(t, uint64(1), res.TotalRight())
}

func TestScan_EachTextItemCounts(t *testing.T) {
	s := newScanner(t)
	line := assistantLine(t, "2024-02-01T00:00:00Z", "You're right.", "You are right again.")

	res, err := s.Scan(strings.NewReader(line), "p")
	require.NoError(t, err)
	require.Len(t, res.Days, 1)
	assert.Equal(t, uint32(2), res.Days[0].RightCount)
	assert.Equal(t, uint32(0), res.Days[0].Count)
	assert.Empty(t, res.Days[0].Projects)
}

func TestScan_SkipsIrrelevantAndMalformed(t *testing.T) {
	s := newScanner(t)
	input := strings.Join([]string{
		`not json at all`,
		`{"type":"user","timestamp":"2024-01-15T10:00:00Z","message":{"content":[{"type":"text","text":"You're absolutely right"}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"You're absolutely right"}]}}`,
		`{"type":"assistant","timestamp":"yesterday","message":{"content":[{"type":"text","text":"You're absolutely right"}]}}`,
		`{"type":"assistant","timestamp":"2024-01-15T10:00:00Z","message":{"content":"You're absolutely right"}}`,
		`{"type":"assistant","timestamp":"2024-01-15T10:00:00Z","message":{"content":[{"type":"tool_use","text":"You're absolutely right"}]}}`,
		``,
		assistantLine(t, "2024-01-15T10:00:00Z", "You're absolutely right"),
	}, "\n")

	res, err := s.Scan(strings.NewReader(input), "p")
	require.NoError(t, err)
	require.Len(t, res.Days, 1)
	assert.Equal(t, uint32(1), res.Days[0].Count)
}

func TestScan_DayFollowsTimestampOffset(t *testing.T) {
	s := newScanner(t)
	line := assistantLine(t, "2024-03-01T23:30:00-08:00", "You're absolutely right")

	res, err := s.Scan(strings.NewReader(line), "p")
	require.NoError(t, err)
	require.Len(t, res.Days, 1)
	assert.Equal(t, "2024-03-01", res.Days[0].Day)
}

func TestScan_CustomPatterns(t *testing.T) {
	s := newScanner(t, WithAbsolutelyPattern(`great question`), WithRightPattern(`good point`))
	input := strings.Join([]string{
		assistantLine(t, "2024-01-15T10:00:00Z", "Great question!"),
		assistantLine(t, "2024-01-15T10:00:00Z", "You're absolutely right"),
		assistantLine(t, "2024-01-15T10:00:00Z", "Good point."),
	}, "\n")

	res, err := s.Scan(strings.NewReader(input), "p")
	require.NoError(t, err)
	require.Len(t, res.Days, 1)
	assert.Equal(t, uint32(1), res.Days[0].Count)
	assert.Equal(t, uint32(1), res.Days[0].RightCount)
}

func TestNewScanner_InvalidPattern(t *testing.T) {
	_, err := NewScanner(WithAbsolutelyPattern(`(`))
	assert.Error(t, err)

	_, err = NewScanner(WithRightPattern(`[`))
	assert.Error(t, err)
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "-Users-alice-code-widgets", "a.jsonl",
		assistantLine(t, "2024-01-15T10:00:00Z", "You're absolutely right"),
		assistantLine(t, "2024-01-16T10:00:00Z", "You're absolutely right"),
	)
	writeTranscript(t, root, "-Users-alice-code-widgets", "b.jsonl",
		assistantLine(t, "2024-01-15T11:00:00Z", "You are absolutely right"),
	)
	writeTranscript(t, root, "-home-bob-gadgets", "c.jsonl",
		assistantLine(t, "2024-01-15T12:00:00Z", "You're absolutely right", "You're right"),
	)
	writeTranscript(t, root, ".hidden", "d.jsonl",
		assistantLine(t, "2024-01-15T12:00:00Z", "You're absolutely right"),
	)
	writeTranscript(t, root, "-home-bob-gadgets", "notes.txt",
		assistantLine(t, "2024-01-15T12:00:00Z", "You're absolutely right"),
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.jsonl"), []byte("{}\n"), 0644))

	s := newScanner(t, WithConcurrency(2))
	res, err := s.ScanDir(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Files)
	require.Len(t, res.Days, 2)

	assert.Equal(t, "2024-01-15", res.Days[0].Day)
	assert.Equal(t, uint32(3), res.Days[0].Count)
	assert.Equal(t, uint32(1), res.Days[0].RightCount)
	assert.Equal(t, map[string]uint32{"code-widgets": 2, "gadgets": 1}, res.Days[0].Projects)

	assert.Equal(t, "2024-01-16", res.Days[1].Day)
	assert.Equal(t, uint32(1), res.Days[1].Count)
}

func TestScanDir_MissingRoot(t *testing.T) {
	s := newScanner(t)
	_, err := s.ScanDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestScanDir_Canceled(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "proj", "a.jsonl", assistantLine(t, "2024-01-15T10:00:00Z", "You're absolutely right"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newScanner(t)
	_, err := s.ScanDir(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"-Users-alice-code-widgets", "code-widgets"},
		{"-home-bob-gadgets", "gadgets"},
		{"-var-lib-service", "service"},
		{"-Users-alice", "-Users-alice"},
		{"plain-project", "plain-project"},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectName(tt.dir))
		})
	}
}

func TestScanDir_CountsRepeatedEntriesOnce(t *testing.T) {
	root := t.TempDir()
	withID := `{"type":"assistant","uuid":"u-1","timestamp":"2024-01-15T10:00:00Z","message":{"content":[{"type":"text","text":"You're absolutely right"}]}}`
	withRequestID := `{"type":"assistant","requestId":"req-9","timestamp":"2024-01-15T10:05:00Z","message":{"content":[{"type":"text","text":"You're right"}]}}`
	noID := assistantLine(t, "2024-01-15T11:00:00Z", "You're absolutely right")

	writeTranscript(t, root, "proj", "first.jsonl", withID, withRequestID, noID)
	// A resumed session replays the earlier entries.
	writeTranscript(t, root, "proj", "resumed.jsonl", withID, withRequestID, noID)

	s := newScanner(t)
	res, err := s.ScanDir(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, res.Days, 1)
	assert.Equal(t, uint32(3), res.Days[0].Count, "u-1 once, the id-less entry twice")
	assert.Equal(t, uint32(1), res.Days[0].RightCount)

	// A second scan with the same Scanner starts fresh.
	res, err = s.ScanDir(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), res.Days[0].Count)
}
