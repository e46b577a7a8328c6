package task

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"policytask/internal/prompt"
	"policytask/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDocumentLayout(t *testing.T) {
	content, err := renderDocument("id-1", "policy_search", "policy-researcher.md",
		map[string]any{"politician_name": "王小明", "note": "<b>&</b>"}, "BODY")
	require.NoError(t, err)

	expected := "# AI Task: policy_search\n\n" +
		"## Task ID\nid-1\n\n" +
		"## Skill\npolicy-researcher.md\n\n" +
		"## Parameters\n```json\n{\n  \"note\": \"<b>&</b>\",\n  \"politician_name\": \"王小明\"\n}\n```\n\n" +
		"## Instructions\nBODY\n"
	assert.Equal(t, expected, string(content))
}

func TestRenderDocumentNilParameters(t *testing.T) {
	content, err := renderDocument("id-1", "unknown", prompt.DefaultSkill, nil, "BODY")
	require.NoError(t, err)
	assert.Contains(t, string(content), "```json\n{}\n```")
}

func TestReadDocumentRoundTrip(t *testing.T) {
	fixed := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	store := newTestStore(t, WithClock(func() time.Time { return fixed }))

	taskPath, err := store.Create(testContext(), "9f8e7d6c-0000", prompt.CategoryProgressTracking, map[string]any{
		"politician_name": "林美玲",
		"policy_title":    "## 不是標題",
	})
	require.NoError(t, err)

	doc, err := store.Read(taskPath)
	require.NoError(t, err)

	assert.Equal(t, taskPath, doc.Path)
	assert.Equal(t, "9f8e7d6c-0000", doc.ID)
	assert.Equal(t, "progress_tracking", doc.Category)
	assert.Equal(t, prompt.CategoryProgressTracking, doc.Kind())
	assert.Equal(t, "progress-tracker.md", doc.Skill)
	assert.Equal(t, "林美玲", doc.Parameters["politician_name"])
	assert.Equal(t, fixed, doc.CreatedAt)
	assert.True(t, strings.HasPrefix(doc.Instructions, "請追蹤政治人物 林美玲 的政見進度"))
	assert.Contains(t, doc.Instructions, "## 步驟 5：完成任務")
}

func TestReadDocumentInstructionsMayContainHeaders(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := testutil.CreateTempFile(t, dir, "task_20260102_030405_abc.md",
		"# AI Task: custom\n\n## Task ID\nabc\n\n## Skill\nx.md\n\n## Parameters\n```json\n{}\n```\n\n## Instructions\nline one\n## Task ID\nline three\n")

	doc, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", doc.ID)
	assert.Equal(t, prompt.CategoryUnknown, doc.Kind())
	assert.Equal(t, "line one\n## Task ID\nline three", doc.Instructions)
	assert.Empty(t, doc.Parameters)
}

func TestReadDocumentErrors(t *testing.T) {
	dir := testutil.CreateTempDir(t)

	_, err := ReadDocument(filepath.Join(dir, "missing.md"))
	assert.Error(t, err)

	plain := testutil.CreateTempFile(t, dir, "plain.md", "just some text\n")
	_, err = ReadDocument(plain)
	assert.Error(t, err)

	broken := testutil.CreateTempFile(t, dir, "broken.md", "## Parameters\n```json\n{not json\n```\n")
	_, err = ReadDocument(broken)
	assert.Error(t, err)
}
