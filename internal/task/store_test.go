package task

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"policytask/internal/config"
	"policytask/internal/logger"
	"policytask/internal/prompt"
	"policytask/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var taskNameRegexp = regexp.MustCompile(`^task_\d{8}_\d{6}_.{0,8}\.md$`)

func testContext() context.Context {
	return logger.WithLogger(context.Background(), zap.NewNop())
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	root := testutil.CreateTempDir(t)
	builder, err := prompt.NewBuilder(prompt.API{Endpoint: "https://api.example.com/ai-action"})
	require.NoError(t, err)

	store, err := NewStore(config.Paths{
		TasksDir:   filepath.Join(root, "tasks"),
		ResultsDir: filepath.Join(root, "results"),
		SkillsDir:  filepath.Join(root, "skills"),
	}, builder, opts...)
	require.NoError(t, err)
	return store
}

func writeResult(t *testing.T, store *Store, taskPath string) string {
	t.Helper()

	resultPath := store.ResultPathFor(taskPath)
	require.NoError(t, os.WriteFile(resultPath, []byte("done"), 0644))
	return resultPath
}

func TestNewStoreCreatesDirectories(t *testing.T) {
	store := newTestStore(t)

	assert.True(t, testutil.DirExists(store.TasksDir()))
	assert.True(t, testutil.DirExists(store.ResultsDir()))
}

func TestNewStoreRequiresBuilder(t *testing.T) {
	_, err := NewStore(config.Paths{TasksDir: "a", ResultsDir: "b"}, nil)
	assert.Error(t, err)
}

func TestCreateDocumentForEveryCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := testContext()

	categories := append(prompt.Categories(), prompt.CategoryUnknown, prompt.Category("budget_review"))
	for i, category := range categories {
		t.Run(category.String(), func(t *testing.T) {
			id := strings.Repeat(string(rune('a'+i)), 8) + "-0000"
			taskPath, err := store.Create(ctx, id, category, map[string]any{"region": "台中市"})
			require.NoError(t, err)

			assert.Equal(t, store.TasksDir(), filepath.Dir(taskPath))
			assert.Regexp(t, taskNameRegexp, filepath.Base(taskPath))

			content := testutil.ReadFile(t, taskPath)
			for _, header := range []string{"# AI Task: " + category.String(), "## Task ID", "## Skill", "## Parameters", "## Instructions"} {
				assert.Contains(t, content, header)
			}
			assert.Contains(t, content, "\n"+id+"\n")
			assert.Contains(t, content, "\n"+category.Skill()+"\n")
			assert.Contains(t, content, "\"region\": \"台中市\"")
		})
	}
}

func TestCreatePolicySearchScenario(t *testing.T) {
	store := newTestStore(t)

	taskPath, err := store.Create(testContext(), "abcdef12-3456-7890-abcd-ef1234567890", prompt.CategoryPolicySearch, map[string]any{
		"politician_name": "王小明",
		"keywords":        []string{"交通", "教育"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(taskPath, "_abcdef12.md"))

	content := testutil.ReadFile(t, taskPath)
	idx := strings.Index(content, "## Instructions")
	require.NotEqual(t, -1, idx)
	instructions := content[idx:]

	assert.Contains(t, instructions, "王小明")
	assert.Contains(t, instructions, "交通, 教育")
	for _, header := range []string{"## 步驟 1：先查詢現有政見", "## 步驟 2：搜尋新政見", "## 步驟 3：新增不重複的政見", "## 步驟 4：完成任務"} {
		assert.Contains(t, instructions, header)
	}
	for _, header := range []string{"## 步驟 1：先查詢現有候選人", "## 步驟 2：搜尋新候選人", "## 步驟 3：匯入新候選人", "## 候選人資訊格式"} {
		assert.NotContains(t, instructions, header)
	}

	assert.Contains(t, content, "## Skill\npolicy-researcher.md\n")
	assert.Contains(t, content, "\"politician_name\": \"王小明\"")
}

func TestCreateCollisionOverwrites(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(t, WithClock(func() time.Time { return fixed }))
	ctx := testContext()

	first, err := store.Create(ctx, "deadbeef-aaaa", prompt.CategoryPolicySearch, map[string]any{"politician_name": "甲"})
	require.NoError(t, err)
	second, err := store.Create(ctx, "deadbeef-bbbb", prompt.CategoryPolicySearch, map[string]any{"politician_name": "乙"})
	require.NoError(t, err)

	// same second and same identity prefix: the second file replaces the first
	assert.Equal(t, first, second)
	assert.Equal(t, 1, testutil.CountFiles(t, store.TasksDir()))

	content := testutil.ReadFile(t, second)
	assert.Contains(t, content, "deadbeef-bbbb")
	assert.NotContains(t, content, "deadbeef-aaaa")
}

func TestResultPathForIsPure(t *testing.T) {
	store := newTestStore(t)

	taskPath := filepath.Join(store.TasksDir(), "task_20260102_030405_abcdef12.md")
	expected := filepath.Join(store.ResultsDir(), "task_20260102_030405_abcdef12_result.md")

	assert.Equal(t, expected, store.ResultPathFor(taskPath))
	assert.False(t, testutil.FileExists(taskPath))

	created, err := store.Create(testContext(), "abcdef12", prompt.CategoryPolicyVerify, nil)
	require.NoError(t, err)
	before := store.ResultPathFor(created)
	require.NoError(t, os.Remove(created))
	assert.Equal(t, before, store.ResultPathFor(created))

	back, ok := store.TaskPathFor(expected)
	assert.True(t, ok)
	assert.Equal(t, taskPath, back)
}

func TestHasResult(t *testing.T) {
	store := newTestStore(t)

	taskPath, err := store.Create(testContext(), "12345678", prompt.CategoryProgressTracking, nil)
	require.NoError(t, err)

	assert.False(t, store.HasResult(taskPath))
	writeResult(t, store, taskPath)
	assert.True(t, store.HasResult(taskPath))
}

func TestListPending(t *testing.T) {
	store := newTestStore(t)
	ctx := testContext()

	var resolved, unresolved []string
	for i := 0; i < 6; i++ {
		id := strings.Repeat(string(rune('0'+i)), 8)
		taskPath, err := store.Create(ctx, id, prompt.CategoryCandidateSearch, nil)
		require.NoError(t, err)

		if i%2 == 0 {
			writeResult(t, store, taskPath)
			resolved = append(resolved, taskPath)
		} else {
			unresolved = append(unresolved, taskPath)
		}
	}

	// files that are not tasks are ignored
	testutil.CreateTempFile(t, store.TasksDir(), "notes.md", "not a task")
	require.NoError(t, os.Mkdir(filepath.Join(store.TasksDir(), "task_dir.md"), 0755))

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, unresolved, pending)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 6)
	for _, e := range entries {
		if e.State == StateResolved {
			assert.Contains(t, resolved, e.Path)
		} else {
			assert.Contains(t, unresolved, e.Path)
		}
		assert.False(t, e.CreatedAt.IsZero())
	}
}

func TestListPendingEmptyAndMissingDirectory(t *testing.T) {
	store := newTestStore(t)
	ctx := testContext()

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, os.RemoveAll(store.TasksDir()))
	pending, err = store.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCleanup(t *testing.T) {
	ctx := testContext()

	populate := func(t *testing.T, store *Store) int {
		t.Helper()
		count := 0
		for i := 0; i < 3; i++ {
			taskPath, err := store.Create(ctx, strings.Repeat(string(rune('a'+i)), 8), prompt.CategoryPolicySearch, nil)
			require.NoError(t, err)
			count++
			if i < 2 {
				writeResult(t, store, taskPath)
				count++
			}
		}
		return count
	}

	t.Run("zero age deletes everything", func(t *testing.T) {
		store := newTestStore(t)
		total := populate(t, store)

		deleted, err := store.Cleanup(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, total, deleted)
		assert.Equal(t, 0, testutil.CountFiles(t, store.TasksDir()))
		assert.Equal(t, 0, testutil.CountFiles(t, store.ResultsDir()))
	})

	t.Run("large age deletes nothing", func(t *testing.T) {
		store := newTestStore(t)
		total := populate(t, store)

		deleted, err := store.Cleanup(ctx, 36500)
		require.NoError(t, err)
		assert.Equal(t, 0, deleted)
		assert.Equal(t, total, testutil.CountFiles(t, store.TasksDir())+testutil.CountFiles(t, store.ResultsDir()))
	})

	t.Run("only files past the threshold", func(t *testing.T) {
		store := newTestStore(t)

		oldTask, err := store.Create(ctx, "oldtask1", prompt.CategoryPolicySearch, nil)
		require.NoError(t, err)
		newTask, err := store.Create(ctx, "newtask1", prompt.CategoryPolicySearch, nil)
		require.NoError(t, err)
		oldResult := writeResult(t, store, newTask)
		stray := testutil.CreateTempFile(t, store.ResultsDir(), "stray.md", "x")
		keep := testutil.CreateTempFile(t, store.ResultsDir(), "keep.txt", "x")

		testutil.Age(t, oldTask, 10*24*time.Hour)
		testutil.Age(t, oldResult, 8*24*time.Hour)
		testutil.Age(t, stray, 30*24*time.Hour)
		testutil.Age(t, keep, 30*24*time.Hour)

		deleted, err := store.Cleanup(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 3, deleted)

		// the task survives even though its result was purged
		assert.False(t, testutil.FileExists(oldTask))
		assert.True(t, testutil.FileExists(newTask))
		assert.False(t, testutil.FileExists(oldResult))
		assert.False(t, testutil.FileExists(stray))
		assert.True(t, testutil.FileExists(keep))
	})

	t.Run("rerun is a no-op", func(t *testing.T) {
		store := newTestStore(t)
		populate(t, store)

		_, err := store.Cleanup(ctx, 0)
		require.NoError(t, err)
		deleted, err := store.Cleanup(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, deleted)
	})

	t.Run("negative age", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.Cleanup(ctx, -1)
		assert.ErrorIs(t, err, ErrInvalidMaxAge)
	})

	t.Run("missing directories", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, os.RemoveAll(store.TasksDir()))
		require.NoError(t, os.RemoveAll(store.ResultsDir()))

		deleted, err := store.Cleanup(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, deleted)
	})
}

func TestRemoveIfExistsVanishedFile(t *testing.T) {
	removed, err := removeIfExists(filepath.Join(testutil.CreateTempDir(t), "gone.md"))
	assert.NoError(t, err)
	assert.False(t, removed)
}
