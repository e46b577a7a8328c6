package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFileName(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		id       string
		expected string
	}{
		{"uuid", "abcdef12-3456-7890-abcd-ef1234567890", "task_20260102_030405_abcdef12.md"},
		{"short identity", "abc", "task_20260102_030405_abc.md"},
		{"empty identity", "", "task_20260102_030405_.md"},
		{"multibyte identity", "王小明的政見追蹤任務", "task_20260102_030405_王小明的政見追蹤.md"},
		{"path separators", "../../etc", "task_20260102_030405_.._.._et.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileName(created, tt.id))
		})
	}
}

func TestFileNameUsesUTC(t *testing.T) {
	taipei := time.FixedZone("CST", 8*60*60)
	created := time.Date(2026, 1, 2, 8, 0, 0, 0, taipei)

	assert.Equal(t, "task_20260102_000000_abcdef12.md", FileName(created, "abcdef12"))
}

func TestResultName(t *testing.T) {
	assert.Equal(t, "task_20260102_030405_abcdef12_result.md", ResultName("task_20260102_030405_abcdef12.md"))
	assert.Equal(t, "task_20260102_030405_abcdef12_result.md", ResultName("/var/tasks/task_20260102_030405_abcdef12.md"))
}

func TestTaskNameForResult(t *testing.T) {
	name, ok := TaskNameForResult("/results/task_20260102_030405_abcdef12_result.md")
	assert.True(t, ok)
	assert.Equal(t, "task_20260102_030405_abcdef12.md", name)

	_, ok = TaskNameForResult("notes.md")
	assert.False(t, ok)

	_, ok = TaskNameForResult("task_20260102_030405_abcdef12.md")
	assert.False(t, ok)
}

func TestParseFileName(t *testing.T) {
	created, prefix, ok := ParseFileName("tasks/task_20260102_030405_abcdef12.md")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), created)
	assert.Equal(t, "abcdef12", prefix)

	for _, name := range []string{"readme.md", "task_.md", "task_2026_abc.md", "task_20261302_030405_x.md", "task_20260102_030405_x.txt"} {
		_, _, ok := ParseFileName(name)
		assert.False(t, ok, name)
	}
}

func TestIsTaskFile(t *testing.T) {
	assert.True(t, IsTaskFile("task_20260102_030405_abcdef12.md"))
	assert.True(t, IsTaskFile("/abs/task_x.md"))
	assert.False(t, IsTaskFile("result.md"))
	assert.False(t, IsTaskFile("task_20260102_030405_abcdef12.txt"))
}
