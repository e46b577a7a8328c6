package task

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

const (
	// TimestampLayout is the UTC timestamp embedded in task filenames
	TimestampLayout = "20060102_150405"

	// IDPrefixLength is how many characters of the identity go into the filename
	IDPrefixLength = 8

	taskPrefix   = "task_"
	taskExt      = ".md"
	resultSuffix = "_result.md"
)

var (
	taskPattern     = glob.MustCompile("task_*.md")
	resultPattern   = glob.MustCompile("task_*_result.md")
	documentPattern = glob.MustCompile("*.md")
)

// FileName returns task_<YYYYMMDD_HHMMSS>_<id8>.md for an identity created at t.
// Two identities sharing their first eight characters collide within the same second.
func FileName(t time.Time, id string) string {
	return taskPrefix + t.UTC().Format(TimestampLayout) + "_" + idPrefix(id) + taskExt
}

// ResultName derives the result filename from a task filename
func ResultName(taskName string) string {
	base := filepath.Base(taskName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + resultSuffix
}

// TaskNameForResult reverses ResultName, reporting false for names that are not results
func TaskNameForResult(resultName string) (string, bool) {
	base := filepath.Base(resultName)
	if !resultPattern.Match(base) {
		return "", false
	}
	return strings.TrimSuffix(base, resultSuffix) + taskExt, true
}

// IsTaskFile reports whether name follows the task filename pattern
func IsTaskFile(name string) bool {
	return taskPattern.Match(filepath.Base(name))
}

// ParseFileName extracts the creation time and identity prefix from a task filename
func ParseFileName(name string) (time.Time, string, bool) {
	base := filepath.Base(name)
	if !IsTaskFile(base) {
		return time.Time{}, "", false
	}

	rest := strings.TrimSuffix(strings.TrimPrefix(base, taskPrefix), taskExt)
	if len(rest) < len(TimestampLayout)+1 || rest[len(TimestampLayout)] != '_' {
		return time.Time{}, "", false
	}

	created, err := time.ParseInLocation(TimestampLayout, rest[:len(TimestampLayout)], time.UTC)
	if err != nil {
		return time.Time{}, "", false
	}
	return created, rest[len(TimestampLayout)+1:], true
}

// idPrefix takes the first characters of the identity, with path separators
// replaced so an identity can never point outside the tasks directory
func idPrefix(id string) string {
	runes := []rune(id)
	if len(runes) > IDPrefixLength {
		runes = runes[:IDPrefixLength]
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, string(runes))
}
