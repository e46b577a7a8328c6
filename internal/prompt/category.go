package prompt

import "strings"

// Category selects the instruction template and skill for a task
type Category string

const (
	CategoryCandidateSearch  Category = "candidate_search"
	CategoryPolicySearch     Category = "policy_search"
	CategoryPolicyVerify     Category = "policy_verify"
	CategoryProgressTracking Category = "progress_tracking"

	// CategoryUnknown is the variant every unmapped category resolves to
	CategoryUnknown Category = "unknown"
)

// DefaultSkill is referenced by tasks whose category has no skill of its own
const DefaultSkill = "taiwan-election-expert.md"

var skills = map[Category]string{
	CategoryCandidateSearch:  "taiwan-election-expert.md",
	CategoryPolicySearch:     "policy-researcher.md",
	CategoryPolicyVerify:     "policy-verifier.md",
	CategoryProgressTracking: "progress-tracker.md",
}

// Categories returns the known categories in a stable order
func Categories() []Category {
	return []Category{
		CategoryCandidateSearch,
		CategoryPolicySearch,
		CategoryPolicyVerify,
		CategoryProgressTracking,
	}
}

// ParseCategory normalizes s. Values outside the enumeration are not an error,
// they resolve to CategoryUnknown.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Known() {
		return c
	}
	return CategoryUnknown
}

// Known reports whether c has a dedicated template
func (c Category) Known() bool {
	_, ok := skills[c]
	return ok
}

// Skill returns the skill document name referenced by tasks of this category
func (c Category) Skill() string {
	if skill, ok := skills[c]; ok {
		return skill
	}
	return DefaultSkill
}

func (c Category) String() string {
	return string(c)
}

// Normalize returns the known category matching s, or s itself trimmed so an
// unmapped category keeps the caller's spelling in the task header.
func Normalize(s string) Category {
	if c := ParseCategory(s); c.Known() {
		return c
	}
	return Category(strings.TrimSpace(s))
}
