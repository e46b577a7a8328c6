package task

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"policytask/internal/prompt"
)

const (
	headerTitle        = "# AI Task: "
	headerID           = "## Task ID"
	headerSkill        = "## Skill"
	headerParameters   = "## Parameters"
	headerInstructions = "## Instructions"
)

// Document is the parsed content of a task file
type Document struct {
	Path         string         `json:"path"`
	ID           string         `json:"id"`
	Category     string         `json:"category"`
	Skill        string         `json:"skill"`
	Parameters   map[string]any `json:"parameters"`
	Instructions string         `json:"instructions"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Kind resolves the document's category against the known enumeration
func (d *Document) Kind() prompt.Category {
	return prompt.ParseCategory(d.Category)
}

// renderDocument writes the four labelled sections of a task file
func renderDocument(id, category, skill string, params map[string]any, instructions string) ([]byte, error) {
	if params == nil {
		params = map[string]any{}
	}

	var paramsJSON bytes.Buffer
	enc := json.NewEncoder(&paramsJSON)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(params); err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s%s\n\n", headerTitle, category)
	fmt.Fprintf(&buf, "%s\n%s\n\n", headerID, id)
	fmt.Fprintf(&buf, "%s\n%s\n\n", headerSkill, skill)
	fmt.Fprintf(&buf, "%s\n```json\n%s```\n\n", headerParameters, paramsJSON.String())
	fmt.Fprintf(&buf, "%s\n%s\n", headerInstructions, instructions)
	return buf.Bytes(), nil
}

// ReadDocument parses a task file written by Store.Create
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file %s: %w", path, err)
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse task file %s: %w", path, err)
	}

	doc.Path = path
	if created, _, ok := ParseFileName(path); ok {
		doc.CreatedAt = created
	}
	return doc, nil
}

func parseDocument(data []byte) (*Document, error) {
	doc := &Document{}
	var (
		section      string
		inJSON       bool
		paramsJSON   strings.Builder
		instructions []string
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		// section headers are only recognised before the free-form instructions
		if section != headerInstructions && !inJSON {
			switch {
			case strings.HasPrefix(line, headerTitle):
				doc.Category = strings.TrimPrefix(line, headerTitle)
				continue
			case line == headerID, line == headerSkill, line == headerParameters, line == headerInstructions:
				section = line
				continue
			}
		}

		switch section {
		case headerID:
			if doc.ID == "" && line != "" {
				doc.ID = line
			}
		case headerSkill:
			if doc.Skill == "" && line != "" {
				doc.Skill = line
			}
		case headerParameters:
			switch {
			case !inJSON && line == "```json":
				inJSON = true
			case inJSON && line == "```":
				inJSON = false
			case inJSON:
				paramsJSON.WriteString(line)
				paramsJSON.WriteByte('\n')
			}
		case headerInstructions:
			instructions = append(instructions, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if section == "" {
		return nil, fmt.Errorf("no task sections found")
	}

	if paramsJSON.Len() > 0 {
		if err := json.Unmarshal([]byte(paramsJSON.String()), &doc.Parameters); err != nil {
			return nil, fmt.Errorf("invalid parameters block: %w", err)
		}
	}
	if doc.Parameters == nil {
		doc.Parameters = map[string]any{}
	}

	doc.Instructions = strings.TrimRight(strings.Join(instructions, "\n"), "\n")
	return doc, nil
}
