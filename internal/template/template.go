// Package template is the prompt template engine: ten built-in prompts
// plus custom templates kept in the conductor store, expanded with
// {variable} substitution.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/thamam/claude-hub/internal/project"
)

var varRE = regexp.MustCompile(`\{(\w+)\}`)

// Builtins are the prompts shipped with the tool.
var Builtins = map[string]string{
	"debug": `Find and fix the bug systematically:
1. Reproduce the issue
2. Form hypotheses about the cause
3. Test each hypothesis with minimal changes
4. Verify the fix doesn't break other functionality
5. Add a test to prevent regression

Current context: {context}
Specific issue: {issue}`,

	"implement": `Implement {feature} following these principles:
- Follow existing code patterns in the project
- YAGNI: Only implement what's explicitly requested
- Include appropriate error handling
- Add docstrings for new functions/classes
- Write unit tests for new functionality

Project context: {context}
Existing patterns to follow: {patterns}`,

	"refactor": `Refactor code for {principle}:
- Maintain ALL existing functionality
- Improve {metric} without sacrificing readability
- Add/update tests to ensure no regression
- Document significant changes

Current implementation: {current}
Target improvement: {target}`,

	"continue": `Continue working on {project}:

Progress so far:
{completed_tasks}

Currently working on:
{current_task}

Next steps:
{next_steps}

Project scope: {scope}
Stay within scope - do not add: {out_of_scope}`,

	"review": `Review code for:
1. Security vulnerabilities
2. Performance issues
3. Logic errors
4. Missing edge cases
5. Code quality issues

Be critical and specific. Provide actionable feedback.
Context: {context}`,

	"test": `Write comprehensive tests for {feature}:
- Unit tests for individual functions/methods
- Integration tests for component interaction
- Edge cases and error handling
- Mock external dependencies appropriately

Code to test:
{code}

Follow testing patterns from: {patterns}`,

	"optimize": `Optimize {target} for {metric}:
- Profile to identify bottlenecks
- Apply appropriate optimizations
- Measure impact with benchmarks
- Ensure correctness is maintained

Current implementation: {current}
Performance requirements: {requirements}`,

	"document": `Document {feature}:
- Clear description of purpose and behavior
- Usage examples with common scenarios
- Parameter and return value documentation
- Note any important limitations or gotchas

Code to document:
{code}`,

	"plan": `Create an implementation plan for {feature}:
- Break down into concrete, actionable steps
- Identify dependencies and order of operations
- List files that need to be created/modified
- Note any potential challenges

Requirements:
{requirements}

Existing codebase context:
{context}`,

	"fix-scope": `This task appears to be outside the original project scope.

Original scope: {scope}

Proposed task: {task}

Please either:
1. Explain how this task IS within scope
2. Adjust the project scope explicitly to include this
3. Create a separate project for this feature

Remember: Scope creep kills projects. Stay focused.`,
}

// Info describes one available template.
type Info struct {
	Name       string
	Type       string // "builtin" or "custom"
	Variables  []string
	UsageCount int
}

// Engine resolves, lists, and expands templates. Custom templates in
// the store shadow builtins on lookup.
type Engine struct {
	store *project.Store
}

// NewEngine wraps a conductor store.
func NewEngine(store *project.Store) *Engine {
	return &Engine{store: store}
}

// List returns all templates, builtins first (sorted by name), then
// custom ones.
func (e *Engine) List() ([]Info, error) {
	names := make([]string, 0, len(Builtins))
	for name := range Builtins {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Info, 0, len(names))
	for _, name := range names {
		out = append(out, Info{
			Name:      name,
			Type:      "builtin",
			Variables: Variables(Builtins[name]),
		})
	}

	custom, err := e.store.Templates()
	if err != nil {
		return nil, err
	}
	for _, t := range custom {
		out = append(out, Info{
			Name:       t.Name,
			Type:       "custom",
			Variables:  t.Variables,
			UsageCount: t.UsageCount,
		})
	}
	return out, nil
}

// Get returns a template's content by name, empty when unknown. Custom
// templates take precedence over builtins.
func (e *Engine) Get(name string) (string, error) {
	custom, err := e.store.GetTemplate(name)
	if err != nil {
		return "", err
	}
	if custom != nil {
		return custom.Content, nil
	}
	return Builtins[name], nil
}

// Expand substitutes variables into a named template. Placeholders with
// no value stay in place for the user to fill in. Expanding a custom
// template bumps its usage counter.
func (e *Engine) Expand(name string, vars map[string]string) (string, error) {
	content, err := e.Get(name)
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", fmt.Errorf("template: %q not found", name)
	}

	if _, builtin := Builtins[name]; !builtin {
		if err := e.store.IncrementTemplateUsage(name); err != nil {
			return "", err
		}
	}

	result := content
	for _, v := range Variables(content) {
		if val, ok := vars[v]; ok {
			result = strings.ReplaceAll(result, "{"+v+"}", val)
		}
	}
	return result, nil
}

// ExpandWithContext expands a template, injecting a project briefing as
// the context variable when the caller did not supply one.
func (e *Engine) ExpandWithContext(name string, vars map[string]string, projectID string) (string, error) {
	merged := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		merged[k] = v
	}

	if projectID != "" {
		if _, ok := merged["context"]; !ok {
			ctx, err := e.projectContext(projectID)
			if err != nil {
				return "", err
			}
			merged["context"] = ctx
		}
	}
	return e.Expand(name, merged)
}

func (e *Engine) projectContext(projectID string) (string, error) {
	var parts []string

	p, err := e.store.GetProjectByID(projectID)
	if err != nil {
		return "", err
	}
	if p != nil {
		parts = append(parts, "Project: "+p.Name, "Scope: "+p.Scope)
	}

	stats, err := e.store.Stats(projectID)
	if err != nil {
		return "", err
	}
	if stats.Total > 0 {
		pct := stats.Completed * 100 / stats.Total
		parts = append(parts, fmt.Sprintf("Progress: %d%% (%d/%d tasks)",
			pct, stats.Completed, stats.Total))
	}

	inProgress, err := e.store.Tasks(projectID, project.StatusInProgress, false)
	if err != nil {
		return "", err
	}
	if len(inProgress) > 0 {
		parts = append(parts, "\nIn progress:")
		for _, t := range inProgress {
			parts = append(parts, "  - "+t.Description)
		}
	}

	pending, err := e.store.Tasks(projectID, project.StatusPending, false)
	if err != nil {
		return "", err
	}
	if len(pending) > 0 {
		parts = append(parts, "\nPending tasks:")
		show := pending
		if len(show) > 5 {
			show = show[:5]
		}
		for _, t := range show {
			parts = append(parts, "  - "+t.Description)
		}
		if len(pending) > 5 {
			parts = append(parts, fmt.Sprintf("  ... and %d more", len(pending)-5))
		}
	}

	learnings, err := e.store.Learnings(projectID, "", 5)
	if err != nil {
		return "", err
	}
	if len(learnings) > 0 {
		parts = append(parts, "\nRecent learnings:")
		for _, l := range learnings {
			parts = append(parts, "  - "+l.Pattern)
		}
	}

	return strings.Join(parts, "\n"), nil
}

// Create stores a custom template. Builtin names are reserved.
// Variables are auto-detected when nil.
func (e *Engine) Create(name, content string, variables []string) error {
	if _, ok := Builtins[name]; ok {
		return fmt.Errorf("template: cannot override builtin %q", name)
	}
	if variables == nil {
		variables = Variables(content)
	}
	return e.store.UpsertTemplate(name, content, variables)
}

// SaveToFile writes a custom template's content to a file.
func (e *Engine) SaveToFile(name, path string) error {
	t, err := e.store.GetTemplate(name)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("template: %q not found", name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("template: create directory: %w", err)
	}
	return os.WriteFile(path, []byte(t.Content), 0644)
}

// LoadFromFile creates a custom template from file contents.
func (e *Engine) LoadFromFile(name, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("template: read %s: %w", path, err)
	}
	return e.Create(name, string(content), nil)
}

// Variables extracts the sorted, deduplicated {variable} names from a
// template body.
func Variables(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range varRE.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	sort.Strings(out)
	return out
}
