// Package registry tracks the MCP servers, skills, and subagents
// available to the assistant, with keyword matching to surface the
// relevant ones for a given task. The registry lives in a YAML file.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MCPServer is one registered MCP server.
type MCPServer struct {
	Name        string `yaml:"name"`
	When        string `yaml:"when,omitempty"`
	Description string `yaml:"description,omitempty"`
	ConfigPath  string `yaml:"config_path,omitempty"`
}

// Skill is one registered skill file.
type Skill struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path,omitempty"`
	When        string `yaml:"when,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Subagent is one registered subagent with its trigger keywords.
type Subagent struct {
	Name         string `yaml:"name"`
	Trigger      string `yaml:"trigger,omitempty"`
	Instructions string `yaml:"instructions,omitempty"`
	Description  string `yaml:"description,omitempty"`
}

// File is the on-disk registry shape. MCP servers and skills are
// grouped by category.
type File struct {
	MCPServers map[string][]MCPServer `yaml:"mcp_servers"`
	Skills     map[string][]Skill     `yaml:"skills"`
	Subagents  []Subagent             `yaml:"subagents"`
}

// Match is a registry entry scored against a context string.
type Match struct {
	Name            string
	Category        string
	When            string
	Description     string
	Relevance       float64
	MatchedTriggers []string
}

// Registry is a loaded registry file.
type Registry struct {
	path string
	file File
}

// Load reads the registry, creating it with defaults when the file does
// not exist yet.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		r.file = defaultFile()
		if err := r.save(); err != nil {
			return nil, err
		}
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &r.file); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}
	if r.file.MCPServers == nil && r.file.Skills == nil && r.file.Subagents == nil {
		r.file = defaultFile()
	}
	return r, nil
}

func (r *Registry) save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("registry: create directory: %w", err)
	}
	data, err := yaml.Marshal(r.file)
	if err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("registry: write %s: %w", r.path, err)
	}
	return nil
}

// Path returns the registry file location.
func (r *Registry) Path() string { return r.path }

// RelevantMCPServers scores servers against a context string.
// always_active servers are always returned at full relevance; other
// categories score matched "when" keywords over total, capped at 1.0.
func (r *Registry) RelevantMCPServers(context, category string) []Match {
	var out []Match
	for _, s := range r.file.MCPServers["always_active"] {
		out = append(out, Match{
			Name: s.Name, Category: "always_active",
			When: s.When, Description: s.Description, Relevance: 1.0,
		})
	}

	lower := strings.ToLower(context)
	for cat, servers := range r.file.MCPServers {
		if cat == "always_active" || (category != "" && category != cat) {
			continue
		}
		for _, s := range servers {
			if s.When == "" {
				continue
			}
			keywords := splitKeywords(s.When)
			hits := 0
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					hits++
				}
			}
			if hits > 0 {
				out = append(out, Match{
					Name: s.Name, Category: cat,
					When: s.When, Description: s.Description,
					Relevance: capped(hits, len(keywords)),
				})
			}
		}
	}
	sortMatches(out)
	return out
}

// RelevantSkills scores skills: half a point when any "when" word
// appears in the context, half when the skill's name does.
func (r *Registry) RelevantSkills(context, category string) []Match {
	lower := strings.ToLower(context)
	var out []Match
	for cat, skills := range r.file.Skills {
		if category != "" && category != cat {
			continue
		}
		for _, s := range skills {
			relevance := 0.0
			for _, w := range strings.Fields(strings.ToLower(s.When)) {
				if strings.Contains(lower, w) {
					relevance += 0.5
					break
				}
			}
			if s.Name != "" && strings.Contains(lower, strings.ToLower(s.Name)) {
				relevance += 0.5
			}
			if relevance > 0 {
				out = append(out, Match{
					Name: s.Name, Category: cat,
					When: s.When, Description: s.Description,
					Relevance: relevance,
				})
			}
		}
	}
	sortMatches(out)
	return out
}

// RelevantSubagents scores subagents by how many of their trigger
// phrases appear in the context.
func (r *Registry) RelevantSubagents(context string) []Match {
	lower := strings.ToLower(context)
	var out []Match
	for _, a := range r.file.Subagents {
		if a.Trigger == "" {
			continue
		}
		triggers := splitKeywords(a.Trigger)
		var matched []string
		for _, t := range triggers {
			if strings.Contains(lower, t) {
				matched = append(matched, t)
			}
		}
		if len(matched) > 0 {
			out = append(out, Match{
				Name: a.Name, Description: a.Description,
				Relevance:       capped(len(matched), len(triggers)),
				MatchedTriggers: matched,
			})
		}
	}
	sortMatches(out)
	return out
}

// AllMCPServers lists servers without scoring, optionally filtered by
// category.
func (r *Registry) AllMCPServers(category string) []Match {
	var out []Match
	for cat, servers := range r.file.MCPServers {
		if category != "" && category != cat {
			continue
		}
		for _, s := range servers {
			out = append(out, Match{Name: s.Name, Category: cat, When: s.When, Description: s.Description})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// AllSkills lists skills without scoring.
func (r *Registry) AllSkills(category string) []Match {
	var out []Match
	for cat, skills := range r.file.Skills {
		if category != "" && category != cat {
			continue
		}
		for _, s := range skills {
			out = append(out, Match{Name: s.Name, Category: cat, When: s.When, Description: s.Description})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Subagents lists all registered subagents.
func (r *Registry) Subagents() []Subagent {
	return append([]Subagent(nil), r.file.Subagents...)
}

// AddMCPServer registers a server under a category and persists.
func (r *Registry) AddMCPServer(category string, s MCPServer) error {
	if r.file.MCPServers == nil {
		r.file.MCPServers = make(map[string][]MCPServer)
	}
	r.file.MCPServers[category] = append(r.file.MCPServers[category], s)
	return r.save()
}

// AddSkill registers a skill under a category and persists.
func (r *Registry) AddSkill(category string, s Skill) error {
	if r.file.Skills == nil {
		r.file.Skills = make(map[string][]Skill)
	}
	r.file.Skills[category] = append(r.file.Skills[category], s)
	return r.save()
}

// AddSubagent registers a subagent and persists.
func (r *Registry) AddSubagent(a Subagent) error {
	r.file.Subagents = append(r.file.Subagents, a)
	return r.save()
}

// Remove drops an entry by name. toolType is "mcp_server", "skill", or
// "subagent"; empty category means all categories.
func (r *Registry) Remove(toolType, name, category string) error {
	switch toolType {
	case "subagent":
		kept := r.file.Subagents[:0]
		for _, a := range r.file.Subagents {
			if a.Name != name {
				kept = append(kept, a)
			}
		}
		r.file.Subagents = kept
	case "mcp_server":
		for cat, servers := range r.file.MCPServers {
			if category != "" && cat != category {
				continue
			}
			kept := servers[:0]
			for _, s := range servers {
				if s.Name != name {
					kept = append(kept, s)
				}
			}
			r.file.MCPServers[cat] = kept
		}
	case "skill":
		for cat, skills := range r.file.Skills {
			if category != "" && cat != category {
				continue
			}
			kept := skills[:0]
			for _, s := range skills {
				if s.Name != name {
					kept = append(kept, s)
				}
			}
			r.file.Skills[cat] = kept
		}
	default:
		return fmt.Errorf("registry: unknown tool type %q", toolType)
	}
	return r.save()
}

// Export writes the registry to another file.
func (r *Registry) Export(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("registry: create directory: %w", err)
	}
	data, err := yaml.Marshal(r.file)
	if err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("registry: write %s: %w", path, err)
	}
	return nil
}

// Import loads entries from another registry file. merge appends to the
// existing registry; otherwise the import replaces it.
func (r *Registry) Import(path string, merge bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("registry: read %s: %w", path, err)
	}
	var in File
	if err := yaml.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("registry: parse %s: %w", path, err)
	}

	if !merge {
		r.file = in
		return r.save()
	}

	if r.file.MCPServers == nil {
		r.file.MCPServers = make(map[string][]MCPServer)
	}
	for cat, servers := range in.MCPServers {
		r.file.MCPServers[cat] = append(r.file.MCPServers[cat], servers...)
	}
	if r.file.Skills == nil {
		r.file.Skills = make(map[string][]Skill)
	}
	for cat, skills := range in.Skills {
		r.file.Skills[cat] = append(r.file.Skills[cat], skills...)
	}
	r.file.Subagents = append(r.file.Subagents, in.Subagents...)
	return r.save()
}

func splitKeywords(s string) []string {
	var out []string
	for _, part := range strings.Split(strings.ToLower(s), ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func capped(hits, total int) float64 {
	rel := float64(hits) / float64(total)
	if rel > 1.0 {
		rel = 1.0
	}
	return rel
}

func sortMatches(out []Match) {
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Relevance > out[j].Relevance
	})
}

func defaultFile() File {
	return File{
		MCPServers: map[string][]MCPServer{
			"always_active": {
				{Name: "memory", Description: "Context retention across sessions", ConfigPath: "~/.claude/mcp_config.json"},
			},
			"databases": {
				{Name: "postgres", When: "SQL, relational data, vector storage", Description: "PostgreSQL database operations"},
				{Name: "mongodb", When: "Document store, flexible schema", Description: "MongoDB document database"},
				{Name: "redis", When: "Caching, pub/sub, real-time", Description: "Redis in-memory data store"},
			},
			"productivity": {
				{Name: "notion", When: "Documentation, notes, knowledge base", Description: "Notion workspace integration"},
				{Name: "linear", When: "Issue tracking, project management", Description: "Linear issue tracker"},
				{Name: "github", When: "Repository operations, PR management", Description: "GitHub integration"},
			},
			"web": {
				{Name: "puppeteer", When: "Web scraping, browser automation", Description: "Browser automation with Puppeteer"},
				{Name: "fetch", When: "HTTP requests, API calls", Description: "Web content fetching"},
			},
		},
		Skills: map[string][]Skill{
			"documents": {
				{Name: "docx", Path: "/mnt/skills/public/docx/SKILL.md", When: "Creating Word documents", Description: "Microsoft Word document creation"},
				{Name: "pdf", Path: "/mnt/skills/public/pdf/SKILL.md", When: "PDF manipulation", Description: "PDF generation and editing"},
				{Name: "xlsx", Path: "/mnt/skills/public/xlsx/SKILL.md", When: "Excel spreadsheets", Description: "Excel file operations"},
			},
			"development": {
				{Name: "mcp-builder", Path: "/mnt/skills/examples/mcp-builder/SKILL.md", When: "Creating new MCP servers", Description: "MCP server scaffolding"},
			},
		},
		Subagents: []Subagent{
			{Name: "github_specialist", Trigger: "git, repository, PR, commit, branch", Instructions: "Handle all git and GitHub operations", Description: "Git and GitHub expert"},
			{Name: "test_generator", Trigger: "test, testing, TDD, unit test, integration test", Instructions: "Generate comprehensive test suites", Description: "Test generation specialist"},
			{Name: "debugger", Trigger: "bug, error, issue, problem, crash, exception", Instructions: "Systematic debugging approach", Description: "Debugging expert"},
			{Name: "optimizer", Trigger: "optimize, performance, speed, slow, memory", Instructions: "Performance optimization and profiling", Description: "Performance optimization specialist"},
			{Name: "documenter", Trigger: "document, documentation, readme, comments", Instructions: "Create comprehensive documentation", Description: "Documentation specialist"},
		},
	}
}
