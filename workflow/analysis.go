package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// analysisMaxAge bounds how long a cached analysis stays valid.
const analysisMaxAge = 30 * 24 * time.Hour

// Analysis captures what was learned about a repository: its shape, how to
// run it, and how to test it.
type Analysis struct {
	ProjectType         string            `json:"project_type"`
	ArchitectureSummary string            `json:"architecture_summary"`
	KeyFolders          map[string]string `json:"key_folders"`
	EntryPoints         []string          `json:"entry_points"`
	TestStrategy        map[string]string `json:"test_strategy"`
	CIExpectations      []string          `json:"ci_expectations"`
	StartHereExists     bool              `json:"start_here_exists"`
	AnalyzedAt          time.Time         `json:"analyzed_at"`
}

// KeyFolderNames returns the identified folder names, sorted.
func (a *Analysis) KeyFolderNames() []string {
	names := make([]string, 0, len(a.KeyFolders))
	for name := range a.KeyFolders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func analysisCachePath(repoDir string) string {
	return filepath.Join(repoDir, ".forgehand", "repository_analysis.json")
}

func startHerePath(repoDir string) string {
	return filepath.Join(repoDir, "START_HERE.md")
}

// LoadAnalysis reads a cached analysis. It returns nil when the cache is
// missing, unreadable, or older than analysisMaxAge.
func LoadAnalysis(repoDir string) *Analysis {
	data, err := os.ReadFile(analysisCachePath(repoDir))
	if err != nil {
		return nil
	}
	var analysis Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil
	}
	if time.Since(analysis.AnalyzedAt) > analysisMaxAge {
		return nil
	}
	return &analysis
}

// AnalyzeRepository inspects the repository, writes START_HERE.md if it is
// missing, and caches the result under .forgehand/.
func AnalyzeRepository(repoDir string) (*Analysis, error) {
	projectType := detectProjectType(repoDir)

	analysis := &Analysis{
		ProjectType:    projectType,
		KeyFolders:     identifyKeyFolders(repoDir),
		EntryPoints:    findEntryPoints(repoDir, projectType),
		TestStrategy:   identifyTestStrategy(repoDir, projectType),
		CIExpectations: identifyCIExpectations(repoDir),
		AnalyzedAt:     time.Now(),
	}
	analysis.ArchitectureSummary = architectureSummary(analysis)

	if _, err := os.Stat(startHerePath(repoDir)); os.IsNotExist(err) {
		if err := writeStartHere(repoDir, analysis); err != nil {
			return nil, err
		}
	}
	analysis.StartHereExists = true

	if err := saveAnalysisCache(repoDir, analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

func saveAnalysisCache(repoDir string, analysis *Analysis) error {
	path := analysisCachePath(repoDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create analysis cache dir: %w", err)
	}
	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write analysis cache: %w", err)
	}
	return nil
}

func detectProjectType(repoDir string) string {
	markers := []struct {
		file string
		kind string
	}{
		{"package.json", "Node.js"},
		{"go.mod", "Go"},
		{"Cargo.toml", "Rust"},
		{"pyproject.toml", "Python"},
		{"requirements.txt", "Python"},
		{"setup.py", "Python"},
		{"pom.xml", "Java"},
		{"Gemfile", "Ruby"},
	}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(repoDir, m.file)); err == nil {
			return m.kind
		}
	}
	return "Unknown"
}

var knownFolderPurposes = map[string]string{
	"src":      "Source code",
	"lib":      "Library code",
	"app":      "Application code",
	"cmd":      "Command entry points",
	"internal": "Internal packages",
	"pkg":      "Public packages",
	"tests":    "Test files",
	"test":     "Test files",
	"docs":     "Documentation",
	"scripts":  "Utility scripts",
	"config":   "Configuration files",
	"tools":    "Development tools",
}

var skipFolders = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"vendor":       true,
}

func identifyKeyFolders(repoDir string) map[string]string {
	folders := make(map[string]string)
	entries, err := os.ReadDir(repoDir)
	if err != nil {
		return folders
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || skipFolders[entry.Name()] {
			continue
		}
		if purpose, ok := knownFolderPurposes[entry.Name()]; ok {
			folders[entry.Name()] = purpose
			continue
		}
		if purpose := inferFolderPurpose(filepath.Join(repoDir, entry.Name())); purpose != "" {
			folders[entry.Name()] = purpose
		}
	}
	return folders
}

func inferFolderPurpose(dir string) string {
	checks := []struct {
		glob    string
		purpose string
	}{
		{"*.go", "Go code"},
		{"*.py", "Python code"},
		{"*.js", "JavaScript/TypeScript code"},
		{"*.ts", "JavaScript/TypeScript code"},
		{"*.md", "Documentation"},
		{"*.json", "Configuration/data"},
	}
	for _, check := range checks {
		matches, err := filepath.Glob(filepath.Join(dir, check.glob))
		if err == nil && len(matches) > 0 {
			return check.purpose
		}
	}
	return ""
}

func findEntryPoints(repoDir, projectType string) []string {
	var entryPoints []string
	common := []string{"main.go", "main.py", "app.py", "index.js", "index.ts", "main.rs"}
	for _, name := range common {
		if _, err := os.Stat(filepath.Join(repoDir, name)); err == nil {
			entryPoints = append(entryPoints, name)
		}
	}

	switch projectType {
	case "Go":
		matches, _ := filepath.Glob(filepath.Join(repoDir, "cmd", "*"))
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				entryPoints = append(entryPoints, "cmd/"+filepath.Base(m))
			}
		}
	case "Node.js":
		data, err := os.ReadFile(filepath.Join(repoDir, "package.json"))
		if err == nil {
			for _, script := range []string{"start", "dev", "serve"} {
				if gjson.GetBytes(data, "scripts."+script).Exists() {
					entryPoints = append(entryPoints, "npm run "+script)
				}
			}
		}
	}
	return entryPoints
}

func identifyTestStrategy(repoDir, projectType string) map[string]string {
	strategy := make(map[string]string)
	switch projectType {
	case "Go":
		strategy["All tests"] = "go test ./..."
	case "Python":
		for _, dir := range []string{"tests", "test"} {
			if _, err := os.Stat(filepath.Join(repoDir, dir)); err == nil {
				strategy["All tests"] = "pytest " + dir + "/"
			}
		}
		if _, ok := strategy["All tests"]; !ok {
			strategy["Unit tests"] = "pytest"
		}
	case "Node.js":
		data, err := os.ReadFile(filepath.Join(repoDir, "package.json"))
		if err == nil {
			if test := gjson.GetBytes(data, "scripts.test"); test.Exists() {
				strategy["Tests"] = test.String()
			}
		}
		if _, ok := strategy["Tests"]; !ok {
			strategy["Tests"] = "npm test"
		}
	case "Rust":
		strategy["All tests"] = "cargo test"
	}
	return strategy
}

func identifyCIExpectations(repoDir string) []string {
	var expectations []string
	ciConfigs := []struct {
		path string
		name string
	}{
		{".github/workflows", "GitHub Actions"},
		{".gitlab-ci.yml", "GitLab CI"},
		{".circleci", "CircleCI"},
		{".travis.yml", "Travis CI"},
		{"Jenkinsfile", "Jenkins"},
	}
	for _, ci := range ciConfigs {
		if _, err := os.Stat(filepath.Join(repoDir, ci.path)); err == nil {
			expectations = append(expectations, ci.name+" configured")
		}
	}
	if _, err := os.Stat(filepath.Join(repoDir, ".github", "workflows")); err == nil {
		expectations = append(expectations, "Tests run on push/PR")
	}
	return expectations
}

func architectureSummary(a *Analysis) string {
	lines := []string{fmt.Sprintf("This is a %s project.", a.ProjectType)}

	if len(a.KeyFolders) > 0 {
		lines = append(lines, "", "Key components:")
		names := a.KeyFolderNames()
		if len(names) > 5 {
			names = names[:5]
		}
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("- %s/: %s", name, a.KeyFolders[name]))
		}
	}

	if len(a.EntryPoints) > 0 {
		lines = append(lines, "", "Entry points:")
		entries := a.EntryPoints
		if len(entries) > 3 {
			entries = entries[:3]
		}
		for _, entry := range entries {
			lines = append(lines, "- "+entry)
		}
	}
	return strings.Join(lines, "\n")
}

func writeStartHere(repoDir string, a *Analysis) error {
	var b strings.Builder
	b.WriteString("# START HERE\n\n")
	b.WriteString("Generated repository knowledge base for contributors.\n\n")
	b.WriteString("## Architecture\n\n")
	b.WriteString(a.ArchitectureSummary)
	b.WriteString("\n")

	if len(a.TestStrategy) > 0 {
		b.WriteString("\n## Running Tests\n\n")
		kinds := make([]string, 0, len(a.TestStrategy))
		for kind := range a.TestStrategy {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(&b, "- %s: `%s`\n", kind, a.TestStrategy[kind])
		}
	}

	if len(a.CIExpectations) > 0 {
		b.WriteString("\n## CI\n\n")
		for _, expectation := range a.CIExpectations {
			fmt.Fprintf(&b, "- %s\n", expectation)
		}
	}

	if err := os.WriteFile(startHerePath(repoDir), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write START_HERE.md: %w", err)
	}
	return nil
}
