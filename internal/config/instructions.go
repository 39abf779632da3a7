package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Instruction is a project guidance file injected into the system prompt.
type Instruction struct {
	Name    string // Derived from filename (without extension)
	Content string // Raw markdown content
}

// LoadInstructions reads all .md files from the given directories and returns
// them as guidance blocks for the system prompt.
func LoadInstructions(dirs ...string) ([]Instruction, error) {
	var instructions []Instruction

	for _, dir := range dirs {
		loaded, err := loadInstructionsFromDir(dir)
		if err != nil {
			continue // Skip missing directories
		}
		instructions = append(instructions, loaded...)
	}

	return instructions, nil
}

// FormatInstructionsPrompt formats loaded instructions into a string suitable
// for appending to a system prompt.
func FormatInstructionsPrompt(instructions []Instruction) string {
	if len(instructions) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("# Project Instructions\n\n")

	for _, ins := range instructions {
		sb.WriteString("## ")
		sb.WriteString(ins.Name)
		sb.WriteString("\n\n")
		sb.WriteString(ins.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

func loadInstructionsFromDir(dir string) ([]Instruction, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var instructions []Instruction
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".md")
		instructions = append(instructions, Instruction{
			Name:    name,
			Content: string(content),
		})
	}

	return instructions, nil
}
