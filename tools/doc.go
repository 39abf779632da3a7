// Package tools provides the built-in tool set for open source contribution
// work: file inspection and editing, shell execution, git operations, and
// GitHub issue/PR access through the gh CLI.
//
// Tools are registered on a forgehand.ToolRegistry via RegisterAll:
//
//	reg := forgehand.NewToolRegistry()
//	tools.RegisterAll(reg, tools.Options{WorkDir: "/path/to/repo"})
package tools
