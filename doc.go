// Package forgehand implements an autonomous coding agent for GitHub issue
// work. It drives a chat model through a turn loop, dispatching the tools
// the model requests and managing the conversation so it stays inside the
// model's context window.
//
// Two main entry points:
//
//   - [Agent] is a stateless execution engine that holds config + tools.
//   - [Client] is a stateful conversation container wrapping an Agent.
//
// # Quick Start
//
//	a := forgehand.NewAgent(forgehand.WithModel("gpt-4o"))
//	tools.RegisterAll(a.Tools(), tools.Options{WorkDir: "."})
//	stream := a.Run(ctx, "Summarize the open TODOs in this repo")
//	for stream.Next() {
//	    if e, ok := stream.Current().(*forgehand.TextDeltaEvent); ok {
//	        fmt.Print(e.Delta)
//	    }
//	}
//
// # Sub-packages
//
//   - [tools] provides the built-in tools (file access, git, GitHub, bash).
//   - [workflow] drives the phased issue-to-PR contribution workflow.
//   - [memory] persists per-branch workflow state across runs.
//   - [hook] provides hook types for intercepting tool execution.
//   - [permission] provides permission types for access control.
package forgehand
