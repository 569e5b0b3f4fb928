package exec

import (
	osexec "os/exec"
	"sort"
)

// ToolStatus describes whether an agent's CLI tool is installed.
type ToolStatus struct {
	Agent     string `json:"agent"`
	Command   string `json:"command"`
	Path      string `json:"path,omitempty"`
	Installed bool   `json:"installed"`
}

// Detect scans PATH for the CLI tools behind the known agent
// identities and reports what it finds, sorted by agent name.
func Detect() []ToolStatus {
	agents := make([]string, 0, len(toolCommands))
	for agent := range toolCommands {
		agents = append(agents, agent)
	}
	sort.Strings(agents)
	return DetectAgents(agents)
}

// DetectAgents checks the given agent identities against PATH.
func DetectAgents(agents []string) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(agents))
	for _, agent := range agents {
		cmd := CommandFor(agent)
		status := ToolStatus{Agent: agent, Command: cmd}
		if path, err := osexec.LookPath(cmd); err == nil {
			status.Path = path
			status.Installed = true
		}
		statuses = append(statuses, status)
	}
	return statuses
}
