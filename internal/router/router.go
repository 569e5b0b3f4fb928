// Package router decides which agent identities can handle which tasks.
// It is a pure decision layer: no state, no side effects.
package router

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

// DefaultCapabilities is the compiled capability-keyword table, keyed by
// agent identity. An agent can handle a task when any of its keywords
// appears in the task description. Agents absent from the table can
// handle nothing.
var DefaultCapabilities = map[string][]string{
	"claude":    {"analyze", "logic", "reasoning", "review", "explain", "analysis", "data"},
	"gemini":    {"translate", "multilingual", "creative", "document", "writing", "content"},
	"qwen":      {"chinese", "中文", "translate", "chat", "question", "answer"},
	"codebuddy": {"code", "function", "program", "bug", "refactor", "debug", "test"},
	"kimi":      {"long", "analysis", "research", "content", "report"},
	"qodercli":  {"generate", "code", "template", "create", "build"},
	"iflow":     {"workflow", "process", "automate", "task", "schedule"},
	"ollama":    {"local", "offline", "private", "secure", "model"},
}

// delegateRule maps substrings of a failure's error text to the agent
// believed better suited to retry the work.
type delegateRule struct {
	keywords []string
	agent    string
}

// defaultDelegates is ordered: the first matching rule wins.
var defaultDelegates = []delegateRule{
	{keywords: []string{"translate", "language", "text"}, agent: "gemini"},
	{keywords: []string{"code", "function", "program"}, agent: "codebuddy"},
	{keywords: []string{"analysis", "data", "math"}, agent: "claude"},
	{keywords: []string{"chinese", "中文"}, agent: "qwen"},
}

// Router matches tasks to agent capabilities and suggests delegates for
// failed work.
type Router struct {
	capabilities map[string][]string
	delegates    []delegateRule
}

// New returns a Router with the compiled default tables.
func New() *Router {
	return NewWithCapabilities(DefaultCapabilities)
}

// NewWithCapabilities returns a Router with a caller-supplied capability
// table. The delegation table stays at the compiled default.
func NewWithCapabilities(caps map[string][]string) *Router {
	return &Router{
		capabilities: caps,
		delegates:    defaultDelegates,
	}
}

// LoadCapabilities reads a YAML capability table (agent identity mapped
// to a keyword list) to replace the compiled defaults per project.
func LoadCapabilities(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capabilities file: %w", err)
	}
	caps := make(map[string][]string)
	if err := yaml.Unmarshal(data, &caps); err != nil {
		return nil, fmt.Errorf("parse capabilities file %s: %w", path, err)
	}
	return caps, nil
}

// CanHandle reports whether the agent's keyword list matches the task
// description. Matching is a case-insensitive substring test. Unknown
// agents match nothing.
func (r *Router) CanHandle(task *models.Task, agent string) bool {
	if task == nil {
		return false
	}
	keywords, ok := r.capabilities[strings.ToLower(agent)]
	if !ok {
		return false
	}
	desc := strings.ToLower(task.Description)
	for _, kw := range keywords {
		if strings.Contains(desc, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Keywords returns the capability keywords registered for an agent.
func (r *Router) Keywords(agent string) []string {
	return r.capabilities[strings.ToLower(agent)]
}

// Agents returns the identities present in the capability table.
func (r *Router) Agents() []string {
	agents := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		agents = append(agents, name)
	}
	return agents
}

// SuggestDelegate inspects a failure's error text and returns the agent
// identity believed better suited to retry, or "" when no rule matches.
func (r *Router) SuggestDelegate(errText string) string {
	lower := strings.ToLower(errText)
	for _, rule := range r.delegates {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.agent
			}
		}
	}
	return ""
}
