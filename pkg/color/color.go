package color

import (
	"hash/fnv"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Predefined color palette for agents
var agentColors = []color.Attribute{
	color.FgHiRed,
	color.FgHiGreen,
	color.FgHiYellow,
	color.FgHiBlue,
	color.FgHiMagenta,
	color.FgHiCyan,
	color.FgRed,
	color.FgGreen,
	color.FgYellow,
	color.FgBlue,
	color.FgMagenta,
	color.FgCyan,
}

// Supported reports whether output written to fd should be colored.
func Supported(fd uintptr) bool {
	// Check NO_COLOR environment variable (https://no-color.org/)
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if term := os.Getenv("TERM"); term == "dumb" {
		return false
	}
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// AgentAttribute returns a consistent color for the given agent ID.
func AgentAttribute(agentID string) color.Attribute {
	h := fnv.New32a()
	h.Write([]byte(agentID))
	return agentColors[h.Sum32()%uint32(len(agentColors))]
}

// Agent returns a bold printer in the agent's color.
func Agent(agentID string, enabled bool) *color.Color {
	return New(enabled, color.Bold, AgentAttribute(agentID))
}

// New is color.New with coloring forced on or off, independent of the
// global color.NoColor.
func New(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
