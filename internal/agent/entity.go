package agent

// Agent is a schedulable resource. Agents are immutable once added to the
// board; removing one unassigns every task that referenced it.
type Agent struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}
