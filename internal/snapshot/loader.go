package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kazz187/agentcal/internal/agent"
	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/task"
)

// Load seeds an empty store from the repositories: every agent through
// AddAgent, then all tasks in one SetInitialTasks.
func Load(ctx context.Context, store *board.Store, agentRepo agent.Repository, taskRepo task.Repository) error {
	agents, err := agentRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list agents: %w", err)
	}
	for _, a := range agents {
		if err := store.AddAgent(*a); err != nil {
			return fmt.Errorf("failed to add agent %s: %w", a.ID, err)
		}
	}

	tasks, err := taskRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	initial := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.AgentID != "" && !store.HasAgent(t.AgentID) {
			slog.WarnContext(ctx, "seed task references an unknown agent, loading it unassigned",
				"task_id", t.ID, "agent_id", t.AgentID)
			t.AgentID = ""
		}
		initial = append(initial, *t)
	}
	if err := store.SetInitialTasks(initial); err != nil {
		return fmt.Errorf("failed to set initial tasks: %w", err)
	}
	slog.InfoContext(ctx, "board loaded", "agents", len(agents), "tasks", len(initial))
	return nil
}
