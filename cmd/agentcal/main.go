package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/kazz187/agentcal/internal/agent"
	"github.com/kazz187/agentcal/internal/client"
	"github.com/kazz187/agentcal/internal/dnd"
	"github.com/kazz187/agentcal/internal/droptarget"
	"github.com/kazz187/agentcal/internal/grid"
	"github.com/kazz187/agentcal/internal/selection"
	"github.com/kazz187/agentcal/internal/task"
	"github.com/kazz187/agentcal/pkg/cerr"
	palette "github.com/kazz187/agentcal/pkg/color"
)

var (
	app     = kingpin.New("agentcal", "Drag-and-drop scheduling board for agents")
	addr    = app.Flag("addr", "Server address").Envar("AGENTCAL_ADDR").Default("http://localhost:3100").String()
	apiKey  = app.Flag("api-key", "API key").Envar("AGENTCAL_API_KEY").String()
	noColor = app.Flag("no-color", "Disable colored output").Bool()

	boardCmd = app.Command("board", "Show the board")

	// Agent commands
	agentCmd       = app.Command("agent", "Agent management commands")
	agentAddCmd    = agentCmd.Command("add", "Add an agent")
	agentAddName   = agentAddCmd.Arg("name", "Agent name").Required().String()
	agentAddID     = agentAddCmd.Flag("id", "Agent ID (generated when omitted)").String()
	agentRemoveCmd = agentCmd.Command("remove", "Remove an agent; its tasks become unassigned")
	agentRemoveID  = agentRemoveCmd.Arg("id", "Agent ID").Required().String()

	// Task commands
	taskCmd       = app.Command("task", "Task management commands")
	taskAddCmd    = taskCmd.Command("add", "Add an unassigned task")
	taskAddTitle  = taskAddCmd.Arg("title", "Task title").Required().String()
	taskAddID     = taskAddCmd.Flag("id", "Task ID (generated when omitted)").String()
	taskShowCmd   = taskCmd.Command("show", "Show task details")
	taskShowID    = taskShowCmd.Arg("id", "Task ID").Required().String()
	taskRemoveCmd = taskCmd.Command("remove", "Remove a task")
	taskRemoveID  = taskRemoveCmd.Arg("id", "Task ID").Required().String()

	// Navigation commands
	viewCmd  = app.Command("view", "Switch between day and week view")
	viewMode = viewCmd.Arg("mode", "day or week").Required().Enum("day", "week")
	dateCmd  = app.Command("date", "Jump to a date")
	dateArg  = dateCmd.Arg("date", "YYYY-MM-DD").Required().String()
	prevCmd  = app.Command("prev", "Go to the previous week or day")
	nextCmd  = app.Command("next", "Go to the next week or day")
	todayCmd = app.Command("today", "Go to today")

	// Drag commands
	dragCmd         = app.Command("drag", "Drag a task across the board")
	dragStateCmd    = dragCmd.Command("state", "Show the current drag")
	dragBeginCmd    = dragCmd.Command("begin", "Pick up a task")
	dragBeginID     = dragBeginCmd.Arg("task", "Task ID").Required().String()
	dragHoverCmd    = dragCmd.Command("hover", "Highlight a drop target")
	dragHoverTarget = dragHoverCmd.Arg("target", "Drop target ID").Required().String()
	dragDropCmd     = dragCmd.Command("drop", "Drop the task on a target")
	dragDropTarget  = dragDropCmd.Arg("target", "Drop target ID, e.g. cell-<agent>__<YYYY-MM-DD> or unassigned").Required().String()
	dragDropAgent   = dragDropCmd.Flag("agent", "Agent ID carried with the drop").String()
	dragDropDiff    = dragDropCmd.Flag("diff", "Print a diff of the board before and after the drop").Bool()
	dragCancelCmd   = dragCmd.Command("cancel", "Drop outside any target")
	dragNudgeCmd    = dragCmd.Command("nudge", "Move the highlight with the keyboard")
	dragNudgeDir    = dragNudgeCmd.Arg("direction", "left, right, up or down").Required().Enum("left", "right", "up", "down")
	dragEnterCmd    = dragCmd.Command("enter", "Drop on the highlighted target")

	// Selection commands
	selectCmd    = app.Command("select", "Select a task and open its details")
	selectID     = selectCmd.Arg("task", "Task ID").Required().String()
	selectionCmd = app.Command("selection", "Selection commands")
	selShowCmd   = selectionCmd.Command("show", "Show the selected task")
	selClearCmd  = selectionCmd.Command("clear", "Clear the selection")
	selCloseCmd  = selectionCmd.Command("close", "Close the detail panel")
	selEditCmd   = selectionCmd.Command("edit", "Edit the selected task")
	selEditTitle = selEditCmd.Flag("title", "New title").String()
	selEditStart = selEditCmd.Flag("start", "Start date (YYYY-MM-DD)").String()
	selEditEnd   = selEditCmd.Flag("end", "End date (YYYY-MM-DD)").String()

	eventsCmd  = app.Command("events", "Show the change journal")
	eventsDate = eventsCmd.Flag("date", "Day to show (YYYY-MM-DD), defaults to today").String()
	eventsType = eventsCmd.Flag("type", "Only events of this type, e.g. task.updated").String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	c := client.New(*addr, client.WithAPIKey(*apiKey))
	r := newRenderer(!*noColor && palette.Supported(os.Stdout.Fd()))

	if err := run(ctx, c, r, command); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, r *renderer, command string) error {
	switch command {
	case boardCmd.FullCommand():
		return showBoard(ctx, c, r)

	case agentAddCmd.FullCommand():
		a, err := c.AddAgent(ctx, agent.Agent{ID: *agentAddID, Name: *agentAddName})
		if err != nil {
			return err
		}
		fmt.Printf("added agent %s (%s)\n", a.ID, a.Name)
	case agentRemoveCmd.FullCommand():
		if err := c.RemoveAgent(ctx, *agentRemoveID); err != nil {
			return err
		}
		fmt.Printf("removed agent %s\n", *agentRemoveID)

	case taskAddCmd.FullCommand():
		t, err := c.AddTask(ctx, task.Task{ID: *taskAddID, Title: *taskAddTitle})
		if err != nil {
			return err
		}
		fmt.Printf("added task %s\n", t.ID)
	case taskShowCmd.FullCommand():
		t, err := c.Task(ctx, *taskShowID)
		if err != nil {
			return err
		}
		return printJSON(t)
	case taskRemoveCmd.FullCommand():
		if err := c.RemoveTask(ctx, *taskRemoveID); err != nil {
			return err
		}
		fmt.Printf("removed task %s\n", *taskRemoveID)

	case viewCmd.FullCommand():
		if _, err := c.SetView(ctx, *viewMode); err != nil {
			return err
		}
		return showBoard(ctx, c, r)
	case dateCmd.FullCommand():
		if _, err := c.SetDate(ctx, *dateArg); err != nil {
			return err
		}
		return showBoard(ctx, c, r)
	case prevCmd.FullCommand():
		if _, err := c.Previous(ctx); err != nil {
			return err
		}
		return showBoard(ctx, c, r)
	case nextCmd.FullCommand():
		if _, err := c.Next(ctx); err != nil {
			return err
		}
		return showBoard(ctx, c, r)
	case todayCmd.FullCommand():
		if _, err := c.Today(ctx); err != nil {
			return err
		}
		return showBoard(ctx, c, r)

	case dragStateCmd.FullCommand():
		st, err := c.DragState(ctx)
		if err != nil {
			return err
		}
		return printJSON(st)
	case dragBeginCmd.FullCommand():
		return printOutcome(c.BeginDrag(ctx, *dragBeginID))
	case dragHoverCmd.FullCommand():
		return printOutcome(c.Hover(ctx, *dragHoverTarget))
	case dragDropCmd.FullCommand():
		return drop(ctx, c)
	case dragCancelCmd.FullCommand():
		return printOutcome(c.CancelDrop(ctx))
	case dragNudgeCmd.FullCommand():
		return printOutcome(c.Nudge(ctx, *dragNudgeDir))
	case dragEnterCmd.FullCommand():
		return printOutcome(c.DropHovered(ctx))

	case selectCmd.FullCommand():
		v, err := c.Select(ctx, *selectID)
		if err != nil {
			return err
		}
		return printJSON(v)
	case selShowCmd.FullCommand():
		v, err := c.Selection(ctx)
		if err != nil {
			return err
		}
		return printJSON(v)
	case selClearCmd.FullCommand():
		return c.ClearSelection(ctx)
	case selCloseCmd.FullCommand():
		v, err := c.SetSelectionOpen(ctx, false)
		if err != nil {
			return err
		}
		return printJSON(v)
	case selEditCmd.FullCommand():
		e, err := editFromFlags()
		if err != nil {
			return err
		}
		t, err := c.SaveSelection(ctx, e)
		if err != nil {
			return err
		}
		return printJSON(t)

	case eventsCmd.FullCommand():
		res, err := c.Events(ctx, *eventsDate, *eventsType)
		if err != nil {
			return err
		}
		for _, e := range res.Events {
			fmt.Printf("%s  v%-4d %-15s %s\n", e.CreatedAt.Format(time.TimeOnly), e.Version, e.Type, e.ResourceID)
		}

	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func showBoard(ctx context.Context, c *client.Client, r *renderer) error {
	m, err := c.Board(ctx)
	if err != nil {
		return err
	}
	r.render(os.Stdout, m)
	return nil
}

func drop(ctx context.Context, c *client.Client) error {
	var data droptarget.Data
	if *dragDropAgent != "" {
		data.AgentID = dragDropAgent
	}
	if !*dragDropDiff {
		return printOutcome(c.Drop(ctx, *dragDropTarget, data))
	}

	before, err := c.Board(ctx)
	if err != nil {
		return err
	}
	if err := printOutcome(c.Drop(ctx, *dragDropTarget, data)); err != nil {
		return err
	}
	after, err := c.Board(ctx)
	if err != nil {
		return err
	}
	diff, err := boardDiff(before, after)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Println("board unchanged")
		return nil
	}
	fmt.Print(diff)
	return nil
}

// boardDiff renders both boards without color and returns their unified
// diff, or "" when they render the same.
func boardDiff(before, after *grid.Matrix) (string, error) {
	plain := newRenderer(false)
	var a, b bytes.Buffer
	plain.render(&a, before)
	plain.render(&b, after)
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a.String()),
		B:        difflib.SplitLines(b.String()),
		FromFile: "before",
		ToFile:   "after",
		Context:  1,
	})
}

func editFromFlags() (selection.Edit, error) {
	var e selection.Edit
	if *selEditTitle != "" {
		e.Title = selEditTitle
	}
	for _, f := range []struct {
		raw  string
		dst  **time.Time
		name string
	}{
		{*selEditStart, &e.StartDate, "start"},
		{*selEditEnd, &e.EndDate, "end"},
	} {
		if f.raw == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, f.raw)
		if err != nil {
			return e, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid --%s date", f.name), err)
		}
		*f.dst = &d
	}
	return e, nil
}

func printOutcome(res *dnd.DragResponse, err error) error {
	if err != nil {
		return err
	}
	o := res.Outcome
	fmt.Printf("%s", o.Kind)
	if o.TaskID != "" {
		fmt.Printf(" task=%s", o.TaskID)
	}
	if o.TargetID != "" {
		fmt.Printf(" target=%s", o.TargetID)
	}
	if o.Reason != "" {
		fmt.Printf(" (%s)", o.Reason)
	}
	fmt.Println()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
