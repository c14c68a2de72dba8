package board

import (
	"fmt"

	"github.com/kazz187/agentcal/pkg/cerr"
)

type ViewMode string

const (
	ViewDay  ViewMode = "day"
	ViewWeek ViewMode = "week"
)

func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ViewDay, ViewWeek:
		return ViewMode(s), nil
	}
	return "", cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown view mode %q", s), nil).
		WithViolation("view", "must be one of day, week")
}

// Step is the distance Previous and Next move the current date.
func (v ViewMode) Step() int {
	if v == ViewWeek {
		return 7
	}
	return 1
}
