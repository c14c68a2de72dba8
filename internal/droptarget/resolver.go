package droptarget

import (
	"strings"
	"time"

	"github.com/kazz187/agentcal/internal/calendar"
)

// Data is the payload a rendering layer attaches to a drop target. A cell
// carries its agent id, the bucket carries none.
type Data struct {
	AgentID *string `json:"agent_id,omitempty"`
}

type Resolver struct {
	loc *time.Location
}

// NewResolver returns a resolver that reads date-only ids as midnight in loc.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

// Resolve never fails: ids it cannot decode come back as Unresolved. The
// cell shape is checked first, so it wins over the bucket.
func (r *Resolver) Resolve(raw string, data Data) Target {
	if rest, ok := strings.CutPrefix(raw, cellPrefix); ok {
		return r.resolveCell(raw, rest, data)
	}
	if raw == BucketID {
		if data.AgentID != nil && *data.AgentID != "" {
			return Unresolved{Raw: raw, Reason: "bucket carries an agent id"}
		}
		return BucketTarget{}
	}
	if raw == "" {
		return Unresolved{Raw: raw, Reason: "empty target id"}
	}
	return Unresolved{Raw: raw, Reason: "unknown target id"}
}

func (r *Resolver) resolveCell(raw, rest string, data Data) Target {
	// Agent ids may contain the delimiter, ISO dates never do.
	i := strings.LastIndex(rest, cellDelimiter)
	if i < 0 {
		return Unresolved{Raw: raw, Reason: "cell id has no date"}
	}
	agentID, datePart := rest[:i], rest[i+len(cellDelimiter):]
	if agentID == "" {
		return Unresolved{Raw: raw, Reason: "cell id has no agent"}
	}
	date, err := calendar.ParseDate(datePart, r.loc)
	if err != nil {
		return Unresolved{Raw: raw, Reason: "cell id has an invalid date"}
	}
	if data.AgentID != nil && *data.AgentID != agentID {
		return Unresolved{Raw: raw, Reason: "target data disagrees with the cell id"}
	}
	return CellTarget{AgentID: agentID, Date: date}
}
