package droptarget

import (
	"strings"
	"time"
)

const (
	// BucketID is the reserved id of the unassigned pool.
	BucketID = "unassigned"

	cellPrefix    = "cell-"
	cellDelimiter = "__"
)

// EncodeCell builds the drop-target id of the (agentID, day) cell, for
// example "cell-1__2025-04-29". The date is written in its own location.
func EncodeCell(agentID string, day time.Time) string {
	var b strings.Builder
	b.WriteString(cellPrefix)
	b.WriteString(agentID)
	b.WriteString(cellDelimiter)
	b.WriteString(day.Format(time.DateOnly))
	return b.String()
}

// Target is the decoded meaning of a drop-target id. It is one of
// CellTarget, BucketTarget or Unresolved.
type Target interface {
	Kind() Kind
}

type Kind string

const (
	KindCell       Kind = "cell"
	KindBucket     Kind = "bucket"
	KindUnresolved Kind = "unresolved"
)

type CellTarget struct {
	AgentID string
	Date    time.Time
}

func (CellTarget) Kind() Kind { return KindCell }

type BucketTarget struct{}

func (BucketTarget) Kind() Kind { return KindBucket }

type Unresolved struct {
	Raw    string
	Reason string
}

func (Unresolved) Kind() Kind { return KindUnresolved }
