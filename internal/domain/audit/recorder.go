// Package audit provides the domain contract for the audit trail.
// The PostgreSQL implementation lives in infrastructure; services record
// through the Recorder interface inside their business transaction, so a
// mutation and its trail commit or roll back together.
package audit

import (
	"context"

	"batchline/internal/core/id"
)

// Action identifies what happened to the audited entity.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionCommit   Action = "commit"
	ActionAdjust   Action = "adjust"
	ActionTransfer Action = "transfer"
	ActionSplit    Action = "split"
	ActionScrap    Action = "scrap"
)

// Recorder records audit entries. Implementations resolve the operator
// from context.
type Recorder interface {
	// Record writes one audit entry for the entity.
	Record(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
}

// Nop drops every entry. For tests and tooling that do not keep a trail.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, string, id.ID, Action, map[string]any) error {
	return nil
}

var _ Recorder = Nop{}
