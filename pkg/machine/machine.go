package machine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Options controls optional machine behavior.
type Options struct {
	// PersistSnapshot controls whether the machine is serialized into a
	// Machine record at the end of every transition.
	PersistSnapshot bool
}

// FireContext carries the per-attempt audit identity: who asked for the
// transition and, for RPC-initiated work, the caller's request id.
type FireContext struct {
	Operator  string
	RequestID string
}

// Machine drives one node through the shared transition table, invoking the
// kind-specific actions and guards around every trigger and persisting both
// the outcome and an auditable history.
type Machine struct {
	node    *models.Node
	actions protocol.Actions
	deps    protocol.Dependencies
	state   models.Status
	persist bool
	logger  *slog.Logger
}

// New builds a fresh machine initialized to the node's current status. Used
// for nodes that have no persisted snapshot yet.
func New(node *models.Node, actions protocol.Actions, deps protocol.Dependencies, opts Options) *Machine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Machine{
		node:    node,
		actions: actions,
		deps:    deps,
		state:   node.Status,
		persist: opts.PersistSnapshot,
		logger:  logger.With("node_id", node.ID, "kind", node.Kind),
	}
}

// Rehydrate rebuilds a machine from its persisted snapshot, re-attaching the
// live node record and dependencies the blob never embeds.
func Rehydrate(node *models.Node, actions protocol.Actions, deps protocol.Dependencies, snap models.MachineSnapshot, opts Options) (*Machine, error) {
	if snap.SchemaVersion != models.SnapshotSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotSchema, snap.SchemaVersion)
	}

	if snap.Kind != actions.Kind() {
		return nil, fmt.Errorf("%w: snapshot %s, node %s", ErrKindMismatch, snap.Kind, actions.Kind())
	}

	err := actions.Restore(snap.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to restore kind state: %w", err)
	}

	m := New(node, actions, deps, opts)
	m.state = snap.State

	// The node row is the source of truth for status: a snapshot written
	// before a crash can trail the committed status, and a machine stuck on
	// the old state would refuse every subsequent trigger.
	if snap.State != node.Status {
		m.logger.Warn("snapshot state trails node status, following the node",
			"snapshot_state", snap.State, "node_status", node.Status)
		m.state = node.Status
	}

	return m, nil
}

// State returns the machine's current state.
func (m *Machine) State() models.Status {
	return m.state
}

// Node returns the live node record attached to the machine.
func (m *Machine) Node() *models.Node {
	return m.node
}

// Snapshot serializes the machine into its durable form: the current state
// name plus the kind-specific scalar fields.
func (m *Machine) Snapshot() models.MachineSnapshot {
	return models.MachineSnapshot{
		SchemaVersion: models.SnapshotSchemaVersion,
		Kind:          m.actions.Kind(),
		State:         m.state,
		Data:          m.actions.Snapshot(),
	}
}

// Fire attempts one trigger. It reports whether the transition committed:
// a guard that evaluates false leaves the state untouched without error
// (e.g. finish while the external job is still running). Action or guard
// failures are routed through the error handler, which records them in the
// activity log and drives prepare/start/finish attempts to failed.
func (m *Machine) Fire(ctx context.Context, trigger Trigger, fc FireContext) (bool, error) {
	tr, ok := transitionFor(trigger, m.state)
	if !ok {
		return false, &TriggerNotAllowedError{Trigger: trigger, State: m.state}
	}

	operator := fc.Operator
	if operator == "" {
		operator = "daemon"
	}

	entry := models.NewActivityLog(m.node.Namespace, m.node.ID, operator, m.state, tr.Dest)
	if fc.RequestID != "" {
		entry.Metadata["request_id"] = fc.RequestID
	}

	t := &protocol.Transition{
		Trigger: string(trigger),
		From:    m.state,
		To:      tr.Dest,
		Entry:   entry,
	}

	defer m.finalize(ctx, entry)

	err := m.runAction(ctx, trigger, t)
	if err != nil {
		return false, m.handleError(ctx, trigger, entry, err)
	}

	pass, err := m.evaluateGuard(ctx, tr.guard, t)
	if err != nil {
		return false, m.handleError(ctx, trigger, entry, err)
	}

	if !pass {
		m.logger.InfoContext(ctx, "guard rejected transition",
			"trigger", trigger, "from", m.state, "to", tr.Dest)

		return false, nil
	}

	err = m.commit(ctx, tr.Dest)
	if err != nil {
		entry.Detail["event"] = string(trigger)
		entry.Detail["error"] = err.Error()

		return false, &TransitionError{Trigger: trigger, NodeID: m.node.ID, Err: err}
	}

	return true, nil
}

// runAction dispatches the kind-specific before-transition action. Operator
// triggers (pause, retry, force, ...) have no action.
func (m *Machine) runAction(ctx context.Context, trigger Trigger, t *protocol.Transition) error {
	switch trigger {
	case TriggerPrepare:
		return m.actions.OnPrepare(ctx, m.node, t)
	case TriggerUnprepare:
		return m.actions.OnUnprepare(ctx, m.node, t)
	case TriggerStart:
		return m.actions.OnStart(ctx, m.node, t)
	case TriggerFinish:
		return m.actions.OnFinish(ctx, m.node, t)
	default:
		return nil
	}
}

func (m *Machine) evaluateGuard(ctx context.Context, guard guardKind, t *protocol.Transition) (bool, error) {
	switch guard {
	case guardStartable:
		return m.actions.IsStartable(ctx, m.node, t)
	case guardDoneRunning:
		return m.actions.IsDoneRunning(ctx, m.node, t)
	default:
		return true, nil
	}
}

// commit is the shared after-state-change callback: it moves the machine and
// its node to the destination status and persists the change.
func (m *Machine) commit(ctx context.Context, dest models.Status) error {
	err := m.deps.Store.Nodes().UpdateStatus(ctx, m.node.ID, dest)
	if err != nil {
		return fmt.Errorf("failed to persist node status: %w", err)
	}

	m.state = dest
	m.node.Status = dest
	m.node.UpdatedAt = time.Now().UTC()

	return nil
}

// handleError is the single error handler every action and guard failure
// funnels through. It records the triggering event, the error's type and its
// message, then re-fires fail for the prepare, start and finish triggers so
// erroring attempts always end in a well-defined terminal-bad state.
func (m *Machine) handleError(ctx context.Context, trigger Trigger, entry *models.ActivityLog, cause error) error {
	entry.Detail["event"] = string(trigger)
	entry.Detail["error_type"] = fmt.Sprintf("%T", cause)
	entry.Detail["error"] = cause.Error()

	terr := &TransitionError{Trigger: trigger, NodeID: m.node.ID, Err: cause}

	if trigger != TriggerPrepare && trigger != TriggerStart && trigger != TriggerFinish {
		return terr
	}

	ft, ok := transitionFor(TriggerFail, m.state)
	if !ok {
		return terr
	}

	entry.ToStatus = ft.Dest

	err := m.commit(ctx, ft.Dest)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to persist failure status", "error", err)
	}

	return terr
}

// finalize runs unconditionally at the end of every attempt: it stamps the
// draft entry, writes it if it carries detail, and serializes the machine
// when snapshot persistence is enabled. Persistence errors here are logged
// and dropped so an already committed status change is never undone.
func (m *Machine) finalize(ctx context.Context, entry *models.ActivityLog) {
	now := time.Now().UTC()
	entry.FinishedAt = &now

	if entry.HasDetail() {
		err := m.deps.Store.Activity().Append(ctx, entry)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to append activity log entry", "error", err)
		}
	}

	if !m.persist {
		return
	}

	machineID := models.NewMachineID(m.node.ID)
	if m.node.MachineID != nil {
		machineID = *m.node.MachineID
	}

	record := &models.Machine{
		ID:        machineID,
		Snapshot:  m.Snapshot(),
		UpdatedAt: now,
	}

	err := m.deps.Store.Machines().Save(ctx, record)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to persist machine snapshot", "error", err)

		return
	}

	if m.node.MachineID == nil {
		err = m.deps.Store.Nodes().SetMachineID(ctx, m.node.ID, machineID)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to reference machine from node", "error", err)

			return
		}

		m.node.MachineID = &machineID
	}
}
