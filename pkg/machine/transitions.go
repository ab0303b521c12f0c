// Package machine implements the per-node finite-state machine that encodes
// the legal lifecycle of a unit of work and drives its side-effecting
// callbacks.
package machine

import "github.com/pipecraft/campd/pkg/models"

// Trigger names one edge of the transition table.
type Trigger string

const (
	TriggerPrepare   Trigger = "prepare"
	TriggerStart     Trigger = "start"
	TriggerFinish    Trigger = "finish"
	TriggerBlock     Trigger = "block"
	TriggerFail      Trigger = "fail"
	TriggerPause     Trigger = "pause"
	TriggerResume    Trigger = "resume"
	TriggerUnblock   Trigger = "unblock"
	TriggerForce     Trigger = "force"
	TriggerUnprepare Trigger = "unprepare"
	TriggerStop      Trigger = "stop"
	TriggerRetry     Trigger = "retry"
	TriggerReset     Trigger = "reset"
)

// guardKind selects which guard a transition consults before committing.
type guardKind int

const (
	guardNone guardKind = iota
	guardStartable
	guardDoneRunning
)

// Transition is one row of the table: trigger, legal sources, destination,
// and the guard that must pass.
type Transition struct {
	Trigger Trigger
	Sources []models.Status
	Dest    models.Status
	guard   guardKind
}

// Table is the shared transition table every node kind operates under.
var Table = []Transition{
	{Trigger: TriggerPrepare, Sources: []models.Status{models.StatusWaiting}, Dest: models.StatusReady},
	{Trigger: TriggerStart, Sources: []models.Status{models.StatusReady}, Dest: models.StatusRunning, guard: guardStartable},
	{Trigger: TriggerFinish, Sources: []models.Status{models.StatusRunning}, Dest: models.StatusAccepted, guard: guardDoneRunning},
	{Trigger: TriggerBlock, Sources: []models.Status{models.StatusRunning}, Dest: models.StatusBlocked},
	{Trigger: TriggerFail, Sources: []models.Status{models.StatusWaiting, models.StatusReady, models.StatusRunning}, Dest: models.StatusFailed},
	{Trigger: TriggerPause, Sources: []models.Status{models.StatusRunning}, Dest: models.StatusPaused},
	{Trigger: TriggerResume, Sources: []models.Status{models.StatusPaused}, Dest: models.StatusRunning},
	{Trigger: TriggerUnblock, Sources: []models.Status{models.StatusBlocked}, Dest: models.StatusRunning},
	{Trigger: TriggerForce, Sources: []models.Status{models.StatusFailed}, Dest: models.StatusAccepted},
	{Trigger: TriggerUnprepare, Sources: []models.Status{models.StatusReady}, Dest: models.StatusWaiting},
	{Trigger: TriggerStop, Sources: []models.Status{models.StatusPaused}, Dest: models.StatusReady},
	{Trigger: TriggerRetry, Sources: []models.Status{models.StatusFailed}, Dest: models.StatusReady},
	{Trigger: TriggerReset, Sources: []models.Status{models.StatusFailed}, Dest: models.StatusWaiting},
}

// transitionFor finds the table row for trigger applicable from state.
func transitionFor(trigger Trigger, from models.Status) (*Transition, bool) {
	for i := range Table {
		t := &Table[i]
		if t.Trigger != trigger {
			continue
		}

		for _, src := range t.Sources {
			if src == from {
				return t, true
			}
		}
	}

	return nil, false
}

// TriggerFor searches the table for the trigger whose (source, destination)
// pair realizes the desired transition. This is how the scheduler maps a
// task's (previous, desired) statuses onto a trigger.
func TriggerFor(from, to models.Status) (Trigger, bool) {
	for i := range Table {
		t := &Table[i]
		if t.Dest != to {
			continue
		}

		for _, src := range t.Sources {
			if src == from {
				return t.Trigger, true
			}
		}
	}

	return "", false
}
