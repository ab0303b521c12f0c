// Package events defines the transition lifecycle events the engine
// publishes for external observers.
package events

import (
	"time"

	"github.com/pipecraft/campd/pkg/models"
)

type EventType string

// Topic is the bus topic every engine event is published on.
const Topic = "campd.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Node transition lifecycle events.
	NodeTransitionedEvent     EventType = "node.transitioned"
	NodeTransitionFailedEvent EventType = "node.transition.failed"

	// Campaign lifecycle events.
	CampaignCompletedEvent EventType = "campaign.completed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Namespace string         `json:"namespace"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps the shared event envelope.
func NewBaseEvent(eventType EventType, namespace string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Namespace: namespace,
	}
}

// NodeTransitioned announces a committed node transition.
type NodeTransitioned struct {
	BaseEvent

	NodeID  string        `json:"node_id"`
	Trigger string        `json:"trigger"`
	From    models.Status `json:"from"`
	To      models.Status `json:"to"`
}

func (e NodeTransitioned) GetType() EventType {
	return NodeTransitionedEvent
}

// NodeTransitionFailed announces a transition attempt that erred and was
// driven to a terminal-bad state.
type NodeTransitionFailed struct {
	BaseEvent

	NodeID  string        `json:"node_id"`
	Trigger string        `json:"trigger"`
	From    models.Status `json:"from"`
	Error   string        `json:"error"`
}

func (e NodeTransitionFailed) GetType() EventType {
	return NodeTransitionFailedEvent
}

// CampaignCompleted announces a campaign whose END node finished.
type CampaignCompleted struct {
	BaseEvent

	CampaignID string `json:"campaign_id"`
}

func (e CampaignCompleted) GetType() EventType {
	return CampaignCompletedEvent
}
