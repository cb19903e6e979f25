package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	DeploymentCreated       EventType = "deployment.created"
	DeploymentStatusChanged EventType = "deployment.status.changed"
	DeploymentDeleteRequest EventType = "deployment.delete.requested"
)

func (et EventType) String() string {
	return string(et)
}

func AsEventType(s string) (EventType, error) {
	switch s {
	case string(DeploymentCreated):
		return DeploymentCreated, nil
	case string(DeploymentStatusChanged):
		return DeploymentStatusChanged, nil
	case string(DeploymentDeleteRequest):
		return DeploymentDeleteRequest, nil
	default:
		return "", fmt.Errorf("'%s' is not EventType", s)
	}
}

// OutboxEvent is the durability record of a deployment change.
//
// A row exists if and only if the mutation it describes committed, because
// both are written in one transaction. PublishedAt is set once the event bus
// acknowledged the event; unpublished rows are drained in creation order.
type OutboxEvent struct {
	Id          string
	AggregateId string
	Type        EventType
	Payload     json.RawMessage
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// DeploymentEvent is the payload of every deployment OutboxEvent.
type DeploymentEvent struct {
	DeploymentId string           `json:"deployment_id"`
	OrgId        string           `json:"org_id"`
	ModelName    string           `json:"model_name"`
	Engine       string           `json:"engine"`
	Status       DeploymentStatus `json:"status"`
	Endpoint     string           `json:"endpoint,omitempty"`
	Error        string           `json:"error,omitempty"`
}

func (de DeploymentEvent) Marshal() (json.RawMessage, error) {
	return json.Marshal(de)
}

func UnmarshalDeploymentEvent(raw json.RawMessage) (DeploymentEvent, error) {
	de := DeploymentEvent{}
	if err := json.Unmarshal(raw, &de); err != nil {
		return DeploymentEvent{}, err
	}
	return de, nil
}
