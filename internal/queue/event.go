// Package queue implements the asynchronous notification pipeline: the
// outbox relay that turns committed notification rows into dispatch jobs,
// the RabbitMQ publisher, and the delivery worker that drains the queue.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// Queue topology.  Dispatch jobs live on a durable queue bound to the
// default exchange; deliveries that exhaust their retries are dead-lettered
// to notification.dead for manual inspection.
const (
	DispatchQueue = "notification.dispatch"
	DeadExchange  = "notification.dlx"
	DeadQueue     = "notification.dead"
)

// DispatchJob is the persisted payload pushed onto the dispatch queue, one
// per notification record.  MessageID is unique per publish and lets the
// worker log duplicate deliveries, which at-least-once semantics permit.
type DispatchJob struct {
	MessageID      string                    `json:"message_id"`
	NotificationID uint64                    `json:"notification_id"`
	ToUserID       uint64                    `json:"to_user_id"`
	Type           string                    `json:"type"`
	Channel        model.Channel             `json:"channel"`
	Payload        model.NotificationPayload `json:"payload"`
}

// DecodeJob unmarshals a dispatch job from a queue message body.
func DecodeJob(body []byte) (DispatchJob, error) {
	var job DispatchJob
	if err := json.Unmarshal(body, &job); err != nil {
		return DispatchJob{}, fmt.Errorf("decode dispatch job: %w", err)
	}
	return job, nil
}
