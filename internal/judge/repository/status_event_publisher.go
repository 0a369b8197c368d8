package repository

import (
	"context"
	"encoding/json"
	"time"

	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"

	"codearena/internal/common/mq"
	"codearena/internal/judge/model"
)

// StatusEventPublisher publishes status events for async consumers,
// leaderboards and notification fan-out live downstream of this topic.
type StatusEventPublisher interface {
	PublishFinalStatus(ctx context.Context, record model.StatusRecord) error
}

// MQStatusEventPublisher publishes status events to the message queue.
type MQStatusEventPublisher struct {
	queue mq.Producer
	topic string
}

// NewMQStatusEventPublisher creates a queue-backed publisher.
func NewMQStatusEventPublisher(queue mq.Producer, topic string) *MQStatusEventPublisher {
	return &MQStatusEventPublisher{queue: queue, topic: topic}
}

// PublishFinalStatus publishes the terminal event of a submission.
func (p *MQStatusEventPublisher) PublishFinalStatus(ctx context.Context, record model.StatusRecord) error {
	if p == nil || p.queue == nil {
		logger.Errorf(ctx, "status publisher is not configured")
		return appErr.New(appErr.QueueError).WithMessage("status publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("status topic is required")
	}
	if record.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}

	event := model.StatusEvent{
		Type:      model.StatusEventFinal,
		Record:    record,
		CreatedAt: time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return appErr.Wrapf(err, appErr.PublishFailed, "marshal status event for %s failed", record.SubmissionID)
	}

	message := mq.NewMessage(payload)
	message.ID = record.SubmissionID
	if err := p.queue.Publish(ctx, p.topic, message); err != nil {
		logger.Errorf(ctx, "publish status event for %s failed: %v", record.SubmissionID, err)
		return appErr.Wrapf(err, appErr.PublishFailed, "publish status event for %s failed", record.SubmissionID)
	}
	return nil
}
