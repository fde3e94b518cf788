// Package worker provides a NATS worker that renders talk jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/core"
	"github.com/book-expert/yukkuri-service/internal/talk"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const handleMessageTimeout = 30 * time.Second

// ErrSubjectEmpty indicates that no subject was configured.
var ErrSubjectEmpty = errors.New("subject cannot be empty")

// Talker renders already decoded talk fields.
type Talker interface {
	Talk(ctx context.Context, fields talk.Fields) (*talk.Result, error)
}

// NatsWorker listens for talk jobs on a NATS subject and replies with the key of
// the rendered audio in the object store.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	talker         Talker
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	talker Talker,
	log *logger.Logger,
) (*NatsWorker, error) {
	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		talker:         talker,
		log:            log,
	}, nil
}

// Run starts the worker and blocks until ctx is cancelled, then drains the
// subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for talk jobs on subject: %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := parseEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse talk job: %v", err)

		return
	}

	reply, err := w.processTalkJob(ctx, event)
	if err != nil {
		w.log.Error("Failed to process talk job for workflow %s: %v", event.Header.WorkflowID, err)

		return
	}

	err = publishReplyEvent(msg, reply)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

// processTalkJob renders the job through the talk pipeline and uploads the audio.
func (w *NatsWorker) processTalkJob(ctx context.Context, event *TalkJobEvent) (*TalkCompletedEvent, error) {
	result, err := w.talker.Talk(ctx, jobFields(event))
	if err != nil {
		return nil, fmt.Errorf("failed to render talk job: %w", err)
	}

	if result.Fallback {
		w.log.Warn("Workflow %s answered with the fallback utterance (%s)",
			event.Header.WorkflowID, talk.Kind(result.Cause))
	}

	audioKey := uuid.NewString() + ".wav"

	err = w.store.Upload(ctx, audioKey, result.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	now := time.Now()

	header := event.Header
	header.EventID = uuid.NewString()
	header.Timestamp = now

	return &TalkCompletedEvent{
		Header:   header,
		AudioKey: audioKey,
		Filename: talk.Filename(now),
		Fallback: result.Fallback,
	}, nil
}

// jobFields maps a job onto the same fields an HTTP form would carry.
func jobFields(event *TalkJobEvent) talk.Fields {
	fields := make(talk.Fields, len(event.Params)+2)

	for name, value := range event.Params {
		fields[name] = value
	}

	fields[talk.FieldText] = event.Text

	if event.Native {
		fields[talk.FieldNative] = "1"
	} else {
		delete(fields, talk.FieldNative)
	}

	return fields
}

func publishReplyEvent(msg *nats.Msg, reply *TalkCompletedEvent) error {
	replyData, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseEvent(msg *nats.Msg) (*TalkJobEvent, error) {
	var event TalkJobEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}
