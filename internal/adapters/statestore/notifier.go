package statestore

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"

	"github.com/basti85goe/geobridge/pkg/logger"
)

// changeTopic is the single bus topic carrying all state changes; pattern
// filtering happens per subscription.
const changeTopic = "state.changes"

// defaultBusBuffer bounds the per-subscriber output channel.
const defaultBusBuffer = 1024

// Notifier fans state changes out to subscribers over an in-process
// watermill gochannel bus.
type Notifier struct {
	bus *gochannel.GoChannel
	log logger.Logger
}

// NewNotifier creates a notifier backed by a fresh gochannel bus.
func NewNotifier(log logger.Logger) *Notifier {
	if log == nil {
		log = logger.Get().Named("statestore")
	}
	bus := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: defaultBusBuffer},
		&watermillLogger{log: log},
	)
	return &Notifier{bus: bus, log: log}
}

// Publish emits one change to all current subscribers.
func (n *Notifier) Publish(ctx context.Context, ch Change) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return n.bus.Publish(changeTopic, msg)
}

// Subscribe starts a goroutine delivering matching changes to handler until
// ctx is canceled or the bus closes.
func (n *Notifier) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	if err := ValidatePattern(pattern); err != nil {
		return err
	}
	msgs, err := n.bus.Subscribe(ctx, changeTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			var ch Change
			if err := json.Unmarshal(msg.Payload, &ch); err != nil {
				n.log.Error(ctx, "undecodable change message", logger.Error(err))
				msg.Ack()
				continue
			}
			if MatchPattern(pattern, ch.Path) {
				handler(ctx, ch)
			}
			msg.Ack()
		}
	}()

	return nil
}

// Close shuts the bus down; subscriber channels drain and close.
func (n *Notifier) Close() error {
	return n.bus.Close()
}

// watermillLogger bridges watermill's LoggerAdapter onto pkg/logger.
type watermillLogger struct {
	log    logger.Logger
	fields watermill.LogFields
}

func (w *watermillLogger) toFields(fields watermill.LogFields) []logger.Field {
	merged := w.fields.Add(fields)
	out := make([]logger.Field, 0, len(merged))
	for k, v := range merged {
		out = append(out, logger.Any(k, v))
	}
	return out
}

func (w *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.log.Error(context.Background(), msg, append(w.toFields(fields), logger.Error(err))...)
}

func (w *watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.log.Info(context.Background(), msg, w.toFields(fields)...)
}

func (w *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.log.Debug(context.Background(), msg, w.toFields(fields)...)
}

func (w *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.log.Debug(context.Background(), msg, w.toFields(fields)...)
}

func (w *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{log: w.log, fields: w.fields.Add(fields)}
}
