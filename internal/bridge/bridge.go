package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/mqtt"
	"github.com/nerrad567/kassalapp-todo/internal/ordering"
	"github.com/nerrad567/kassalapp-todo/internal/todo"
)

const (
	// DefaultCommandTimeout bounds one command including its refresh.
	DefaultCommandTimeout = 30 * time.Second

	commandQoS = 1
)

// Publisher sends JSON payloads. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Subscriber registers topic handlers. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger is the logging surface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Bridge.
type Options struct {
	Platform       *todo.Platform
	Store          *ordering.Store
	Publisher      Publisher
	CommandTimeout time.Duration
	Logger         Logger
}

// Bridge connects a platform and its ordering store to MQTT.
//
// Thread Safety: HandleCommand may run concurrently; serialisation of
// mutations is left to the entities.
type Bridge struct {
	platform *todo.Platform
	store    *ordering.Store
	pub      Publisher
	timeout  time.Duration
	logger   Logger
	topics   mqtt.Topics
	now      func() time.Time
}

// New creates a bridge. Nothing is published until Start.
func New(opts Options) *Bridge {
	b := &Bridge{
		platform: opts.Platform,
		store:    opts.Store,
		pub:      opts.Publisher,
		timeout:  opts.CommandTimeout,
		logger:   opts.Logger,
		now:      time.Now,
	}
	if b.timeout <= 0 {
		b.timeout = DefaultCommandTimeout
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	return b
}

// Start subscribes to commands, hooks platform and store events, and
// publishes the initial state of everything.
func (b *Bridge) Start(sub Subscriber) error {
	if err := sub.Subscribe(b.topics.AllTodoCommands(), commandQoS, b.HandleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}

	b.platform.AddListener(b.handleEvent)
	b.store.AddListener(func(ordering.Record) { b.PublishOrdering() })

	b.PublishAll()
	return nil
}

// PublishAll republishes the state of every entity and the ordering record.
// Called on start and after every broker reconnect.
func (b *Bridge) PublishAll() {
	for _, e := range b.platform.Entities() {
		b.publishState(e)
	}
	b.PublishOrdering()
}

// PublishOrdering publishes the ordering record as retained state.
func (b *Bridge) PublishOrdering() {
	if !b.store.Loaded() {
		return
	}
	if err := b.pub.PublishJSON(b.topics.OrderingState(), b.store.Snapshot(), true); err != nil {
		b.logger.Warn("publishing ordering state failed", "error", err)
	}
}

func (b *Bridge) handleEvent(ev todo.Event) {
	e, err := b.platform.Entity(ev.EntityID)
	if err != nil {
		return
	}
	b.publishState(e)

	if ev.Kind == todo.EventItemMoved {
		b.PublishOrdering()
	}
}

func (b *Bridge) publishState(e *todo.Entity) {
	items := e.Items()
	if items == nil {
		items = []todo.Item{}
	}
	state := State{
		EntityID:  e.EntityID(),
		UniqueID:  e.UniqueID(),
		Title:     e.Title(),
		Available: e.Available(),
		Features:  e.SupportedFeatures().Names(),
		Items:     items,
		Timestamp: b.now().UTC(),
	}
	if err := b.pub.PublishJSON(b.topics.TodoState(e.EntityID()), state, true); err != nil {
		b.logger.Warn("publishing entity state failed", "entity_id", e.EntityID(), "error", err)
	}
}

// HandleCommand executes one command message and publishes its ack.
// Errors are returned for logging by the MQTT client; the ack already
// carries them to the caller.
func (b *Bridge) HandleCommand(topic string, payload []byte) error {
	entityID, ok := b.topics.ParseTodoCommand(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		b.publishAck(entityID, Command{ID: uuid.NewString()}, err)
		return err
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	b.logger.Debug("received command", "command_id", cmd.ID, "entity_id", entityID, "action", cmd.Action)

	err := b.execute(entityID, cmd)
	b.publishAck(entityID, cmd, err)
	return err
}

func (b *Bridge) execute(entityID string, cmd Command) error {
	e, err := b.platform.Entity(entityID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	switch cmd.Action {
	case ActionCreate:
		return e.CreateItem(ctx, cmd.Summary, cmd.ProductID)
	case ActionUpdate:
		return e.UpdateItem(ctx, todo.ItemUpdate{UID: cmd.UID, Summary: cmd.NewSummary, Status: cmd.Status})
	case ActionDelete:
		if len(cmd.UIDs) == 0 {
			return fmt.Errorf("%w: uids required", ErrInvalidCommand)
		}
		return e.DeleteItems(ctx, cmd.UIDs)
	case ActionMove:
		if cmd.UID == "" {
			return fmt.Errorf("%w: uid required", ErrInvalidCommand)
		}
		return e.MoveItem(ctx, cmd.UID, cmd.PreviousUID)
	case ActionReset:
		return e.ResetOrder(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}

func (b *Bridge) publishAck(entityID string, cmd Command, err error) {
	ack := Ack{
		CommandID: cmd.ID,
		EntityID:  entityID,
		Action:    cmd.Action,
		Status:    AckAccepted,
		Timestamp: b.now().UTC(),
	}
	if err != nil {
		ack.Status = AckFailed
		ack.Error = &AckError{Code: errorCode(err), Message: err.Error()}
	}
	if pubErr := b.pub.PublishJSON(b.topics.TodoAck(entityID), ack, false); pubErr != nil {
		b.logger.Warn("publishing ack failed", "command_id", cmd.ID, "error", pubErr)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCommand), errors.Is(err, ErrUnknownAction):
		return ErrCodeInvalidCommand
	case errors.Is(err, todo.ErrEntityNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ordering.ErrReferenceNotFound),
		errors.Is(err, ordering.ErrItemNotFound),
		errors.Is(err, todo.ErrInvalidUID),
		errors.Is(err, todo.ErrEmptySummary),
		errors.Is(err, todo.ErrInvalidStatus):
		return ErrCodeValidation
	case errors.Is(err, todo.ErrListUnavailable):
		return ErrCodeUnavailable
	default:
		return ErrCodeUpstream
	}
}
