package serializer

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Grunthos/TaskQueue/internal/task"
)

// TaskFactory returns a fresh, zero-valued instance of a registered task
// payload type, ready to be the target of json.Unmarshal.
type TaskFactory func() task.Payload

// EventFactory returns a fresh, zero-valued instance of a registered
// event data type, ready to be the target of json.Unmarshal.
type EventFactory func() any

// envelope wraps an encoded payload with the type name needed to decode
// it back into a concrete Go type.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// JSONCodec is the default Codec: it wraps json.Marshal/Unmarshal output
// in an envelope carrying a type name, resolved through a small registry
// the embedder populates with RegisterTaskType/RegisterEventType at
// startup, before recovering any tasks.
type JSONCodec struct {
	mu         sync.RWMutex
	taskTypes  map[string]TaskFactory
	eventTypes map[string]EventFactory
}

// NewJSONCodec returns an empty JSONCodec. Register task and event types
// before decoding anything of that kind.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{
		taskTypes:  make(map[string]TaskFactory),
		eventTypes: make(map[string]EventFactory),
	}
}

// RegisterTaskType associates a type name with a factory for decoding.
func (c *JSONCodec) RegisterTaskType(name string, factory TaskFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.taskTypes[name] = factory
}

// RegisterEventType associates a type name with a factory for decoding.
func (c *JSONCodec) RegisterEventType(name string, factory EventFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventTypes[name] = factory
}

// EncodeTask implements Codec.
func (c *JSONCodec) EncodeTask(payload task.Payload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal task payload: %w", err)
	}
	return json.Marshal(envelope{Type: payload.TypeName(), Data: data})
}

// DecodeTask implements Codec.
func (c *JSONCodec) DecodeTask(data []byte) (task.Payload, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Kind: "task", Err: err}
	}

	c.mu.RLock()
	factory, ok := c.taskTypes[env.Type]
	c.mu.RUnlock()
	if !ok {
		return nil, &DecodeError{
			Kind:     "task",
			TypeName: env.Type,
			Err:      fmt.Errorf("no task type registered for %q", env.Type),
		}
	}

	payload := factory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, &DecodeError{Kind: "task", TypeName: env.Type, Err: err}
	}
	return payload, nil
}

// EncodeEvent implements Codec. The concrete type must report its
// registered name through a TypeName() string method; data without one
// is rejected, and EncodeEventAs takes the name explicitly instead.
func (c *JSONCodec) EncodeEvent(data any) ([]byte, error) {
	named, ok := data.(interface{ TypeName() string })
	if !ok {
		return nil, fmt.Errorf("event data of type %T does not implement TypeName() string", data)
	}
	return c.EncodeEventAs(named.TypeName(), data)
}

// EncodeEventAs encodes data under an explicit type name, for event data
// types that do not implement TypeName() themselves.
func (c *JSONCodec) EncodeEventAs(typeName string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	return json.Marshal(envelope{Type: typeName, Data: raw})
}

// DecodeEvent implements Codec.
func (c *JSONCodec) DecodeEvent(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Kind: "event", Err: err}
	}

	c.mu.RLock()
	factory, ok := c.eventTypes[env.Type]
	c.mu.RUnlock()
	if !ok {
		return nil, &DecodeError{
			Kind:     "event",
			TypeName: env.Type,
			Err:      fmt.Errorf("no event type registered for %q", env.Type),
		}
	}

	value := factory()
	if err := json.Unmarshal(env.Data, value); err != nil {
		return nil, &DecodeError{Kind: "event", TypeName: env.Type, Err: err}
	}
	return value, nil
}

var _ Codec = (*JSONCodec)(nil)
