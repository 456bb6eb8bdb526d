package serializer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grunthos/TaskQueue/internal/task"
)

type samplePayload struct {
	task.BasePayload
	Message string `json:"message"`
}

func (s *samplePayload) TypeName() string { return "sample" }

func newSampleCodec() *JSONCodec {
	c := NewJSONCodec()
	c.RegisterTaskType("sample", func() task.Payload { return &samplePayload{} })
	c.RegisterEventType("sample-event", func() any { return &sampleEvent{} })
	return c
}

type sampleEvent struct {
	Note string `json:"note"`
}

func TestJSONCodec_TaskRoundTrip(t *testing.T) {
	codec := newSampleCodec()

	original := &samplePayload{Message: "hello"}
	original.BaseDelay = 2 * time.Second

	data, err := codec.EncodeTask(original)
	require.NoError(t, err)

	decoded, err := codec.DecodeTask(data)
	require.NoError(t, err)

	sample, ok := decoded.(*samplePayload)
	require.True(t, ok)
	assert.Equal(t, "hello", sample.Message)
	assert.Equal(t, 2*time.Second, sample.BaseDelay)
}

func TestJSONCodec_DecodeTask_UnknownType(t *testing.T) {
	codec := NewJSONCodec()

	data, err := (&JSONCodec{taskTypes: map[string]TaskFactory{}}).EncodeTask(&samplePayload{Message: "x"})
	require.NoError(t, err)

	_, err = codec.DecodeTask(data)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "task", decodeErr.Kind)
	assert.Equal(t, "sample", decodeErr.TypeName)
}

func TestJSONCodec_DecodeTask_Malformed(t *testing.T) {
	codec := newSampleCodec()

	_, err := codec.DecodeTask([]byte("not json"))
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestJSONCodec_EventRoundTrip(t *testing.T) {
	codec := newSampleCodec()

	data, err := codec.EncodeEventAs("sample-event", &sampleEvent{Note: "queued"})
	require.NoError(t, err)

	decoded, err := codec.DecodeEvent(data)
	require.NoError(t, err)

	event, ok := decoded.(*sampleEvent)
	require.True(t, ok)
	assert.Equal(t, "queued", event.Note)
}
