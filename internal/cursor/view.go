package cursor

import (
	"context"

	"github.com/Grunthos/TaskQueue/internal/serializer"
	"github.com/Grunthos/TaskQueue/internal/store"
	"github.com/Grunthos/TaskQueue/internal/task"
)

// Reader is the narrow slice of the dispatcher a View needs: read-only
// projections over the store. Satisfied by *dispatcher.Manager.
type Reader interface {
	GetTasks(ctx context.Context, kind store.TaskKind) ([]store.TaskWithEventCount, error)
	GetTaskEvents(ctx context.Context, taskID int64) ([]store.EventRecord, error)
	GetAllEvents(ctx context.Context) ([]store.EventRecord, error)
}

// View builds decoded TaskRow/EventRow snapshots from a Reader.
type View struct {
	reader Reader
	codec  serializer.Codec
}

// NewView constructs a View.
func NewView(reader Reader, codec serializer.Codec) *View {
	return &View{reader: reader, codec: codec}
}

// Tasks returns the projection for kind, decoding each row's payload and
// exception blob. A decode failure never fails the whole call: the
// offending row falls back to a Legacy placeholder.
func (v *View) Tasks(ctx context.Context, kind store.TaskKind) ([]*TaskRow, error) {
	rows, err := v.reader.GetTasks(ctx, kind)
	if err != nil {
		return nil, err
	}

	out := make([]*TaskRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, &TaskRow{
			Record:     row.Task,
			Payload:    v.decodeTaskPayload(row.Task),
			Exception:  v.decodeException(row.Task.ExceptionBlob),
			EventCount: row.EventCount,
		})
	}
	return out, nil
}

// EventsForTask returns every event attached to taskID, oldest first.
func (v *View) EventsForTask(ctx context.Context, taskID int64) ([]*EventRow, error) {
	records, err := v.reader.GetTaskEvents(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return v.decodeEvents(records), nil
}

// AllEvents returns every event, free-standing or attached, oldest first.
func (v *View) AllEvents(ctx context.Context) ([]*EventRow, error) {
	records, err := v.reader.GetAllEvents(ctx)
	if err != nil {
		return nil, err
	}
	return v.decodeEvents(records), nil
}

func (v *View) decodeEvents(records []store.EventRecord) []*EventRow {
	out := make([]*EventRow, 0, len(records))
	for i := range records {
		rec := records[i]
		out = append(out, &EventRow{Record: &rec, Data: v.decodeEventData(rec.EventBlob)})
	}
	return out
}

func (v *View) decodeTaskPayload(rec *store.TaskRecord) task.Payload {
	payload, err := v.codec.DecodeTask(rec.PayloadBlob)
	if err != nil {
		return &task.LegacyPayload{Raw: rec.PayloadBlob, DecodeErr: err}
	}
	return payload
}

func (v *View) decodeEventData(blob []byte) any {
	if len(blob) == 0 {
		return nil
	}
	data, err := v.codec.DecodeEvent(blob)
	if err != nil {
		return &task.LegacyEvent{Raw: blob, DecodeErr: err}
	}
	return data
}

func (v *View) decodeException(blob []byte) any {
	if len(blob) == 0 {
		return nil
	}
	return v.decodeEventData(blob)
}
