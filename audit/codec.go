package audit

import (
	"encoding/json"
	"time"

	"github.com/hamba/avro/v2"
)

// Codec encodes events for transport.
type Codec interface {
	Encode(ev Event) ([]byte, error)
}

// JSONCodec encodes events as JSON objects, one per record.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// EventSchema is the Avro record schema for rejection events, exported so
// hosts can register it with a schema registry.
const EventSchema = `{
	"type": "record",
	"name": "RejectionEvent",
	"namespace": "strictjson.audit",
	"fields": [
		{"name": "id", "type": "string"},
		{"name": "code", "type": "string"},
		{"name": "message", "type": "string"},
		{"name": "path", "type": "string", "default": ""},
		{"name": "key", "type": "string", "default": ""},
		{"name": "depth", "type": "int", "default": 0},
		{"name": "size", "type": "long", "default": 0},
		{"name": "trace_id", "type": "string", "default": ""},
		{"name": "occurred_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

var eventSchema = avro.MustParse(EventSchema)

// wireEvent is the Avro-facing shape of an Event: flat field types only, so
// the schema stays registry-friendly.
type wireEvent struct {
	ID         string    `avro:"id"`
	Code       string    `avro:"code"`
	Message    string    `avro:"message"`
	Path       string    `avro:"path"`
	Key        string    `avro:"key"`
	Depth      int       `avro:"depth"`
	Size       int64     `avro:"size"`
	TraceID    string    `avro:"trace_id"`
	OccurredAt time.Time `avro:"occurred_at"`
}

// AvroCodec encodes events against EventSchema.
type AvroCodec struct{}

// Encode implements Codec.
func (AvroCodec) Encode(ev Event) ([]byte, error) {
	return avro.Marshal(eventSchema, wireEvent{
		ID:         ev.ID,
		Code:       string(ev.Code),
		Message:    ev.Message,
		Path:       ev.Path,
		Key:        ev.Key,
		Depth:      ev.Depth,
		Size:       ev.Size,
		TraceID:    ev.TraceID,
		OccurredAt: ev.OccurredAt,
	})
}
