package queue

import (
	"testing"

	"github.com/hibiken/asynq"
)

func TestTransformTaskRoundTrip(t *testing.T) {
	in := TransformPayload{RecordID: "r1", ObjectKey: "uploads/r1/a.pdf", MediaType: "application/pdf", FileName: "a.pdf"}
	task, err := NewTransformTask(in)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TransformDocumentTask {
		t.Fatalf("unexpected type %s", task.Type())
	}
	out, err := DecodeTransform(task)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("payload mismatch: %+v vs %+v", out, in)
	}
}

func TestDecodeTransformRejectsIncompletePayload(t *testing.T) {
	cases := map[string][]byte{
		"garbage":   []byte("{"),
		"no record": []byte(`{"object_key":"k"}`),
		"no object": []byte(`{"record_id":"r"}`),
	}
	for name, body := range cases {
		if _, err := DecodeTransform(asynq.NewTask(TransformDocumentTask, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
