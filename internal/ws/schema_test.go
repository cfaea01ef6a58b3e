package ws

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestWSProtocolSchema(t *testing.T) {
	compiler := jsonschema.NewCompiler()
	data, err := os.ReadFile("../../api/schema/ws_v1.schema.json")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if err := compiler.AddResource("ws_v1.schema.json", strings.NewReader(string(data))); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	schema, err := compiler.Compile("ws_v1.schema.json")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	samples := []string{
		`{"type":"auth:ok","protocol_version":"1.0","userId":"u1","displayName":"Alice"}`,
		`{"type":"error","protocol_version":"1.0","code":"room_full","message":"room is full"}`,
		`{"type":"wallet:balance","protocol_version":"1.0","balance":1000}`,
		`{"type":"room:joined","protocol_version":"1.0","room":{"id":"r1","code":"AB23C","gameKey":"spades","stake":100,"maxSeats":4,"status":"waiting","seats":[{"seat":0,"userId":"u1","displayName":"Alice","isBot":false,"ready":false,"connected":true}]},"seat":0}`,
		`{"type":"room:left","protocol_version":"1.0","roomId":"r1"}`,
		`{"type":"room:update","protocol_version":"1.0","room":{"id":"r1","code":"AB23C","gameKey":"spades","stake":100,"maxSeats":4,"status":"waiting","seats":[{"seat":0,"userId":"u1","displayName":"Alice","isBot":false,"ready":true,"connected":true}]}}`,
		`{"type":"game:state","protocol_version":"1.0","roomId":"r1","view":{"phase":"bidding"},"events":[{"name":"match:start","data":{"ordinal":1}}]}`,
		`{"type":"game:ended","protocol_version":"1.0","summary":{"matchId":"m1","roomId":"r1","gameKey":"spades","stake":100,"status":"settled","outcomes":{"u1":"win","u2":"lose"},"net":{"u1":100,"u2":-100}}}`,
	}

	for i, s := range samples {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			t.Fatalf("unmarshal sample %d: %v", i, err)
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("schema validate sample %d: %v", i, err)
		}
	}
}

func TestWSProtocolSchemaRejectsBadEvents(t *testing.T) {
	compiler := jsonschema.NewCompiler()
	data, err := os.ReadFile("../../api/schema/ws_v1.schema.json")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if err := compiler.AddResource("ws_v1.schema.json", strings.NewReader(string(data))); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	schema, err := compiler.Compile("ws_v1.schema.json")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	bad := []string{
		`{"type":"auth:ok","userId":"u1","displayName":"Alice"}`,
		`{"type":"wallet:balance","protocol_version":"1.0","balance":-1}`,
		`{"type":"game:ended","protocol_version":"1.0","summary":{"matchId":"m1","roomId":"r1","status":"settled","outcomes":{"u1":"victory"},"net":{"u1":100}}}`,
	}
	for i, s := range bad {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			t.Fatalf("unmarshal sample %d: %v", i, err)
		}
		if err := schema.Validate(v); err == nil {
			t.Fatalf("expected sample %d to fail validation", i)
		}
	}
}
