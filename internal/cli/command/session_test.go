package command

import (
	"strings"
	"testing"

	"github.com/robustmq/robustmq-go/internal/placement"
	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

func TestSessionCommand_Structure(t *testing.T) {
	cmd := SessionCommand()
	if cmd == nil {
		t.Fatal("SessionCommand returned nil")
	}

	if cmd.Name != "session" {
		t.Errorf("Name = %q, want %q", cmd.Name, "session")
	}

	if len(cmd.Aliases) == 0 || cmd.Aliases[0] != "sess" {
		t.Error("expected alias 'sess'")
	}

	subNames := make(map[string]bool)
	for _, sub := range cmd.Subcommands {
		subNames[sub.Name] = true
	}

	for _, name := range []string{"list", "get"} {
		if !subNames[name] {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func sampleMqttSession() placement.MqttSession {
	return placement.MqttSession{
		ClientID:      "device-001",
		BrokerID:      "broker-1",
		ConnectionID:  42,
		ReconnectTime: 1000,
		DistinctTime:  0,
	}
}

func encodedSession(t *testing.T, s placement.MqttSession) []byte {
	t.Helper()
	b, err := rpcpool.EncodePayload(s)
	if err != nil {
		t.Fatalf("encode session: %v", err)
	}
	return b
}

func TestSessionList_Success(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	server.handle(rpcpool.ServiceMqtt, rpcpool.InterfaceListSession, func(req *rpcpool.Envelope) (any, error) {
		return rpcpool.ListSessionReply{Sessions: [][]byte{encodedSession(t, sampleMqttSession())}}, nil
	})

	ctx := testContext(server, map[string]any{"output": "json"}, nil)
	if err := sessionList(ctx); err != nil {
		t.Errorf("sessionList() error = %v", err)
	}
}

func TestSessionList_Empty(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	server.handle(rpcpool.ServiceMqtt, rpcpool.InterfaceListSession, func(req *rpcpool.Envelope) (any, error) {
		return rpcpool.ListSessionReply{}, nil
	})

	ctx := testContext(server, map[string]any{"output": "table"}, nil)
	if err := sessionList(ctx); err != nil {
		t.Errorf("sessionList() error = %v", err)
	}
}

func TestSessionGet_Success(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	server.handle(rpcpool.ServiceMqtt, rpcpool.InterfaceListSession, func(req *rpcpool.Envelope) (any, error) {
		return rpcpool.ListSessionReply{Sessions: [][]byte{encodedSession(t, sampleMqttSession())}}, nil
	})

	ctx := testContext(server, map[string]any{"output": "json"}, []string{"device-001"})
	if err := sessionGet(ctx); err != nil {
		t.Errorf("sessionGet() error = %v", err)
	}
}

func TestSessionGet_MissingID(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	ctx := testContext(server, nil, nil)
	err := sessionGet(ctx)
	if err == nil {
		t.Error("sessionGet() expected error for missing ID")
	}
	if !strings.Contains(err.Error(), "client ID required") {
		t.Errorf("expected 'client ID required' error, got: %v", err)
	}
}

func TestSessionGet_NotFound(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	server.handle(rpcpool.ServiceMqtt, rpcpool.InterfaceListSession, func(req *rpcpool.Envelope) (any, error) {
		return rpcpool.ListSessionReply{Sessions: [][]byte{encodedSession(t, sampleMqttSession())}}, nil
	})

	ctx := testContext(server, map[string]any{"output": "json"}, []string{"nonexistent"})
	if err := sessionGet(ctx); err == nil {
		t.Error("sessionGet() expected error for not found")
	}
}

func TestOutputSessions_TableFormat(t *testing.T) {
	flags := &GlobalFlags{Output: "table"}
	err := outputSessions(flags, []placement.MqttSession{sampleMqttSession()})
	if err != nil {
		t.Errorf("outputSessions() error = %v", err)
	}
}

func TestOutputSessions_JSONFormat(t *testing.T) {
	flags := &GlobalFlags{Output: "json"}
	err := outputSessions(flags, []placement.MqttSession{sampleMqttSession()})
	if err != nil {
		t.Errorf("outputSessions() error = %v", err)
	}
}

func TestOutputSessions_Empty(t *testing.T) {
	flags := &GlobalFlags{Output: "table"}
	if err := outputSessions(flags, nil); err != nil {
		t.Errorf("outputSessions() error = %v", err)
	}
}

func TestTruncateID_Extended(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"short", "short"},
		{"exactly16chars!!", "exactly16chars!!"},
		{"device-0123456789abcdef", "device-012345..."},
		{"a", "a"},
		{"", ""},
	}

	for _, tt := range tests {
		got := truncateID(tt.input)
		if got != tt.want {
			t.Errorf("truncateID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
