package mqtt

import "testing"

func TestNewSession_KeepsProvidedClientID(t *testing.T) {
	s := NewSession("client-1", 42)
	if s.ClientID != "client-1" {
		t.Fatalf("ClientID = %q, want client-1", s.ClientID)
	}
	if s.ConnectID != 42 {
		t.Fatalf("ConnectID = %d, want 42", s.ConnectID)
	}
}

func TestNewSession_GeneratesClientIDWhenEmpty(t *testing.T) {
	s := NewSession("", 1)
	if s.ClientID == "" {
		t.Fatal("NewSession with empty client_id should generate one")
	}

	other := NewSession("", 2)
	if other.ClientID == s.ClientID {
		t.Fatal("two generated client IDs should not collide")
	}
}

func TestGenerateClientID_ProducesDistinctIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id := GenerateClientID()
		if id == "" {
			t.Fatal("GenerateClientID returned empty string")
		}
		if seen[id] {
			t.Fatalf("GenerateClientID produced a duplicate: %s", id)
		}
		seen[id] = true
	}
}
