package wsserver

import (
	"encoding/json"
	"testing"
)

func TestEncodeEvent(t *testing.T) {
	frame, err := EncodeEvent("workspace:log", map[string]string{"msg": "hi"})
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(frame, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["event"] != "workspace:log" {
		t.Fatalf("event = %v", got["event"])
	}
	if payload, _ := got["payload"].(map[string]any); payload["msg"] != "hi" {
		t.Fatalf("payload = %v", got["payload"])
	}

	if _, err := EncodeEvent("", nil); err == nil {
		t.Fatal("EncodeEvent(\"\") expected error")
	}
	if _, err := EncodeEvent("x", func() {}); err == nil {
		t.Fatal("EncodeEvent(unencodable) expected error")
	}
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    string
		wantErr bool
	}{
		{name: "full", frame: `{"name":"edit","args":{"tabId":"t1","content":"x"}}`, want: "edit"},
		{name: "no args", frame: `{"name":"save-all"}`, want: "save-all"},
		{name: "missing name", frame: `{"args":{}}`, wantErr: true},
		{name: "invalid json", frame: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.frame))
			if tt.wantErr {
				if err == nil {
					t.Fatal("DecodeCommand() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeCommand() error = %v", err)
			}
			if cmd.Name != tt.want {
				t.Fatalf("Name = %q, want %q", cmd.Name, tt.want)
			}
		})
	}
	cmd, _ := DecodeCommand([]byte(`{"name":"edit","args":{"tabId":"t1","content":"x"}}`))
	if cmd.Args.TabID != "t1" || cmd.Args.Content != "x" {
		t.Fatalf("Args = %+v", cmd.Args)
	}
}
