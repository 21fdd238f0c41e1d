package protocol

import "testing"

func TestCommandEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Command
		want string
	}{
		{"poll", Poll(), `{"CMD":"POLL"}`},
		{"get", Get(3), `{"CMD":"GET","VAL":{"PAGE":3}}`},
		{"set int", Set(0, 1), `{"CMD":"SET","VAL":[0,1]}`},
		{"set string", Set(4, "admin"), `{"CMD":"SET","VAL":[4,"admin"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Encode()
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode = %s, want %s", got, tt.want)
			}
			if tt.cmd.String() != tt.want {
				t.Errorf("String = %s, want %s", tt.cmd.String(), tt.want)
			}
		})
	}
}

func TestCommandUnknown(t *testing.T) {
	if _, err := (&Command{Name: "RESET"}).Encode(); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestCommandTerminateString(t *testing.T) {
	var c *Command
	if c.String() != "<terminate>" {
		t.Errorf("nil command String = %q", c.String())
	}
}
