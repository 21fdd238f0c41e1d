package remote

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{"valid", "192.168.1.10:9874", New(192, 168, 1, 10, 9874), false},
		{"zero port", "10.0.0.1:0", New(10, 0, 0, 1, 0), false},
		{"missing port", "10.0.0.1", Address{}, true},
		{"port overflow", "10.0.0.1:70000", Address{}, true},
		{"ipv6", "[::1]:9874", Address{}, true},
		{"hostname", "device.local:9874", Address{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAddressStrings(t *testing.T) {
	a := New(192, 168, 4, 16, 9874)

	if got := a.String(); got != "192.168.4.16:9874" {
		t.Errorf("String() = %s, want 192.168.4.16:9874", got)
	}
	if got := a.Host(); got != "192.168.4.16" {
		t.Errorf("Host() = %s, want 192.168.4.16", got)
	}
	if got := a.CacheKey(); got != "192_168_4_16_9874" {
		t.Errorf("CacheKey() = %s, want 192_168_4_16_9874", got)
	}
}
