package config

import (
	"encoding/json"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ExclusiveChannel != 0 || cfg.SDSChannel != 0 {
		t.Errorf("defaults = channel %d, sds %d, want 0, 0", cfg.ExclusiveChannel, cfg.SDSChannel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidateChannelRanges(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{ExclusiveChannel: 15, SDSChannel: 15}, false},
		{"exclusive too high", Config{ExclusiveChannel: 16}, true},
		{"exclusive negative", Config{ExclusiveChannel: -1}, true},
		{"sds too high", Config{SDSChannel: 16}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	cfg := &Config{
		InPort:           "Volt 2",
		OutPort:          "Volt 2",
		ExclusiveChannel: 3,
		SDSChannel:       1,
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Config
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != *cfg {
		t.Errorf("got %+v, want %+v", got, *cfg)
	}
}
