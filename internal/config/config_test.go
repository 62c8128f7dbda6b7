package config

import "testing"

func TestLoadNilBuffer(t *testing.T) {
	if _, err := Load(nil); err == nil {
		t.Fatal("expected error loading a nil buffer")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load([]byte(""))
	if err != nil {
		t.Fatalf("load empty config: %v", err)
	}
	if cfg.Node.Port != defaultPort {
		t.Errorf("expected default port %d, got %d", defaultPort, cfg.Node.Port)
	}
	if cfg.SAM.Address != defaultSAMAddress {
		t.Errorf("expected default sam address, got %q", cfg.SAM.Address)
	}
	if cfg.Logging.Level != defaultLogLevel {
		t.Errorf("expected default log level, got %q", cfg.Logging.Level)
	}
	if cfg.Email.CheckIntervalSeconds != 300 || cfg.Email.SendIntervalSeconds != 30 {
		t.Errorf("expected default email intervals, got %+v", cfg.Email)
	}
}

func TestLoadParsesTable(t *testing.T) {
	raw := `
[node]
host = "10.0.0.1"
port = 9999
datadir = "/var/lib/pboted"

[sam]
address = "127.0.0.1"
tcp = 7656
udp = 7655
name = "pboted-node"

[bootstrap]
address = ["b64identity1", "b64identity2"]

[logging]
level = "debug"
file = "/var/log/pboted.log"
`
	cfg, err := Load([]byte(raw))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Node.Host != "10.0.0.1" || cfg.Node.Port != 9999 || cfg.Node.DataDir != "/var/lib/pboted" {
		t.Errorf("unexpected node config: %+v", cfg.Node)
	}
	if len(cfg.Bootstrap.Address) != 2 {
		t.Errorf("expected 2 bootstrap addresses, got %d", len(cfg.Bootstrap.Address))
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected uppercased log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	raw := `
[node]
port = 70000
`
	if _, err := Load([]byte(raw)); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	raw := `
[logging]
level = "VERBOSE"
`
	if _, err := Load([]byte(raw)); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestLoadRejectsEmptyBootstrapAddress(t *testing.T) {
	raw := `
[bootstrap]
address = [""]
`
	if _, err := Load([]byte(raw)); err == nil {
		t.Fatal("expected error for empty bootstrap address entry")
	}
}
