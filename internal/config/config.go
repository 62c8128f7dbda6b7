// Package config provides the pboted node configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/polistern/pboted/internal/paths"
)

const (
	defaultLogLevel   = "NOTICE"
	defaultSAMAddress = "127.0.0.1"
	defaultSAMTCP     = 7656
	defaultSAMUDP     = 7655
	defaultSAMName    = "pboted"
	defaultHost       = "127.0.0.1"
	defaultPort       = 7656
)

var defaultLogging = Logging{Level: defaultLogLevel}

// Node holds the external endpoint and data-directory settings, per
// spec.md §6's `host`, `port`, `datadir` keys.
type Node struct {
	Host    string
	Port    int
	DataDir string
}

func (n *Node) applyDefaults() {
	if n.Host == "" {
		n.Host = defaultHost
	}
	if n.Port <= 0 {
		n.Port = defaultPort
	}
	if n.DataDir == "" {
		n.DataDir = paths.DefaultDataDir()
	}
}

func (n *Node) validate() error {
	if n.Port <= 0 || n.Port > 65535 {
		return fmt.Errorf("config: Node: Port %d is invalid", n.Port)
	}
	return nil
}

// SAM holds the overlay bridge coordinates, per spec.md §6's `sam.*` keys.
type SAM struct {
	Address string
	TCP     int
	UDP     int
	Name    string
}

func (s *SAM) applyDefaults() {
	if s.Address == "" {
		s.Address = defaultSAMAddress
	}
	if s.TCP <= 0 {
		s.TCP = defaultSAMTCP
	}
	if s.UDP <= 0 {
		s.UDP = defaultSAMUDP
	}
	if s.Name == "" {
		s.Name = defaultSAMName
	}
}

func (s *SAM) validate() error {
	if s.TCP <= 0 || s.TCP > 65535 {
		return fmt.Errorf("config: SAM: TCP port %d is invalid", s.TCP)
	}
	if s.UDP <= 0 || s.UDP > 65535 {
		return fmt.Errorf("config: SAM: UDP port %d is invalid", s.UDP)
	}
	return nil
}

// Bootstrap holds the seed node identities a fresh Node Table starts
// from, per spec.md §4.3's "if no nodes load, bootstrap addresses from
// configuration are inserted."
type Bootstrap struct {
	Address []string
}

func (b *Bootstrap) validate() error {
	for _, addr := range b.Address {
		if strings.TrimSpace(addr) == "" {
			return errors.New("config: Bootstrap: empty address entry")
		}
	}
	return nil
}

// Logging is the pboted logging configuration, per spec.md §6's
// `loglevel`, `logfile`, `log` keys.
type Logging struct {
	Level   string
	File    string
	Disable bool
}

func (l *Logging) validate() error {
	lvl := strings.ToUpper(l.Level)
	switch lvl {
	case "CRITICAL", "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level %q is invalid", l.Level)
	}
	l.Level = lvl
	return nil
}

// Email holds the Email Worker's round intervals, an ambient tuning
// surface spec.md §4.7 names by constant (CHECK_EMAIL_INTERVAL,
// SEND_EMAIL_INTERVAL) but leaves to configuration.
type Email struct {
	CheckIntervalSeconds int
	SendIntervalSeconds  int
}

func (e *Email) applyDefaults() {
	if e.CheckIntervalSeconds <= 0 {
		e.CheckIntervalSeconds = 300
	}
	if e.SendIntervalSeconds <= 0 {
		e.SendIntervalSeconds = 30
	}
}

// Config is the top level pboted configuration.
type Config struct {
	Node      *Node
	SAM       *SAM
	Bootstrap *Bootstrap
	Logging   *Logging
	Email     *Email

	// Addresses is the static alias->Bote-address table backing the
	// default email.StaticAddressBook, per the `[addresses]` TOML table.
	Addresses map[string]string
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration, per spec.md §7's "Configuration error at
// startup: fatal; process exits with non-zero status" — the caller
// treats a non-nil return as that fatal condition.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Node == nil {
		cfg.Node = &Node{}
	}
	cfg.Node.applyDefaults()
	if err := cfg.Node.validate(); err != nil {
		return err
	}

	if cfg.SAM == nil {
		cfg.SAM = &SAM{}
	}
	cfg.SAM.applyDefaults()
	if err := cfg.SAM.validate(); err != nil {
		return err
	}

	if cfg.Bootstrap == nil {
		cfg.Bootstrap = &Bootstrap{}
	}
	if err := cfg.Bootstrap.validate(); err != nil {
		return err
	}

	if cfg.Logging == nil {
		l := defaultLogging
		cfg.Logging = &l
	}
	if err := cfg.Logging.validate(); err != nil {
		return err
	}

	if cfg.Email == nil {
		cfg.Email = &Email{}
	}
	cfg.Email.applyDefaults()

	return nil
}

// Load parses and validates the provided buffer as a config file body.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: nil buffer")
	}
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the config file at path.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Load(b)
}
