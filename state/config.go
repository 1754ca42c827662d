package state

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Role decides whether a channel connects to an existing socket or owns it.
type Role string

const (
	RoleDial   Role = "dial"
	RoleListen Role = "listen"
)

// ChannelCfg describes one of the two sockets the daemon talks through.
type ChannelCfg struct {
	Path string `yaml:"path"`
	Role Role   `yaml:"role,omitempty"`
}

// LocalCfg represents local node-level configuration
type LocalCfg struct {
	Routing          ChannelCfg    `yaml:"routing"`                       // route-exchange socket
	Forward          ChannelCfg    `yaml:"forward"`                       // forwarding-query socket
	PulseInterval    time.Duration `yaml:"pulse_interval,omitempty"`      // how often routes are aged and advertised
	RecordRemainTime time.Duration `yaml:"record_remain_time,omitempty"`  // how long an unrefreshed route is kept
	WaitTimeout      time.Duration `yaml:"wait_timeout,omitempty"`        // upper bound on the main loop sleep
	LogPath          string        `yaml:"log_path,omitempty"`            // if not empty, strand will also write to this file
	DebugAddr        string        `yaml:"debug_addr,omitempty"`          // if not empty, expvar and metrics are served here
}

func DefaultLocalCfg() LocalCfg {
	return LocalCfg{
		Routing:          ChannelCfg{Role: RoleDial},
		Forward:          ChannelCfg{Role: RoleDial},
		PulseInterval:    PulseInterval,
		RecordRemainTime: RecordRemainTime,
		WaitTimeout:      WaitTimeout,
	}
}

// ApplyDefaults fills every zero field from DefaultLocalCfg.
func (c *LocalCfg) ApplyDefaults() {
	def := DefaultLocalCfg()
	if c.Routing.Role == "" {
		c.Routing.Role = def.Routing.Role
	}
	if c.Forward.Role == "" {
		c.Forward.Role = def.Forward.Role
	}
	if c.PulseInterval == 0 {
		c.PulseInterval = def.PulseInterval
	}
	if c.RecordRemainTime == 0 {
		c.RecordRemainTime = def.RecordRemainTime
	}
	if c.WaitTimeout == 0 {
		c.WaitTimeout = def.WaitTimeout
	}
}

func ReadLocalCfg(path string) (*LocalCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg LocalCfg
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}
