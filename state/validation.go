package state

import (
	"fmt"
	"os"
	"path"
)

func PathValidator(s string) error {
	if s == "" {
		return fmt.Errorf("socket path must not be empty")
	}
	_, err := os.Stat(path.Dir(s))
	return err
}

func RoleValidator(r Role) error {
	switch r {
	case RoleDial, RoleListen:
		return nil
	}
	return fmt.Errorf("%q is not a valid role, must be %q or %q", r, RoleDial, RoleListen)
}

func ChannelValidator(name string, c ChannelCfg) error {
	if err := PathValidator(c.Path); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := RoleValidator(c.Role); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func ConfigValidator(cfg *LocalCfg) error {
	err := ChannelValidator("routing", cfg.Routing)
	if err != nil {
		return err
	}
	err = ChannelValidator("forward", cfg.Forward)
	if err != nil {
		return err
	}
	if cfg.Routing.Path == cfg.Forward.Path {
		return fmt.Errorf("routing and forward must use different sockets")
	}
	if cfg.PulseInterval <= 0 {
		return fmt.Errorf("pulse_interval must be positive")
	}
	if cfg.WaitTimeout <= 0 {
		return fmt.Errorf("wait_timeout must be positive")
	}
	// routes flap unless they survive at least two missed pulses
	if cfg.RecordRemainTime < 2*cfg.PulseInterval {
		return fmt.Errorf("record_remain_time (%s) must be at least twice pulse_interval (%s)", cfg.RecordRemainTime, cfg.PulseInterval)
	}
	return nil
}
