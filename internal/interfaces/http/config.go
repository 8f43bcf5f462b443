package http_interface

import (
	"fmt"
)

const (
	minPort = 1024
	maxPort = 49151
)

type ServiceConfig struct {
	Port int
}

func (c ServiceConfig) validate() error {
	if c.Port < minPort || c.Port > maxPort {
		return fmt.Errorf("port must be in range [%d, %d]", minPort, maxPort)
	}
	return nil
}

func (c ServiceConfig) address() string {
	return fmt.Sprintf(":%d", c.Port)
}
