package process

import (
	"fmt"
	"time"
)

// DefaultGracePeriod is how long a canceled engine process gets to exit after
// the interrupt before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Config describes how to launch the external engine binary.
// The operation name is appended to Args on every call.
type Config struct {
	Command     string            `yaml:"command" json:"command" mapstructure:"command"`
	Args        []string          `yaml:"args" json:"args" mapstructure:"args"`
	Environment map[string]string `yaml:"env" json:"env" mapstructure:"env"`
	Dir         string            `yaml:"dir" json:"dir" mapstructure:"dir"`
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Command == "" {
		return fmt.Errorf("process engine: command is required")
	}
	return nil
}

func (c Config) environ() []string {
	env := make([]string, 0, len(c.Environment))
	for k, v := range c.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
