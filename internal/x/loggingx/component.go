package loggingx

import (
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
)

// WithComponent returns a logger that prefixes each message with the name of
// a relay component, for example "[replay] ".
//
// If target is nil, logging.DefaultLogger is used.
func WithComponent(target logging.Logger, name string) logging.Logger {
	if target == nil {
		target = logging.DefaultLogger
	}

	return &component{
		target: target,
		prefix: "[" + name + "] ",
	}
}

type component struct {
	target logging.Logger
	prefix string
}

func (c *component) Log(f string, v ...interface{}) {
	c.target.LogString(c.prefix + fmt.Sprintf(f, v...))
}

func (c *component) LogString(s string) {
	c.target.LogString(c.prefix + s)
}

func (c *component) Debug(f string, v ...interface{}) {
	if c.target.IsDebug() {
		c.target.DebugString(c.prefix + fmt.Sprintf(f, v...))
	}
}

func (c *component) DebugString(s string) {
	c.target.DebugString(c.prefix + s)
}

func (c *component) IsDebug() bool {
	return c.target.IsDebug()
}
