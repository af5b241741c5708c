package redis_client

import (
	"net"
	"time"
)

// Config locates the Redis instance shared by rate-limit counters.
type Config struct {
	Host        string        `mapstructure:"host" json:"host" yaml:"host" default:"localhost"`
	Port        string        `mapstructure:"port" json:"port" yaml:"port" default:"6379"`
	Password    string        `mapstructure:"password" json:"-" yaml:"password"`
	DB          int           `mapstructure:"db" json:"db" yaml:"db" validate:"min=0,max=15"`
	DialTimeout time.Duration `mapstructure:"dial-timeout" json:"dialTimeout" yaml:"dial-timeout" default:"3s"`
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
