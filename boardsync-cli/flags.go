package boardsynccli

import (
	"time"

	"github.com/urfave/cli/v2"
)

var CommonOpts struct {
	Env            string
	Port           int
	Secret         string
	AllowedOrigins cli.StringSlice
	QueueSize      int
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AuthTimeout    time.Duration
}

var EnvFlag = cli.StringFlag{
	Name:        "env",
	Usage:       "environment label attached to logs",
	Value:       "local",
	EnvVars:     []string{"ENV"},
	Destination: &CommonOpts.Env,
}
var SecretFlag = cli.StringFlag{
	Name:        "jwt-secret",
	Usage:       "shared secret used to verify bearer tokens",
	EnvVars:     []string{"JWT_SECRET"},
	Required:    true,
	Destination: &CommonOpts.Secret,
}
var AllowedOriginsFlag = cli.StringSliceFlag{
	Name:        "allowed-origins",
	Usage:       "origins allowed to open connections; '*' allows any",
	EnvVars:     []string{"ALLOWED_ORIGINS"},
	Value:       cli.NewStringSlice("*"),
	Destination: &CommonOpts.AllowedOrigins,
}
var QueueSizeFlag = cli.IntFlag{
	Name:        "queue-size",
	Usage:       "per-connection outbound queue bound",
	Value:       256,
	EnvVars:     []string{"QUEUE_SIZE"},
	Destination: &CommonOpts.QueueSize,
}
var WriteTimeoutFlag = cli.DurationFlag{
	Name:        "write-timeout",
	Usage:       "per-frame socket write deadline",
	Value:       10 * time.Second,
	EnvVars:     []string{"WRITE_TIMEOUT"},
	Destination: &CommonOpts.WriteTimeout,
}
var IdleTimeoutFlag = cli.DurationFlag{
	Name:        "idle-timeout",
	Usage:       "close connections idle for this long",
	Value:       60 * time.Second,
	EnvVars:     []string{"IDLE_TIMEOUT"},
	Destination: &CommonOpts.IdleTimeout,
}
var AuthTimeoutFlag = cli.DurationFlag{
	Name:        "auth-timeout",
	Usage:       "deadline for token verification; exceeding it is an authentication failure",
	Value:       5 * time.Second,
	EnvVars:     []string{"AUTH_TIMEOUT"},
	Destination: &CommonOpts.AuthTimeout,
}
var PortFlag = func(p int) *cli.IntFlag {
	return &cli.IntFlag{
		Name:        "port",
		Usage:       "Port to listen to",
		Value:       p,
		EnvVars:     []string{"PORT"},
		Destination: &CommonOpts.Port,
	}
}

var CommonFlags = []cli.Flag{
	&EnvFlag,
	&SecretFlag,
	&AllowedOriginsFlag,
	&QueueSizeFlag,
	&WriteTimeoutFlag,
	&IdleTimeoutFlag,
	&AuthTimeoutFlag,
}
