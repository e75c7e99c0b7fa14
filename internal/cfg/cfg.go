package cfg

import (
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Debug              bool   `env:"MPIND_DEBUG"`
	LockPath           string `env:"MPIND_LOCK_PATH"            envDefault:"/run/mpind/mpind.lock"`
	Pretend            bool   `env:"MPIND_PRETEND"`
	RaiseMemlockRlimit bool   `env:"MPIND_RAISE_MEMLOCK_RLIMIT" envDefault:"true"`
	SocketPath         string `env:"MPIND_SOCKET_PATH"          envDefault:"/run/mpind/mpind.sock"`
}

func Parse() (Config, error) {
	return env.ParseAs[Config]()
}
