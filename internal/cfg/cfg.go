package cfg

import (
	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven configuration of the simulated devices.
// The defaults match the classic harness: two 200 MiB flat files named
// "cache" and "core" in the working directory, 128 KiB max IO size.
type Config struct {
	CachePath      string `env:"VOLSIM_CACHE_PATH"        envDefault:"cache"`
	CorePath       string `env:"VOLSIM_CORE_PATH"         envDefault:"core"`
	CapacityBytes  int64  `env:"VOLSIM_CAPACITY_BYTES"    envDefault:"209715200"`
	MaxIOSizeBytes int64  `env:"VOLSIM_MAX_IO_SIZE_BYTES" envDefault:"131072"`
	StoreKind      string `env:"VOLSIM_STORE_KIND"        envDefault:"file"`

	// Workers sets the dispatcher pool size; 0 completes requests inline.
	Workers int64 `env:"VOLSIM_WORKERS" envDefault:"0"`

	// Optional GCS object to seed a freshly created core device from.
	SeedBucket string `env:"VOLSIM_SEED_BUCKET"`
	SeedObject string `env:"VOLSIM_SEED_OBJECT"`
}

func Parse() (Config, error) {
	return env.ParseAs[Config]()
}
