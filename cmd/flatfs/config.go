package main

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/mit-pdos/go-flatfs/common"
)

const envVarPrefix = "FLATFS"

// Config supplies flag defaults from the environment, e.g. FLATFS_DISK.
type Config struct {
	Disk   string `envconfig:"DISK"   default:"flatfs.img"`
	Blocks uint64 `envconfig:"BLOCKS" default:"4096"`
	Debug  uint64 `envconfig:"DEBUG"  default:"0"`
}

func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}
	if c.Blocks <= common.FirstDataBlock {
		return nil, fmt.Errorf(
			"loading config: %s_BLOCKS must exceed %d, got %d",
			envVarPrefix,
			common.FirstDataBlock,
			c.Blocks,
		)
	}
	return &c, nil
}
