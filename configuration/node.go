package configuration

import (
	"os"
	"path/filepath"
)

type NodeConfiguration struct {
	RootPath    string
	// MetricsAddr is the listen address of the prometheus endpoint, empty disables it.
	MetricsAddr string
}

func DefNodeConfiguration() *NodeConfiguration {
	homeDir, _ := os.UserHomeDir()
	return &NodeConfiguration{
		RootPath: filepath.Join(homeDir, ".blockproducer"),
	}
}

type LogConfiguration struct {
	Level    string
	Format   string
	Output   string
	FilePath string
}

func DefLogConfiguration() *LogConfiguration {
	return &LogConfiguration{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
}

func (config *LogConfiguration) Check() *LogConfiguration {
	conf := *config
	if conf.Level == "" {
		conf.Level = DefLogConfiguration().Level
	}
	if conf.Format == "" {
		conf.Format = DefLogConfiguration().Format
	}
	if conf.Output == "" {
		conf.Output = DefLogConfiguration().Output
	}

	return &conf
}
