package config

import "fmt"

// StorageConfig points the flat-file subscriber store at its data directory.
type StorageConfig struct {
	Dir string `koanf:"dir"`
}

func (c *StorageConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("storage directory is not configured")
	}
	return nil
}
