package config

import (
	"fmt"
	"strings"

	"github.com/mbocharov/gumhook/pkg/config"
	"github.com/mbocharov/gumhook/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

// ProductConfig is the display metadata for one registered product.
type ProductConfig struct {
	Name string `koanf:"name"`
	ID   int64  `koanf:"id"`
}

// GumroadConfig carries the webhook-sender expectations.
type GumroadConfig struct {
	// SellerID is the expected seller id; empty disables the sender check.
	SellerID string `koanf:"sellerId"`
	// DefaultProduct is the fixed product key for single-product deployments,
	// used when a payload carries no product_permalink.
	DefaultProduct string `koanf:"defaultProduct"`
}

// AdminConfig carries the shared secret gating the admin surface.
type AdminConfig struct {
	Token string `koanf:"token"`
}

type Config struct {
	HTTPServer config.HTTPConfig        `koanf:"server"`
	Storage    config.StorageConfig     `koanf:"storage"`
	Database   config.DatabaseConfig    `koanf:"database"`
	Log        config.LogConfig         `koanf:"log"`
	PProf      config.PProfConfig       `koanf:"pprof"`
	Nats       config.NATSConfig        `koanf:"nats"`
	Shutdown   config.ShutdownConfig    `koanf:"shutdown"`
	Gumroad    GumroadConfig            `koanf:"gumroad"`
	Admin      AdminConfig              `koanf:"admin"`
	Products   map[string]ProductConfig `koanf:"products"`
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString("\n--- Server Configuration ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.HTTPServer.Timeout.ReadHeader))

	b.WriteString("\n--- Storage Configuration ---\n")
	b.WriteString(fmt.Sprintf("  storage.dir: %s\n", c.Storage.Dir))
	b.WriteString(fmt.Sprintf("  database.url: %s\n", maskURL(c.Database.URL)))
	if c.Database.Enabled() {
		b.WriteString(fmt.Sprintf("  database.timeout: %s\n", c.Database.Timeout))
	}

	b.WriteString("\n--- Gumroad ---\n")
	b.WriteString(fmt.Sprintf("  gumroad.sellerId: %s\n", maskSecret(c.Gumroad.SellerID)))
	b.WriteString(fmt.Sprintf("  gumroad.defaultProduct: %s\n", c.Gumroad.DefaultProduct))
	b.WriteString(fmt.Sprintf("  admin.token: %s\n", maskSecret(c.Admin.Token)))
	b.WriteString(fmt.Sprintf("  products: %d registered\n", len(c.Products)))

	b.WriteString("\n--- Messaging ---\n")
	b.WriteString(fmt.Sprintf("  nats.enabled: %t\n", c.Nats.Enabled))
	if c.Nats.Enabled {
		b.WriteString(fmt.Sprintf("  nats.url: %s\n", c.Nats.Url))
		b.WriteString(fmt.Sprintf("  nats.timeout: %s\n", c.Nats.Timeout))
	}

	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.address: %s\n", c.PProf.Addr))

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))

	return b.String()
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the URL by replacing the username and password with "****"
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}

func maskSecret(secret string) string {
	if secret == "" {
		return "<not configured>"
	}
	return "****"
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if !c.Database.Enabled() {
		if err := c.Storage.Validate(); err != nil {
			return err
		}
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	return nil
}
