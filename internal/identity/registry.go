package identity

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/leaseline/leaseline/internal/canonical"
)

// RegistryEntry is one line of the static property-identity registry file.
type RegistryEntry struct {
	Source      string `mapstructure:"source"`
	VendorID    string `mapstructure:"vendor_id"`
	CanonicalID string `mapstructure:"canonical_id"`
}

// LoadRegistry reads the configuration-supplied registry mapping
// (source, vendor property id) -> canonical property id. A missing file is
// not an error; resolution then relies on the dynamic directory alone.
func LoadRegistry(path string) (map[string]string, error) {
	out := make(map[string]string)
	if path == "" {
		return out, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return out, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read property registry: %w", err)
	}

	var entries []RegistryEntry
	if err := v.UnmarshalKey("properties", &entries); err != nil {
		return nil, fmt.Errorf("parse property registry: %w", err)
	}

	for _, e := range entries {
		source := strings.TrimSpace(strings.ToLower(e.Source))
		vendorID := strings.TrimSpace(e.VendorID)
		canonicalID := strings.TrimSpace(e.CanonicalID)
		if source == "" || vendorID == "" || canonicalID == "" {
			continue
		}
		out[lookupKey(canonical.Source(source), vendorID)] = canonicalID
	}
	return out, nil
}

func lookupKey(source canonical.Source, vendorID string) string {
	return string(source) + "|" + strings.TrimSpace(vendorID)
}
