// Package identity maps vendor-native property identifiers onto canonical
// property ids. The static registry supplied via configuration wins; the
// dynamic property directory is the fallback. Rows that resolve through
// neither are dropped by the normalizers, never treated as fatal.
package identity

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/config"
	"github.com/leaseline/leaseline/pkg/repository"
)

// Params collects resolver dependencies.
type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
}

// Resolver resolves vendor property ids against the static registry and the
// dynamic directory.
type Resolver struct {
	log    *zap.Logger
	static map[string]string
	dir    repository.Repository[canonical.PropertyDirectory]
}

// NewResolver loads the static registry once at construction.
func NewResolver(p Params) (*Resolver, error) {
	static, err := LoadRegistry(p.Config.RegistryPath)
	if err != nil {
		return nil, err
	}
	log := p.Log.Named("identity.resolver")
	log.Info("property registry loaded",
		zap.String("path", p.Config.RegistryPath),
		zap.Int("entries", len(static)),
	)
	return &Resolver{
		log:    log,
		static: static,
		dir:    repository.ProvideStore[canonical.PropertyDirectory](p.DB),
	}, nil
}

// Snapshot materializes both lookup maps for one sync run so that resolution
// itself is a pure function with no store access.
func (r *Resolver) Snapshot(ctx context.Context) (*Snapshot, error) {
	rows, err := r.dir.Find(ctx, &canonical.PropertyDirectory{})
	if err != nil {
		return nil, err
	}

	directory := make(map[string]string, len(rows))
	for _, row := range rows {
		directory[lookupKey(row.Source, row.VendorPropertyID)] = row.PropertyID
	}
	return &Snapshot{static: r.static, directory: directory}, nil
}

// Snapshot is an immutable view of both identity maps.
type Snapshot struct {
	static    map[string]string
	directory map[string]string
}

// Resolve returns the canonical property id for a vendor-native id.
// The static registry takes precedence over the dynamic directory.
func (s *Snapshot) Resolve(source canonical.Source, vendorPropertyID string) (string, bool) {
	key := lookupKey(source, vendorPropertyID)
	if id, ok := s.static[key]; ok {
		return id, true
	}
	if id, ok := s.directory[key]; ok {
		return id, true
	}
	return "", false
}
