package update

import (
	"time"

	"github.com/sandeepkv93/rightontime/internal/config"
	"github.com/sandeepkv93/rightontime/internal/model"
)

type RuntimeConfig struct {
	DefaultOffsets model.OffsetSet
	PaneWidth      int
	Now            func() time.Time
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DefaultOffsets: model.DefaultOffsets.Clone(),
		PaneWidth:      58,
		Now:            time.Now,
	}
}

// RuntimeConfigFrom takes the reminder defaults from cfg.
func RuntimeConfigFrom(cfg config.Config) RuntimeConfig {
	rc := DefaultRuntimeConfig()
	if offsets := cfg.DefaultOffsets(); offsets != nil {
		rc.DefaultOffsets = offsets
	}
	return rc
}
