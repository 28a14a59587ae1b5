package aggregate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gregfu05/api-aggregator/internal/db"
)

type AssetLister interface {
	ListActiveAssets(ctx context.Context) ([]db.Asset, error)
}

// Warmer re-aggregates the active watch list on a schedule so the cache entry
// for it is hot before anyone asks. Warm runs one aggregation; pair it with a
// Scheduler for the loop.
type Warmer struct {
	assets AssetLister
	svc    *Service
	window int
	log    *slog.Logger
}

func NewWarmer(assets AssetLister, svc *Service, windowSeconds int, log *slog.Logger) *Warmer {
	if log == nil {
		log = slog.Default()
	}
	return &Warmer{assets: assets, svc: svc, window: windowSeconds, log: log}
}

func (w *Warmer) Warm(ctx context.Context) error {
	assets, err := w.assets.ListActiveAssets(ctx)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		w.log.Info("cache warm skipped, watch list is empty")
		return nil
	}

	symbols := make([]string, 0, len(assets))
	for _, asset := range assets {
		symbols = append(symbols, asset.Symbol)
	}

	payload, err := w.svc.Aggregate(ctx, strings.Join(symbols, ","), w.window)
	if err != nil {
		return err
	}

	w.log.Info("cache warmed",
		"symbols", len(symbols),
		"records", len(payload.Assets),
		"warnings", len(payload.Meta.Warnings),
		"cache", payload.Meta.Cache,
	)
	return nil
}
