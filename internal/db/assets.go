package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

func (d *DB) ListAssets(ctx context.Context) ([]Asset, error) {
	rows, err := d.pool.Query(ctx, `
		select symbol, type, coalesce(name, ''), active, added_at, updated_at
		from public.assets
		order by added_at desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssets(rows)
}

func (d *DB) ListActiveAssets(ctx context.Context) ([]Asset, error) {
	rows, err := d.pool.Query(ctx, `
		select symbol, type, coalesce(name, ''), active, added_at, updated_at
		from public.assets
		where active
		order by added_at desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssets(rows)
}

// AddAsset inserts a watch-list entry if the symbol is new and returns the
// stored row either way, mirroring an upsert-on-insert-only.
func (d *DB) AddAsset(ctx context.Context, symbol string, assetType AssetType, name string) (Asset, error) {
	symbol = strings.TrimSpace(symbol)
	_, err := d.pool.Exec(ctx, `
		insert into public.assets (symbol, type, name, active, added_at, updated_at)
		values ($1, $2, nullif($3, ''), true, now(), now())
		on conflict (symbol) do nothing
	`, symbol, assetType, name)
	if err != nil {
		return Asset{}, err
	}

	asset, _, err := d.GetAsset(ctx, symbol)
	return asset, err
}

func (d *DB) GetAsset(ctx context.Context, symbol string) (Asset, bool, error) {
	row := d.pool.QueryRow(ctx, `
		select symbol, type, coalesce(name, ''), active, added_at, updated_at
		from public.assets
		where symbol = $1
	`, symbol)

	var asset Asset
	err := row.Scan(&asset.Symbol, &asset.Type, &asset.Name, &asset.Active, &asset.AddedAt, &asset.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Asset{}, false, nil
	}
	if err != nil {
		return Asset{}, false, err
	}
	return asset, true, nil
}

func (d *DB) UpdateAsset(ctx context.Context, symbol string, update AssetUpdate) (Asset, bool, error) {
	tag, err := d.pool.Exec(ctx, `
		update public.assets
		set type = coalesce($2, type),
			name = coalesce($3, name),
			active = coalesce($4, active),
			updated_at = now()
		where symbol = $1
	`, symbol, update.Type, update.Name, update.Active)
	if err != nil {
		return Asset{}, false, err
	}
	if tag.RowsAffected() == 0 {
		return Asset{}, false, nil
	}

	return d.GetAsset(ctx, symbol)
}

func (d *DB) DeleteAsset(ctx context.Context, symbol string) (int64, error) {
	tag, err := d.pool.Exec(ctx, `
		delete from public.assets where symbol = $1
	`, symbol)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanAssets(rows pgx.Rows) ([]Asset, error) {
	var assets []Asset
	for rows.Next() {
		var asset Asset
		if err := rows.Scan(&asset.Symbol, &asset.Type, &asset.Name, &asset.Active, &asset.AddedAt, &asset.UpdatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}
