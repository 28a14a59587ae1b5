package db

import "context"

func (d *DB) InsertRequestLog(ctx context.Context, entry RequestLog) error {
	_, err := d.pool.Exec(ctx, `
		insert into public.request_logs (request_id, method, path, query, status, duration_ms, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, entry.RequestID, entry.Method, entry.Path, entry.Query, entry.Status, entry.DurationMs, entry.CreatedAt)
	return err
}

// RequestLogStatus returns the total row count and the most recent entries.
func (d *DB) RequestLogStatus(ctx context.Context, latest int) (int64, []RequestLog, error) {
	var count int64
	if err := d.pool.QueryRow(ctx, `select count(*) from public.request_logs`).Scan(&count); err != nil {
		return 0, nil, err
	}

	if latest <= 0 {
		return count, []RequestLog{}, nil
	}

	rows, err := d.pool.Query(ctx, `
		select request_id, method, path, query, status, duration_ms, created_at
		from public.request_logs
		order by created_at desc
		limit $1
	`, latest)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	logs := make([]RequestLog, 0, latest)
	for rows.Next() {
		var entry RequestLog
		if err := rows.Scan(&entry.RequestID, &entry.Method, &entry.Path, &entry.Query, &entry.Status, &entry.DurationMs, &entry.CreatedAt); err != nil {
			return 0, nil, err
		}
		logs = append(logs, entry)
	}
	return count, logs, rows.Err()
}
