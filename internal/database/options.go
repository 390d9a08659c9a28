package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"thumbsweep/internal/thumbnail"
)

const optionColumns = `id, name, suffix, method, width, height, background_color, anchor, quality`

// UpsertOption inserts or replaces a thumbnail option.
func (d *Database) UpsertOption(ctx context.Context, opt thumbnail.Option) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_option", start, err) }()

	d.mu.Lock()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO options (`+optionColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			suffix = excluded.suffix,
			method = excluded.method,
			width = excluded.width,
			height = excluded.height,
			background_color = excluded.background_color,
			anchor = excluded.anchor,
			quality = excluded.quality,
			updated_at = strftime('%s', 'now')
	`,
		opt.ID, opt.Name, opt.Suffix, string(opt.Method),
		nullInt(opt.Width), nullInt(opt.Height), nullString(opt.BackgroundColor),
		string(opt.Anchor), opt.Quality,
	)
	cancel()
	d.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to save option %s: %w", opt.ID, err)
	}
	d.notifyOptionsChanged()
	return nil
}

// DeleteOption removes an option and detaches it from every task.
func (d *Database) DeleteOption(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_option", start, err) }()

	d.mu.Lock()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	var result sql.Result
	result, err = d.db.ExecContext(ctx, "DELETE FROM options WHERE id = ?", id)
	cancel()
	d.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to delete option %s: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", ErrOptionNotFound, id)
	}
	d.notifyOptionsChanged()
	return nil
}

// GetOption returns one option by id.
func (d *Database) GetOption(ctx context.Context, id string) (thumbnail.Option, error) {
	opts, err := d.SearchAll(ctx, thumbnail.OptionCriteria{IDs: []string{id}})
	if err != nil {
		return thumbnail.Option{}, err
	}
	if len(opts) == 0 {
		return thumbnail.Option{}, fmt.Errorf("%w: %s", ErrOptionNotFound, id)
	}
	return opts[0], nil
}

// SearchAll returns the options matching criteria, ordered by id. Empty
// criteria return every option.
func (d *Database) SearchAll(ctx context.Context, criteria thumbnail.OptionCriteria) (opts []thumbnail.Option, err error) {
	start := time.Now()
	defer func() { recordQuery("search_options", start, err) }()

	var where []string
	var args []any

	if len(criteria.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(criteria.IDs))+")")
		for _, id := range criteria.IDs {
			args = append(args, id)
		}
	}
	if criteria.Suffix != "" {
		where = append(where, "suffix = ?")
		args = append(args, criteria.Suffix)
	}

	query := "SELECT " + optionColumns + " FROM options"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search options: %w", err)
	}
	defer rows.Close()

	opts = []thumbnail.Option{}
	for rows.Next() {
		opt, scanErr := scanOption(rows)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("failed to read option: %w", err)
		}
		opts = append(opts, opt)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search options: %w", err)
	}
	return opts, nil
}

func scanOption(rows *sql.Rows) (thumbnail.Option, error) {
	var (
		opt           thumbnail.Option
		method        string
		anchor        string
		width, height sql.NullInt64
		background    sql.NullString
	)

	if err := rows.Scan(&opt.ID, &opt.Name, &opt.Suffix, &method, &width, &height, &background, &anchor, &opt.Quality); err != nil {
		return thumbnail.Option{}, err
	}

	opt.Method = thumbnail.Method(method)
	opt.Anchor = thumbnail.Anchor(anchor)
	if width.Valid {
		opt.Width = thumbnail.IntPtr(int(width.Int64))
	}
	if height.Valid {
		opt.Height = thumbnail.IntPtr(int(height.Int64))
	}
	if background.Valid {
		bg := background.String
		opt.BackgroundColor = &bg
	}
	return opt, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// isNotFound reports whether err is sql.ErrNoRows.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
