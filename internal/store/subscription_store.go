// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

// ErrNotFound is returned by single-row reads when no matching row exists.
var ErrNotFound = errors.New("store: not found")

// SubscriptionStore persists Subscription rows.
type SubscriptionStore struct {
	db *sql.DB
}

// NewSubscriptionStore wraps db.
func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// List returns every subscription: enabled rows first, then title
// ascending, then season ascending.
func (s *SubscriptionStore) List(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, rss_type, enabled, season, filters, description, category
		FROM rss
		ORDER BY enabled DESC, title ASC, season ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list subscriptions: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var out []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list subscriptions: %v", domain.ErrStorage, err)
	}
	return out, nil
}

// Get reads a single subscription by id.
func (s *SubscriptionStore) Get(ctx context.Context, id int64) (domain.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url, title, rss_type, enabled, season, filters, description, category
		FROM rss WHERE id = ?`, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Subscription{}, ErrNotFound
	}
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("%w: get subscription %d: %v", domain.ErrStorage, id, err)
	}
	return sub, nil
}

// ExistsByURL returns the id of the subscription with the given source
// URL, if any.
func (s *SubscriptionStore) ExistsByURL(ctx context.Context, url string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM rss WHERE url = ?`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: exists_by_url %s: %v", domain.ErrStorage, url, err)
	}
	return id, true, nil
}

// Insert adds sub. A URL collision is not an error: the existing id is
// returned unchanged.
func (s *SubscriptionStore) Insert(ctx context.Context, sub domain.Subscription) (int64, error) {
	if id, ok, err := s.ExistsByURL(ctx, sub.URL); err != nil {
		return 0, err
	} else if ok {
		return id, nil
	}

	filters, err := encodeFilters(sub.Filters)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rss (url, title, rss_type, enabled, season, filters, description, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.URL, nullString(sub.Title), string(sub.ParserType), boolToInt(sub.Enabled),
		nullInt(sub.Season), filters, nullString(sub.Description), nullString(sub.Category))
	if err != nil {
		return 0, fmt.Errorf("%w: insert subscription: %v", domain.ErrStorage, err)
	}
	return res.LastInsertId()
}

// Update overwrites every field of the subscription identified by id.
func (s *SubscriptionStore) Update(ctx context.Context, id int64, sub domain.Subscription) error {
	filters, err := encodeFilters(sub.Filters)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE rss SET url = ?, title = ?, rss_type = ?, enabled = ?, season = ?,
			filters = ?, description = ?, category = ?
		WHERE id = ?`,
		sub.URL, nullString(sub.Title), string(sub.ParserType), boolToInt(sub.Enabled),
		nullInt(sub.Season), filters, nullString(sub.Description), nullString(sub.Category), id)
	if err != nil {
		return fmt.Errorf("%w: update subscription %d: %v", domain.ErrStorage, id, err)
	}
	return nil
}

// Delete removes the subscription row. It does not cascade to the Task
// Store; dispatched tasks keep their history.
func (s *SubscriptionStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rss WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete subscription %d: %v", domain.ErrStorage, id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (domain.Subscription, error) {
	var (
		sub         domain.Subscription
		title       sql.NullString
		season      sql.NullInt64
		filters     sql.NullString
		description sql.NullString
		category    sql.NullString
		enabled     int
		parserType  string
	)
	if err := row.Scan(&sub.ID, &sub.URL, &title, &parserType, &enabled, &season, &filters, &description, &category); err != nil {
		return domain.Subscription{}, err
	}
	sub.Title = title.String
	sub.ParserType = domain.ParserVariant(parserType)
	sub.Enabled = enabled != 0
	sub.Description = description.String
	sub.Category = category.String
	if season.Valid {
		n := int(season.Int64)
		sub.Season = &n
	}
	chain, err := decodeFilters(filters)
	if err != nil {
		return domain.Subscription{}, err
	}
	sub.Filters = chain
	return sub, nil
}

func encodeFilters(chain domain.FilterChain) (sql.NullString, error) {
	if len(chain) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(chain)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("%w: encode filters: %v", domain.ErrStorage, err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeFilters(s sql.NullString) (domain.FilterChain, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var chain domain.FilterChain
	if err := json.Unmarshal([]byte(s.String), &chain); err != nil {
		return nil, fmt.Errorf("%w: decode filters: %v", domain.ErrStorage, err)
	}
	return chain, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
