// Package state provides persistence for deckforge using SQLite.
// It stores projects, pages, image versions, tasks, materials,
// reference files and the settings row.
package state

import "github.com/leapstack-labs/deckforge/pkg/core"

var _ core.Store = (*SQLiteStore)(nil)
