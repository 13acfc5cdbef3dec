// Package commands_test provides tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/leapstack-labs/labbrowse/internal/catalog"
	"github.com/leapstack-labs/labbrowse/internal/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewListCommand(t *testing.T) {
	cmd := NewListCommand()

	assert.Equal(t, "list [date...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	// --output and --data-root are global persistent flags on root, not local to list
	for _, flag := range []string{"search", "all"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "s", cmd.Flags().Lookup("search").Shorthand)
}

func TestNewLoadCommand(t *testing.T) {
	cmd := NewLoadCommand()

	assert.Equal(t, "load <path|folder|id>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.Error(t, cmd.Args(cmd, nil), "load requires a target")

	for _, flag := range []string{"op", "dim", "grid", "no-history"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "repetition", cmd.Flags().Lookup("dim").DefValue)
	assert.Equal(t, "true", cmd.Flags().Lookup("grid").DefValue)
}

func TestNewBrowseCommand(t *testing.T) {
	cmd := NewBrowseCommand()

	assert.Equal(t, "browse", cmd.Use)
	assert.NotEmpty(t, cmd.Long, "Long should not be empty")

	for _, flag := range []string{"op", "dim", "grid", "refresh", "watch", "no-history"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "off", cmd.Flags().Lookup("refresh").DefValue)
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history", cmd.Use)
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	for _, flag := range []string{"number", "path", "prune"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "20", cmd.Flags().Lookup("number").DefValue)
}

func TestNewConfigCommand(t *testing.T) {
	cmd := NewConfigCommand()

	assert.Equal(t, "config", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}

func TestReplCommands_HelpCoversEveryCommand(t *testing.T) {
	for _, name := range replOrder {
		c, ok := replCommands[name]
		require.True(t, ok, "command %q has no handler", name)
		assert.NotEmpty(t, c.usage, name)
		assert.NotEmpty(t, c.help, name)
		assert.NotNil(t, c.run, name)
	}
	_, ok := replCommands["exit"]
	assert.True(t, ok, "exit is an alias of quit")
}

func testGroups(t *testing.T) catalog.Groups {
	t.Helper()
	groups, err := catalog.Group(catalog.Listing{
		"/d/2024-01-15T090000_aaaaaaaa-rabi":   {Files: []string{catalog.DataFile, catalog.TagComplete.FileName()}},
		"/d/2024-01-15T101500_bbbbbbbb-ramsey": {Files: []string{catalog.DataFile}},
		"/d/2024-02-01T083000_cccccccc-t1":     {Files: []string{catalog.DataFile}},
	})
	require.NoError(t, err)
	return groups
}

func TestDateKeys(t *testing.T) {
	groups := testGroups(t)

	keys, err := dateKeys(groups, []string{"2024-1-15"}, false)
	require.NoError(t, err)
	assert.Equal(t, []catalog.DateKey{{Year: 2024, Month: 1, Day: 15}}, keys)

	// the printed group label is accepted as is
	keys, err = dateKeys(groups, []string{"2024-2-1 [1]"}, false)
	require.NoError(t, err)
	assert.Equal(t, []catalog.DateKey{{Year: 2024, Month: 2, Day: 1}}, keys)

	keys, err = dateKeys(groups, nil, true)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Equal(t, 2, keys[0].Month, "newest first")

	_, err = dateKeys(groups, []string{"2023-12-31"}, false)
	assert.ErrorContains(t, err, "no datasets recorded on 2023-12-31")

	_, err = dateKeys(groups, []string{"yesterday"}, false)
	assert.Error(t, err)
}

func TestFindDatasets(t *testing.T) {
	groups := testGroups(t)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"by id", "aaaaaaaa", []string{"/d/2024-01-15T090000_aaaaaaaa-rabi"}},
		{"by folder name", "2024-02-01T083000_cccccccc-t1", []string{"/d/2024-02-01T083000_cccccccc-t1"}},
		{"by label", "10:15:00 - bbbbbbbb - ramsey", []string{"/d/2024-01-15T101500_bbbbbbbb-ramsey"}},
		{"no match", "dddddddd", nil},
		{"partial id is not enough", "aaaa", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findDatasets(groups, tt.target))
		})
	}
}

func TestPickTarget(t *testing.T) {
	items := []selection.Item{
		{Label: " 10:15:00 - bbbbbbbb - ramsey 😁", Path: "/d/2024-01-15T101500_bbbbbbbb-ramsey"},
		{Label: " 09:00:00 - aaaaaaaa - rabi ✅", Path: "/d/2024-01-15T090000_aaaaaaaa-rabi"},
	}

	got, err := pickTarget(items, "2")
	require.NoError(t, err)
	assert.Equal(t, items[1].Path, got)

	got, err = pickTarget(items, "10:15:00 - bbbbbbbb - ramsey 😁")
	require.NoError(t, err)
	assert.Equal(t, items[0].Path, got)

	got, err = pickTarget(items, "/d/2024-01-15T090000_aaaaaaaa-rabi/")
	require.NoError(t, err)
	assert.Equal(t, items[1].Path, got)

	_, err = pickTarget(items, "0")
	assert.ErrorContains(t, err, "no dataset #0 (2 listed)")

	_, err = pickTarget(items, "rabi")
	assert.ErrorIs(t, err, selection.ErrUnknownLabel)
}
