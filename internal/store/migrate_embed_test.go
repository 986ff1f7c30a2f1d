// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package store

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err, "should read embedded migrations directory")

	expectedFiles := []string{
		"0001_initial.up.sql",
		"0001_initial.down.sql",
	}

	fileNames := make(map[string]bool)
	for _, entry := range entries {
		fileNames[entry.Name()] = true
	}

	for _, expected := range expectedFiles {
		assert.True(t, fileNames[expected], "should contain %s", expected)
	}

	// Every migration must come as an up/down pair.
	assert.Zero(t, len(entries)%2, "migrations must come in up/down pairs")

	pattern := regexp.MustCompile(`^\d{4}_\w+\.(up|down)\.sql$`)
	for _, entry := range entries {
		assert.True(t, pattern.MatchString(entry.Name()),
			"file %s should match pattern NNNN_name.(up|down).sql", entry.Name())
	}
}
