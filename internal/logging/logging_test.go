// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerowaste-dao/govcore/internal/config"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]int{
		"trace": int(log.LevelTrace),
		"DEBUG": int(log.LevelDebug),
		"":      int(log.LevelInfo),
		"warn":  int(log.LevelWarn),
		"crit":  int(log.LevelCrit),
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, int(got), name)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestJSONHandlerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	handler, err := NewHandler(config.LogConfig{Level: "warn", Format: "json"}, &buf, false)
	require.NoError(t, err)

	logger := log.NewLogger(handler).With("module", "treasury")
	logger.Info("Treasury deposit", "amount", 5)
	logger.Warn("Treasury low", "balance", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "Treasury low", record["msg"])
	assert.Equal(t, "treasury", record["module"])
}

func TestTerminalHandler(t *testing.T) {
	var buf bytes.Buffer
	handler, err := NewHandler(config.LogConfig{Level: "debug"}, &buf, false)
	require.NoError(t, err)

	log.NewLogger(handler).Debug("Vote recorded", "weight", 700)
	assert.Contains(t, buf.String(), "Vote recorded")
	assert.Contains(t, buf.String(), "weight=700")
}

func TestInvalidSettings(t *testing.T) {
	_, err := NewHandler(config.LogConfig{Format: "xml"}, &bytes.Buffer{}, false)
	assert.Error(t, err)

	_, err = NewHandler(config.LogConfig{Level: "loud"}, &bytes.Buffer{}, false)
	assert.Error(t, err)
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "govcore.log")
	logger, closer, err := New(config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("Proposal submitted", "id", 0)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Proposal submitted")
}
