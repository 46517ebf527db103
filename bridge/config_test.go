// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func TestParseConfig(t *testing.T) {
	require := require.New(t)

	owner := ids.GenerateTestShortID()
	raw, err := json.Marshal(Config{
		Owner:              owner,
		RequiredSignatures: 5,
	})
	require.NoError(err)

	cfg, err := ParseConfig(raw)
	require.NoError(err)
	require.Equal(owner, cfg.Owner)
	require.Equal(uint32(5), cfg.RequiredSignatures)

	// Absent fields keep their defaults.
	raw, err = json.Marshal(map[string]any{"owner": owner})
	require.NoError(err)
	cfg, err = ParseConfig(raw)
	require.NoError(err)
	require.Equal(uint32(1), cfg.RequiredSignatures)

	_, err = ParseConfig([]byte(`{not json`))
	require.Error(err)
}

func TestConfigValidate(t *testing.T) {
	require := require.New(t)

	// No owner.
	_, err := ParseConfig(nil)
	require.ErrorIs(err, errNoOwner)

	// Zero threshold.
	err = Config{Owner: ids.GenerateTestShortID()}.Validate()
	require.Error(err)

	require.NoError(Config{
		Owner:              ids.GenerateTestShortID(),
		RequiredSignatures: 1,
	}.Validate())
}
