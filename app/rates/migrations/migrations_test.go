package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripts(t *testing.T) {
	scripts, err := Scripts()
	require.NoError(t, err)
	require.NotEmpty(t, scripts)

	assert.Equal(t, "001_custom_xp_rates.sql", scripts[0].Name)
	assert.Contains(t, scripts[0].SQL, "CREATE TABLE IF NOT EXISTS character_custom_xp_rates")
	assert.Contains(t, scripts[0].SQL, "CHECK (xp_rate >= 0)")
}
