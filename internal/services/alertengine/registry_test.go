package alertengine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autofinance/control-plane/internal/domain"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(filepath.Join(t.TempDir(), "alerts.json"), zerolog.Nop())
}

func TestRegistryCreateAndList(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Create("AAPL", domain.ConditionAbove, 200, "file", "owner-1")
	reg.Create("MSFT", domain.ConditionBelow, 300, "file", "owner-2")

	all := reg.List("", false)
	assert.Len(t, all, 2)

	owned := reg.List("owner-1", false)
	require.Len(t, owned, 1)
	assert.Equal(t, "AAPL", owned[0].Symbol)
}

func TestRegistryDeleteUnknownReturnsFalse(t *testing.T) {
	reg := newTestRegistry(t)
	assert.False(t, reg.Delete("nope"))
}

func TestRegistryPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	reg := NewRegistry(path, zerolog.Nop())
	alert := reg.Create("BTC", domain.ConditionAbove, 50000, "file", "")

	reloaded := NewRegistry(path, zerolog.Nop())
	got, ok := reloaded.Get(alert.AlertID)
	require.True(t, ok)
	assert.Equal(t, "BTC", got.Symbol)
}

func TestRegistryCorruptFileYieldsEmptyRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o644))

	reg := NewRegistry(path, zerolog.Nop())
	assert.Empty(t, reg.List("", false))
}

func TestEvaluateAlertAboveAndBelow(t *testing.T) {
	assert.True(t, evaluateAlert(domain.ConditionAbove, 100, 101, nil))
	assert.False(t, evaluateAlert(domain.ConditionAbove, 100, 99, nil))
	assert.True(t, evaluateAlert(domain.ConditionBelow, 100, 99, nil))
}

func TestEvaluateAlertCrossingRequiresPriorObservation(t *testing.T) {
	assert.False(t, evaluateAlert(domain.ConditionCrossesAbove, 100, 101, nil))

	prev := 99.0
	assert.True(t, evaluateAlert(domain.ConditionCrossesAbove, 100, 101, &prev))

	prevAbove := 101.0
	assert.False(t, evaluateAlert(domain.ConditionCrossesAbove, 100, 101, &prevAbove))
}

func TestEvaluateAlertCrossesBelow(t *testing.T) {
	prev := 101.0
	assert.True(t, evaluateAlert(domain.ConditionCrossesBelow, 100, 99, &prev))

	prevBelow := 99.0
	assert.False(t, evaluateAlert(domain.ConditionCrossesBelow, 100, 99, &prevBelow))
}

func TestApplyTickTriggersOnceAndRecordsLastPrice(t *testing.T) {
	reg := newTestRegistry(t)
	alert := reg.Create("AAPL", domain.ConditionAbove, 150, "file", "")

	fired := reg.ApplyTick("AAPL", 160, time.Now().UTC())
	require.Len(t, fired, 1)
	assert.Equal(t, alert.AlertID, fired[0].AlertID)

	got, ok := reg.Get(alert.AlertID)
	require.True(t, ok)
	assert.True(t, got.Triggered)
	assert.Equal(t, 1, got.TriggerCount)

	// A second tick must not re-fire an already-triggered alert.
	fired = reg.ApplyTick("AAPL", 170, time.Now().UTC())
	assert.Empty(t, fired)
}

func TestApplyTickIgnoresOtherSymbols(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Create("AAPL", domain.ConditionAbove, 150, "file", "")

	fired := reg.ApplyTick("MSFT", 999, time.Now().UTC())
	assert.Empty(t, fired)
}
