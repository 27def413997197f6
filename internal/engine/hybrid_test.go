package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineHybridAgreement(t *testing.T) {
	res := CombineHybrid(DirectionBuy, 0.7, DirectionBuy, 0.16)
	assert.Equal(t, LevelStrongBuy, res.Level)
	assert.InDelta(t, 0.86, res.Strength, 1e-9)
	assert.InDelta(t, 0.43, res.Confidence, 1e-9)

	res = CombineHybrid(DirectionSell, 0.6, DirectionSell, 0.9)
	assert.Equal(t, LevelStrongSell, res.Level)
	assert.InDelta(t, 1.0, res.Strength, 1e-9, "strength caps at 1.0")
}

func TestCombineHybridOneNeutral(t *testing.T) {
	res := CombineHybrid(DirectionBuy, 0.7, DirectionNeutral, 0.16)
	assert.Equal(t, LevelBuy, res.Level)
	assert.InDelta(t, 0.49, res.Strength, 1e-9)
	assert.InDelta(t, 0.43, res.Confidence, 1e-9)

	res = CombineHybrid(DirectionNeutral, 0.1, DirectionSell, 0.5)
	assert.Equal(t, LevelSell, res.Level)
	assert.InDelta(t, 0.35, res.Strength, 1e-9)
}

func TestCombineHybridConflict(t *testing.T) {
	res := CombineHybrid(DirectionBuy, 0.8, DirectionSell, 0.3)
	assert.Equal(t, LevelWeakBuy, res.Level)
	assert.InDelta(t, 0.15, res.Strength, 1e-9)

	res = CombineHybrid(DirectionBuy, 0.2, DirectionSell, 0.9)
	assert.Equal(t, LevelWeakSell, res.Level)
	assert.InDelta(t, 0.21, res.Strength, 1e-9)
}

func TestCombineHybridBothNeutral(t *testing.T) {
	res := CombineHybrid(DirectionNeutral, 0.4, DirectionNeutral, 0.2)
	assert.Equal(t, LevelNeutral, res.Level)
	assert.Zero(t, res.Strength)
	assert.InDelta(t, 0.3, res.Confidence, 1e-9)
}

func TestCombinedLevelDirection(t *testing.T) {
	assert.Equal(t, DirectionBuy, LevelStrongBuy.Direction())
	assert.Equal(t, DirectionBuy, LevelWeakBuy.Direction())
	assert.Equal(t, DirectionSell, LevelSell.Direction())
	assert.Equal(t, DirectionNeutral, LevelNeutral.Direction())
}
