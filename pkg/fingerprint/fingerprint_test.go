package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/bomsync/pkg/bom"
)

func TestCalculate(t *testing.T) {
	lines := []bom.Line{
		{ItemNumber: "RACK-1", Quantity: 1},
		{ItemNumber: "SRV-1", Quantity: 2},
	}
	assert.Equal(t, "RACK-1:1|SRV-1:2", Calculate(lines))
}

func TestCalculateEmpty(t *testing.T) {
	assert.Equal(t, "", Calculate(nil))
}

func TestCalculateDeterministic(t *testing.T) {
	lines := []bom.Line{{ItemNumber: "A", Quantity: 1.5}, {ItemNumber: "B", Quantity: 3}}
	first := Calculate(lines)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Calculate(lines))
	}
}

func TestCalculateOrderSensitive(t *testing.T) {
	a := []bom.Line{{ItemNumber: "A", Quantity: 1}, {ItemNumber: "B", Quantity: 2}}
	b := []bom.Line{{ItemNumber: "B", Quantity: 2}, {ItemNumber: "A", Quantity: 1}}
	assert.NotEqual(t, Calculate(a), Calculate(b))
}

func TestCalculateIgnoresOtherFields(t *testing.T) {
	base := []bom.Line{{ItemNumber: "A", Quantity: 1, Level: 1, Name: "x", Category: "Server"}}
	edited := []bom.Line{{ItemNumber: "A", Quantity: 1, Level: 3, Name: "y", Category: "Switch"}}
	assert.Equal(t, Calculate(base), Calculate(edited))
	assert.True(t, Matches(Calculate(base), edited))

	requantified := []bom.Line{{ItemNumber: "A", Quantity: 2}}
	assert.False(t, Matches(Calculate(base), requantified))
}
