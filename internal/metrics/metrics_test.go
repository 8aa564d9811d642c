package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartMetricsZeroPortIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { StartMetrics(0, nil) })
}

func TestStartProfileZeroPortIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { StartProfile(0, nil) })
}
