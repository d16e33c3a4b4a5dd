package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type driverConfig struct {
	Workers int
	Method  string
}

func withWorkers(n int) Option[*driverConfig] {
	return New(func(c *driverConfig) error {
		if n < 1 {
			return errors.New("workers must be positive")
		}
		c.Workers = n
		return nil
	})
}

func withMethod(m string) Option[*driverConfig] {
	return NoError(func(c *driverConfig) { c.Method = m })
}

func TestApplyInOrder(t *testing.T) {
	cfg := &driverConfig{}

	err := Apply(cfg, withWorkers(4), withMethod("best-cache"), withWorkers(8))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers, "later options override earlier ones")
	assert.Equal(t, "best-cache", cfg.Method)
}

func TestApplyStopsAtFirstError(t *testing.T) {
	cfg := &driverConfig{}

	err := Apply(cfg, withWorkers(2), withWorkers(0), withMethod("make-equal"))
	require.Error(t, err)

	assert.Equal(t, 2, cfg.Workers, "options before the failure stay applied")
	assert.Empty(t, cfg.Method, "options after the failure must not run")
}

func TestApplyNoOptions(t *testing.T) {
	cfg := &driverConfig{Workers: 3}
	require.NoError(t, Apply(cfg))
	assert.Equal(t, 3, cfg.Workers)
}

func TestNoErrorNeverFails(t *testing.T) {
	cfg := &driverConfig{}
	opt := NoError(func(c *driverConfig) { c.Method = "best-cache" })

	require.NoError(t, opt.apply(cfg))
	assert.Equal(t, "best-cache", cfg.Method)
}

func TestGenericTargetTypes(t *testing.T) {
	var n int
	opt := NoError(func(p *int) { *p = 42 })

	require.NoError(t, opt.apply(&n))
	assert.Equal(t, 42, n)
}
