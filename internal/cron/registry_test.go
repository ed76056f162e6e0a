package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndSkipsDuplicates(t *testing.T) {
	registry := NewRegistry(namedJob("reconcile"), nil, namedJob("retention"))

	assert.False(t, registry.Register(namedJob("reconcile")))
	assert.False(t, registry.Register(nil))
	assert.True(t, registry.Register(namedJob("extra")))
	assert.Equal(t, []string{"reconcile", "retention", "extra"}, registry.Names())
}

func TestRegistryJobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(namedJob("a"), namedJob("b"))
	jobs := registry.Jobs()
	jobs[0] = nil

	assert.NotNil(t, registry.Jobs()[0])
	assert.Len(t, registry.Jobs(), 2)
}
