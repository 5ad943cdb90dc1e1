package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcsfx/extension/pkg/core"
)

func TestContext_Placeholder(t *testing.T) {
	ctx := NewContext()

	assert.Equal(t, "No session started", ctx.GetSession().Name)
	assert.False(t, ctx.Active())
}

func TestContext_StartEnd(t *testing.T) {
	ctx := NewContext()
	s := &core.Session{ID: 7, Name: "docking"}

	ctx.Start(s)
	assert.True(t, ctx.Active())
	assert.Same(t, s, ctx.GetSession())

	ended := ctx.End()
	assert.Same(t, s, ended)
	assert.False(t, ctx.Active())
}

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id uint) {
			defer wg.Done()
			ctx.Start(&core.Session{ID: id})
		}(uint(i))
		go func() {
			defer wg.Done()
			_ = ctx.GetSession()
			_ = ctx.Active()
		}()
	}
	wg.Wait()

	assert.True(t, ctx.Active())
}
