package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type renamed struct{ from, to string }

type moved struct{ x int }

func TestPublishIsSynchronous(t *testing.T) {
	b := NewBus()
	var got []renamed
	Subscribe(b, func(e renamed) { got = append(got, e) })

	Publish(b, renamed{"a", "b"})
	assert.Equal(t, []renamed{{"a", "b"}}, got)

	// Other types are not delivered.
	Publish(b, moved{1})
	assert.Len(t, got, 1)
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	id := Subscribe(b, func(moved) { calls++ })
	assert.True(t, HasSubscribers[moved](b))

	Publish(b, moved{})
	b.Unsubscribe(id)
	Publish(b, moved{})
	assert.Equal(t, 1, calls)
	assert.False(t, HasSubscribers[moved](b))
}

func TestEmitDeliversNextFrame(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(e moved) { got = append(got, e.x) })

	Emit(b, moved{1})
	Emit(b, moved{2})
	assert.Equal(t, 2, b.Pending())
	b.DispatchAll()
	assert.Empty(t, got, "not swapped yet")

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []int{1, 2}, got)
	assert.Zero(t, b.Pending())

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []int{1, 2}, got)
}
