package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitter(t *testing.T) {
	t.Parallel()

	e := NewEmitter("test")
	var received []string

	e.On("update", "first", func(event string, data interface{}) error {
		received = append(received, "first:"+data.(string))
		return nil
	})
	second := e.On("update", "second", func(event string, data interface{}) error {
		received = append(received, "second:"+data.(string))
		return errors.New("ignored")
	})
	e.On("update", "panicking", func(event string, data interface{}) error {
		panic("boom")
	})
	e.On(AnyEvent, "any", func(event string, data interface{}) error {
		received = append(received, "any:"+event)
		return nil
	})

	assert.Equal(t, 4, e.Count("update"))
	assert.Equal(t, 1, e.Count("destroy"))

	e.Emit("update", "a")
	assert.Equal(t, []string{"first:a", "second:a", "any:update"}, received)

	received = nil
	second.Cancel()
	second.Cancel()
	e.Emit("update", "b")
	e.Emit("destroy", nil)
	assert.Equal(t, []string{"first:b", "any:update", "any:destroy"}, received)
	assert.Equal(t, "test", e.Name())
}
