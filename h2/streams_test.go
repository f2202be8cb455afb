package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamRegistryKeepsIDOrder(t *testing.T) {
	var r streamRegistry
	r.insert(newStream(5, DefaultInitialWindowSize))
	r.insert(newStream(1, DefaultInitialWindowSize))
	r.insert(newStream(3, DefaultInitialWindowSize))

	var ids []uint32
	for _, s := range r.all() {
		ids = append(ids, s.id)
	}
	assert.Equal(t, []uint32{1, 3, 5}, ids)
}

func TestStreamRegistryGetAndDel(t *testing.T) {
	var r streamRegistry
	r.insert(newStream(1, DefaultInitialWindowSize))
	r.insert(newStream(2, DefaultInitialWindowSize))

	assert.NotNil(t, r.get(1))
	assert.Nil(t, r.get(99))

	removed := r.del(1)
	assert.NotNil(t, removed)
	assert.Nil(t, r.get(1))
	assert.Equal(t, 1, r.len())
}
