package gojabridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArray(t *testing.T) {
	env := newTestEnv(t)

	arr := env.ctx.NewArray(Int(1), String("b"))
	assert.True(t, arr.IsArray())
	n, err := arr.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, err := arr.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "b", mustString(t, v))
	v, err = arr.Get(5)
	require.NoError(t, err)
	assert.True(t, v.IsUndefined())

	require.NoError(t, arr.Set(3, Bool(true)))
	n, err = arr.Len()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, arr.Push(Null()))
	n, err = arr.Len()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, arr.SetLen(1))
	assert.Equal(t, []any{int64(1)}, arr.Export())
	assert.ErrorIs(t, arr.SetLen(-1), ErrMisuse)

	empty := env.ctx.NewArray()
	n, err = empty.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAsArray(t *testing.T) {
	env := newTestEnv(t)

	arr, err := AsArray(env.object(t, `[1, 2, 3]`))
	require.NoError(t, err)
	n, err := arr.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	env.setGlobal(t, "arr", arr.Value())
	require.NoError(t, arr.Push(Int(4)))
	assert.Equal(t, "1,2,3,4", mustString(t, env.run(t, `arr.join()`)))

	_, err = AsArray(env.ctx.NewObject())
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = AsArray(env.object(t, `({length: 1, 0: "a"})`))
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = AsArray(Object{})
	assert.ErrorIs(t, err, ErrNullTarget)
}
