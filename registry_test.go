package instruct

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerRegistry_Dispatch(t *testing.T) {
	schema := userSchema(t)
	reg := NewHandlerRegistry()

	var got Instance
	reg.Register(schema, func(ctx context.Context, value Instance) error {
		got = value
		return nil
	})

	res := &Result{Value: Instance{"name": "Ann", "age": int64(30)}}
	require.NoError(t, reg.Dispatch(context.Background(), schema, res))
	name, _ := got.String("name")
	assert.Equal(t, "Ann", name)
}

func TestHandlerRegistry_NoHandler(t *testing.T) {
	reg := NewHandlerRegistry()
	res := &Result{Value: Instance{}}

	err := reg.Dispatch(context.Background(), userSchema(t), res)
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestHandlerRegistry_RejectsFailedResult(t *testing.T) {
	schema := userSchema(t)
	reg := NewHandlerRegistry()
	reg.Register(schema, func(ctx context.Context, value Instance) error { return nil })

	err := reg.Dispatch(context.Background(), schema, &Result{})
	assert.Error(t, err)
	err = reg.Dispatch(context.Background(), schema, nil)
	assert.Error(t, err)
}

func TestHandlerRegistry_HandlerErrorPropagates(t *testing.T) {
	schema := userSchema(t)
	reg := NewHandlerRegistry()
	boom := errors.New("boom")
	reg.Register(schema, func(ctx context.Context, value Instance) error { return boom })

	err := reg.Dispatch(context.Background(), schema, &Result{Value: Instance{}})
	assert.ErrorIs(t, err, boom)
}

func TestHandlerRegistry_AfterExtraction(t *testing.T) {
	schema := querySchema(t)
	x := NewForTesting(`{"text":"cats","kind":"image"}`)

	res, err := x.ExtractText(context.Background(), schema, "pictures of cats")
	require.NoError(t, err)

	reg := NewHandlerRegistry()
	var kinds []string
	reg.Register(schema, func(ctx context.Context, value Instance) error {
		kind, _ := value.String("kind")
		kinds = append(kinds, kind)
		return nil
	})

	require.NoError(t, reg.Dispatch(context.Background(), schema, res))
	assert.Equal(t, []string{"image"}, kinds)
}
