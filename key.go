package prefkit

import (
	"context"
	"errors"

	"github.com/dmitrymomot/prefkit/pkg/binding"
	"github.com/dmitrymomot/prefkit/pkg/observe"
	"github.com/dmitrymomot/prefkit/pkg/store"
)

// Key declares a typed preference as plain data: a name, a default value,
// and an optional codec. Declare keys once at package level and share them:
//
//	var Theme = prefkit.Key[string]{Name: "theme", Default: "light"}
//	var Volume = prefkit.Key[int]{Name: "volume", Default: 5}
//
// All operations accept a *Container; pass nil to use [Default]. The store
// is resolved from the container on every call, so a Configure swap takes
// effect on the next operation.
type Key[T any] struct {
	Name    string
	Default T
	Codec   Codec[T]
}

// Get returns the key's current value: the decoded stored value when one
// exists, otherwise the key's default. A store read failure or an
// undecodable stored value returns the default alongside the error.
func (k Key[T]) Get(ctx context.Context, c *Container) (T, error) {
	c = orDefault(c)
	raw, ok, err := c.Store().Read(ctx, c.fullKey(k.Name))
	if err != nil {
		return k.Default, err
	}
	if !ok {
		return k.Default, nil
	}
	v, err := k.codec().Decode(raw)
	if err != nil {
		return k.Default, errors.Join(ErrDecode, err)
	}
	return v, nil
}

// Set encodes v and writes it under the key.
func (k Key[T]) Set(ctx context.Context, c *Container, v T) error {
	c = orDefault(c)
	raw, err := k.codec().Encode(v)
	if err != nil {
		return errors.Join(ErrEncode, err)
	}
	return c.Store().Write(ctx, c.fullKey(k.Name), raw)
}

// Delete removes the written value, uncovering the registered default.
func (k Key[T]) Delete(ctx context.Context, c *Container) error {
	c = orDefault(c)
	return c.Store().Delete(ctx, c.fullKey(k.Name))
}

// Observe registers onChange for typed (old, new) pairs on the container's
// current store. The first invocation delivers the current value as both old
// and new. Values that are absent or fail to decode are reported as the
// key's default.
func (k Key[T]) Observe(ctx context.Context, c *Container, onChange func(old, new T)) (*observe.Handle, error) {
	c = orDefault(c)
	codec := k.codec()
	decode := func(raw string) T {
		v, err := codec.Decode(raw)
		if err != nil {
			return k.Default
		}
		return v
	}
	return observe.Observe(ctx, c.Store(), c.fullKey(k.Name), func(ch store.Change) {
		onChange(decode(ch.Old), decode(ch.New))
	}, observe.WithLogger(c.logger()))
}

// Bind returns a binding observer that keeps set synchronized with the key.
// Call Observe on it with the container's current store on each refresh
// cycle and Cancel when the owner goes away:
//
//	o := Theme.Bind(c, func(v string) { model.Theme = v })
//	...
//	_ = o.Observe(ctx, c.Store()) // per refresh; rebinds on store swaps
//	defer o.Cancel()
func (k Key[T]) Bind(c *Container, set func(T)) *binding.Observer[T] {
	c = orDefault(c)
	return binding.NewObserver(c.fullKey(k.Name), k.codec().Decode, set, binding.WithLogger(c.logger()))
}

func (k Key[T]) codec() Codec[T] {
	if k.Codec.Encode != nil && k.Codec.Decode != nil {
		return k.Codec
	}
	return defaultCodec[T]()
}
