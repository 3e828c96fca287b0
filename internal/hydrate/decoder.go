package hydrate

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Context identifies the mounted store a state map was read from.
type Context struct {
	Path string
	Host string
}

func (c Context) label() string {
	if c.Path == "" {
		return "root"
	}
	return c.Path
}

// PreHook lets callers mutate or normalise the state before decoding. It
// receives a private copy.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the value after decoding.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts state maps into typed values.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber decodes numbers into json.Number.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields rejects state keys T has no field for.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts state into T applying configured hooks. state itself is
// never modified.
func (d *Decoder[T]) Decode(ctx Context, state map[string]any) (T, error) {
	var zero T

	if state == nil {
		return zero, fmt.Errorf("hydrate: state is nil for %q", ctx.label())
	}

	buffer, err := json.Marshal(state)
	if err != nil {
		return zero, fmt.Errorf("hydrate: marshal state for %q: %w", ctx.label(), err)
	}

	if len(d.preHooks) > 0 || d.custom != nil {
		var current map[string]any
		if err := json.Unmarshal(buffer, &current); err != nil {
			return zero, fmt.Errorf("hydrate: copy state for %q: %w", ctx.label(), err)
		}
		for _, hook := range d.preHooks {
			if hook == nil {
				continue
			}
			next, err := hook(ctx, current)
			if err != nil {
				return zero, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.label(), err)
			}
			if next != nil {
				current = next
			}
		}
		if d.custom != nil {
			result, err := d.custom(ctx, current)
			if err != nil {
				return zero, fmt.Errorf("hydrate: custom decoder for %q failed: %w", ctx.label(), err)
			}
			return d.post(ctx, result)
		}
		if buffer, err = json.Marshal(current); err != nil {
			return zero, fmt.Errorf("hydrate: marshal state for %q: %w", ctx.label(), err)
		}
	}

	var result T
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode %q: %w", ctx.label(), err)
	}
	return d.post(ctx, result)
}

func (d *Decoder[T]) post(ctx Context, result T) (T, error) {
	var zero T
	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.label(), err)
		}
	}
	return result, nil
}
