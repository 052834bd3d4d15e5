package lockbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetString returns the string stored on key and whether an item exists.
func (l *Lockbox) GetString(ctx context.Context, key string) (string, bool, error) {
	data, err := l.Get(ctx, key)
	if err != nil || data == nil {
		return "", false, err
	}
	return string(data), true, nil
}

// SetString stores s on key.
func (l *Lockbox) SetString(ctx context.Context, key, s string) error {
	return l.Set(ctx, key, []byte(s))
}

// GetJSON unmarshals the item stored on key into v. It reports false and
// leaves v untouched if no item exists.
func (l *Lockbox) GetJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := l.Get(ctx, key)
	if err != nil || data == nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("lockbox: decode %q: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals v and stores it on key. A nil v deletes the item.
func (l *Lockbox) SetJSON(ctx context.Context, key string, v interface{}) error {
	if v == nil {
		return l.Set(ctx, key, nil)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("lockbox: encode %q: %w", key, err)
	}
	return l.Set(ctx, key, data)
}

// GetTime returns the time stored on key.
func (l *Lockbox) GetTime(ctx context.Context, key string) (time.Time, bool, error) {
	s, ok, err := l.GetString(ctx, key)
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, true, fmt.Errorf("lockbox: decode %q: %w", key, err)
	}
	return t, true, nil
}

// SetTime stores t on key in RFC 3339 form.
func (l *Lockbox) SetTime(ctx context.Context, key string, t time.Time) error {
	return l.SetString(ctx, key, t.Format(time.RFC3339Nano))
}
