package codec

import "github.com/bytedance/sonic"

// JSON serializes values with bytedance/sonic.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return sonic.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := sonic.Unmarshal(b, &v)
	return v, err
}
