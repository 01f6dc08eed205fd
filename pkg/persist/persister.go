package persist

// Persister reads and writes values of one type with a fixed codec.
type Persister[T any] struct {
	codec Codec
}

// NewPersister creates a persister. A nil codec selects one per file from the extension.
func NewPersister[T any](codec Codec) *Persister[T] {
	return &Persister[T]{codec: codec}
}

func (p *Persister[T]) codecFor(path string) Codec {
	if p.codec != nil {
		return p.codec
	}

	return CodecForPath(path)
}

// Save writes v to path.
func (p *Persister[T]) Save(path string, v *T) error {
	return SaveFile(path, p.codecFor(path), v)
}

// Load reads a value from path.
func (p *Persister[T]) Load(path string) (*T, error) {
	var v T

	err := LoadFile(path, p.codecFor(path), &v)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
