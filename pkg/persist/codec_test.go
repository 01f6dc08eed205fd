package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNode mirrors the nested shape of a snapshot view.
type testNode struct {
	Name     string      `json:"name" yaml:"name"`
	Changes  int         `json:"changes" yaml:"changes"`
	Commits  []string    `json:"commits,omitempty" yaml:"commits,omitempty"`
	Children []*testNode `json:"children,omitempty" yaml:"children,omitempty"`
}

func sampleNode() *testNode {
	return &testNode{
		Name: ".",
		Children: []*testNode{
			{Name: "src", Children: []*testNode{{Name: "a.js", Changes: 2, Commits: []string{"c1", "c3"}}}},
			{Name: "README.md", Changes: 1},
		},
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, format := range []string{FormatJSON, FormatYAML, FormatGob} {
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			codec, err := CodecFor(format)
			require.NoError(t, err)

			var buf bytes.Buffer

			require.NoError(t, codec.Encode(&buf, sampleNode()))

			var decoded testNode

			require.NoError(t, codec.Decode(&buf, &decoded))
			assert.Equal(t, sampleNode(), &decoded)
		})
	}
}

func TestCodecFor(t *testing.T) {
	t.Parallel()

	yml, err := CodecFor("YML")
	require.NoError(t, err)
	assert.Equal(t, ".yaml", yml.Extension())
	assert.Equal(t, "application/yaml", yml.ContentType())

	def, err := CodecFor("")
	require.NoError(t, err)
	assert.Equal(t, ".json", def.Extension())

	gobCodec, err := CodecFor("gob")
	require.NoError(t, err)
	assert.Equal(t, "application/x-gob", gobCodec.ContentType())

	_, err = CodecFor("xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestCodecForPath(t *testing.T) {
	t.Parallel()

	assert.IsType(t, &YAMLCodec{}, CodecForPath("out/tree.yml"))
	assert.IsType(t, &GobCodec{}, CodecForPath("tree.GOB"))
	assert.IsType(t, &JSONCodec{}, CodecForPath("tree"))
}

func TestJSONCodec_PrettyPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, NewJSONCodec().Encode(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())

	buf.Reset()

	require.NoError(t, (&JSONCodec{}).Encode(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\"a\":1}\n", buf.String())
}

func TestJSONCodec_DecodeError(t *testing.T) {
	t.Parallel()

	var decoded testNode

	err := NewJSONCodec().Decode(strings.NewReader("not valid json{{{"), &decoded)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "json decode")
}

func TestJSONCodec_EncodeError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	// Channels cannot be JSON-encoded.
	err := NewJSONCodec().Encode(&buf, make(chan int))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "json encode")
}

func TestYAMLCodec_DecodeError(t *testing.T) {
	t.Parallel()

	var decoded testNode

	err := NewYAMLCodec().Decode(strings.NewReader("name: [unterminated"), &decoded)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml decode")
}

func TestGobCodec_DecodeError(t *testing.T) {
	t.Parallel()

	var decoded testNode

	err := NewGobCodec().Decode(strings.NewReader("garbage"), &decoded)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gob decode")
}

func TestSaveLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "tree.yaml")

	require.NoError(t, SaveFile(path, NewYAMLCodec(), sampleNode()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: src")

	var decoded testNode

	require.NoError(t, LoadFile(path, NewYAMLCodec(), &decoded))
	assert.Equal(t, sampleNode(), &decoded)
}

func TestLoadFile_NotFound(t *testing.T) {
	t.Parallel()

	var decoded testNode

	err := LoadFile(filepath.Join(t.TempDir(), "missing.json"), NewJSONCodec(), &decoded)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "open file")
}

func TestSaveFile_EncodeError(t *testing.T) {
	t.Parallel()

	err := SaveFile(filepath.Join(t.TempDir(), "bad.json"), NewJSONCodec(), make(chan int))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode")
}
