package iojson

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLines(t *testing.T) {
	var buf bytes.Buffer
	err := WriteLines(&buf, []map[string]int{{"a": 1}, {"b": 2}})
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", buf.String())
}

func TestWriteWith_MarshalFailure(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, WriteWith(&out, &errOut, make(chan int)))

	assert.Empty(t, out.String())
	assert.True(t, json.Valid(errOut.Bytes()))
	assert.Contains(t, errOut.String(), "json_error")
}

func TestMarshalError(t *testing.T) {
	s := MarshalError("bad input", map[string]any{"field": "title"})
	var e Error
	require.NoError(t, json.Unmarshal([]byte(s), &e))
	assert.Equal(t, "bad input", e.Message)
	assert.Equal(t, "title", e.Data["field"])

	s = MarshalError("broken", map[string]any{"ch": make(chan int)})
	assert.True(t, json.Valid([]byte(s)))
}

func TestDecode(t *testing.T) {
	type input struct {
		Title string `json:"title"`
	}

	v, err := Decode[input](strings.NewReader(`{"title":"Grow"}`))
	require.NoError(t, err)
	assert.Equal(t, "Grow", v.Title)

	_, err = Decode[input](strings.NewReader(`{`))
	assert.Error(t, err)
}

func TestFileReader_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2,3]`), 0o644))

	fr := &FileReader[[]int]{fileFlagValue: path}
	v, err := fr.Read()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v)
	assert.Equal(t, "file", fr.Flag().Name)
}
