package flatjson_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/flatjson"
)

func TestLoadConfigFile(t *testing.T) {
	want := flatjson.Config{StrictJSONKeys: false, IndentStep: 2, EmitDefaultScalars: true}
	files := map[string]string{
		"codec.yaml": "strict_json_keys: false\nindent_step: 2\n",
		"codec.toml": "strict_json_keys = false\nindent_step = 2\n",
		"codec.json": `{"strict_json_keys":false,"indent_step":2}`,
	}
	dir := t.TempDir()
	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			cfg, err := flatjson.LoadConfigFile(path)
			require.NoError(t, err)
			assert.Equal(t, want, cfg)
		})
	}
}

func TestDecodeConfig_Errors(t *testing.T) {
	_, err := flatjson.DecodeConfig([]byte("indent_step: -5\n"), flatjson.FormatYAML)
	assert.Error(t, err)

	_, err = flatjson.DecodeConfig([]byte("indent_step = "), flatjson.FormatTOML)
	assert.Error(t, err)

	_, err = flatjson.DecodeConfig([]byte("{}"), flatjson.Format("ini"))
	assert.Error(t, err)

	_, err = flatjson.LoadConfigFile("codec.ini")
	assert.Error(t, err)

	cfg, err := flatjson.DecodeConfig([]byte("{}"), flatjson.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, flatjson.DefaultConfig(), cfg)
}

func TestCodec_WithConfigFromFile(t *testing.T) {
	cfg, err := flatjson.DecodeConfig([]byte("emit_default_scalars: false\n"), flatjson.FormatYAML)
	require.NoError(t, err)

	c := newMonsterCodec(flatjson.WithConfig(cfg))
	require.NoError(t, c.ParseString(`{"name":"Orc"}`))
	out, err := c.Text()
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Orc"}`, out)
}
