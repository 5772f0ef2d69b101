package flatjson_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/flatjson"
)

func TestCodec_DefaultScalarEmission(t *testing.T) {
	c := newMonsterCodec()
	require.NoError(t, c.Parse([]byte(`{"name":"Orc"}`)))

	out, err := c.Text()
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Orc","hp":100,"color":"Blue"}`, out)

	c.SetEmitDefaultScalars(false)
	out, err = c.Text()
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Orc"}`, out)
	assert.NotContains(t, out, "hp")
}

func TestCodec_RootAccessors(t *testing.T) {
	c := newMonsterCodec()
	assert.Nil(t, c.Root())

	require.NoError(t, c.ParseString(`{"name":"Orc","hp":80,"color":"Red","weapons":[{"name":"Axe","damage":3}]}`))
	require.True(t, c.IsValid())
	m := c.Root()
	require.NotNil(t, m)
	assert.Equal(t, "Orc", string(m.Name()))
	assert.Equal(t, int16(80), m.Hp())
	assert.Equal(t, int8(0), m.Color())
	assert.Equal(t, 1, m.WeaponsLength())
	assert.Equal(t, "Game.Sample.Monster", c.RootType())
	assert.Equal(t, len(c.Buffer()), c.Len())
}

func TestCodec_ParseFailure(t *testing.T) {
	c := newMonsterCodec()

	err := c.Parse([]byte("not json"))
	require.Error(t, err)
	assert.NotEmpty(t, c.LastError())
	assert.False(t, c.IsValid())
	assert.Nil(t, c.Buffer())
	iss, ok := flatjson.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, flatjson.CodeParseError, iss[0].Code)

	require.NoError(t, c.Parse([]byte(`{"name":"Orc"}`)))
	assert.Empty(t, c.LastError())
	before := c.Buffer()

	err = c.Parse([]byte(`{"name":"Orc","hp":"lots"}`))
	require.Error(t, err)
	iss, _ = flatjson.AsIssues(err)
	assert.Equal(t, flatjson.CodeInvalidType, iss[0].Code)
	assert.Equal(t, "/hp", iss[0].Path)
	assert.Equal(t, before, c.Buffer())
	assert.True(t, c.IsValid())
}

func TestCodec_IssueCodes(t *testing.T) {
	cases := []struct {
		name, json, code, path string
	}{
		{"unknown key", `{"level":3}`, flatjson.CodeUnknownKey, "/level"},
		{"duplicate key", `{"name":"a","name":"b"}`, flatjson.CodeDuplicateKey, "/name"},
		{"overflow", `{"hp":40000}`, flatjson.CodeOverflow, "/hp"},
		{"nested", `{"weapons":[{"damage":true}]}`, flatjson.CodeInvalidType, "/weapons/0/damage"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newMonsterCodec()
			err := c.ParseString(tc.json)
			require.Error(t, err)
			iss, ok := flatjson.AsIssues(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, iss[0].Code)
			assert.Equal(t, tc.path, iss[0].Path)
			assert.Equal(t, err.Error(), iss.Error())
		})
	}
}

func TestCodec_TruncatedBufferIsInvalid(t *testing.T) {
	c := newMonsterCodec()
	require.NoError(t, c.ParseString(`{"name":"Orc","weapons":[{"name":"Axe"},{"name":"Sword"}]}`))
	buf := c.Buffer()
	require.NoError(t, c.Verify(buf))

	err := c.Verify(buf[:len(buf)/2])
	require.Error(t, err)
	iss, _ := flatjson.AsIssues(err)
	assert.Equal(t, flatjson.CodeVerificationFailed, iss[0].Code)

	// generating from garbage reports instead of crashing
	_, err = c.GenerateText(buf[:len(buf)/2])
	require.Error(t, err)
	assert.NotEmpty(t, c.LastError())
}

func TestCodec_IssueOffsets(t *testing.T) {
	cases := []struct {
		name, json string
		offset     int64
	}{
		{"unknown key", `{"level":3}`, 8},
		{"duplicate key", `{"name":"a","name":"b"}`, 18},
		{"invalid type", `{"name":"Orc","hp":"lots"}`, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newMonsterCodec()
			iss, ok := flatjson.AsIssues(c.ParseString(tc.json))
			require.True(t, ok)
			assert.Equal(t, tc.offset, iss[0].Offset)
		})
	}

	c := newMonsterCodec()
	iss, ok := flatjson.AsIssues(c.ParseString(`{"name":"Orc",}`))
	require.True(t, ok)
	assert.Equal(t, flatjson.CodeParseError, iss[0].Code)
	assert.GreaterOrEqual(t, iss[0].Offset, int64(0))

	// non-strict input is normalized first, so positions are not reported
	c.SetStrictJSONKeys(false)
	iss, ok = flatjson.AsIssues(c.ParseString(`{level:3}`))
	require.True(t, ok)
	assert.Equal(t, flatjson.CodeUnknownKey, iss[0].Code)
	assert.Equal(t, int64(-1), iss[0].Offset)
}

func TestCodec_TextKeepsHTMLCharacters(t *testing.T) {
	c := newMonsterCodec()
	require.NoError(t, c.ParseString(`{"name":"<b>&x"}`))

	out, err := c.Text()
	require.NoError(t, err)
	assert.Equal(t, `{"name":"<b>&x","hp":100,"color":"Blue"}`, out)
	require.NoError(t, c.ParseString(out))
	assert.Equal(t, "<b>&x", string(c.Root().Name()))
}

func TestCodec_SingleQuotedStringsWhenNotStrict(t *testing.T) {
	c := newMonsterCodec()
	require.Error(t, c.ParseString(`{"name":'Orc'}`))

	c.SetStrictJSONKeys(false)
	require.NoError(t, c.ParseString(`{name:'Orc',weapons:[{name:'Dragon\'s "Axe"'}]}`))
	out, err := c.Text()
	require.NoError(t, err)
	assert.Equal(t, `{name:"Orc",hp:100,color:"Blue",weapons:[{name:"Dragon's \"Axe\"",damage:0}]}`, out)
}

func TestCodec_StrictJSONKeys(t *testing.T) {
	c := newMonsterCodec(flatjson.WithConfig(flatjson.Config{StrictJSONKeys: true, IndentStep: -1}))
	require.NoError(t, c.ParseString(`{"name":"Orc","hp":7}`))

	quoted, err := c.Text()
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Orc","hp":7}`, quoted)
	require.NoError(t, c.ParseString(quoted))

	c.SetStrictJSONKeys(false)
	bare, err := c.Text()
	require.NoError(t, err)
	assert.Equal(t, `{name:"Orc",hp:7}`, bare)
	require.NoError(t, c.ParseString(bare))
	assert.Equal(t, int16(7), c.Root().Hp())

	c.SetStrictJSONKeys(true)
	assert.Error(t, c.ParseString(bare))
}

func TestCodec_Indentation(t *testing.T) {
	c := newMonsterCodec()
	require.NoError(t, c.ParseString(`{"name":"Orc","weapons":[{"name":"Axe","damage":5}]}`))

	flat, err := c.Text()
	require.NoError(t, err)
	assert.NotContains(t, flat, "\n")

	c.SetIndentStep(2)
	out, err := c.Text()
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), 3)
	depths := map[int]bool{}
	for _, line := range lines {
		n := len(line) - len(strings.TrimLeft(line, " "))
		assert.Zero(t, n%2, "line %q", line)
		depths[n] = true
	}
	assert.True(t, depths[6], "weapon fields sit at depth 3")

	c.SetIndentStep(0)
	out, err = c.Text()
	require.NoError(t, err)
	assert.Contains(t, out, "\n\"name\": \"Orc\"")
}

func TestCodec_ConfigAppliesToNextCallOnly(t *testing.T) {
	c := newMonsterCodec()
	require.NoError(t, c.ParseString(`{"name":"Orc"}`))
	first, err := c.Text()
	require.NoError(t, err)

	c.SetIndentStep(4)
	assert.Equal(t, `{"name":"Orc","hp":100,"color":"Blue"}`, first)
	second, err := c.Text()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCodec_Reset(t *testing.T) {
	c := newMonsterCodec()
	require.NoError(t, c.ParseString(`{"name":"Orc"}`))
	c.SetIndentStep(2)
	c.SetStrictJSONKeys(false)

	c.Reset()
	c.Reset()
	assert.Equal(t, flatjson.DefaultConfig(), c.Config())
	assert.Nil(t, c.Buffer())
	assert.Empty(t, c.LastError())
	assert.Equal(t, flatjson.Unloaded, c.Registry().State())

	_, err := c.Text()
	require.Error(t, err)
	assert.True(t, errors.Is(err, flatjson.ErrNoBuffer))

	require.NoError(t, c.ParseString(`{"name":"Elf"}`))
	assert.Equal(t, flatjson.Loaded, c.Registry().State())
}

func TestCodec_ResetConfig(t *testing.T) {
	c := newMonsterCodec()
	require.NoError(t, c.ParseString(`{"name":"Orc"}`))
	buf := c.Buffer()
	c.SetConfig(flatjson.Config{IndentStep: 3})

	c.ResetConfig()
	c.ResetConfig()
	assert.Equal(t, flatjson.DefaultConfig(), c.Config())
	assert.Equal(t, buf, c.Buffer())
	assert.Equal(t, flatjson.Loaded, c.Registry().State())
	out, err := c.Text()
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Orc","hp":100,"color":"Blue"}`, out)
}

func TestCodec_GenerateTextFromRoot(t *testing.T) {
	c := newMonsterCodec()
	require.NoError(t, c.ParseString(`{"name":"Orc","hp":1}`))

	want, err := c.Text()
	require.NoError(t, err)
	got, err := c.GenerateTextFromRoot(c.Root())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = c.GenerateTextFromRoot(nil)
	assert.True(t, errors.Is(err, flatjson.ErrNoBuffer))
}

func TestCodec_DynamicTableHasNoReflection(t *testing.T) {
	c, err := flatjson.NewCodec[flatjson.Table](monsterModules())
	require.NoError(t, err)
	require.NoError(t, c.ParseString(`{"name":"Orc"}`))

	root := c.Root()
	assert.True(t, root.Has(0))
	assert.False(t, root.Has(1))
	assert.Equal(t, "Orc", root.StringField(0))

	_, err = c.GenerateTextFromRoot(root)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flatjson.ErrReflectionUnavailable))
	iss, _ := flatjson.AsIssues(err)
	assert.Equal(t, flatjson.CodeReflectionUnavailable, iss[0].Code)
	assert.NotEmpty(t, c.LastError())

	out, err := c.Text()
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Orc","hp":100,"color":"Blue"}`, out)
}

func TestCodec_Limits(t *testing.T) {
	c := newMonsterCodec(flatjson.WithLimits(flatjson.Limits{MaxBytes: 16}))
	err := c.ParseString(`{"name":"a very long monster name"}`)
	require.Error(t, err)
	iss, _ := flatjson.AsIssues(err)
	assert.Equal(t, flatjson.CodeTruncated, iss[0].Code)

	err = c.ParseReader(strings.NewReader(`{"name":"a very long monster name"}`))
	require.Error(t, err)

	require.NoError(t, c.ParseReader(strings.NewReader(`{"hp":1}`)))
	assert.Equal(t, int16(1), c.Root().Hp())
}

func TestNewCodec_NoModules(t *testing.T) {
	_, err := flatjson.NewCodec[Monster](nil)
	assert.ErrorIs(t, err, flatjson.ErrNoModules)
	assert.Panics(t, func() { flatjson.MustCodec[Monster](nil) })
}
