package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelaxJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare keys", `{a:1,b:true}`, `{"a":1,"b":true}`},
		{"trailing commas", `{a:1,b:[1,2,],}`, `{"a":1,"b":[1,2]}`},
		{"bare enum value", `{color:Red}`, `{"color":"Red"}`},
		{"literals kept", `{a:null,b:false}`, `{"a":null,"b":false}`},
		{"line comment", "{a:1 // note\n}", "{\"a\":1 \n}"},
		{"block comment", `{/* x */a:1}`, `{"a":1}`},
		{"hex", `{a:0x1F,b:-0x10}`, `{"a":31,"b":-16}`},
		{"non finite", `{a:-inf,b:nan}`, `{"a":"-inf","b":"nan"}`},
		{"exponent", `{a:1e-5}`, `{"a":1e-5}`},
		{"strings untouched", `{"k":"a: b, // c"}`, `{"k":"a: b, // c"}`},
		{"escaped quote", `{k:"a\"b"}`, `{"k":"a\"b"}`},
		{"single quotes", `{name:'Orc'}`, `{"name":"Orc"}`},
		{"single quote escapes", `{k:'it\'s "x"'}`, `{"k":"it's \"x\""}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(relaxJSON([]byte(tc.in))))
		})
	}
}

func TestRelaxJSON_DoubledCommaStaysInvalid(t *testing.T) {
	out := relaxJSON([]byte(`[1,,2]`))
	assert.Error(t, checkSyntax(out))
}

func TestRelaxJSON_UnterminatedSingleQuoteStaysInvalid(t *testing.T) {
	out := relaxJSON([]byte(`{k:'abc}`))
	assert.Error(t, checkSyntax(out))
}
