package pyliteral

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpressionManifest(t *testing.T) {
	t.Parallel()

	src := `# -*- coding: utf-8 -*-
{
    'name': "Accounting",
    'version': '16.0.1.0.0',
    'sequence': -5,
    'price': 1.5,
    'installable': True,
    'auto_install': False,
    'website': None,
    'depends': ['base', 'mail',],
    'data': [
        'security/ir.model.access.csv',  # access rights
        'views/' 'main.xml',
    ],
    'demo': ('demo/demo.xml',),
}
`
	v, err := ParseExpression(context.Background(), []byte(src))
	require.NoError(t, err)

	m, ok := v.(map[string]any)
	require.True(t, ok, "expected dict, got %T", v)

	assert.Equal(t, "Accounting", m["name"])
	assert.Equal(t, int64(-5), m["sequence"])
	assert.Equal(t, 1.5, m["price"])
	assert.Equal(t, true, m["installable"])
	assert.Equal(t, false, m["auto_install"])
	assert.Nil(t, m["website"])
	assert.Equal(t, []any{"base", "mail"}, m["depends"])
	assert.Equal(t, []any{"security/ir.model.access.csv", "views/main.xml"}, m["data"])
	assert.Equal(t, []any{"demo/demo.xml"}, m["demo"])
}

func TestParseExpressionRejectsCode(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"call":           `{'data': open('x').read()}`,
		"name":           `{'data': DATA}`,
		"binary":         `{'data': ['a'] + ['b']}`,
		"comprehension":  `{'data': [f for f in 'ab']}`,
		"fstring":        `{'data': [f'{x}']}`,
		"two statements": "x = 1\n{'data': []}",
		"assignment":     `manifest = {'data': []}`,
		"empty":          "# nothing here\n",
		"syntax error":   `{'data': [}`,
	}

	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseExpression(context.Background(), []byte(src))
			assert.Error(t, err)
		})
	}
}

func TestParseExpressionNotLiteralSentinel(t *testing.T) {
	t.Parallel()

	_, err := ParseExpression(context.Background(), []byte(`{'data': __import__('os')}`))
	assert.ErrorIs(t, err, ErrNotLiteral)
}

func TestDecodeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`'plain'`, "plain"},
		{`"double"`, "double"},
		{`'''triple'''`, "triple"},
		{`"""tri"ple"""`, `tri"ple`},
		{`'it\'s'`, "it's"},
		{`'a\nb'`, "a\nb"},
		{`r'a\nb'`, `a\nb`},
		{`u'caf\xe9'`, "café"},
		{`'é'`, "é"},
		{`'\101'`, "A"},
		{`'\q'`, `\q`},
		{`b'ab'`, "ab"},
		{`''`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeStringErrors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`f'x'`, `'open`, `noquote`, `'\x4'`} {
		_, err := DecodeString(in)
		assert.ErrorIs(t, err, ErrNotLiteral, in)
	}
}
