package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsPositions(t *testing.T) {
	t.Parallel()

	source := `<?xml version="1.0" encoding="utf-8"?>
<odoo>
    <data noupdate="1">
        <record id="acct.partner_1" model="res.partner">
            <field name="name">Partner</field>
        </record>
        <record model="res.partner"
                id="partner_2">
        </record>
        <record model="res.partner"><field name="x">no id</field></record>
        <template id="tmpl_1"/>
    </data>
</odoo>
`
	records, err := Records([]byte(source), "/repo/acct/views/main.xml", "acct", RecordOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, "acct.partner_1", r.ID)
	assert.Equal(t, "acct", r.Module)
	assert.Equal(t, "record", r.Tag)
	assert.Equal(t, "/repo/acct/views/main.xml", r.File)
	assert.Equal(t, 4, r.Line)
	assert.Equal(t, 17, r.Column)

	r = records[1]
	assert.Equal(t, "partner_2", r.ID)
	assert.Equal(t, 8, r.Line)
	assert.Equal(t, 17, r.Column)
}

func TestRecordsCustomTags(t *testing.T) {
	t.Parallel()

	source := `<odoo><record id="a"/><template id="b"/><menuitem id="c"/></odoo>`
	records, err := Records([]byte(source), "f.xml", "m", RecordOptions{Tags: []string{"record", "template"}})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, "template", records[1].Tag)
	assert.Equal(t, 1, records[1].Line)
	assert.Equal(t, 33, records[1].Column)
}

func TestRecordsColumnCountsRunes(t *testing.T) {
	t.Parallel()

	source := "<odoo><!-- é --><record id=\"x\"/></odoo>"
	records, err := Records([]byte(source), "f.xml", "m", RecordOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 25, records[0].Column)
}

func TestRecordsMalformed(t *testing.T) {
	t.Parallel()

	source := "<odoo>\n  <record id=\"a\">\n</odoo>\n"
	records, err := Records([]byte(source), "bad.xml", "m", RecordOptions{})
	assert.Nil(t, records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.xml", pe.File)
	assert.Equal(t, 3, pe.Line)
}

func TestRecordsEmptyFile(t *testing.T) {
	t.Parallel()

	records, err := Records([]byte("  \n"), "empty.xml", "m", RecordOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordsLatin1(t *testing.T) {
	t.Parallel()

	source := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<odoo><record id=\"caf\xe9\"/></odoo>")
	records, err := Records(source, "latin.xml", "m", RecordOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "café", records[0].ID)
	assert.Equal(t, 2, records[0].Line)
}

func TestLineIndex(t *testing.T) {
	t.Parallel()

	li := newLineIndex([]byte("ab\ncd\n"))
	line, col := li.position(0)
	assert.Equal(t, []int{1, 1}, []int{line, col})
	line, col = li.position(4)
	assert.Equal(t, []int{2, 2}, []int{line, col})
	line, col = li.position(100)
	assert.Equal(t, []int{3, 1}, []int{line, col})
}
