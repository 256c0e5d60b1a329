package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/entity"
	"glasserp/internal/core/types"
)

type testLine struct {
	Name string `json:"name"`
}

type testDocument struct {
	entity.Document
	Number string            `db:"number"`
	Total  types.Paise       `db:"total"`
	Lines  []testLine        `db:"lines"`
	Tags   map[string]string `db:"tags"`
	Raw    []byte            `db:"raw"`
	Note   string            `db:"-"`
	Hidden string
}

type testAudited struct {
	*entity.Document
	Number string `db:"number"`
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[testDocument]()

	assert.Equal(t, "id", cols[0], "embedded document columns come first")
	for _, expected := range []string{"id", "version", "created_at", "updated_at", "created_by", "updated_by", "number", "total", "lines", "tags", "raw"} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "Hidden")
	assert.Equal(t, []string{"number", "total", "lines", "tags", "raw"}, cols[len(cols)-5:])
}

func TestExtractDBColumns_ReturnsCopy(t *testing.T) {
	cols := ExtractDBColumns[testDocument]()
	cols[0] = "mutated"
	assert.Equal(t, "id", ExtractDBColumns[testDocument]()[0])
}

func TestStructToMap(t *testing.T) {
	tests := []struct {
		name  string
		doc   testDocument
		check func(t *testing.T, doc testDocument, m map[string]any)
	}{
		{
			name: "values and promoted columns",
			doc: testDocument{
				Document: entity.NewDocument("u-1"),
				Number:   "PO-20240401-000001",
				Total:    5_000_000,
				Lines:    []testLine{{Name: "float glass"}},
				Note:     "ignored",
			},
			check: func(t *testing.T, doc testDocument, m map[string]any) {
				assert.Equal(t, doc.ID, m["id"])
				assert.Equal(t, 1, m["version"])
				assert.Equal(t, "u-1", m["created_by"])
				assert.Equal(t, types.Paise(5_000_000), m["total"])
				assert.Equal(t, doc.Lines, m["lines"])
				assert.NotContains(t, m, "Note")
			},
		},
		{
			name: "nil lists and maps become empty",
			doc:  testDocument{Document: entity.NewDocument("u-1")},
			check: func(t *testing.T, doc testDocument, m map[string]any) {
				lines, ok := m["lines"].([]testLine)
				require.True(t, ok)
				assert.NotNil(t, lines)
				assert.Empty(t, lines)

				tags, ok := m["tags"].(map[string]string)
				require.True(t, ok)
				assert.NotNil(t, tags)
			},
		},
		{
			name: "byte columns keep nil",
			doc:  testDocument{Document: entity.NewDocument("u-1")},
			check: func(t *testing.T, doc testDocument, m map[string]any) {
				assert.Nil(t, m["raw"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.doc, StructToMap(&tt.doc))
		})
	}
}

func TestStructToMap_NilEmbeddedPointer(t *testing.T) {
	m := StructToMap(&testAudited{Number: "JC-20240401-0001"})
	assert.Equal(t, map[string]any{"number": "JC-20240401-0001"}, m)

	doc := entity.NewDocument("u-2")
	m = StructToMap(testAudited{Document: &doc, Number: "JC-20240401-0002"})
	assert.Equal(t, "u-2", m["created_by"])
}

func TestStructToMap_NotAStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap((*testDocument)(nil)))
}

func TestMutableColumns(t *testing.T) {
	m := mutableColumns(map[string]any{"id": 1, "version": 2, "created_at": 3, "created_by": 4, "status": "x"})
	assert.Equal(t, map[string]any{"status": "x"}, m)
}

func TestBumpVersion(t *testing.T) {
	doc := testDocument{Document: entity.NewDocument("")}
	bumpVersion(&doc)
	assert.Equal(t, 2, doc.Version)
}
