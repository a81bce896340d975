package jsonfile

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLayouts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"array", `[{"title":"Soup"},{"title":"Stew"}]`, []string{"Soup", "Stew"}},
		{"wrapped", `{"recipes":[{"title":"Soup","ingredients":["1 leek"]}]}`, []string{"Soup"}},
		{"lines", "{\"title\":\"Soup\"}\n\n{\"title\":\"Stew\"}\n", []string{"Soup", "Stew"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			var titles []string
			for _, r := range records {
				titles = append(titles, r.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("title: soup"))
	assert.Error(t, err)

	_, err = Decode([]byte("{\"title\":\"Soup\"}\n{broken"))
	assert.ErrorContains(t, err, "line 2")
}

func TestSourcePaging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title":"a"},{"title":"b"},{"title":"c"}]`), 0o600))

	src, err := Open(path, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	page, err := src.NextPage(context.Background())
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = src.NextPage(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Len(t, page, 1)

	page, err = src.NextPage(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, page)
}
