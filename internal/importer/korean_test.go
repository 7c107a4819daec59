package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeName(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("wall01.bmp"), "wall01.bmp"},
		{"utf8", []byte("가.bmp"), "가.bmp"},
		// "가" in EUC-KR
		{"euc-kr", []byte{0xb0, 0xa1, '.', 'b', 'm', 'p'}, "가.bmp"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeName(tt.in))
		})
	}
}

func TestRSMTexturePathLowercaseFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "texture", "prontera"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "texture", "prontera", "wall.bmp"), nil, 0o644))

	got := rsmTexturePath(dir, `Prontera\WALL.BMP`)
	assert.Equal(t, filepath.Join("texture", "prontera", "wall.bmp"), got)
}
