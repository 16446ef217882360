package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArchiveExt(t *testing.T) {
	tests := map[string]string{
		"assets.zip":        ".zip",
		"Assets.ZIP":        ".zip",
		"bundle.rar":        ".rar",
		"bundle.7z":         ".7z",
		"bundle.tar":        ".tar",
		"bundle.tgz":        ".tgz",
		"bundle.tar.gz":     ".tar.gz",
		"brief.txt.gz":      "",
		"flyer.pdf":         "",
		"no-extension-file": "",
	}
	for name, want := range tests {
		assert.Equal(t, want, ArchiveExt(name), name)
		assert.Equal(t, want != "", IsArchive(name), name)
	}
}

func TestShouldIgnore(t *testing.T) {
	for _, name := range []string{"", "dir/", ".DS_Store", "._notes.txt", "Thumbs.db", "__MACOSX"} {
		assert.True(t, ShouldIgnore(name), name)
	}
	assert.False(t, ShouldIgnore("cover.png"))
}
