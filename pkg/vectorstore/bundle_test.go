package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLayout(t *testing.T) {
	tests := []struct {
		key       Key
		isDefault bool
		dir       string
		blob      string
	}{
		{key: DefaultKey, isDefault: true, dir: "default/", blob: "default/index.bin"},
		{key: SessionKey("abc"), dir: "sessions/abc/", blob: "sessions/abc/index.bin"},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			assert.Equal(t, tt.isDefault, tt.key.IsDefault())
			assert.Equal(t, tt.dir, tt.key.Dir())
			assert.Equal(t, tt.blob, tt.key.BlobName())
		})
	}
	assert.Equal(t, "sessions/abc/dataset.csv", SessionDataBlob("abc"))
}
