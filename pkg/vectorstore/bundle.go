package vectorstore

import (
	"path"
	"time"
)

// Key identifies a bundle: the shared default or one session's.
type Key string

const DefaultKey Key = "default"

const sessionPrefix = "sessions/"

func SessionKey(sessionID string) Key {
	return Key(sessionPrefix + sessionID)
}

func (k Key) IsDefault() bool {
	return k == DefaultKey
}

// Dir is the blob prefix that holds everything owned by the key.
func (k Key) Dir() string {
	return string(k) + "/"
}

// BlobName is where the encoded bundle of the key is stored.
func (k Key) BlobName() string {
	return path.Join(string(k), "index.bin")
}

// SessionDataBlob is where a session's raw dataset CSV is stored, next to its bundle.
func SessionDataBlob(sessionID string) string {
	return path.Join(string(SessionKey(sessionID)), "dataset.csv")
}

// Bundle is the persisted unit: an index together with the rows it was built from.
type Bundle struct {
	Key     Key
	Index   *Index
	Model   string
	BuiltAt time.Time
}

func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return b.Index.Len()
}
