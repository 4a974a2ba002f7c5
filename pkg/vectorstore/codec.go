package vectorstore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"strings"
	"time"

	"exoplanet-classifier-be/pkg/exo"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how the gob payload of a bundle is compressed on disk.
type Compression byte

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
	CompressionLZ4  Compression = 2
)

func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	}
	return CompressionNone, fmt.Errorf("unknown compression %q", s)
}

func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	}
	return "none"
}

var (
	fileMagic = []byte("EXOVS1")

	// Pointer file left behind when the real binary was never fetched from Git LFS.
	lfsPointerMarker = []byte("version https://git-lfs.github.com")
)

type encodedBundle struct {
	Model   string
	BuiltAt time.Time
	Vectors [][]float32
	Rows    []encodedRow
}

// encodedRow flattens the optional fields of exo.Row. gob drops pointers to zero values,
// which would turn a false-positive disposition or a zero feature into a missing one.
type encodedRow struct {
	ID          string
	Type        string
	Name        string
	Labeled     bool
	Disposition int
	Present     [5]bool
	Features    [5]float64
}

func flattenRow(r exo.Row) encodedRow {
	e := encodedRow{ID: r.ID, Type: r.Type, Name: r.Name}
	if r.Disposition != nil {
		e.Labeled = true
		e.Disposition = int(*r.Disposition)
	}
	for i, f := range []*float64{r.Period, r.Duration, r.Depth, r.PlanetaryRadius, r.EquilibriumTemperature} {
		if f != nil {
			e.Present[i] = true
			e.Features[i] = *f
		}
	}
	return e
}

func (e encodedRow) row() exo.Row {
	r := exo.Row{ID: e.ID, Type: e.Type, Name: e.Name}
	if e.Labeled {
		r.Disposition = exo.Disposition(e.Disposition).Ptr()
	}
	targets := []**float64{&r.Period, &r.Duration, &r.Depth, &r.PlanetaryRadius, &r.EquilibriumTemperature}
	for i, t := range targets {
		if e.Present[i] {
			*t = exo.Float(e.Features[i])
		}
	}
	return r
}

// IsPlaceholder reports whether data starts with a storage-migration pointer instead of a bundle.
func IsPlaceholder(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), lfsPointerMarker)
}

// Encode writes header, compression byte and the compressed gob payload.
func Encode(w io.Writer, b *Bundle, c Compression) error {
	if _, err := w.Write(fileMagic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(c)}); err != nil {
		return err
	}

	var (
		body  io.Writer = w
		finish func() error
	)
	switch c {
	case CompressionNone:
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		body, finish = zw, zw.Close
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		body, finish = lw, lw.Close
	default:
		return fmt.Errorf("unknown compression %d", c)
	}

	payload := encodedBundle{Model: b.Model, BuiltAt: b.BuiltAt}
	if b.Index != nil {
		payload.Vectors = b.Index.vectors
		payload.Rows = make([]encodedRow, len(b.Index.rows))
		for i, r := range b.Index.rows {
			payload.Rows[i] = flattenRow(r)
		}
	}
	if err := gob.NewEncoder(body).Encode(&payload); err != nil {
		return err
	}
	if finish != nil {
		return finish()
	}
	return nil
}

func EncodeBytes(b *Bundle, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, b, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses data written by Encode. Any mismatch is reported as *StoreCorruptError.
func Decode(key Key, data []byte) (*Bundle, error) {
	if IsPlaceholder(data) {
		return nil, &StoreCorruptError{Key: key, Reason: "file is a git-lfs pointer, not a bundle"}
	}
	if len(data) < len(fileMagic)+1 || !bytes.Equal(data[:len(fileMagic)], fileMagic) {
		return nil, &StoreCorruptError{Key: key, Reason: "unrecognised header"}
	}

	r := bytes.NewReader(data[len(fileMagic)+1:])
	var body io.Reader = r
	switch Compression(data[len(fileMagic)]) {
	case CompressionNone:
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, &StoreCorruptError{Key: key, Reason: "zstd stream", Err: err}
		}
		defer zr.Close()
		body = zr
	case CompressionLZ4:
		body = lz4.NewReader(r)
	default:
		return nil, &StoreCorruptError{Key: key, Reason: fmt.Sprintf("unknown compression %d", data[len(fileMagic)])}
	}

	var payload encodedBundle
	if err := gob.NewDecoder(body).Decode(&payload); err != nil {
		return nil, &StoreCorruptError{Key: key, Reason: "payload", Err: err}
	}
	rows := make([]exo.Row, len(payload.Rows))
	for i, e := range payload.Rows {
		rows[i] = e.row()
	}
	ix, err := NewIndex(payload.Vectors, rows)
	if err != nil {
		return nil, &StoreCorruptError{Key: key, Reason: "index", Err: err}
	}
	return &Bundle{Key: key, Index: ix, Model: payload.Model, BuiltAt: payload.BuiltAt}, nil
}
