package embed

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// AlgoTFIDFSVD identifies the embedding algorithm carried by an Artifact,
// per spec §9.
const AlgoTFIDFSVD = "tfidf+svd"

// artifactMagic and artifactVersion tag the binary format so a future
// incompatible revision fails fast on load instead of silently
// misinterpreting bytes.
const (
	artifactMagic   uint32 = 0x44525431 // "DRT1"
	artifactVersion uint16 = 1
)

// Artifact is the explicit, versioned replacement for the original's
// pickled TF-IDF -> SVD model (spec §9): a header plus two arrays (IDF
// weights and the SVD projection matrix), in a language-neutral tagged
// binary record rather than a serialized Python object.
type Artifact struct {
	Algo          string
	VocabSize     int
	Dim           int
	SVDComponents int
	Vocabulary    []string  // VocabSize terms, column order matches IDF/Projection rows
	IDF           []float32 // length VocabSize
	Projection    [][]float32 // VocabSize rows x Dim columns
}

// WriteArtifact serializes a to w in the tagged binary format:
// magic, version, then length-prefixed header fields and arrays.
func WriteArtifact(w io.Writer, a *Artifact) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, artifactMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, artifactVersion); err != nil {
		return err
	}
	if err := writeString(bw, a.Algo); err != nil {
		return err
	}
	for _, n := range []int32{int32(a.VocabSize), int32(a.Dim), int32(a.SVDComponents)} {
		if err := binary.Write(bw, binary.LittleEndian, n); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(len(a.Vocabulary))); err != nil {
		return err
	}
	for _, term := range a.Vocabulary {
		if err := writeString(bw, term); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(len(a.IDF))); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, a.IDF); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(len(a.Projection))); err != nil {
		return err
	}
	for _, row := range a.Projection {
		if err := binary.Write(bw, binary.LittleEndian, int32(len(row))); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadArtifact deserializes an Artifact from r, validating the format tag.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	br := bufio.NewReader(r)
	var magic uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("embed: read artifact magic: %w", err)
	}
	if magic != artifactMagic {
		return nil, fmt.Errorf("embed: not a docretrieve embedding artifact (bad magic)")
	}
	var version uint16
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("embed: read artifact version: %w", err)
	}
	if version != artifactVersion {
		return nil, fmt.Errorf("embed: unsupported artifact version %d", version)
	}

	a := &Artifact{}
	var err error
	if a.Algo, err = readString(br); err != nil {
		return nil, err
	}
	var vocabSize, dim, svdComponents int32
	if err := binary.Read(br, binary.LittleEndian, &vocabSize); err != nil {
		return nil, err
	}
	if err := binary.Read(br, binary.LittleEndian, &dim); err != nil {
		return nil, err
	}
	if err := binary.Read(br, binary.LittleEndian, &svdComponents); err != nil {
		return nil, err
	}
	a.VocabSize, a.Dim, a.SVDComponents = int(vocabSize), int(dim), int(svdComponents)

	var vocabLen int32
	if err := binary.Read(br, binary.LittleEndian, &vocabLen); err != nil {
		return nil, err
	}
	a.Vocabulary = make([]string, vocabLen)
	for i := range a.Vocabulary {
		if a.Vocabulary[i], err = readString(br); err != nil {
			return nil, err
		}
	}

	var idfLen int32
	if err := binary.Read(br, binary.LittleEndian, &idfLen); err != nil {
		return nil, err
	}
	a.IDF = make([]float32, idfLen)
	if err := binary.Read(br, binary.LittleEndian, a.IDF); err != nil {
		return nil, err
	}

	var rows int32
	if err := binary.Read(br, binary.LittleEndian, &rows); err != nil {
		return nil, err
	}
	a.Projection = make([][]float32, rows)
	for i := range a.Projection {
		var cols int32
		if err := binary.Read(br, binary.LittleEndian, &cols); err != nil {
			return nil, err
		}
		row := make([]float32, cols)
		if err := binary.Read(br, binary.LittleEndian, row); err != nil {
			return nil, err
		}
		a.Projection[i] = row
	}
	return a, nil
}

// LoadArtifactFile opens path and reads an Artifact from it.
func LoadArtifactFile(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadArtifact(f)
}

// SaveArtifactFile writes a to path, creating or truncating it.
func SaveArtifactFile(path string, a *Artifact) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteArtifact(f, a)
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
