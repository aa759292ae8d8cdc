package document

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	domdoc "github.com/kailas-cloud/imagedex/internal/domain/document"
	"github.com/kailas-cloud/imagedex/internal/domain/tag"
)

// Hash field names. tag_labels and top_confidence are denormalized copies of
// the tags blob so the FT index can filter on them.
const (
	fieldFileName      = "file_name"
	fieldTags          = "tags"
	fieldTagLabels     = "tag_labels"
	fieldTopConfidence = "top_confidence"
	fieldEmbedding     = "embedding"
	fieldLastModified  = "last_modified"
)

// buildFields flattens a document into hash fields for a single HSET.
func buildFields(doc *domdoc.Document) (map[string]string, error) {
	tagsJSON, err := doc.Tags().MarshalText()
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	return map[string]string{
		fieldFileName:      doc.ID(),
		fieldTags:          string(tagsJSON),
		fieldTagLabels:     doc.Tags().JoinLabels(","),
		fieldTopConfidence: strconv.FormatFloat(doc.Tags().TopConfidence(), 'g', -1, 64),
		fieldEmbedding:     string(vectorToBytes(doc.Vector())),
		fieldLastModified:  strconv.FormatInt(doc.LastModified().UnixMilli(), 10),
	}, nil
}

// parseFields hydrates a document from hash fields.
func parseFields(id string, fields map[string]string) (domdoc.Document, error) {
	tags, err := tag.ParseSet([]byte(fields[fieldTags]))
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("decode tags for %s: %w", id, err)
	}

	vec, err := bytesToVector([]byte(fields[fieldEmbedding]))
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("decode embedding for %s: %w", id, err)
	}

	var lastModified time.Time
	if raw := fields[fieldLastModified]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("decode last_modified for %s: %w", id, err)
		}
		lastModified = time.UnixMilli(ms).UTC()
	}

	return domdoc.Reconstruct(id, tags, vec, lastModified), nil
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob: len=%d (not multiple of 4)", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
