package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Document describes one indexed page.
type Document struct {
	Title    string    `json:"title"`
	Path     string    `json:"path"`
	Name     string    `json:"name,omitempty"`
	Source   string    `json:"source,omitempty"`
	Sections []Section `json:"sections,omitempty"`
}

// Section is a titled anchor within a document. An empty Anchor refers to
// the document's own top-level title.
type Section struct {
	Title  string `json:"title"`
	Anchor string `json:"anchor,omitempty"`
}

// PostingList is the set of document references for one term. Lists held by
// an Index are shared and must not be mutated.
type PostingList = *roaring.Bitmap

// TermEntry pairs a term with its posting list.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// postingRefs decodes a posting value that is either a single document
// reference or a list of them.
type postingRefs []int64

func (p *postingRefs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		refs := make(postingRefs, 0, len(raw))
		for _, r := range raw {
			ref, err := decodeRef(r)
			if err != nil {
				return err
			}
			refs = append(refs, ref)
		}
		*p = refs
		return nil
	}
	ref, err := decodeRef(data)
	if err != nil {
		return err
	}
	*p = postingRefs{ref}
	return nil
}

func decodeRef(data json.RawMessage) (int64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' || data[0] == 'n' || data[0] == 't' || data[0] == 'f' {
		return 0, fmt.Errorf("document reference must be an integer, got %s", data)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, fmt.Errorf("document reference must be an integer, got %s", data)
	}
	ref, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("document reference must be an integer, got %s", data)
	}
	return ref, nil
}

// encodePostings renders a posting list the compact way Sphinx does: a bare
// integer for a single reference, a sorted list otherwise.
func encodePostings(bm PostingList, compact bool) any {
	refs := bm.ToArray()
	if compact && len(refs) == 1 {
		return refs[0]
	}
	out := make([]uint32, len(refs))
	copy(out, refs)
	return out
}

func sortedKeys(m map[string]PostingList) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
