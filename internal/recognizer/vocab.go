package recognizer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Special token names as they appear in the exported vocabulary.
const (
	bosToken = "[BOS]"
	eosToken = "[EOS]"
	padToken = "[PAD]"
)

// Vocab maps between LaTeX token strings and model token ids. The file
// format is the tokenizer export shipped with the model: a JSON object of
// token string to integer id.
type Vocab struct {
	tokens []string
	bos    int64
	eos    int64
}

// LoadVocab reads a token-to-id JSON vocabulary file.
func LoadVocab(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocab file: %w", err)
	}

	var mapping map[string]int
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("invalid vocab file: %w", err)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("vocab file is empty")
	}

	maxID := 0
	for _, id := range mapping {
		if id < 0 {
			return nil, fmt.Errorf("vocab contains negative token id %d", id)
		}
		if id > maxID {
			maxID = id
		}
	}

	v := &Vocab{tokens: make([]string, maxID+1), bos: -1, eos: -1}
	for tok, id := range mapping {
		v.tokens[id] = tok
		switch tok {
		case bosToken:
			v.bos = int64(id)
		case eosToken:
			v.eos = int64(id)
		}
	}
	if v.bos < 0 || v.eos < 0 {
		return nil, fmt.Errorf("vocab is missing %s or %s", bosToken, eosToken)
	}
	return v, nil
}

// Size returns the vocabulary size.
func (v *Vocab) Size() int {
	return len(v.tokens)
}

// BOS returns the begin-of-sequence token id.
func (v *Vocab) BOS() int64 {
	return v.bos
}

// EOS returns the end-of-sequence token id.
func (v *Vocab) EOS() int64 {
	return v.eos
}

// Decode joins token ids back into a LaTeX string. The tokenizer marks
// word-continuation pieces with a leading "##"; everything else is joined
// with a space and LaTeX-insignificant runs are collapsed later by the
// cleaner.
func (v *Vocab) Decode(ids []int64) string {
	var sb strings.Builder
	for _, id := range ids {
		if id < 0 || int(id) >= len(v.tokens) {
			continue
		}
		tok := v.tokens[id]
		if tok == "" || tok == padToken || tok == bosToken || tok == eosToken {
			continue
		}
		if cont, ok := strings.CutPrefix(tok, "##"); ok {
			sb.WriteString(cont)
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok)
	}
	return sb.String()
}
