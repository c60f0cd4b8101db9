package chunk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// tiktokenTokenizer wraps a BPE encoding from the tiktoken-go library.
type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer returns a Tokenizer backed by the cl100k_base
// encoding. Loading the encoding downloads the BPE ranks on first use
// unless a local cache (TIKTOKEN_CACHE_DIR) is present.
func NewTiktokenTokenizer() (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("loading cl100k_base encoding: %w", err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
