package archive

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tokenEncodingOnce sync.Once
	tokenEncoding     *tiktoken.Tiktoken
)

// CountTokens returns an approximate token count for text using the
// cl100k_base encoding. When the encoding can't be loaded (no cached BPE
// data and no network), it falls back to a words*4/3 heuristic, which is
// close enough for an advisory field.
func CountTokens(text string) int {
	tokenEncodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			tokenEncoding = enc
		}
	})

	if tokenEncoding != nil {
		return len(tokenEncoding.Encode(text, nil, nil))
	}

	words := len(strings.Fields(text))
	return words * 4 / 3
}
