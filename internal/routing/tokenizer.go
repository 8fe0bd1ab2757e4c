package routing

import (
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// Tokenizer is the routing engine's external collaborator contract for
// estimating input token counts (spec.md §6: countTokens(textParts[]) ->
// integer). The engine calls it once per routing decision.
type Tokenizer interface {
	CountTokens(textParts []string) (int, error)
}

// TiktokenTokenizer adapts github.com/tiktoken-go/tokenizer to the
// Tokenizer contract, using the cl100k_base encoding as a model-agnostic
// default since the routing engine sees requests for many different
// provider/model pairs and has no single canonical tokenizer to match.
type TiktokenTokenizer struct {
	codec tokenizer.Codec
}

// NewTiktokenTokenizer builds a TiktokenTokenizer, failing only if the
// bundled cl100k_base encoding data cannot be loaded.
func NewTiktokenTokenizer() (*TiktokenTokenizer, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, err
	}
	return &TiktokenTokenizer{codec: codec}, nil
}

// CountTokens joins the given text parts and counts tokens over the result.
func (t *TiktokenTokenizer) CountTokens(textParts []string) (int, error) {
	text := strings.Join(textParts, "\n")
	if text == "" {
		return 0, nil
	}
	return t.codec.Count(text)
}
