package ai

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// loadTokenizer reads a Hugging Face tokenizer.json (the one shipped with
// the sentence-transformers export) and caps encodings at maxLen tokens,
// [CLS] and [SEP] included.
func loadTokenizer(path string, maxLen int) (*tokenizer.Tokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s failed: %w", path, err)
	}
	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: maxLen,
		Strategy:  tokenizer.LongestFirst,
	})
	return tk, nil
}

type encodedText struct {
	ids     []int64
	mask    []int64
	typeIDs []int64
}

func encodeText(tk *tokenizer.Tokenizer, text string) (encodedText, error) {
	en, err := tk.EncodeSingle(text, true)
	if err != nil {
		return encodedText{}, fmt.Errorf("tokenize failed: %w", err)
	}
	out := encodedText{
		ids:     toInt64(en.Ids),
		mask:    toInt64(en.AttentionMask),
		typeIDs: toInt64(en.TypeIds),
	}
	if len(out.mask) != len(out.ids) {
		out.mask = make([]int64, len(out.ids))
		for i := range out.mask {
			out.mask[i] = 1
		}
	}
	if len(out.typeIDs) != len(out.ids) {
		out.typeIDs = make([]int64, len(out.ids))
	}
	return out, nil
}

func toInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}
