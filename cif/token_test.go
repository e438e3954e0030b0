package cif

import (
	"strings"
	"testing"
)

func tokenizeAll(t *testing.T, input string) []Token {
	t.Helper()
	buf := newByteBuffer(strings.NewReader(input))
	tok := newTokenizer(buf)
	var out []Token
	for {
		tk, ok, err := tok.next(false)
		if err != nil {
			t.Fatalf("next error: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, tk)
	}
	return out
}

func TestClassifyWord(t *testing.T) {
	tests := []struct {
		word string
		kind TokenKind
	}{
		{".", TokOmitted},
		{"?", TokUnknown},
		{"loop_", TokLoop},
		{"LOOP_", TokLoop},
		{"save_frame1", TokSaveFrame},
		{"SAVE_frame1", TokSaveFrame},
		{"data_mymodel", TokDataBlock},
		{"DATA_mymodel", TokDataBlock},
		{"_entry.id", TokVariable},
		{"bareword", TokValue},
		{"123.45", TokValue},
	}
	for _, tt := range tests {
		got := classifyWord(tt.word)
		if got.Kind != tt.kind {
			t.Errorf("classifyWord(%q).Kind = %v, want %v", tt.word, got.Kind, tt.kind)
		}
	}
}

// Property 1: every legally quotable value round-trips to exactly
// Value(v), including values equal to the reserved words, and quoted
// '.'/'?' never decode to Omitted/Unknown.
func TestQuotedValueRoundTrip(t *testing.T) {
	values := []string{
		"plain",
		".",
		"?",
		"has space",
		`has'apostrophe`,
		`has"doublequote`,
		"loop_",
		"data_x",
	}
	for _, v := range values {
		for _, q := range []byte{'\'', '"'} {
			// Skip cases where the value itself contains the quote
			// character we're wrapping it in — those aren't "legally
			// quotable" with that quote style.
			if strings.IndexByte(v, q) >= 0 {
				continue
			}
			input := string(q) + v + string(q) + "\n"
			toks := tokenizeAll(t, input)
			if len(toks) != 1 {
				t.Fatalf("tokenize(%q) = %d tokens, want 1", input, len(toks))
			}
			if toks[0].Kind != TokValue {
				t.Errorf("tokenize(%q).Kind = %v, want TokValue", input, toks[0].Kind)
			}
			if toks[0].Str != v {
				t.Errorf("tokenize(%q).Str = %q, want %q", input, toks[0].Str, v)
			}
		}
	}
}

func TestQuoteTerminationRequiresWhitespace(t *testing.T) {
	// A quote mid-token (not followed by whitespace/EOL) is literal.
	toks := tokenizeAll(t, "'it's a test'\n")
	if len(toks) != 1 {
		t.Fatalf("got %d tokens, want 1: %+v", len(toks), toks)
	}
	if toks[0].Str != "it's a test" {
		t.Errorf("Str = %q, want %q", toks[0].Str, "it's a test")
	}
}

func TestUnterminatedQuoteIsError(t *testing.T) {
	buf := newByteBuffer(strings.NewReader("'no closing quote\n"))
	tok := newTokenizer(buf)
	_, _, err := tok.next(false)
	if err == nil {
		t.Fatal("expected an error for unterminated quote")
	}
}

func TestMultilineToken(t *testing.T) {
	input := ";first line\nsecond line\n;\n_next.value x\n"
	toks := tokenizeAll(t, input)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(toks), toks)
	}
	if toks[0].Kind != TokValue || toks[0].Str != "first line\nsecond line" {
		t.Errorf("multiline token = %+v", toks[0])
	}
	if toks[1].Kind != TokVariable || toks[1].Str != "_next.value" {
		t.Errorf("variable token = %+v", toks[1])
	}
	if toks[2].Kind != TokValue || toks[2].Str != "x" {
		t.Errorf("value token = %+v", toks[2])
	}
}

func TestMultilineIgnored(t *testing.T) {
	buf := newByteBuffer(strings.NewReader(";discarded\ncontent\n;\n"))
	tok := newTokenizer(buf)
	tk, ok, err := tok.next(true)
	if err != nil {
		t.Fatalf("next error: %v", err)
	}
	if !ok {
		t.Fatal("expected a token")
	}
	if tk.Kind != TokValue || tk.Str != "" {
		t.Errorf("ignored multiline token = %+v, want empty Value", tk)
	}
}

func TestUnterminatedMultilineIsError(t *testing.T) {
	buf := newByteBuffer(strings.NewReader(";never closed\nmore content\n"))
	tok := newTokenizer(buf)
	_, _, err := tok.next(false)
	if err != ErrUnterminatedMultiline {
		t.Errorf("err = %v, want ErrUnterminatedMultiline", err)
	}
}

func TestTokenizerUnget(t *testing.T) {
	buf := newByteBuffer(strings.NewReader("a b c\n"))
	tok := newTokenizer(buf)
	first, _, err := tok.next(false)
	if err != nil {
		t.Fatalf("next error: %v", err)
	}
	tok.unget(first)
	again, _, err := tok.next(false)
	if err != nil {
		t.Fatalf("next after unget error: %v", err)
	}
	if again.Str != first.Str {
		t.Errorf("unget/next roundtrip = %q, want %q", again.Str, first.Str)
	}
	second, _, err := tok.next(false)
	if err != nil {
		t.Fatalf("next error: %v", err)
	}
	if second.Str != "b" {
		t.Errorf("second token = %q, want %q", second.Str, "b")
	}
}

func TestCommentsSkipped(t *testing.T) {
	input := "# full comment line\nvalue1 # trailing comment\nvalue2\n"
	toks := tokenizeAll(t, input)
	// "trailing comment" text after '#' on a value line is only
	// stripped by the tokenizer once it reaches the '#'; since '#' here
	// follows whitespace it terminates the line's tokens.
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2: %+v", len(toks), toks)
	}
	if toks[0].Str != "value1" || toks[1].Str != "value2" {
		t.Errorf("tokens = %+v", toks)
	}
}
