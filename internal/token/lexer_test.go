package token

import "testing"

func TestAllBasic(t *testing.T) {
	toks, err := All("SELECT id, city FROM People WHERE age > 30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != Keyword || toks[0].Text != "SELECT" {
		t.Errorf("expected SELECT keyword, got %+v", toks[0])
	}
	last := toks[len(toks)-1]
	if last.Kind != EOF {
		t.Errorf("expected trailing EOF token, got %+v", last)
	}
}

func TestStringEscape(t *testing.T) {
	toks, err := All("'it''s here'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != String || toks[0].Text != "it's here" {
		t.Errorf("expected unescaped string, got %+v", toks[0])
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := All("'unterminated")
	if err == nil {
		t.Fatal("expected LexError for unterminated string")
	}
	if _, ok := err.(*LexError); !ok {
		t.Errorf("expected *LexError, got %T", err)
	}
}

func TestUnrecognizedCharacter(t *testing.T) {
	_, err := All("SELECT # FROM t")
	if err == nil {
		t.Fatal("expected LexError for unrecognized character")
	}
}

func TestTwoCharOperators(t *testing.T) {
	toks, err := All("a <> b != c <= d >= e")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ops []string
	for _, tok := range toks {
		if tok.Kind == Op {
			ops = append(ops, tok.Text)
		}
	}
	want := []string{"<>", "!=", "<=", ">="}
	if len(ops) != len(want) {
		t.Fatalf("expected %v, got %v", want, ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d: expected %q, got %q", i, want[i], ops[i])
		}
	}
}
