package core

import (
	"testing"
)

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
		value []string
	}{
		{
			name:  "dictionary",
			input: "<< /Type /Page /Count 3 >>",
			want:  []TokenType{TokenDictStart, TokenName, TokenName, TokenName, TokenInteger, TokenDictEnd},
			value: []string{"<<", "Type", "Page", "Count", "3", ">>"},
		},
		{
			name:  "numbers",
			input: "-12 +4 3.25 .5 -.75",
			want:  []TokenType{TokenInteger, TokenInteger, TokenReal, TokenReal, TokenReal},
			value: []string{"-12", "+4", "3.25", ".5", "-.75"},
		},
		{
			name:  "comments are skipped",
			input: "% header\n1 0 obj % trailing\nendobj",
			want:  []TokenType{TokenInteger, TokenInteger, TokenKeyword, TokenKeyword},
			value: []string{"1", "0", "obj", "endobj"},
		},
		{
			name:  "name escapes",
			input: "/A#20B /Key.1",
			want:  []TokenType{TokenName, TokenName},
			value: []string{"A B", "Key.1"},
		},
		{
			name:  "strings",
			input: `(a\(b\)c) (x (nested) y) (\101\102) <48 65 6C>`,
			want:  []TokenType{TokenString, TokenString, TokenString, TokenHexString},
			value: []string{"a(b)c", "x (nested) y", "AB", "Hel"},
		},
		{
			name:  "arrays",
			input: "[1 2 R]",
			want:  []TokenType{TokenArrayStart, TokenInteger, TokenInteger, TokenKeyword, TokenArrayEnd},
			value: []string{"[", "1", "2", "R", "]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := NewLexer([]byte(tt.input))
			for i, want := range tt.want {
				tok, err := lex.NextToken()
				if err != nil {
					t.Fatalf("token %d: %v", i, err)
				}
				if tok.Type != want {
					t.Fatalf("token %d: type %d, want %d (%q)", i, tok.Type, want, tok.Value)
				}
				if string(tok.Value) != tt.value[i] {
					t.Errorf("token %d: value %q, want %q", i, tok.Value, tt.value[i])
				}
			}
			tok, err := lex.NextToken()
			if err != nil || tok.Type != TokenEOF {
				t.Errorf("expected EOF, got %v %v", tok, err)
			}
		})
	}
}

func TestLexerErrors(t *testing.T) {
	for _, input := range []string{"(unterminated", "<4G>", ")"} {
		lex := NewLexer([]byte(input))
		if _, err := lex.NextToken(); err == nil {
			t.Errorf("%q: expected an error", input)
		}
	}
}

func TestReadStreamDataRecoversBadLength(t *testing.T) {
	body := "stream\r\n0 0 m 10 0 l S\nendstream"
	tests := []struct {
		name   string
		length int
	}{
		{"exact", len("0 0 m 10 0 l S")},
		{"too long", 500},
		{"too short", 3},
		{"unknown", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := NewLexer([]byte(body))
			data, err := lex.ReadStreamData(len("stream"), tt.length)
			if err != nil {
				t.Fatalf("ReadStreamData: %v", err)
			}
			if string(data) != "0 0 m 10 0 l S" {
				t.Errorf("data = %q", data)
			}
			if lex.Pos() != len(body) {
				t.Errorf("pos = %d, want %d", lex.Pos(), len(body))
			}
		})
	}
}
