package kubeconfig

import (
	"encoding/base64"
	"reflect"
	"testing"
)

const twoContextConfig = `
apiVersion: v1
kind: Config
current-context: prod
clusters:
  - name: staging
    cluster:
      server: https://staging.example.com:6443
  - name: prod
    cluster:
      server: https://prod.example.com:6443
contexts:
  - name: staging
    context:
      cluster: staging
      user: staging-admin
  - name: prod
    context:
      cluster: prod
      user: prod-admin
users:
  - name: staging-admin
    user:
      token: redacted
  - name: prod-admin
    user:
      token: redacted
`

func TestParseExtractsContexts(t *testing.T) {
	doc := Parse(twoContextConfig)

	want := []string{"staging", "prod"}
	if !reflect.DeepEqual(doc.Contexts, want) {
		t.Errorf("Expected contexts %v, got %v", want, doc.Contexts)
	}

	if doc.CurrentContext != "prod" {
		t.Errorf("Expected current-context 'prod', got '%s'", doc.CurrentContext)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	first := Parse(twoContextConfig)
	second := Parse(twoContextConfig)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Parsing the same document twice gave different results: %+v vs %+v", first, second)
	}
}

// Context names must come from the contexts section only. Clusters and users
// share the same {name: ...} list shape, so a buggy parser could easily pick
// those up too (or dedupe a context away because a cluster shares its name).
func TestParseIgnoresClusterAndUserNames(t *testing.T) {
	doc := Parse(`
current-context: b
contexts:
  - name: a
  - name: b
clusters:
  - name: a
users:
  - name: b
`)

	want := []string{"a", "b"}
	if !reflect.DeepEqual(doc.Contexts, want) {
		t.Errorf("Expected contexts %v, got %v", want, doc.Contexts)
	}
	if doc.CurrentContext != "b" {
		t.Errorf("Expected current-context 'b', got '%s'", doc.CurrentContext)
	}
}

func TestParseDeduplicatesAndSkipsUnnamed(t *testing.T) {
	doc := Parse(`
contexts:
  - name: a
  - name: a
  - context:
      cluster: nameless
  - name: b
`)

	want := []string{"a", "b"}
	if !reflect.DeepEqual(doc.Contexts, want) {
		t.Errorf("Expected contexts %v, got %v", want, doc.Contexts)
	}
}

func TestParseMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"binary blob", string([]byte{0x00, 0xff, 0xfe, 0x89, 0x50, 0x4e, 0x47})},
		{"not yaml", "{{{{: not even close"},
		{"plain scalar", "just a sentence, no structure"},
		{"empty string", ""},
		{"wrong shapes", "contexts: 42\ncurrent-context: [a, b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Parse(tt.input)
			if len(doc.Contexts) != 0 {
				t.Errorf("Expected no contexts for %s, got %v", tt.name, doc.Contexts)
			}
			if doc.CurrentContext != "" {
				t.Errorf("Expected empty current-context for %s, got '%s'", tt.name, doc.CurrentContext)
			}
		})
	}
}

func TestDecodeTextToleratesInvalidUTF8(t *testing.T) {
	raw := append([]byte("contexts:\n  - name: a\n"), 0xff, 0xfe)

	text := DecodeText(raw)
	doc := Parse(text)

	if len(doc.Contexts) != 1 || doc.Contexts[0] != "a" {
		t.Errorf("Expected context 'a' to survive invalid trailing bytes, got %v", doc.Contexts)
	}
}

// The transport encoding must cover the original bytes, not the (possibly
// lossy) text derivation — the registry parses the exact upload.
func TestEncodeTransportRoundTrips(t *testing.T) {
	raw := []byte(twoContextConfig)

	encoded := EncodeTransport(raw)
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Transport encoding is not valid padded base64: %v", err)
	}

	if string(decoded) != string(raw) {
		t.Error("Transport encoding did not round-trip the original bytes")
	}
}
