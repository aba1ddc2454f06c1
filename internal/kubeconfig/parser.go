package kubeconfig

import (
	"encoding/base64"
	"strings"

	"sigs.k8s.io/yaml"
)

// Document holds the parts of a kubeconfig we actually need for registration:
// the available context names and the declared default context. Everything
// else in the file (clusters, users, credentials) belongs to the registry,
// which receives the raw document and does its own full parse.
type Document struct {
	// Contexts lists the distinct context names in document order.
	Contexts []string
	// CurrentContext is the document's declared default, or "" when the
	// field is absent or the document failed to parse.
	CurrentContext string
}

// rawDocument mirrors just enough of the kubeconfig v1 schema to pull out
// context names. The contexts, clusters and users sections all share the
// same list-entry shape ({name, ...}), so we deliberately decode only the
// contexts section — a cluster or user that happens to share a name with a
// context must not leak into the result.
type rawDocument struct {
	CurrentContext string `json:"current-context"`
	Contexts       []struct {
		Name string `json:"name"`
	} `json:"contexts"`
}

// Parse extracts context names and the current-context from kubeconfig text.
//
// Parsing is deliberately non-fatal: malformed YAML, binary garbage, or a
// document without a contexts section all yield an empty Document. The
// caller falls back to letting the registry infer the context, so there is
// nothing actionable to report here.
func Parse(text string) Document {
	var raw rawDocument
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return Document{}
	}

	doc := Document{CurrentContext: raw.CurrentContext}

	// Keep document order but drop duplicates and unnamed entries.
	seen := make(map[string]bool, len(raw.Contexts))
	for _, c := range raw.Contexts {
		if c.Name == "" || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		doc.Contexts = append(doc.Contexts, c.Name)
	}

	return doc
}

// DecodeText converts raw kubeconfig bytes to text for parsing. Invalid
// UTF-8 sequences are replaced rather than rejected, so a file with a stray
// byte still yields its context names.
func DecodeText(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "�")
}

// EncodeTransport encodes the original kubeconfig bytes for submission to
// the registry (standard base64 alphabet, padded). The registry decodes and
// parses the exact uploaded bytes; only the local context extraction goes
// through DecodeText. Both derivations start from the same buffer so a
// lossy text conversion can never corrupt what the registry receives.
func EncodeTransport(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
