// Package schema parses and validates the two YAML documents noctivault
// reads: the local mock store (noctivault.local-store.yaml) and the secret
// references (noctivault.yaml). Documents are shape-checked against embedded
// JSON schemas before typed construction, and header platform/project values
// are inherited by entries that leave them unset. The two document kinds are
// strictly separate: a store carrying secret-refs, or a references document
// carrying secret-mocks, fails with CombinedConfigNotAllowedError.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/systmms/noctivault/pkg/provider"
	"github.com/systmms/noctivault/pkg/secrets"
)

//go:embed schemas/store.schema.json
var storeSchemaJSON []byte

//go:embed schemas/references.schema.json
var referencesSchemaJSON []byte

// CombinedConfigNotAllowedError reports a document that mixes the store and
// references roles in one file.
type CombinedConfigNotAllowedError struct {
	Message string
}

func (e CombinedConfigNotAllowedError) Error() string {
	return e.Message
}

// Mock is one stored secret version in the local mock store. Platform and
// Project are always filled: entries that omit them inherit the document
// header's values.
type Mock struct {
	Platform provider.Platform
	Project  string
	Name     string
	Value    string
	Version  int
}

// StoreFile is the parsed local mock store document.
type StoreFile struct {
	Platform provider.Platform
	Project  string
	Mocks    []Mock
}

// Ref is one leaf declaration: fetch the named secret and expose it under
// the Cast key. Name holds the remote secret name (the YAML "ref" field).
type Ref struct {
	Platform provider.Platform
	Project  string
	Cast     string
	Name     string
	Version  provider.Version
	Type     secrets.Type
}

func (Ref) isEntry() {}

// Group nests its children one level deep under Key.
type Group struct {
	Key      string
	Children []Ref
}

func (Group) isEntry() {}

// Entry is a references-document entry: a Ref or a Group. The sum is closed;
// the resolver switches exhaustively over the two.
type Entry interface {
	isEntry()
}

// ReferenceFile is the parsed secret references document. Entries keep the
// document's declaration order.
type ReferenceFile struct {
	Platform provider.Platform
	Project  string
	Entries  []Entry
}

type rawMock struct {
	Platform string    `yaml:"platform"`
	Project  string    `yaml:"gcp_project_id"`
	Name     string    `yaml:"name"`
	Value    yaml.Node `yaml:"value"`
	Version  int       `yaml:"version"`
}

type rawEntry struct {
	Platform string    `yaml:"platform"`
	Project  string    `yaml:"gcp_project_id"`
	Cast     string    `yaml:"cast"`
	Ref      string    `yaml:"ref"`
	Version  yaml.Node `yaml:"version"`
	Type     string    `yaml:"type"`

	Key      string     `yaml:"key"`
	Children []rawEntry `yaml:"children"`
}

type rawStore struct {
	Platform    string     `yaml:"platform"`
	Project     string     `yaml:"gcp_project_id"`
	SecretMocks []rawMock  `yaml:"secret-mocks"`
	SecretRefs  []rawEntry `yaml:"secret-refs"`
}

type rawReferences struct {
	Platform   string     `yaml:"platform"`
	Project    string     `yaml:"gcp_project_id"`
	SecretRefs []rawEntry `yaml:"secret-refs"`
}

// ParseStore parses and validates a local mock store document.
func ParseStore(data []byte) (*StoreFile, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store document: %w", err)
	}
	if err := validateWithSchema(doc, storeSchemaJSON); err != nil {
		return nil, err
	}
	if _, ok := doc["secret-refs"]; ok {
		return nil, CombinedConfigNotAllowedError{
			Message: "store document must not contain secret-refs; declare references in noctivault.yaml",
		}
	}

	var raw rawStore
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse store document: %w", err)
	}

	platform, err := provider.ParsePlatform(raw.Platform)
	if err != nil {
		return nil, err
	}

	mocks := make([]Mock, 0, len(raw.SecretMocks))
	for i, rm := range raw.SecretMocks {
		m, err := rm.toMock(platform, raw.Project)
		if err != nil {
			return nil, fmt.Errorf("secret-mocks[%d]: %w", i, err)
		}
		mocks = append(mocks, m)
	}

	return &StoreFile{Platform: platform, Project: raw.Project, Mocks: mocks}, nil
}

// ParseReferences parses and validates a secret references document.
func ParseReferences(data []byte) (*ReferenceFile, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse references document: %w", err)
	}
	if err := validateWithSchema(doc, referencesSchemaJSON); err != nil {
		return nil, err
	}
	if _, ok := doc["secret-mocks"]; ok {
		return nil, CombinedConfigNotAllowedError{
			Message: "references document must not contain secret-mocks; keep mocks in noctivault.local-store.yaml",
		}
	}

	var raw rawReferences
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse references document: %w", err)
	}

	platform, err := provider.ParsePlatform(raw.Platform)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(raw.SecretRefs))
	for i, re := range raw.SecretRefs {
		entry, err := re.toEntry(platform, raw.Project)
		if err != nil {
			return nil, fmt.Errorf("secret-refs[%d]: %w", i, err)
		}
		entries = append(entries, entry)
	}

	return &ReferenceFile{Platform: platform, Project: raw.Project, Entries: entries}, nil
}

func decodeDocument(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// validateWithSchema checks a decoded document against an embedded JSON
// schema and joins every violation into one error message.
func validateWithSchema(doc map[string]any, schemaJSON []byte) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document for validation: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("schema validation failed:\n  - %s", strings.Join(errorMessages, "\n  - "))
	}

	return nil
}

func (r rawMock) toMock(platform provider.Platform, project string) (Mock, error) {
	p := platform
	if r.Platform != "" {
		var err error
		p, err = provider.ParsePlatform(r.Platform)
		if err != nil {
			return Mock{}, err
		}
	}
	proj := project
	if r.Project != "" {
		proj = r.Project
	}

	value, err := scalarText(r.Value)
	if err != nil {
		return Mock{}, fmt.Errorf("value of %q: %w", r.Name, err)
	}
	if r.Version < 1 {
		return Mock{}, fmt.Errorf("version of %q must be >= 1, got %d", r.Name, r.Version)
	}

	return Mock{Platform: p, Project: proj, Name: r.Name, Value: value, Version: r.Version}, nil
}

func (r rawEntry) toEntry(platform provider.Platform, project string) (Entry, error) {
	if r.Key != "" || len(r.Children) > 0 {
		children := make([]Ref, 0, len(r.Children))
		for i, rc := range r.Children {
			ref, err := rc.toRef(platform, project)
			if err != nil {
				return nil, fmt.Errorf("children[%d]: %w", i, err)
			}
			children = append(children, ref)
		}
		return Group{Key: r.Key, Children: children}, nil
	}
	ref, err := r.toRef(platform, project)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (r rawEntry) toRef(platform provider.Platform, project string) (Ref, error) {
	p := platform
	if r.Platform != "" {
		var err error
		p, err = provider.ParsePlatform(r.Platform)
		if err != nil {
			return Ref{}, err
		}
	}
	proj := project
	if r.Project != "" {
		proj = r.Project
	}

	version, err := parseVersion(r.Version)
	if err != nil {
		return Ref{}, fmt.Errorf("ref %q: %w", r.Ref, err)
	}
	typ, err := secrets.ParseType(r.Type)
	if err != nil {
		return Ref{}, fmt.Errorf("ref %q: %w", r.Ref, err)
	}

	return Ref{Platform: p, Project: proj, Cast: r.Cast, Name: r.Ref, Version: version, Type: typ}, nil
}

// scalarText returns the literal text of a YAML scalar, so quoted values
// like "00123" keep their exact form instead of a re-rendered one.
func scalarText(n yaml.Node) (string, error) {
	node := &n
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return "", fmt.Errorf("expected a scalar value")
	}
	return node.Value, nil
}

func parseVersion(n yaml.Node) (provider.Version, error) {
	node := &n
	if node.Kind == 0 {
		return provider.Latest, nil
	}
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.ScalarNode {
		return provider.Version{}, fmt.Errorf(`version must be an integer or "latest"`)
	}
	if node.Value == "latest" {
		return provider.Latest, nil
	}
	num, err := strconv.Atoi(node.Value)
	if err != nil {
		return provider.Version{}, fmt.Errorf(`version must be an integer or "latest", got %q`, node.Value)
	}
	return provider.NumberedVersion(num)
}
