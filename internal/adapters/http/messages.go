package httpadapter

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

// Codes the adapter answers with besides the pipeline rejection codes.
const (
	codeServerBusy       = "server_busy"
	codeMethodNotAllowed = "method_not_allowed"
	codeMissingEvent     = "missing_event"
	codeInternal         = "internal_error"
)

//go:embed messages.yaml
var messagesYAML []byte

var defaultCatalog = mustLoadCatalog(messagesYAML)

// Catalog holds the localized, non-technical text shown for each failure code.
type Catalog struct {
	fallback map[domain.Language]string
	codes    map[string]map[domain.Language]string
}

type catalogFile struct {
	Fallback map[string]string            `yaml:"fallback"`
	Codes    map[string]map[string]string `yaml:"codes"`
}

func LoadCatalog(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode message catalog: %w", err)
	}
	if file.Fallback[string(domain.LanguageEnglish)] == "" {
		return nil, fmt.Errorf("message catalog has no english fallback")
	}

	catalog := &Catalog{
		fallback: toLanguageMap(file.Fallback),
		codes:    make(map[string]map[domain.Language]string, len(file.Codes)),
	}
	for code, texts := range file.Codes {
		catalog.codes[code] = toLanguageMap(texts)
	}
	return catalog, nil
}

func mustLoadCatalog(raw []byte) *Catalog {
	catalog, err := LoadCatalog(raw)
	if err != nil {
		panic(err)
	}
	return catalog
}

// Message returns the text for code in lang, falling back to English and
// then to the generic message.
func (c *Catalog) Message(code string, lang domain.Language) string {
	if texts, ok := c.codes[code]; ok {
		if text := texts[lang]; text != "" {
			return text
		}
		if text := texts[domain.LanguageEnglish]; text != "" {
			return text
		}
	}
	if text := c.fallback[lang]; text != "" {
		return text
	}
	return c.fallback[domain.LanguageEnglish]
}

// Has reports whether code has its own entry.
func (c *Catalog) Has(code string) bool {
	_, ok := c.codes[code]
	return ok
}

func toLanguageMap(in map[string]string) map[domain.Language]string {
	out := make(map[domain.Language]string, len(in))
	for lang, text := range in {
		out[domain.Language(lang)] = text
	}
	return out
}
