package languages

import (
	"fmt"
	"strings"

	"github.com/skelly-dev/typenav/internal/parser"
)

var constructors = map[string]func() parser.LanguageParser{
	"csharp":     func() parser.LanguageParser { return NewCSharpParser() },
	"java":       func() parser.LanguageParser { return NewJavaParser() },
	"typescript": func() parser.LanguageParser { return NewTypeScriptParser() },
}

// Supported lists the language names accepted by NewRegistry.
func Supported() []string {
	return []string{"csharp", "java", "typescript"}
}

// NewDefaultRegistry creates a registry with all supported language parsers
func NewDefaultRegistry() *parser.Registry {
	r, _ := NewRegistry(nil)
	return r
}

// NewRegistry creates a registry restricted to langs. An empty list means
// every supported language.
func NewRegistry(langs []string) (*parser.Registry, error) {
	if len(langs) == 0 {
		langs = Supported()
	}

	r := parser.NewRegistry()
	for _, lang := range langs {
		lang = strings.ToLower(strings.TrimSpace(lang))
		switch lang {
		case "":
			continue
		case "cs", "c#":
			lang = "csharp"
		case "ts", "js", "javascript":
			lang = "typescript"
		}
		ctor, ok := constructors[lang]
		if !ok {
			return nil, fmt.Errorf("unsupported language %q (supported: %s)", lang, strings.Join(Supported(), ", "))
		}
		r.Register(ctor())
	}
	return r, nil
}
