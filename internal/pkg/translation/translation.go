package translation

import (
	"embed"
	"fmt"
	"path"

	"github.com/leonelquinteros/gotext"
)

const (
	DefaultLanguage = "nl"
	domain          = "default.po"
)

//go:embed locales
var locales embed.FS

// Translator resolves message ids for one language.
type Translator struct {
	lang string
	po   *gotext.Po
}

// New loads the catalogue of lang.
func New(lang string) (*Translator, error) {
	if lang == "" || lang == "und" {
		lang = DefaultLanguage
	}
	data, err := locales.ReadFile(path.Join("locales", lang, domain))
	if err != nil {
		return nil, fmt.Errorf("no translations for language %q: %w", lang, err)
	}
	po := gotext.NewPo()
	po.Parse(data)
	return &Translator{lang: lang, po: po}, nil
}

func (t *Translator) Language() string {
	return t.lang
}

func (t *Translator) Translate(msgID string, vars ...any) string {
	return t.po.Get(msgID, vars...)
}
