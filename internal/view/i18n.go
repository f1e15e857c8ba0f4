// Package view turns enriched birthdays into localized, display-ready values.
package view

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const (
	localeDir    = "locales"
	localePrefix = "active."
	localeSuffix = ".json"
)

// Translator holds the message bundle of every embedded language.
type Translator struct {
	bundle   *i18n.Bundle
	langs    []string
	fallback string
	matcher  language.Matcher
}

// NewTranslator loads locales/active.<lang>.json files. fallback is used when a
// request names no supported language; it must be one of the loaded ones.
func NewTranslator(fallback string) (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(localeDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLocalesAccess, err)
	}

	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, localePrefix) || !strings.HasSuffix(name, localeSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, localePrefix), localeSuffix)
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, localeDir+"/"+name); err != nil {
			return nil, fmt.Errorf("%s %s: %w", config.ErrLocaleLoad, name, err)
		}
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
		langs = append(langs, langCode)
	}

	if !slices.Contains(langs, fallback) {
		return nil, fmt.Errorf("%s: %q", config.ErrLanguageUnknown, fallback)
	}

	// The fallback goes first so the matcher picks it when nothing matches.
	ordered := append([]string{fallback}, slices.DeleteFunc(slices.Clone(langs), func(l string) bool { return l == fallback })...)
	tags := make([]language.Tag, len(ordered))
	for i, l := range ordered {
		tags[i] = language.Make(l)
	}

	return &Translator{
		bundle:   bundle,
		langs:    ordered,
		fallback: fallback,
		matcher:  language.NewMatcher(tags),
	}, nil
}

// Languages lists the loaded languages, fallback first.
func (t *Translator) Languages() []string {
	return slices.Clone(t.langs)
}

// Match picks the best supported language for the given preferences, which may be
// plain codes ("ru") or Accept-Language header values ("ru-RU,ru;q=0.9,en;q=0.8").
func (t *Translator) Match(prefs ...string) string {
	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return t.fallback
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return t.fallback
	}
	return t.langs[idx]
}

// Localizer returns a translator bound to the best match of prefs.
func (t *Translator) Localizer(prefs ...string) *Localizer {
	lang := t.Match(prefs...)
	return &Localizer{Lang: lang, loc: i18n.NewLocalizer(t.bundle, lang)}
}

// Localizer translates message keys for a single language.
type Localizer struct {
	Lang string
	loc  *i18n.Localizer
}

// Msg translates key. Missing keys come back untranslated.
func (l *Localizer) Msg(key string, data map[string]any) string {
	return l.localize(&i18n.LocalizeConfig{MessageID: key, TemplateData: data})
}

// Plural translates a key with plural forms, exposing count as {{.Count}}.
func (l *Localizer) Plural(key string, count int) string {
	return l.localize(&i18n.LocalizeConfig{
		MessageID:    key,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

func (l *Localizer) localize(cfg *i18n.LocalizeConfig) string {
	msg, err := l.loc.Localize(cfg)
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, cfg.MessageID,
			config.LogKeyLang, l.Lang,
			config.LogKeyError, err,
		)
		return cfg.MessageID
	}
	return msg
}
