// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package i18n provides localized messages for user-facing text.
//
// Translations are embedded at build time; the active locale travels on
// the request context so handlers and services can translate without
// threading a localizer through every call.
package i18n

import (
	"context"
	"embed"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

var (
	bundle   *i18n.Bundle
	fallback = language.English

	// supported lists the locales we ship message files for, in
	// matcher preference order.
	supported = []language.Tag{language.English, language.German}
)

type ctxKey int

const (
	localeKey ctxKey = iota
	localizerKey
)

// Init loads the embedded message files. Must be called once at startup
// before any translation.
func Init() error {
	b := i18n.NewBundle(fallback)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, tag := range supported {
		file := fmt.Sprintf("translations/active.%s.toml", tag)
		if _, err := b.LoadMessageFileFS(translationFS, file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	bundle = b
	return nil
}

// WithLocale stores the locale and a matching localizer on the context.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	locale := lang.String()
	ctx = context.WithValue(ctx, localeKey, locale)
	return context.WithValue(ctx, localizerKey, i18n.NewLocalizer(bundle, locale))
}

// GetLocale returns the locale stored on the context, defaulting to
// English.
func GetLocale(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey).(string); ok {
		return locale
	}
	return fallback.String()
}

// T translates a message by ID. Unknown IDs are returned verbatim so a
// missing translation never blanks out the UI.
func T(ctx context.Context, messageID string) string {
	return TData(ctx, messageID, nil)
}

// TData translates a message that takes template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	msg, err := localizerFrom(ctx).Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// MatchLanguage picks the best supported locale for an Accept-Language
// header value.
func MatchLanguage(acceptLanguage string) language.Tag {
	tag, _ := language.MatchStrings(language.NewMatcher(supported), acceptLanguage)
	return tag
}

func localizerFrom(ctx context.Context) *i18n.Localizer {
	if localizer, ok := ctx.Value(localizerKey).(*i18n.Localizer); ok {
		return localizer
	}
	return i18n.NewLocalizer(bundle, fallback.String())
}
