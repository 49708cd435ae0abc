package i18n

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/kdsmith18542/tmplkit/source"
)

// FileReport describes one file of a message source as seen by Check.
type FileReport struct {
	Source string `json:"source"`
	File   string `json:"file"`
	// Locale is the bundle key the file would be merged into.
	Locale string `json:"locale,omitempty"`
	// Keys is the number of messages the file defines.
	Keys int `json:"keys"`
	// Err is set when the source or file could not be read or parsed.
	Err error `json:"-"`
	// Issues are non-fatal problems, such as empty messages.
	Issues []string `json:"issues,omitempty"`
	// Ignored is true for files without a registered parser.
	Ignored bool `json:"ignored,omitempty"`
}

// Failed reports whether the file would be skipped by Load.
func (r FileReport) Failed() bool {
	return r.Err != nil
}

// Check reads every source the way Load does but reports on each file
// instead of merging them. A source that cannot be listed yields a single
// report with an empty File.
func (l *Loader) Check(ctx context.Context, sources Sources, defaultLocale string) []FileReport {
	if defaultLocale == "" {
		defaultLocale = DefaultLocale
	}
	defaultLocale = normalizeKey(defaultLocale)

	var reports []FileReport
	for _, loc := range sources {
		reports = append(reports, l.checkLocation(ctx, loc, defaultLocale)...)
	}
	return reports
}

func (l *Loader) checkLocation(ctx context.Context, loc Location, defaultLocale string) []FileReport {
	if loc.open == nil {
		return []FileReport{{Source: loc.Name, Err: errors.New("location has no source")}}
	}

	src, owned, err := loc.open(ctx)
	if err != nil {
		return []FileReport{{Source: loc.Name, Err: err}}
	}
	if owned {
		defer src.Close()
	}

	names, err := src.List(ctx)
	if err != nil {
		return []FileReport{{Source: loc.Name, Err: err}}
	}
	sort.Strings(names)

	reports := make([]FileReport, 0, len(names))
	for _, name := range names {
		report := FileReport{Source: loc.Name, File: name}

		parse, err := parserFor(l.opts.parsers, name)
		if err != nil {
			report.Ignored = true
			reports = append(reports, report)
			continue
		}

		locale, ok := localeFromFilename(name)
		if !ok {
			locale = defaultLocale
		}
		report.Locale = locale

		data, err := source.ReadAll(ctx, src, name)
		if err == nil {
			var messages MessageMap
			if messages, err = parse(data); err == nil {
				flat := messages.Flatten()
				report.Keys = len(flat)
				report.Issues = messageIssues(flat)
			}
		}
		report.Err = err
		reports = append(reports, report)
	}
	return reports
}

// messageIssues lists empty or whitespace-padded messages, sorted by key.
func messageIssues(flat map[string]string) []string {
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var issues []string
	for _, key := range keys {
		value := flat[key]
		switch {
		case strings.TrimSpace(value) == "":
			issues = append(issues, key+": empty message")
		case strings.TrimSpace(value) != value:
			issues = append(issues, key+": leading or trailing whitespace")
		}
	}
	return issues
}
