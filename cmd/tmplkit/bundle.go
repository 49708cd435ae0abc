package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kdsmith18542/tmplkit/i18n"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) loadBundle(cmd *cobra.Command) (i18n.MessageBundle, error) {
	sources, err := a.messageSources()
	if err != nil {
		return nil, err
	}
	return i18n.LoadMessageBundles(cmd.Context(), sources, a.cfg.DefaultLocale, a.loaderOptions()...), nil
}

func newBundleCmd(a *app) *cobra.Command {
	var locale string
	var flat bool

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Print the merged message bundle as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := a.loadBundle(cmd)
			if err != nil {
				return err
			}

			if locale == "" {
				if !flat {
					return writeJSON(cmd.OutOrStdout(), bundle)
				}
				out := make(map[string]map[string]string, len(bundle))
				for key, messages := range bundle {
					out[key] = messages.Flatten()
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			key, ok := i18n.NormalizeLocale(locale)
			if !ok {
				return fmt.Errorf("invalid locale %q", locale)
			}
			messages, ok := bundle[key]
			if !ok {
				return fmt.Errorf("locale %s is not in the bundle", key)
			}
			if flat {
				return writeJSON(cmd.OutOrStdout(), messages.Flatten())
			}
			return writeJSON(cmd.OutOrStdout(), messages)
		},
	}
	cmd.Flags().StringVarP(&locale, "locale", "l", "", "Only print the raw messages of this locale")
	cmd.Flags().BoolVar(&flat, "flat", false, "Print dotted keys instead of nested maps")
	return cmd
}

func newMessagesCmd(a *app) *cobra.Command {
	var header string
	var flat, explain bool

	cmd := &cobra.Command{
		Use:   "messages [locale]",
		Short: "Print the messages derived for a locale or Accept-Language header",
		Example: `  tmplkit messages nl_be -s ./locales
  tmplkit messages --header "nl-BE,nl;q=0.9,en;q=0.8" -s ./locales`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := a.loadBundle(cmd)
			if err != nil {
				return err
			}

			var messages i18n.MessageMap
			var res i18n.Resolution
			if len(args) == 1 {
				// A single locale is resolved like a one-entry header.
				messages, res = i18n.Resolve(cmd.Context(), strings.ReplaceAll(args[0], "_", "-"), bundle, a.cfg.DefaultLocale)
				res.Requested = args[0]
			} else {
				messages, res = i18n.Resolve(cmd.Context(), header, bundle, a.cfg.DefaultLocale)
			}

			var out any = messages
			if flat {
				out = messages.Flatten()
			}
			if explain {
				out = map[string]any{"resolution": res, "messages": out}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&header, "header", "", "Accept-Language header to resolve")
	cmd.Flags().BoolVar(&flat, "flat", false, "Print dotted keys instead of nested maps")
	cmd.Flags().BoolVar(&explain, "explain", false, "Include the layers the messages were derived from")
	return cmd
}

func newLocalesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locales",
		Short: "List the locales present in the bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := a.loadBundle(cmd)
			if err != nil {
				return err
			}
			for _, locale := range bundle.Locales() {
				fmt.Fprintln(cmd.OutOrStdout(), locale)
			}
			return nil
		},
	}
}

// missingKeys returns, for every locale other than the default, the keys of
// the default locale that neither the locale nor its language defines.
func missingKeys(bundle i18n.MessageBundle, defaultLocale string) map[string][]string {
	reference := bundle[defaultLocale].Keys()

	missing := make(map[string][]string)
	for _, locale := range bundle.Locales() {
		if locale == defaultLocale {
			continue
		}

		own := i18n.MessageMap{}
		if lang, ok := i18n.LanguageFromLocale(locale); ok && lang != locale {
			own.Merge(bundle[lang])
		}
		own.Merge(bundle[locale])

		keys := []string{}
		for _, key := range reference {
			if _, ok := own.Get(key); !ok {
				keys = append(keys, key)
			}
		}
		missing[locale] = keys
	}
	return missing
}

func newMissingCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "missing",
		Short: "Find keys of the default locale that other locales do not translate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := a.loadBundle(cmd)
			if err != nil {
				return err
			}
			if _, ok := bundle[a.cfg.DefaultLocale]; !ok {
				return fmt.Errorf("default locale %s is not in the bundle", a.cfg.DefaultLocale)
			}

			missing := missingKeys(bundle, a.cfg.DefaultLocale)
			locales := make([]string, 0, len(missing))
			for locale := range missing {
				locales = append(locales, locale)
			}
			sort.Strings(locales)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Comparing %d locales against %s...\n\n", len(locales), a.cfg.DefaultLocale)

			total := 0
			for _, locale := range locales {
				keys := missing[locale]
				if len(keys) == 0 {
					fmt.Fprintf(out, "Locale '%s': ✓ Complete\n", locale)
					continue
				}
				total += len(keys)
				fmt.Fprintf(out, "Locale '%s' is missing %d keys:\n", locale, len(keys))
				for _, key := range keys {
					fmt.Fprintf(out, "  - %s\n", key)
				}
				fmt.Fprintln(out)
			}

			if total == 0 {
				fmt.Fprintln(out, "✓ All locales are complete!")
				return nil
			}
			if strict {
				return fmt.Errorf("%d missing translations", total)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when any key is missing")
	return cmd
}

func newLintCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check every message file for parse errors and suspicious messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.messageSources()
			if err != nil {
				return err
			}

			loader := i18n.NewLoader(a.loaderOptions()...)
			reports := loader.Check(cmd.Context(), sources, a.cfg.DefaultLocale)

			out := cmd.OutOrStdout()
			var failed, issues int
			for _, r := range reports {
				switch {
				case r.File == "":
					failed++
					fmt.Fprintf(out, "%s\n  ❌ %v\n", r.Source, r.Err)
				case r.Ignored:
					fmt.Fprintf(out, "%s/%s\n  - skipped (unknown format)\n", r.Source, r.File)
				case r.Failed():
					failed++
					fmt.Fprintf(out, "%s/%s\n  ❌ %v\n", r.Source, r.File, r.Err)
				default:
					fmt.Fprintf(out, "%s/%s\n  ✓ %d messages for %s\n", r.Source, r.File, r.Keys, r.Locale)
					for _, issue := range r.Issues {
						issues++
						fmt.Fprintf(out, "  ⚠️  %s\n", issue)
					}
				}
			}
			fmt.Fprintln(out)

			if failed > 0 || (strict && issues > 0) {
				return fmt.Errorf("linting found %d errors and %d warnings", failed, issues)
			}
			fmt.Fprintf(out, "✓ %d files checked, %d warnings\n", len(reports), issues)
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	return cmd
}
