// Package terminal collects the retrieval request interactively and
// renders the end-of-run summary.
package terminal

import (
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"cddis/config"
)

// IsInteractive reports whether stdin is attached to a terminal. The
// prompt flow refuses to run against a pipe.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// CollectRequest asks the user for the retrieval parameters.
// converterPresent gates the conversion question: when the converter
// executable is missing the question is skipped entirely and the
// caller reports the warning.
func CollectRequest(converterPresent bool) config.RawRequest {
	var raw config.RawRequest

	raw.Station = ask("Station name (e.g. BRST00FRA), blank for all: ", noCompletion)
	raw.Year = ask("Year (e.g. 2024): ", noCompletion)
	raw.DOY = ask("DOY (e.g. 300 or 300-305): ", noCompletion)
	raw.Subfolder = ask("Subfolder (e.g. 24d, 24o): ", subfolderCompleter(raw.Year))
	raw.Hour = ask("Hour (e.g. 00 or 00-05), blank for all: ", noCompletion)

	raw.Extract = askYesNo("Extract downloaded files? (y/N): ")
	if raw.Extract && converterPresent {
		raw.Convert = askYesNo("Convert to RINEX (.rnx)? (y/N): ")
	}

	return raw
}

// ask reads one trimmed answer.
func ask(question string, completer prompt.Completer) string {
	return strings.TrimSpace(prompt.Input(question, completer,
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
	))
}

// askYesNo treats anything but y/Y as no.
func askYesNo(question string) bool {
	answer := strings.ToLower(ask(question, noCompletion))
	return answer == "y" || answer == "yes"
}

func noCompletion(prompt.Document) []prompt.Suggest {
	return nil
}

// subfolderCompleter suggests the archive's data-type codes for the
// chosen year (the subfolder is the 2-digit year plus a type letter).
func subfolderCompleter(year string) prompt.Completer {
	yy := year
	if len(yy) == 4 {
		yy = yy[2:]
	}
	suggestions := []prompt.Suggest{
		{Text: yy + "d", Description: "Hatanaka-compressed observation data"},
		{Text: yy + "o", Description: "RINEX observation data"},
		{Text: yy + "n", Description: "GPS navigation data"},
		{Text: yy + "g", Description: "GLONASS navigation data"},
	}
	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
	}
}
