package assembler

import (
	"bytes"
	"fmt"
	"text/template"
)

//nolint:gochecknoglobals // Parsed once, read-only afterwards.
var (
	appRunTemplate = template.Must(template.New("AppRun").Parse(`#!/bin/sh
HERE="$(dirname "$(readlink -f "${0}")")"
export LD_LIBRARY_PATH="${HERE}/lib:${LD_LIBRARY_PATH}"
exec "${HERE}/{{.Executable}}" "$@"
`))

	desktopTemplate = template.Must(template.New("desktop").Parse(`[Desktop Entry]
Type=Application
Name={{.Name}}
Exec=AppRun
Icon={{.Icon}}
Categories={{.Categories}}
`))
)

// renderAppRun returns the launcher script for the given executable basename.
func renderAppRun(executable string) ([]byte, error) {
	return render(appRunTemplate, map[string]string{"Executable": executable})
}

// renderDesktopEntry returns the desktop entry contents.
func renderDesktopEntry(name, icon, categories string) ([]byte, error) {
	return render(desktopTemplate, map[string]string{
		"Name":       name,
		"Icon":       icon,
		"Categories": categories,
	})
}

func render(tmpl *template.Template, data map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}

	return buf.Bytes(), nil
}
