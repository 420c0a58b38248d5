package toolchain

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"text/template"
)

// ErrUnsupportedArch is returned for architectures appimagetool is not published for.
var ErrUnsupportedArch = errors.New("unsupported architecture")

// Arch maps a GOARCH value to the machine name used by AppImage releases.
func Arch(goarch string) (string, error) {
	switch goarch {
	case "amd64":
		return "x86_64", nil
	case "arm64":
		return "aarch64", nil
	default:
		return "", fmt.Errorf("%s: %w", goarch, ErrUnsupportedArch)
	}
}

// HostArch is Arch for the running binary.
func HostArch() (string, error) {
	return Arch(runtime.GOARCH)
}

// DownloadURL expands {{.Arch}} in the URL template.
func DownloadURL(urlTemplate, arch string) (string, error) {
	tmpl, err := template.New("url").Option("missingkey=error").Parse(urlTemplate)
	if err != nil {
		return "", fmt.Errorf("parse tool URL template: %w", err)
	}

	var sb strings.Builder
	if err = tmpl.Execute(&sb, map[string]string{"Arch": arch}); err != nil {
		return "", fmt.Errorf("expand tool URL template: %w", err)
	}

	return sb.String(), nil
}

// CachedFilename is the name a downloaded tool is stored under.
func CachedFilename(arch string) string {
	return "appimagetool-" + arch + ".AppImage"
}
