package capture

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// AgentLabel is the launchd label of the screenshot agent.
const AgentLabel = "com.github.tonimelisma.shotty"

var plistTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": xmlEscape,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{xml .Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{xml .Executable}}</string>
		<string>mv-last-screenshot</string>
		<string>--source</string>
		<string>{{xml .SourceDir}}</string>
	</array>
	<key>WatchPaths</key>
	<array>
		<string>{{xml .SourceDir}}</string>
	</array>
	<key>StandardErrorPath</key>
	<string>{{xml .LogPath}}</string>
</dict>
</plist>
`))

// Agent describes the launchd job that runs mv-last-screenshot whenever
// the screenshot directory changes.
type Agent struct {
	Label      string
	Executable string
	SourceDir  string
	LogPath    string
}

// Plist renders the launchd property list for a.
func (a Agent) Plist() (string, error) {
	if a.Label == "" {
		a.Label = AgentLabel
	}

	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, a); err != nil {
		return "", fmt.Errorf("capture: rendering plist: %w", err)
	}

	return buf.String(), nil
}

// PlistPath is where launchd looks for the agent definition of the
// current user.
func PlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("capture: locating home directory: %w", err)
	}

	return filepath.Join(home, "Library", "LaunchAgents", AgentLabel+".plist"), nil
}

func xmlEscape(s string) (string, error) {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return "", err
	}

	return buf.String(), nil
}
