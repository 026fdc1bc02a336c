package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/dyluth/bandstand/internal/config"
	"github.com/dyluth/bandstand/internal/printer"
	"github.com/dyluth/bandstand/internal/tracker"
	"github.com/dyluth/bandstand/pkg/realtime"
)

//go:embed templates/*
var templatesFS embed.FS

// templateData fills templates/bandstand.yml.tmpl
type templateData struct {
	Instance          string
	RedisImage        string
	Table             string
	Channel           string
	ActivityEvent     string
	AnnounceDelay     time.Duration
	HeartbeatInterval time.Duration
	PresenceTTL       time.Duration
	Samples           []realtime.RecordDraft
}

// Initialize writes a default bandstand.yml for instanceName into dir and returns its path.
// If force is true, an existing bandstand.yml is replaced.
func Initialize(dir, instanceName string, force bool) (string, error) {
	if _, err := config.Default(instanceName); err != nil {
		return "", err
	}

	path := filepath.Join(dir, config.DefaultFileName)

	if force {
		if err := handleForce(path); err != nil {
			return "", err
		}
	}

	content, err := renderConfig(instanceName)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", config.DefaultFileName, err)
	}

	// The generated file must load exactly like a hand-written one
	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("created %s is invalid: %w", config.DefaultFileName, err)
	}

	return path, nil
}

// handleForce removes an existing config file if --force was specified
func handleForce(path string) error {
	if _, err := os.Stat(path); err == nil {
		printer.Warning("Removing existing %s...\n", filepath.Base(path))
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func renderConfig(instanceName string) ([]byte, error) {
	raw, err := templatesFS.ReadFile("templates/bandstand.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read bandstand.yml template: %w", err)
	}

	tmpl, err := template.New("bandstand.yml").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bandstand.yml template: %w", err)
	}

	data := templateData{
		Instance:          instanceName,
		RedisImage:        config.DefaultRedisImage,
		Table:             config.DefaultTable,
		Channel:           config.DefaultChannel,
		ActivityEvent:     config.DefaultActivityEvent,
		AnnounceDelay:     config.DefaultAnnounceDelay,
		HeartbeatInterval: config.DefaultHeartbeatInterval,
		PresenceTTL:       config.DefaultPresenceTTL,
		Samples:           tracker.DefaultSamples(),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render bandstand.yml: %w", err)
	}

	return buf.Bytes(), nil
}

// PrintSuccess prints the success message with the created file
func PrintSuccess(path, instanceName string) {
	printer.Success("Initialized Bandstand instance '%s'\n", instanceName)
	printer.Println("\nCreated:")
	printer.Printf("  ✓ %s\n", path)
	printer.Println("\nNext steps:")
	printer.Println("  1. Run 'bandstand up' to start Redis for this instance")
	printer.Println("  2. Run 'bandstand watch' in one or more terminals")
	printer.Println("  3. Run 'bandstand add --sample' and watch every viewer update")
}
