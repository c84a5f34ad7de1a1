package orchestrator

import (
	"os"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

// defaultServiceTokens are the service names whose mention alongside
// "restart" marks a run as needing a service restart.
var defaultServiceTokens = []string{
	"nginx",
	"apache",
	"systemd",
	"docker",
	"postgres",
	"mysql",
	"redis",
	"server",
	"daemon",
	"service",
	"bot",
}

// RestartDetector decides whether a finished run appears to require a
// service restart, based on a configurable token set.
type RestartDetector struct {
	tokens []string
	mu     sync.RWMutex
}

// restartWatchConfig is the restart_watch section of .rumpbot.yaml.
type restartWatchConfig struct {
	RestartWatch struct {
		Services []string `yaml:"services"`
	} `yaml:"restart_watch"`
}

// NewRestartDetector creates a detector with the default token set.
func NewRestartDetector() *RestartDetector {
	return &RestartDetector{
		tokens: append([]string{}, defaultServiceTokens...),
	}
}

// LoadConfig merges service tokens from a .rumpbot.yaml file. A
// missing or malformed file leaves the defaults untouched.
func (d *RestartDetector) LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var cfg restartWatchConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, svc := range cfg.RestartWatch.Services {
		svc = strings.TrimSpace(svc)
		if svc == "" {
			continue
		}
		exists := false
		for _, t := range d.tokens {
			if strings.EqualFold(t, svc) {
				exists = true
				break
			}
		}
		if !exists {
			d.tokens = append(d.tokens, svc)
		}
	}
	return nil
}

// Tokens returns a copy of the current token set.
func (d *RestartDetector) Tokens() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string{}, d.tokens...)
}

// Detect reports whether the concatenated texts mention both "restart"
// and any configured service token, case-insensitively.
func (d *RestartDetector) Detect(texts ...string) bool {
	combined := strings.ToLower(strings.Join(texts, "\n"))
	if !strings.Contains(combined, "restart") {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, token := range d.tokens {
		if strings.Contains(combined, strings.ToLower(token)) {
			return true
		}
	}
	return false
}
