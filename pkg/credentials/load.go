package credentials

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileEntry is the on-disk shape of a single credential.
type fileEntry struct {
	Name         string `yaml:"name"`
	SessionToken string `yaml:"session_token"`
	CfClearance  string `yaml:"cf_clearance"`
}

// credentialsFile is the on-disk shape of the credentials file.
type credentialsFile struct {
	Credentials []fileEntry `yaml:"credentials"`
}

// LoadFile reads credentials from a YAML file. Every entry must carry a
// unique name and a session token; cf_clearance is optional because some
// upstream deployments do not sit behind the anti-bot layer.
func LoadFile(path string) ([]*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %q: %w", path, err)
	}

	var file credentialsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %q: %w", path, err)
	}

	if len(file.Credentials) == 0 {
		return nil, fmt.Errorf("credentials file %q contains no credentials", path)
	}

	seen := make(map[string]bool, len(file.Credentials))
	creds := make([]*Credential, 0, len(file.Credentials))
	for i, entry := range file.Credentials {
		if entry.Name == "" {
			return nil, fmt.Errorf("credential at index %d has no name", i)
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("duplicate credential name %q", entry.Name)
		}
		if entry.SessionToken == "" {
			return nil, fmt.Errorf("credential %q has no session_token", entry.Name)
		}
		seen[entry.Name] = true
		creds = append(creds, &Credential{
			Name:         entry.Name,
			SessionToken: entry.SessionToken,
			Clearance:    entry.CfClearance,
			state:        StateHealthy,
		})
	}

	return creds, nil
}
