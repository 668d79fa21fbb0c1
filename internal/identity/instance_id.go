package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// InstanceIDFileName is the name of the file where the instance ID is stored
	InstanceIDFileName = "instance_id"
	// InstanceIDDir is the directory where identity files are stored
	InstanceIDDir = ".pgregistry"
)

// InstanceIdentity holds a stable identifier for this registry instance,
// reported on the health endpoint and attached to every log line
type InstanceIdentity struct {
	InstanceID string `json:"instance_id"`
}

// GenerateInstanceIdentity creates a new random instance identity
func GenerateInstanceIdentity() (*InstanceIdentity, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate instance id: %w", err)
	}

	return &InstanceIdentity{
		InstanceID: fmt.Sprintf("pgreg-%s", hex.EncodeToString(buf)),
	}, nil
}

// GetOrCreateInstanceIdentity loads the existing instance identity or creates a new one
func GetOrCreateInstanceIdentity() (*InstanceIdentity, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	idPath := filepath.Join(homeDir, InstanceIDDir, InstanceIDFileName)

	if _, err := os.Stat(idPath); os.IsNotExist(err) {
		identity, err := GenerateInstanceIdentity()
		if err != nil {
			return nil, err
		}

		if err := saveInstanceIdentity(identity, idPath); err != nil {
			return nil, fmt.Errorf("failed to save instance identity: %w", err)
		}

		return identity, nil
	}

	return loadInstanceIdentity(idPath)
}

// saveInstanceIdentity persists the identity to disk with restricted permissions
func saveInstanceIdentity(identity *InstanceIdentity, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	content := fmt.Sprintf("%s\n", identity.InstanceID)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write instance ID file: %w", err)
	}

	return nil
}

// loadInstanceIdentity reads the identity from disk
func loadInstanceIdentity(path string) (*InstanceIdentity, error) {
	// Validate and clean the path to prevent directory traversal attacks
	cleanedPath := filepath.Clean(path)
	if strings.Contains(cleanedPath, "..") {
		return nil, fmt.Errorf("invalid path: directory traversal detected")
	}

	content, err := os.ReadFile(cleanedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read instance ID file: %w", err)
	}

	id := strings.TrimSpace(string(content))
	if id == "" {
		return nil, fmt.Errorf("instance ID file is empty")
	}

	return &InstanceIdentity{InstanceID: id}, nil
}
