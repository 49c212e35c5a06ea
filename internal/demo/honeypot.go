package demo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const DefaultTrapFolder = ".sys_trap"

var baitFiles = []struct {
	prefix string
	ext    string
	body   string
}{
	{"passwords", ".txt", "admin:changeme\n"},
	{"payroll", ".csv", "name,salary\n"},
	{"wallet-backup", ".dat", "seed\n"},
}

// honeypot plants bait files in a trap folder under the watched directory.
type honeypot struct {
	folderName string
}

func newHoneypot(folderName string) *honeypot {
	if strings.TrimSpace(folderName) == "" {
		folderName = DefaultTrapFolder
	}
	return &honeypot{folderName: folderName}
}

func (h *honeypot) trapFolder(root string) string {
	return filepath.Join(root, h.folderName)
}

// deploy writes the bait files and returns their paths.
func (h *honeypot) deploy(root string) ([]string, error) {
	folder := h.trapFolder(root)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create trap folder: %w", err)
	}

	deployed := make([]string, 0, len(baitFiles))
	for _, bait := range baitFiles {
		name := fmt.Sprintf("%s-%s%s", bait.prefix, uuid.NewString()[:8], bait.ext)
		target := filepath.Join(folder, name)
		if err := os.WriteFile(target, []byte(bait.body), 0o644); err != nil {
			return deployed, fmt.Errorf("write bait file: %w", err)
		}
		deployed = append(deployed, target)
	}
	return deployed, nil
}

// contains reports whether path lies inside the trap folder of root.
func (h *honeypot) contains(root, path string) bool {
	rel, err := filepath.Rel(h.trapFolder(root), path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (h *honeypot) cleanup(root string) error {
	if root == "" {
		return nil
	}
	return os.RemoveAll(h.trapFolder(root))
}
