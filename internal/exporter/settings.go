package exporter

import (
	"errors"
	"fmt"
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notebundle/internal/apperr"
)

// Defaults for Settings.
const (
	DefaultExportFolderName     = "markdown-export-output"
	DefaultAttachmentFolderName = "attachments"
	DefaultCopyWorkers          = 4
)

// Settings control where bundles are written.
type Settings struct {
	// ExportFolderName is the vault folder that receives every bundle.
	ExportFolderName string `yaml:"export_folder_name" json:"export_folder_name"`
	// AttachmentFolderName is the bundle subfolder for copied files.
	AttachmentFolderName string `yaml:"attachment_folder_name" json:"attachment_folder_name"`
	// CopyWorkers bounds concurrent attachment copies. Zero means the default.
	CopyWorkers int `yaml:"copy_workers" json:"copy_workers"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		ExportFolderName:     DefaultExportFolderName,
		AttachmentFolderName: DefaultAttachmentFolderName,
		CopyWorkers:          DefaultCopyWorkers,
	}
}

// Validate rejects empty folder names and folders that leave the vault.
// Errors wrap apperr.ErrInvalidSettings.
func (s *Settings) Validate() error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.ExportFolderName, validation.Required, validation.By(relativeFolder)),
		validation.Field(&s.AttachmentFolderName, validation.Required, validation.By(relativeFolder)),
		validation.Field(&s.CopyWorkers, validation.Min(0), validation.Max(64)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidSettings, err)
	}
	return nil
}

func relativeFolder(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil // Required reports it
	}
	if strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	if strings.HasPrefix(s, "/") || strings.Contains(s, `\`) {
		return errors.New("must be a relative folder name")
	}
	clean := path.Clean(s)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("must stay inside the vault")
	}
	return nil
}

func (s Settings) workers() int {
	if s.CopyWorkers <= 0 {
		return DefaultCopyWorkers
	}
	return s.CopyWorkers
}

// normalized trims surrounding slashes and spaces from the folder names.
func (s Settings) normalized() Settings {
	s.ExportFolderName = path.Clean(strings.Trim(strings.TrimSpace(s.ExportFolderName), "/"))
	s.AttachmentFolderName = path.Clean(strings.Trim(strings.TrimSpace(s.AttachmentFolderName), "/"))
	return s
}
